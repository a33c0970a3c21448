package review

import (
	"errors"

	"github.com/ledgerflow/importd/internal/importer"
)

// ErrEntityNotCreated signals that a suggested entity has no backing record
// yet; the caller should redirect to the entity-creation flow.
var ErrEntityNotCreated = errors.New("suggested entity does not exist yet")

// findUnresolved returns the transaction with the given checksum from the
// uncertain or failed bucket without removing it.
func (r *Reviewer) findUnresolved(checksum string) (importer.ProcessedTransaction, bool) {
	for _, bucket := range [][]importer.ProcessedTransaction{r.state.Uncertain, r.state.Failed} {
		for _, tx := range bucket {
			if tx.Checksum == checksum {
				return tx, true
			}
		}
	}
	return importer.ProcessedTransaction{}, false
}

func (r *Reviewer) inUnresolved(checksum string) bool {
	_, ok := r.findUnresolved(checksum)
	return ok
}

// takeUnresolved removes and returns the transaction with the given checksum
// from whichever of uncertain/failed holds it. The source bucket is replaced
// with a fresh slice.
func (r *Reviewer) takeUnresolved(checksum string) (importer.ProcessedTransaction, bool) {
	if tx, next, ok := removeByChecksum(r.state.Uncertain, checksum); ok {
		r.state.Uncertain = next
		return tx, true
	}
	if tx, next, ok := removeByChecksum(r.state.Failed, checksum); ok {
		r.state.Failed = next
		return tx, true
	}
	return importer.ProcessedTransaction{}, false
}

// moveToMatched pushes a fresh transaction object carrying the attribution
// into the matched bucket.
func (r *Reviewer) moveToMatched(tx importer.ProcessedTransaction, entity importer.EntityRef) {
	moved := tx
	moved.Status = importer.StatusMatched
	e := entity
	moved.Entity = &e
	moved.Error = ""
	r.state.Matched = append(append([]importer.ProcessedTransaction(nil), r.state.Matched...), moved)
}

// unresolvedInGroup lists the uncertain∪failed transactions whose suggested
// entity name matches the group key.
func (r *Reviewer) unresolvedInGroup(entityName string) []importer.ProcessedTransaction {
	var members []importer.ProcessedTransaction
	for _, bucket := range [][]importer.ProcessedTransaction{r.state.Uncertain, r.state.Failed} {
		for _, tx := range bucket {
			if tx.Entity != nil && tx.Entity.EntityName == entityName {
				members = append(members, tx)
			}
		}
	}
	return members
}

func removeByChecksum(bucket []importer.ProcessedTransaction, checksum string) (importer.ProcessedTransaction, []importer.ProcessedTransaction, bool) {
	for i, tx := range bucket {
		if tx.Checksum == checksum {
			next := make([]importer.ProcessedTransaction, 0, len(bucket)-1)
			next = append(next, bucket[:i]...)
			next = append(next, bucket[i+1:]...)
			return tx, next, true
		}
	}
	return importer.ProcessedTransaction{}, bucket, false
}
