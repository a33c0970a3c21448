// Package review implements the four-bucket transaction review state machine.
// All user review operations go through a single Dispatch entry point with a
// closed set of actions; bucket mutations are whole-array replacements keyed
// by checksum, so no partial state is ever observable.
package review

import (
	"fmt"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerflow/importd/internal/importer"
	"github.com/ledgerflow/importd/internal/match"
)

// State holds the four mutually exclusive buckets. Slices are replaced, never
// spliced in place.
type State struct {
	Matched   []importer.ProcessedTransaction `json:"matched"`
	Uncertain []importer.ProcessedTransaction `json:"uncertain"`
	Failed    []importer.ProcessedTransaction `json:"failed"`
	Skipped   []importer.ProcessedTransaction `json:"skipped"`
	Warnings  []importer.Warning              `json:"warnings,omitempty"`
}

// Unresolved is the advance gate: review is complete only when this is zero.
func (s State) Unresolved() int {
	return len(s.Uncertain) + len(s.Failed)
}

// Reviewer owns the review state for one import session.
type Reviewer struct {
	mu    sync.Mutex
	state State
	log   zerolog.Logger
}

// New seeds a reviewer from the processing job's result.
func New(result importer.ProcessResult, log zerolog.Logger) *Reviewer {
	return &Reviewer{
		state: State{
			Matched:   append([]importer.ProcessedTransaction(nil), result.Matched...),
			Uncertain: append([]importer.ProcessedTransaction(nil), result.Uncertain...),
			Failed:    append([]importer.ProcessedTransaction(nil), result.Failed...),
			Skipped:   append([]importer.ProcessedTransaction(nil), result.Skipped...),
			Warnings:  append([]importer.Warning(nil), result.Warnings...),
		},
		log: log,
	}
}

// Snapshot returns a copy of the current state safe for concurrent readers.
func (r *Reviewer) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Matched:   append([]importer.ProcessedTransaction(nil), r.state.Matched...),
		Uncertain: append([]importer.ProcessedTransaction(nil), r.state.Uncertain...),
		Failed:    append([]importer.ProcessedTransaction(nil), r.state.Failed...),
		Skipped:   append([]importer.ProcessedTransaction(nil), r.state.Skipped...),
		Warnings:  append([]importer.Warning(nil), r.state.Warnings...),
	}
}

// CanAdvance reports whether the import action is enabled.
func (r *Reviewer) CanAdvance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Unresolved() == 0
}

// Action is one review operation. The set is closed; handlers switch on the
// concrete type.
type Action interface {
	name() string
}

// SelectEntity manually assigns an entity to a single unresolved transaction.
type SelectEntity struct {
	Checksum string
	Entity   importer.EntityRef
}

func (SelectEntity) name() string { return "select_entity" }

// PropagateMatches applies a previously confirmed entity to a set of similar
// transactions found by the similarity matcher.
type PropagateMatches struct {
	Checksums []string
	Entity    importer.EntityRef
}

func (PropagateMatches) name() string { return "propagate_matches" }

// AcceptSuggestion accepts a single transaction's suggested entity as-is.
type AcceptSuggestion struct {
	Checksum string
}

func (AcceptSuggestion) name() string { return "accept_suggestion" }

// AcceptGroup bulk-accepts every resolvable transaction in an entity group.
type AcceptGroup struct {
	EntityName string
}

func (AcceptGroup) name() string { return "accept_group" }

// AssignEntityToGroup attributes a newly created entity to every transaction
// in a group.
type AssignEntityToGroup struct {
	EntityName string
	Entity     importer.Entity
}

func (AssignEntityToGroup) name() string { return "assign_entity_to_group" }

// EditFields merges edited fields into a transaction in place, without
// changing its bucket. Nil fields are left untouched.
type EditFields struct {
	Checksum    string
	Date        *civil.Date
	Description *string
	Amount      *decimal.Decimal
	Location    *string
}

func (EditFields) name() string { return "edit_fields" }

// Outcome carries any follow-up the caller may surface to the user.
type Outcome struct {
	// Moved lists the checksums whose bucket changed.
	Moved []string
	// Similar holds unresolved transactions that look like the one just
	// confirmed; the caller may offer one-click propagation.
	Similar []importer.ProcessedTransaction
}

// Dispatch applies one action. Validation happens before any mutation, so a
// failed action leaves every bucket untouched.
func (r *Reviewer) Dispatch(action Action) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Outcome
	var err error

	switch a := action.(type) {
	case SelectEntity:
		out, err = r.selectEntity(a)
	case PropagateMatches:
		out, err = r.propagateMatches(a)
	case AcceptSuggestion:
		out, err = r.acceptSuggestion(a)
	case AcceptGroup:
		out, err = r.acceptGroup(a)
	case AssignEntityToGroup:
		out, err = r.assignEntityToGroup(a)
	case EditFields:
		out, err = r.editFields(a)
	default:
		return Outcome{}, fmt.Errorf("review: unknown action %T", action)
	}

	if err != nil {
		return Outcome{}, fmt.Errorf("review: %s: %w", action.name(), err)
	}
	r.log.Debug().Str("action", action.name()).Int("moved", len(out.Moved)).Int("unresolved", r.state.Unresolved()).Msg("review action applied")
	return out, nil
}

func (r *Reviewer) selectEntity(a SelectEntity) (Outcome, error) {
	entity := a.Entity
	entity.MatchType = importer.MatchManual
	entity.Confidence = 1
	if !entity.Resolvable() {
		return Outcome{}, fmt.Errorf("entity for %s is not resolvable", a.Checksum)
	}

	tx, ok := r.takeUnresolved(a.Checksum)
	if !ok {
		return Outcome{}, fmt.Errorf("transaction %s not found in uncertain or failed", a.Checksum)
	}

	r.moveToMatched(tx, entity)

	remaining := append(append([]importer.ProcessedTransaction(nil), r.state.Uncertain...), r.state.Failed...)
	similar := match.FindSimilar(tx, remaining)

	return Outcome{Moved: []string{a.Checksum}, Similar: similar}, nil
}

func (r *Reviewer) propagateMatches(a PropagateMatches) (Outcome, error) {
	entity := a.Entity
	entity.MatchType = importer.MatchAuto
	if !entity.Resolvable() {
		return Outcome{}, fmt.Errorf("propagated entity is not resolvable")
	}

	// Validate the whole set before moving anything.
	for _, checksum := range a.Checksums {
		if !r.inUnresolved(checksum) {
			return Outcome{}, fmt.Errorf("transaction %s not found in uncertain or failed", checksum)
		}
	}

	var moved []string
	for _, checksum := range a.Checksums {
		tx, _ := r.takeUnresolved(checksum)
		r.moveToMatched(tx, entity)
		moved = append(moved, checksum)
	}
	return Outcome{Moved: moved}, nil
}

func (r *Reviewer) acceptSuggestion(a AcceptSuggestion) (Outcome, error) {
	tx, ok := r.findUnresolved(a.Checksum)
	if !ok {
		return Outcome{}, fmt.Errorf("transaction %s not found in uncertain or failed", a.Checksum)
	}
	if !tx.Entity.Resolvable() {
		// The suggested entity does not exist yet; the caller must go through
		// the entity-creation flow instead.
		return Outcome{}, fmt.Errorf("suggested entity for %s has no id: %w", a.Checksum, ErrEntityNotCreated)
	}

	taken, _ := r.takeUnresolved(a.Checksum)
	r.moveToMatched(taken, *taken.Entity)
	return Outcome{Moved: []string{a.Checksum}}, nil
}

func (r *Reviewer) acceptGroup(a AcceptGroup) (Outcome, error) {
	var moved []string
	for _, tx := range r.unresolvedInGroup(a.EntityName) {
		if !tx.Entity.Resolvable() {
			// Left untouched, never silently matched.
			continue
		}
		taken, _ := r.takeUnresolved(tx.Checksum)
		entity := *taken.Entity
		entity.MatchType = importer.MatchAI
		r.moveToMatched(taken, entity)
		moved = append(moved, tx.Checksum)
	}
	if len(moved) == 0 {
		return Outcome{}, fmt.Errorf("group %q has no resolvable transactions", a.EntityName)
	}
	return Outcome{Moved: moved}, nil
}

func (r *Reviewer) assignEntityToGroup(a AssignEntityToGroup) (Outcome, error) {
	if a.Entity.EntityID == "" || a.Entity.Name == "" {
		return Outcome{}, fmt.Errorf("created entity is missing id or name")
	}
	members := r.unresolvedInGroup(a.EntityName)
	if len(members) == 0 {
		return Outcome{}, fmt.Errorf("group %q has no unresolved transactions", a.EntityName)
	}

	entity := importer.EntityRef{
		EntityID:   a.Entity.EntityID,
		EntityName: a.Entity.Name,
		EntityURL:  a.Entity.URL,
		MatchType:  importer.MatchAI,
	}

	var moved []string
	for _, tx := range members {
		taken, _ := r.takeUnresolved(tx.Checksum)
		r.moveToMatched(taken, entity)
		moved = append(moved, tx.Checksum)
	}
	return Outcome{Moved: moved}, nil
}

func (r *Reviewer) editFields(a EditFields) (Outcome, error) {
	edit := func(bucket []importer.ProcessedTransaction) ([]importer.ProcessedTransaction, bool) {
		for i, tx := range bucket {
			if tx.Checksum != a.Checksum {
				continue
			}
			updated := tx
			if a.Date != nil {
				updated.Date = *a.Date
			}
			if a.Description != nil {
				updated.Description = *a.Description
			}
			if a.Amount != nil {
				updated.Amount = *a.Amount
			}
			if a.Location != nil {
				updated.Location = *a.Location
			}
			updated.ManuallyEdited = true

			next := append([]importer.ProcessedTransaction(nil), bucket...)
			next[i] = updated
			return next, true
		}
		return bucket, false
	}

	for _, b := range []*[]importer.ProcessedTransaction{&r.state.Matched, &r.state.Uncertain, &r.state.Failed, &r.state.Skipped} {
		if next, ok := edit(*b); ok {
			*b = next
			return Outcome{}, nil
		}
	}
	return Outcome{}, fmt.Errorf("transaction %s not found in any bucket", a.Checksum)
}

// Groups returns the current uncertain∪failed transactions grouped for the
// review screen.
func (r *Reviewer) Groups() []importer.TransactionGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	unresolved := append(append([]importer.ProcessedTransaction(nil), r.state.Uncertain...), r.state.Failed...)
	return match.GroupByEntity(unresolved)
}

// Confirm projects the matched bucket into write-ready transactions, looking
// up each transaction's final tag list by checksum. It fails if the advance
// gate is not satisfied.
func (r *Reviewer) Confirm(tagsFor func(checksum string) []string) ([]importer.ConfirmedTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := r.state.Unresolved(); n > 0 {
		return nil, fmt.Errorf("review: %d transactions still unresolved", n)
	}

	confirmed := make([]importer.ConfirmedTransaction, 0, len(r.state.Matched))
	for i := range r.state.Matched {
		var tags []string
		if tagsFor != nil {
			tags = tagsFor(r.state.Matched[i].Checksum)
		}
		ct, err := r.state.Matched[i].Confirm(tags)
		if err != nil {
			return nil, err
		}
		confirmed = append(confirmed, ct)
	}
	return confirmed, nil
}
