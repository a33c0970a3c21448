package engine

import (
	"context"

	"github.com/ledgerflow/importd/internal/importer"
	"github.com/ledgerflow/importd/internal/jobs"
)

// RunExecute writes confirmed transactions to the ledger in batches. A
// failed row does not abort the run; it is tallied and the job moves on.
// Repeated ledger failures of the same class produce one warning, not one
// per row.
func (e *Engine) RunExecute(ctx context.Context, confirmed []importer.ConfirmedTransaction, recorder *jobs.ProgressRecorder) error {
	recorder.SetPhase(importer.PhaseWriting)

	result := importer.ImportResult{}
	seenWarnings := make(map[importer.WarningCode]bool)

	for start := 0; start < len(confirmed); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + e.batchSize
		if end > len(confirmed) {
			end = len(confirmed)
		}
		batch := confirmed[start:end]

		descriptions := make([]string, len(batch))
		for i, tx := range batch {
			descriptions[i] = tx.Description
		}
		recorder.BeginBatch(batchItems(descriptions))

		for i, tx := range batch {
			if err := e.ledger.WriteTransaction(ctx, tx); err != nil {
				e.log.Warn().Err(err).Str("checksum", tx.Checksum).Msg("transaction write failed")
				result.Failed++
				result.Errors = append(result.Errors, importer.RowError{
					Description: tx.Description,
					Error:       err.Error(),
				})
				warning := classifyLedgerError(err)
				if !seenWarnings[warning.Code] {
					seenWarnings[warning.Code] = true
					result.Warnings = append(result.Warnings, warning)
				}
				recorder.RowError(tx.Description, err.Error())
				recorder.ItemDone(i, false)
				continue
			}
			result.Imported++
			recorder.ItemDone(i, true)
		}
	}

	recorder.CompleteImport(&result)
	return nil
}
