// Package engine runs the two background jobs of an import session: the
// processing job (deduplicate, match entities, suggest) and the execute job
// (write confirmed transactions to the ledger). Both report through a
// progress recorder that clients poll.
package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ledgerflow/importd/internal/archive"
	"github.com/ledgerflow/importd/internal/importer"
	"github.com/ledgerflow/importd/internal/suggest"
)

// Ledger is the slice of the external system of record the engine needs.
type Ledger interface {
	ListEntities(ctx context.Context) ([]importer.Entity, error)
	ExistingChecksums(ctx context.Context) (map[string]bool, error)
	WriteTransaction(ctx context.Context, tx importer.ConfirmedTransaction) error
}

// Rule attributes transactions whose description contains Pattern
// (case-insensitive) to an entity, optionally proposing tags.
type Rule struct {
	Pattern    string   `json:"pattern"`
	EntityName string   `json:"entity_name"`
	Tags       []string `json:"tags,omitempty"`
}

// Options configures an engine.
type Options struct {
	// Suggester is optional; nil reports AI categorization as unavailable.
	Suggester suggest.Suggester
	// Archiver is optional; nil disables statement archiving.
	Archiver archive.Archiver
	// Rules are applied after exact directory matching.
	Rules []Rule
	// Deduplicate controls the pass against already-imported checksums.
	Deduplicate bool
	// BatchSize bounds progress batches; zero means a sensible default.
	BatchSize int
}

// Engine executes import jobs against a ledger.
type Engine struct {
	ledger    Ledger
	suggester suggest.Suggester
	archiver  archive.Archiver
	rules     []Rule
	dedupe    bool
	batchSize int
	log       zerolog.Logger
}

// New creates an engine.
func New(ledger Ledger, opts Options, log zerolog.Logger) *Engine {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 10
	}
	return &Engine{
		ledger:    ledger,
		suggester: opts.Suggester,
		archiver:  opts.Archiver,
		rules:     opts.Rules,
		dedupe:    opts.Deduplicate,
		batchSize: batch,
		log:       log,
	}
}

// batchItems builds the display items for one progress batch.
func batchItems(descriptions []string) []importer.BatchItem {
	items := make([]importer.BatchItem, len(descriptions))
	for i, d := range descriptions {
		items[i] = importer.BatchItem{Description: d, Status: importer.BatchProcessing}
	}
	return items
}
