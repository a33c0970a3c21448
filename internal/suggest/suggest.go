// Package suggest produces entity and tag suggestions for parsed
// transactions. The model-backed implementation is optional; when it is not
// configured the processing job reports AI categorization as unavailable and
// carries on with exact and rule matching only.
package suggest

import (
	"context"

	"github.com/ledgerflow/importd/internal/importer"
)

// Suggestion is the model's proposal for one transaction, keyed by checksum.
type Suggestion struct {
	Checksum   string   `json:"checksum"`
	EntityName string   `json:"entity_name"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags,omitempty"`
}

// Suggester proposes entities and tags for transactions the directory could
// not match.
type Suggester interface {
	Suggest(ctx context.Context, transactions []importer.ParsedTransaction, knownEntities []string) ([]Suggestion, error)
}
