// Package importer defines the domain types shared across the statement
// import pipeline: parsed CSV rows, processed (reconciled) transactions,
// the review buckets, and the progress contract polled by clients.
package importer

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Status classifies a processed transaction into one of the four mutually
// exclusive review buckets.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusUncertain Status = "uncertain"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// MatchType records the provenance of an entity attribution.
type MatchType string

const (
	// MatchManual means the user picked the entity by hand.
	MatchManual MatchType = "manual"
	// MatchAuto means the attribution was propagated from a similar transaction.
	MatchAuto MatchType = "auto-matched"
	// MatchAI means the entity was suggested by the model.
	MatchAI MatchType = "ai"
	// MatchRule means a pattern rule produced the attribution.
	MatchRule MatchType = "rule"
	// MatchExact means the description matched a known entity name exactly.
	MatchExact MatchType = "exact"
)

// ParsedTransaction is the output of CSV ingestion. Every instance has passed
// date and amount validation; Checksum is the stable identity key used across
// the whole pipeline.
type ParsedTransaction struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"` // negative = expense
	Account     string          `json:"account"`
	Location    string          `json:"location,omitempty"`
	Online      bool            `json:"online"`
	RawRow      string          `json:"raw_row"`
	Checksum    string          `json:"checksum"`
}

// EntityRef is an attribution of a transaction to a merchant/payee record in
// the external ledger.
type EntityRef struct {
	EntityID   string    `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	EntityURL  string    `json:"entity_url,omitempty"`
	MatchType  MatchType `json:"match_type"`
	Confidence float64   `json:"confidence"`
}

// Resolvable reports whether the reference identifies a concrete entity that
// a transaction can be imported against.
func (e *EntityRef) Resolvable() bool {
	return e != nil && e.EntityID != "" && e.EntityName != ""
}

// TagSource identifies where a suggested tag came from.
type TagSource string

const (
	TagSourceAI     TagSource = "ai"
	TagSourceRule   TagSource = "rule"
	TagSourceEntity TagSource = "entity"
)

// Valid reports whether s is one of the known tag sources.
func (s TagSource) Valid() bool {
	switch s {
	case TagSourceAI, TagSourceRule, TagSourceEntity:
		return true
	}
	return false
}

// SuggestedTag is a backend-proposed tag with source attribution. It is
// immutable once attached; the user-editable tag list is tracked separately.
type SuggestedTag struct {
	Tag     string    `json:"tag"`
	Source  TagSource `json:"source"`
	Pattern string    `json:"pattern,omitempty"` // set when Source is rule
}

// ProcessedTransaction is a parsed transaction after the processing job has
// classified it. Bucket membership is tracked by the containing slice, Status
// mirrors it.
type ProcessedTransaction struct {
	ParsedTransaction

	Status         Status         `json:"status"`
	Entity         *EntityRef     `json:"entity,omitempty"`
	Error          string         `json:"error,omitempty"`
	SkipReason     string         `json:"skip_reason,omitempty"`
	SuggestedTags  []SuggestedTag `json:"suggested_tags,omitempty"`
	ManuallyEdited bool           `json:"manually_edited,omitempty"`
}

// ConfirmedTransaction is the write-ready projection of a matched
// transaction. Tags is the user-edited final list, distinct from the original
// suggestions.
type ConfirmedTransaction struct {
	ParsedTransaction

	EntityID   string   `json:"entity_id"`
	EntityName string   `json:"entity_name"`
	EntityURL  string   `json:"entity_url,omitempty"`
	Tags       []string `json:"tags"`
}

// Confirm projects a matched transaction into its write-ready form. It fails
// if the transaction is not matched or lacks a resolvable entity.
func (t *ProcessedTransaction) Confirm(tags []string) (ConfirmedTransaction, error) {
	if t.Status != StatusMatched {
		return ConfirmedTransaction{}, fmt.Errorf("confirm %s: status is %q, want %q", t.Checksum, t.Status, StatusMatched)
	}
	if !t.Entity.Resolvable() {
		return ConfirmedTransaction{}, fmt.Errorf("confirm %s: entity is not resolvable", t.Checksum)
	}
	return ConfirmedTransaction{
		ParsedTransaction: t.ParsedTransaction,
		EntityID:          t.Entity.EntityID,
		EntityName:        t.Entity.EntityName,
		EntityURL:         t.Entity.EntityURL,
		Tags:              append([]string(nil), tags...),
	}, nil
}

// TransactionGroup is an ephemeral, derived grouping of transactions by
// entity name. It is recomputed from current bucket contents and never stored.
type TransactionGroup struct {
	EntityName   string                 `json:"entity_name"`
	Category     string                 `json:"category,omitempty"`
	Transactions []ProcessedTransaction `json:"transactions"`
	AISuggestion bool                   `json:"ai_suggestion"`
}

// ProcessResult is the terminal payload of the processing job: the four
// buckets plus any non-fatal warnings.
type ProcessResult struct {
	Matched   []ProcessedTransaction `json:"matched"`
	Uncertain []ProcessedTransaction `json:"uncertain"`
	Failed    []ProcessedTransaction `json:"failed"`
	Skipped   []ProcessedTransaction `json:"skipped"`
	Warnings  []Warning              `json:"warnings,omitempty"`
}

// Total returns the number of transactions across all buckets.
func (r *ProcessResult) Total() int {
	return len(r.Matched) + len(r.Uncertain) + len(r.Failed) + len(r.Skipped)
}

// ImportResult is the terminal payload of the execute (write) job.
type ImportResult struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors,omitempty"`
	Warnings []Warning  `json:"warnings,omitempty"`
}

// RowError records a per-row failure during a background job. The job keeps
// going; these accumulate on the progress snapshot.
type RowError struct {
	Description string `json:"description"`
	Error       string `json:"error"`
}

// Entity is a merchant/payee record in the external ledger system.
type Entity struct {
	EntityID string   `json:"entity_id"`
	Name     string   `json:"name"`
	URL      string   `json:"url,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}
