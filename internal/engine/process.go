package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerflow/importd/internal/importer"
	"github.com/ledgerflow/importd/internal/jobs"
	"github.com/ledgerflow/importd/internal/notion"
	"github.com/ledgerflow/importd/internal/suggest"
)

// classifyLedgerError turns a ledger failure into the warning the review UI
// shows. Database-not-found and generic API failures are both critical.
func classifyLedgerError(err error) importer.Warning {
	return notion.ClassifyError(err)
}

// ProcessStep is a single step in the processing pipeline.
type ProcessStep interface {
	Execute(ctx context.Context, state *ProcessState) error
}

// ProcessState holds the shared state across all processing steps.
type ProcessState struct {
	Account  string
	Parsed   []importer.ParsedTransaction
	Recorder *jobs.ProgressRecorder

	// Raw statement bytes for the optional archive step.
	Raw      []byte
	FileName string

	// Loaded from the ledger.
	Entities []importer.Entity
	Existing map[string]bool

	// Pending holds transactions not yet assigned a bucket.
	Pending []importer.ProcessedTransaction

	Result importer.ProcessResult
}

// RunProcess classifies parsed transactions into the four review buckets.
// A returned error means the job itself failed; per-row and warning-class
// conditions end up on the result instead.
func (e *Engine) RunProcess(ctx context.Context, state *ProcessState) error {
	pipeline := []ProcessStep{
		&archiveStep{engine: e},
		&loadLedgerStep{engine: e},
		&deduplicateStep{engine: e},
		&matchEntitiesStep{engine: e},
		&suggestStep{engine: e},
		&classifyStep{},
	}

	for i, step := range pipeline {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("process step %d: %w", i+1, err)
		}
	}

	state.Recorder.CompleteProcess(&state.Result)
	return nil
}

// archiveStep stores a copy of the raw statement for audit. Failures are
// logged, not fatal.
type archiveStep struct {
	engine *Engine
}

func (s *archiveStep) Execute(ctx context.Context, state *ProcessState) error {
	if s.engine.archiver == nil || len(state.Raw) == 0 {
		return nil
	}
	name := state.FileName
	if name == "" {
		name = "statement.csv"
	}
	uri, err := s.engine.archiver.Archive(ctx, name, state.Raw)
	if err != nil {
		s.engine.log.Warn().Err(err).Str("file", name).Msg("statement archive failed")
		return nil
	}
	s.engine.log.Info().Str("uri", uri).Msg("statement archived")
	return nil
}

// loadLedgerStep fetches the entity directory and, when deduplication is
// enabled, the already-imported checksums. Ledger failures degrade to
// critical warnings so the user can still review what local matching can do.
type loadLedgerStep struct {
	engine *Engine
}

func (s *loadLedgerStep) Execute(ctx context.Context, state *ProcessState) error {
	entities, err := s.engine.ledger.ListEntities(ctx)
	if err != nil {
		s.engine.log.Warn().Err(err).Msg("entity directory unavailable")
		state.Result.Warnings = append(state.Result.Warnings, classifyLedgerError(err))
	}
	state.Entities = entities

	if !s.engine.dedupe {
		state.Result.Warnings = append(state.Result.Warnings, importer.Warning{
			Code:    importer.WarnDeduplicationDisabled,
			Message: "deduplication is disabled; previously imported rows will not be skipped",
		})
		return nil
	}

	existing, err := s.engine.ledger.ExistingChecksums(ctx)
	if err != nil {
		s.engine.log.Warn().Err(err).Msg("checksum lookup unavailable, continuing without dedupe")
		state.Result.Warnings = append(state.Result.Warnings, classifyLedgerError(err))
	}
	state.Existing = existing
	return nil
}

// deduplicateStep moves already-imported rows into the skipped bucket.
type deduplicateStep struct {
	engine *Engine
}

func (s *deduplicateStep) Execute(ctx context.Context, state *ProcessState) error {
	state.Recorder.SetPhase(importer.PhaseDeduplicating)

	for _, tx := range state.Parsed {
		pt := importer.ProcessedTransaction{ParsedTransaction: tx}
		if state.Existing[tx.Checksum] {
			pt.Status = importer.StatusSkipped
			pt.SkipReason = "already imported"
			state.Result.Skipped = append(state.Result.Skipped, pt)
			state.Recorder.AddProcessed(1)
			continue
		}
		state.Pending = append(state.Pending, pt)
	}
	return nil
}

// matchEntitiesStep attributes pending transactions via the entity directory
// (exact) and the pattern rules.
type matchEntitiesStep struct {
	engine *Engine
}

func (s *matchEntitiesStep) Execute(ctx context.Context, state *ProcessState) error {
	state.Recorder.SetPhase(importer.PhaseMatching)

	var unmatched []importer.ProcessedTransaction
	pending := state.Pending

	for start := 0; start < len(pending); start += s.engine.batchSize {
		end := start + s.engine.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		descriptions := make([]string, len(batch))
		for i, tx := range batch {
			descriptions[i] = tx.Description
		}
		state.Recorder.BeginBatch(batchItems(descriptions))

		for i, tx := range batch {
			if entity := s.matchDirectory(tx, state.Entities); entity != nil {
				tx.Status = importer.StatusMatched
				tx.Entity = entity
				tx.SuggestedTags = entityTags(entity.EntityName, state.Entities)
				state.Result.Matched = append(state.Result.Matched, tx)
				state.Recorder.ItemDone(i, true)
				continue
			}
			if entity, rule := s.matchRules(tx, state.Entities); entity != nil {
				tx.Status = importer.StatusMatched
				tx.Entity = entity
				for _, tag := range rule.Tags {
					tx.SuggestedTags = append(tx.SuggestedTags, importer.SuggestedTag{
						Tag:     tag,
						Source:  importer.TagSourceRule,
						Pattern: rule.Pattern,
					})
				}
				state.Result.Matched = append(state.Result.Matched, tx)
				state.Recorder.ItemDone(i, true)
				continue
			}
			unmatched = append(unmatched, tx)
			state.Recorder.ItemDone(i, true)
		}
	}

	state.Pending = unmatched
	return nil
}

// matchDirectory returns an exact attribution when the cleaned description
// contains a known entity name.
func (s *matchEntitiesStep) matchDirectory(tx importer.ProcessedTransaction, entities []importer.Entity) *importer.EntityRef {
	desc := normalize(tx.Description)
	for _, entity := range entities {
		name := normalize(entity.Name)
		if name == "" {
			continue
		}
		if desc == name || strings.Contains(desc, name) {
			return &importer.EntityRef{
				EntityID:   entity.EntityID,
				EntityName: entity.Name,
				EntityURL:  entity.URL,
				MatchType:  importer.MatchExact,
				Confidence: 1,
			}
		}
	}
	return nil
}

// matchRules returns a rule attribution when a pattern matches. The entity
// id is resolved from the directory when the rule's target exists there.
func (s *matchEntitiesStep) matchRules(tx importer.ProcessedTransaction, entities []importer.Entity) (*importer.EntityRef, *Rule) {
	desc := strings.ToUpper(tx.Description)
	for i := range s.engine.rules {
		rule := &s.engine.rules[i]
		if !strings.Contains(desc, strings.ToUpper(rule.Pattern)) {
			continue
		}
		ref := &importer.EntityRef{
			EntityName: rule.EntityName,
			MatchType:  importer.MatchRule,
			Confidence: 0.9,
		}
		for _, entity := range entities {
			if normalize(entity.Name) == normalize(rule.EntityName) {
				ref.EntityID = entity.EntityID
				ref.EntityURL = entity.URL
				break
			}
		}
		if ref.EntityID == "" {
			// Rule points at an entity that doesn't exist yet; surface as a
			// suggestion for review rather than a silent match.
			return nil, nil
		}
		return ref, rule
	}
	return nil, nil
}

// suggestStep asks the model about everything still unmatched. Suggestions
// land in the uncertain bucket for user review, never directly in matched.
type suggestStep struct {
	engine *Engine
}

func (s *suggestStep) Execute(ctx context.Context, state *ProcessState) error {
	if len(state.Pending) == 0 {
		return nil
	}

	if s.engine.suggester == nil {
		state.Result.Warnings = append(state.Result.Warnings, importer.Warning{
			Code:    importer.WarnAICategorizationUnavailable,
			Message: "AI categorization is not configured; unmatched rows need manual review",
		})
		return nil
	}

	names := make([]string, 0, len(state.Entities))
	for _, entity := range state.Entities {
		names = append(names, entity.Name)
	}

	parsed := make([]importer.ParsedTransaction, len(state.Pending))
	for i, tx := range state.Pending {
		parsed[i] = tx.ParsedTransaction
	}

	suggestions, err := s.engine.suggester.Suggest(ctx, parsed, names)
	if err != nil {
		s.engine.log.Warn().Err(err).Msg("suggestion call failed")
		state.Result.Warnings = append(state.Result.Warnings, importer.Warning{
			Code:    importer.WarnAIAPIError,
			Message: "AI suggestion error: " + err.Error(),
		})
		return nil
	}

	byChecksum := make(map[string]suggest.Suggestion, len(suggestions))
	for _, sg := range suggestions {
		byChecksum[sg.Checksum] = sg
	}

	var remaining []importer.ProcessedTransaction
	for _, tx := range state.Pending {
		sg, ok := byChecksum[tx.Checksum]
		if !ok || sg.EntityName == "" {
			remaining = append(remaining, tx)
			continue
		}

		ref := &importer.EntityRef{
			EntityName: sg.EntityName,
			MatchType:  importer.MatchAI,
			Confidence: sg.Confidence,
		}
		for _, entity := range state.Entities {
			if normalize(entity.Name) == normalize(sg.EntityName) {
				ref.EntityID = entity.EntityID
				ref.EntityURL = entity.URL
				break
			}
		}
		tx.Status = importer.StatusUncertain
		tx.Entity = ref
		for _, tag := range sg.Tags {
			tx.SuggestedTags = append(tx.SuggestedTags, importer.SuggestedTag{
				Tag:    tag,
				Source: importer.TagSourceAI,
			})
		}
		state.Result.Uncertain = append(state.Result.Uncertain, tx)
	}

	state.Pending = remaining
	return nil
}

// classifyStep sends whatever is left to the failed bucket.
type classifyStep struct{}

func (s *classifyStep) Execute(ctx context.Context, state *ProcessState) error {
	for _, tx := range state.Pending {
		tx.Status = importer.StatusFailed
		tx.Error = "no matching entity found"
		state.Result.Failed = append(state.Result.Failed, tx)
	}
	state.Pending = nil
	return nil
}

// entityTags builds entity-sourced tag suggestions from the matched entity's
// default tags.
func entityTags(entityName string, entities []importer.Entity) []importer.SuggestedTag {
	for _, entity := range entities {
		if entity.Name != entityName {
			continue
		}
		out := make([]importer.SuggestedTag, 0, len(entity.Tags))
		for _, tag := range entity.Tags {
			out = append(out, importer.SuggestedTag{Tag: tag, Source: importer.TagSourceEntity})
		}
		return out
	}
	return nil
}

func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
