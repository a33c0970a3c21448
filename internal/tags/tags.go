// Package tags tracks the user-editable tag lists for an import session.
// Local tag state is kept per transaction checksum, separate from the
// immutable backend suggestions, and is the single source of truth handed to
// the final write.
package tags

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ledgerflow/importd/internal/importer"
)

// Editor holds per-transaction tag state for one session.
type Editor struct {
	mu sync.Mutex

	// local is the editable tag list per transaction checksum.
	local map[string][]string
	// suggested is the read-only provenance snapshot from the backend.
	suggested map[string][]importer.SuggestedTag
	// serverTags is the server-reported known-tag universe.
	serverTags []string
}

// NewEditor seeds an editor from processed transactions: each transaction's
// local list starts as its suggested tags, and serverTags becomes the base of
// the autocomplete universe.
func NewEditor(transactions []importer.ProcessedTransaction, serverTags []string) *Editor {
	e := &Editor{
		local:      make(map[string][]string, len(transactions)),
		suggested:  make(map[string][]importer.SuggestedTag, len(transactions)),
		serverTags: append([]string(nil), serverTags...),
	}
	for _, tx := range transactions {
		e.suggested[tx.Checksum] = append([]importer.SuggestedTag(nil), tx.SuggestedTags...)
		e.local[tx.Checksum] = suggestedNames(tx.SuggestedTags)
	}
	return e
}

func suggestedNames(suggestions []importer.SuggestedTag) []string {
	out := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		if !contains(out, s.Tag) {
			out = append(out, s.Tag)
		}
	}
	return out
}

// Tags returns a copy of a transaction's current tag list.
func (e *Editor) Tags(checksum string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.local[checksum]...)
}

// Suggested returns the immutable suggestion snapshot for attribution display.
func (e *Editor) Suggested(checksum string) []importer.SuggestedTag {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]importer.SuggestedTag(nil), e.suggested[checksum]...)
}

// Add attaches a tag to one transaction. Adding a tag already present is a
// no-op, not an error.
func (e *Editor) Add(checksum, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("tags: empty tag")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.local[checksum]; !ok {
		return fmt.Errorf("tags: unknown transaction %s", checksum)
	}
	if !contains(e.local[checksum], tag) {
		e.local[checksum] = append(append([]string(nil), e.local[checksum]...), tag)
	}
	return nil
}

// Remove detaches a tag from one transaction.
func (e *Editor) Remove(checksum, tag string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	current, ok := e.local[checksum]
	if !ok {
		return fmt.Errorf("tags: unknown transaction %s", checksum)
	}
	next := make([]string, 0, len(current))
	for _, t := range current {
		if t != tag {
			next = append(next, t)
		}
	}
	e.local[checksum] = next
	return nil
}

// AcceptAllSuggestions resets every transaction's local list back to its
// original backend suggestions. This is explicitly destructive: manual edits
// made so far are discarded.
func (e *Editor) AcceptAllSuggestions() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for checksum, suggestions := range e.suggested {
		e.local[checksum] = suggestedNames(suggestions)
	}
}

// ApplyToGroup merges the staged tag set into every listed transaction's
// local list. Union only; existing tags are never removed or replaced.
func (e *Editor) ApplyToGroup(checksums []string, staged []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, checksum := range checksums {
		current, ok := e.local[checksum]
		if !ok {
			continue
		}
		next := append([]string(nil), current...)
		for _, tag := range staged {
			if !contains(next, tag) {
				next = append(next, tag)
			}
		}
		e.local[checksum] = next
	}
}

// GroupSuggestionUnion returns the union of all original suggested tag names
// across the listed transactions, for the "apply suggestions to group" case.
func (e *Editor) GroupSuggestionUnion(checksums []string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var union []string
	for _, checksum := range checksums {
		for _, s := range e.suggested[checksum] {
			if !contains(union, s.Tag) {
				union = append(union, s.Tag)
			}
		}
	}
	return union
}

// KnownTags is the autocomplete universe: server-reported tags plus every tag
// currently attached to any transaction this session, sorted.
func (e *Editor) KnownTags() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.knownTagsLocked()
}

func (e *Editor) knownTagsLocked() []string {
	var universe []string
	for _, t := range e.serverTags {
		if !contains(universe, t) {
			universe = append(universe, t)
		}
	}
	for _, list := range e.local {
		for _, t := range list {
			if !contains(universe, t) {
				universe = append(universe, t)
			}
		}
	}
	sort.Strings(universe)
	return universe
}

// Autocomplete returns candidate tags for a transaction's editor: the known
// universe minus already-attached tags, prefix matches ranked before
// substring matches, case-insensitive.
func (e *Editor) Autocomplete(checksum, query string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	attached := e.local[checksum]
	q := strings.ToLower(strings.TrimSpace(query))

	var prefix, substring []string
	for _, tag := range e.knownTagsLocked() {
		if contains(attached, tag) {
			continue
		}
		lower := strings.ToLower(tag)
		switch {
		case q == "" || strings.HasPrefix(lower, q):
			prefix = append(prefix, tag)
		case strings.Contains(lower, q):
			substring = append(substring, tag)
		}
	}
	return append(prefix, substring...)
}

// Final returns the complete checksum → tag-list map to hand to the write job.
func (e *Editor) Final() map[string][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string][]string, len(e.local))
	for checksum, list := range e.local {
		out[checksum] = append([]string(nil), list...)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
