package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/importd/internal/importer"
)

func seedTx(checksum string, suggested ...string) importer.ProcessedTransaction {
	tx := importer.ProcessedTransaction{
		ParsedTransaction: importer.ParsedTransaction{Checksum: checksum},
	}
	for _, s := range suggested {
		tx.SuggestedTags = append(tx.SuggestedTags, importer.SuggestedTag{
			Tag:    s,
			Source: importer.TagSourceEntity,
		})
	}
	return tx
}

func TestNewEditor_SeedsLocalFromSuggestions(t *testing.T) {
	e := NewEditor([]importer.ProcessedTransaction{
		seedTx("a", "groceries", "weekly"),
		seedTx("b"),
	}, []string{"transport"})

	assert.Equal(t, []string{"groceries", "weekly"}, e.Tags("a"))
	assert.Empty(t, e.Tags("b"))
	// Suggestions stay immutable alongside the editable list.
	require.Len(t, e.Suggested("a"), 2)
	assert.Equal(t, importer.TagSourceEntity, e.Suggested("a")[0].Source)
}

func TestAddRemove(t *testing.T) {
	e := NewEditor([]importer.ProcessedTransaction{seedTx("a", "groceries")}, nil)

	require.NoError(t, e.Add("a", "weekly"))
	assert.Equal(t, []string{"groceries", "weekly"}, e.Tags("a"))

	// Duplicate add is a no-op
	require.NoError(t, e.Add("a", "weekly"))
	assert.Equal(t, []string{"groceries", "weekly"}, e.Tags("a"))

	require.Error(t, e.Add("a", "  "))
	require.Error(t, e.Add("nope", "x"))

	require.NoError(t, e.Remove("a", "groceries"))
	assert.Equal(t, []string{"weekly"}, e.Tags("a"))
	require.Error(t, e.Remove("nope", "x"))
}

func TestAcceptAllSuggestions_DiscardsEdits(t *testing.T) {
	e := NewEditor([]importer.ProcessedTransaction{
		seedTx("a", "groceries"),
		seedTx("b", "coffee"),
	}, nil)

	require.NoError(t, e.Add("a", "custom"))
	require.NoError(t, e.Remove("b", "coffee"))

	e.AcceptAllSuggestions()

	assert.Equal(t, []string{"groceries"}, e.Tags("a"))
	assert.Equal(t, []string{"coffee"}, e.Tags("b"))
}

func TestApplyToGroup_MergeOnly(t *testing.T) {
	e := NewEditor([]importer.ProcessedTransaction{
		seedTx("a", "groceries"),
		seedTx("b", "weekly"),
	}, nil)

	e.ApplyToGroup([]string{"a", "b", "missing"}, []string{"weekly", "tesco"})

	// Existing tags survive; staged tags are unioned in.
	assert.Equal(t, []string{"groceries", "weekly", "tesco"}, e.Tags("a"))
	assert.Equal(t, []string{"weekly", "tesco"}, e.Tags("b"))
}

func TestGroupSuggestionUnion(t *testing.T) {
	e := NewEditor([]importer.ProcessedTransaction{
		seedTx("a", "groceries", "weekly"),
		seedTx("b", "weekly", "food"),
	}, nil)

	// Union preserves first-seen order and drops duplicates; local edits do
	// not leak into it.
	require.NoError(t, e.Add("a", "edited"))
	assert.Equal(t, []string{"groceries", "weekly", "food"}, e.GroupSuggestionUnion([]string{"a", "b"}))
}

func TestKnownTags(t *testing.T) {
	e := NewEditor([]importer.ProcessedTransaction{
		seedTx("a", "groceries"),
	}, []string{"transport", "groceries"})

	require.NoError(t, e.Add("a", "zoo"))

	assert.Equal(t, []string{"groceries", "transport", "zoo"}, e.KnownTags())
}

func TestAutocomplete(t *testing.T) {
	e := NewEditor([]importer.ProcessedTransaction{
		seedTx("a", "food"),
	}, []string{"Food Delivery", "Fast Food", "Fuel", "Transport"})

	// Prefix matches first, then substring, attached tags excluded.
	got := e.Autocomplete("a", "f")
	assert.Equal(t, []string{"Fast Food", "Food Delivery", "Fuel"}, got)

	got = e.Autocomplete("a", "food")
	assert.Equal(t, []string{"Food Delivery", "Fast Food"}, got)

	// Empty query returns the whole unattached universe.
	got = e.Autocomplete("a", "")
	assert.Equal(t, []string{"Fast Food", "Food Delivery", "Fuel", "Transport"}, got)
}

func TestFinal(t *testing.T) {
	e := NewEditor([]importer.ProcessedTransaction{
		seedTx("a", "groceries"),
		seedTx("b"),
	}, nil)
	require.NoError(t, e.Add("b", "coffee"))

	final := e.Final()
	assert.Equal(t, []string{"groceries"}, final["a"])
	assert.Equal(t, []string{"coffee"}, final["b"])

	// Mutating the returned map's slices must not affect the editor.
	final["a"][0] = "tampered"
	assert.Equal(t, []string{"groceries"}, e.Tags("a"))
}
