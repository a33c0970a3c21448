package suggest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/importd/internal/importer"
)

func TestCleanModelJSON(t *testing.T) {
	want := `[{"checksum":"a","entity_name":"Tesco","confidence":0.9}]`

	tests := []struct {
		name string
		raw  string
	}{
		{name: "already clean", raw: want},
		{name: "fenced", raw: "```json\n" + want + "\n```"},
		{name: "fenced without language", raw: "```\n" + want + "\n```"},
		{name: "preamble and trailer", raw: "Here you go:\n" + want + "\nLet me know!"},
		{name: "whitespace", raw: "\n\n  " + want + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanModelJSON(tt.raw)
			if got != want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, want)
			}
			var parsed []Suggestion
			if err := json.Unmarshal([]byte(got), &parsed); err != nil {
				t.Errorf("cleaned output does not parse: %v", err)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	amount, _ := decimal.NewFromString("-12.50")
	transactions := []importer.ParsedTransaction{
		{Checksum: "abc", Description: "TESCO STORES 2041", Amount: amount, Location: "Leeds"},
	}

	prompt, err := buildPrompt(transactions, []string{"Tesco", "Netflix"})
	if err != nil {
		t.Fatalf("buildPrompt() error = %v", err)
	}

	for _, fragment := range []string{"abc", "TESCO STORES 2041", "-12.5", "Leeds", "Tesco, Netflix", "STRICT JSON"} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}
