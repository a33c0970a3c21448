package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ledgerflow/importd/internal/importer"
)

// DefaultModelName is used when no model is configured explicitly.
const DefaultModelName = "gemini-2.0-flash"

// GeminiSuggester asks Gemini to attribute transactions to entities and
// propose tags. It expects the model to return a STRICT JSON array.
type GeminiSuggester struct {
	model string
}

// NewGeminiSuggester creates a suggester for the given model name.
func NewGeminiSuggester(model string) *GeminiSuggester {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiSuggester{model: model}
}

// Suggest implements the Suggester interface.
func (g *GeminiSuggester) Suggest(ctx context.Context, transactions []importer.ParsedTransaction, knownEntities []string) ([]Suggestion, error) {
	if len(transactions) == 0 {
		return nil, nil
	}

	prompt, err := buildPrompt(transactions, knownEntities)
	if err != nil {
		return nil, fmt.Errorf("Suggest: build prompt: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("Suggest: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Suggest: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Suggest: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(clean), &suggestions); err != nil {
		return nil, fmt.Errorf("Suggest: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	return suggestions, nil
}

func buildPrompt(transactions []importer.ParsedTransaction, knownEntities []string) (string, error) {
	type promptTx struct {
		Checksum    string `json:"checksum"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Location    string `json:"location,omitempty"`
	}
	rows := make([]promptTx, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, promptTx{
			Checksum:    tx.Checksum,
			Description: tx.Description,
			Amount:      tx.Amount.String(),
			Location:    tx.Location,
		})
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}

	base :=
		"You are a bank transaction categorizer.\n\n" +
			"Task:\n" +
			"- For EACH transaction below, identify the merchant/payee entity and propose tags.\n" +
			"- Prefer entities from the known list when one clearly matches.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"- Output a JSON array of objects.\n\n" +
			"Each object must have these fields:\n" +
			"- \"checksum\": string, copied from the input transaction\n" +
			"- \"entity_name\": string, the merchant/payee name\n" +
			"- \"confidence\": number between 0 and 1\n" +
			"- \"tags\": array of short tag strings\n\n"

	rules :=
		"Rules:\n" +
			"- Keep entity names concise (e.g. \"Woolworths\", not \"WOOLWORTHS 1234 SYDNEY AU\").\n" +
			"- Omit store numbers and reference codes from entity names.\n" +
			"- Use low confidence when the description is ambiguous.\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Output must begin with \"[\" and end with \"]\".\n"

	return base +
		"Known entities:\n" + strings.Join(knownEntities, ", ") + "\n\n" +
		"Transactions:\n" + string(payload) + "\n\n" + rules, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}
	return s
}

var _ Suggester = (*GeminiSuggester)(nil)
