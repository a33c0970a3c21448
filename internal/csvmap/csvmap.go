// Package csvmap maps raw CSV statement headers to semantic fields and
// validates every row into a canonical ParsedTransaction.
package csvmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Record is one CSV row keyed by header name.
type Record map[string]string

// ColumnMap holds the header names assigned to each semantic field. Empty
// means unmapped. Date, Description and Amount are required for validation.
type ColumnMap struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Location    string `json:"location,omitempty"`
}

// Complete reports whether all required fields are mapped.
func (m ColumnMap) Complete() bool {
	return m.Date != "" && m.Description != "" && m.Amount != ""
}

// Ranked pattern lists for auto-detection. Within a field the first pattern
// that matches any header wins, and among headers the first match wins.
var (
	datePatterns        = []string{"date", "transaction date", "posting date"}
	descriptionPatterns = []string{"description", "merchant", "payee"}
	amountPatterns      = []string{"amount", "debit", "credit", "value"}
	locationPatterns    = []string{"town", "city", "town/city", "location"}
)

// DetectColumns guesses a column map from the CSV headers using
// case-insensitive substring matching against ranked pattern lists. Manual
// overrides are applied by the caller mutating the returned map.
func DetectColumns(headers []string) ColumnMap {
	return ColumnMap{
		Date:        firstMatch(headers, datePatterns),
		Description: firstMatch(headers, descriptionPatterns),
		Amount:      firstMatch(headers, amountPatterns),
		Location:    firstMatch(headers, locationPatterns),
	}
}

func firstMatch(headers, patterns []string) string {
	for _, p := range patterns {
		for _, h := range headers {
			if strings.Contains(strings.ToLower(h), p) {
				return h
			}
		}
	}
	return ""
}

// ReadRecords reads an entire CSV stream into header-keyed records. The first
// row is the header. Short rows are padded with empty strings.
func ReadRecords(r io.Reader) (headers []string, rows []Record, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("ReadRecords: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("ReadRecords: file has no header row")
	}

	headers = all[0]
	rows = make([]Record, 0, len(all)-1)
	for _, raw := range all[1:] {
		rec := make(Record, len(headers))
		for i, h := range headers {
			if i < len(raw) {
				rec[h] = raw[i]
			} else {
				rec[h] = ""
			}
		}
		rows = append(rows, rec)
	}
	return headers, rows, nil
}
