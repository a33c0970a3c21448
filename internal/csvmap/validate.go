package csvmap

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ledgerflow/importd/internal/importer"
)

// MaxDisplayedErrors caps the error list returned to the caller. Validation
// still processes every row; ErrorCount carries the full total.
const MaxDisplayedErrors = 10

// Result is the outcome of validating all rows. Parsed contains only the
// rows that passed both date and amount checks; the caller decides whether
// Valid gates advancement.
type Result struct {
	Valid      bool                         `json:"valid"`
	Errors     []string                     `json:"errors,omitempty"`
	ErrorCount int                          `json:"error_count"`
	Parsed     []importer.ParsedTransaction `json:"parsed"`
}

// ValidateAllRows validates and parses every row against the column map.
// If any required field is unmapped it fails fast with a single aggregate
// error and parses nothing. Row numbers in error messages are human-readable:
// CSV data row index + 2, accounting for the header line.
func ValidateAllRows(rows []Record, cm ColumnMap, account string) Result {
	if !cm.Complete() {
		var missing []string
		if cm.Date == "" {
			missing = append(missing, "date")
		}
		if cm.Description == "" {
			missing = append(missing, "description")
		}
		if cm.Amount == "" {
			missing = append(missing, "amount")
		}
		return Result{
			Valid:      false,
			Errors:     []string{fmt.Sprintf("required columns not mapped: %s", strings.Join(missing, ", "))},
			ErrorCount: 1,
		}
	}

	res := Result{Parsed: make([]importer.ParsedTransaction, 0, len(rows))}

	for i, row := range rows {
		rowNum := i + 2

		date, err := ParseDate(row[cm.Date])
		if err != nil {
			res.recordError(fmt.Sprintf("row %d: invalid date %q", rowNum, row[cm.Date]))
			continue
		}

		amount, err := ParseAmount(row[cm.Amount])
		if err != nil {
			res.recordError(fmt.Sprintf("row %d: invalid amount %q", rowNum, row[cm.Amount]))
			continue
		}

		raw, checksum := serializeRow(row)

		tx := importer.ParsedTransaction{
			Date:        date,
			Description: row[cm.Description],
			Amount:      amount,
			Account:     account,
			Online:      detectOnline(row[cm.Description]),
			RawRow:      raw,
			Checksum:    checksum,
		}
		if cm.Location != "" {
			tx.Location = titleCase(row[cm.Location])
		}
		res.Parsed = append(res.Parsed, tx)
	}

	res.Valid = res.ErrorCount == 0
	return res
}

func (r *Result) recordError(msg string) {
	r.ErrorCount++
	if len(r.Errors) < MaxDisplayedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// ParseDate parses a statement date strictly as DD/MM/YYYY. Any other shape
// is a hard failure, not a warning.
func ParseDate(s string) (civil.Date, error) {
	t, err := time.Parse("02/01/2006", strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("ParseDate: %w", err)
	}
	return civil.DateOf(t), nil
}

// ParseAmount parses a statement amount and flips the sign convention:
// the source reports expenses as positive, the canonical form is negative =
// expense. All characters except digits, '.' and '-' are stripped first.
func ParseAmount(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("ParseAmount: %q: %w", s, err)
	}
	return d.Neg(), nil
}

// serializeRow produces the canonical serialized form of a raw row and its
// content checksum. JSON object keys are emitted sorted, so the serialization
// is stable for an unchanged row.
func serializeRow(row Record) (raw, checksum string) {
	b, err := json.Marshal(row)
	if err != nil {
		// A map[string]string cannot fail to marshal; keep the row readable anyway.
		b = []byte(fmt.Sprintf("%v", row))
	}
	sum := sha256.Sum256(b)
	return string(b), hex.EncodeToString(sum[:])
}

var onlineKeywords = []string{"online", "internet", "web", "paypal", "amazon", "subscription", "digital"}

func detectOnline(description string) bool {
	d := strings.ToLower(description)
	for _, kw := range onlineKeywords {
		if strings.Contains(d, kw) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
