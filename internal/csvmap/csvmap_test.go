package csvmap

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDetectColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    ColumnMap
	}{
		{
			name:    "barclays style headers",
			headers: []string{"Transaction Date", "Description", "Amount", "Town/City"},
			want: ColumnMap{
				Date:        "Transaction Date",
				Description: "Description",
				Amount:      "Amount",
				Location:    "Town/City",
			},
		},
		{
			name:    "case insensitive",
			headers: []string{"DATE", "MERCHANT", "VALUE"},
			want: ColumnMap{
				Date:        "DATE",
				Description: "MERCHANT",
				Amount:      "VALUE",
			},
		},
		{
			name:    "pattern rank beats header order",
			headers: []string{"Credit", "Debit", "Posting Date", "Payee"},
			want: ColumnMap{
				Date:        "Posting Date",
				Description: "Payee",
				// "debit" outranks "credit" in the pattern list even though
				// the credit column comes first in the file.
				Amount: "Debit",
			},
		},
		{
			name:    "unrecognized headers stay unmapped",
			headers: []string{"Foo", "Bar", "Baz"},
			want:    ColumnMap{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectColumns(tt.headers)
			if got != tt.want {
				t.Errorf("DetectColumns() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestColumnMapComplete(t *testing.T) {
	complete := ColumnMap{Date: "Date", Description: "Description", Amount: "Amount"}
	if !complete.Complete() {
		t.Error("map with all required fields should be complete")
	}
	if (ColumnMap{Date: "Date", Amount: "Amount"}).Complete() {
		t.Error("map without description should not be complete")
	}
	// Location is optional
	if !(ColumnMap{Date: "d", Description: "de", Amount: "a"}).Complete() {
		t.Error("location must not be required")
	}
}

func TestReadRecords(t *testing.T) {
	input := "Date,Description,Amount\n01/02/2024,COFFEE SHOP,3.50\n02/02/2024,SHORT ROW\n"

	headers, rows, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}

	if len(headers) != 3 {
		t.Fatalf("got %d headers, want 3", len(headers))
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["Description"] != "COFFEE SHOP" {
		t.Errorf("rows[0][Description] = %q", rows[0]["Description"])
	}
	// Short rows are padded, not dropped
	if got, ok := rows[1]["Amount"]; !ok || got != "" {
		t.Errorf("short row Amount = %q, ok=%v, want empty and present", got, ok)
	}
}

func TestReadRecordsEmpty(t *testing.T) {
	if _, _, err := ReadRecords(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestValidateAllRows_UnmappedColumnsFailFast(t *testing.T) {
	rows := []Record{{"Date": "01/02/2024"}}
	res := ValidateAllRows(rows, ColumnMap{Date: "Date"}, "Current")

	if res.Valid {
		t.Fatal("expected invalid result")
	}
	if res.ErrorCount != 1 || len(res.Errors) != 1 {
		t.Fatalf("want single aggregate error, got count=%d errors=%v", res.ErrorCount, res.Errors)
	}
	if !strings.Contains(res.Errors[0], "description") || !strings.Contains(res.Errors[0], "amount") {
		t.Errorf("aggregate error should name missing fields: %q", res.Errors[0])
	}
	if len(res.Parsed) != 0 {
		t.Error("nothing should parse when required columns are unmapped")
	}
}

func TestValidateAllRows_RowNumbering(t *testing.T) {
	cm := ColumnMap{Date: "Date", Description: "Description", Amount: "Amount"}
	rows := []Record{
		{"Date": "01/02/2024", "Description": "OK", "Amount": "1.00"},
		{"Date": "not-a-date", "Description": "BAD", "Amount": "1.00"},
	}

	res := ValidateAllRows(rows, cm, "Current")
	if res.Valid {
		t.Fatal("expected invalid result")
	}
	// Second data row is row 3 of the file: header is row 1.
	if !strings.Contains(res.Errors[0], "row 3") {
		t.Errorf("error should reference file row 3: %q", res.Errors[0])
	}
	if len(res.Parsed) != 1 {
		t.Errorf("valid rows should still parse, got %d", len(res.Parsed))
	}
}

func TestValidateAllRows_ErrorCap(t *testing.T) {
	cm := ColumnMap{Date: "Date", Description: "Description", Amount: "Amount"}
	var rows []Record
	for i := 0; i < 25; i++ {
		rows = append(rows, Record{"Date": "garbage", "Description": "X", "Amount": "1"})
	}

	res := ValidateAllRows(rows, cm, "")
	if res.ErrorCount != 25 {
		t.Errorf("ErrorCount = %d, want 25", res.ErrorCount)
	}
	if len(res.Errors) != MaxDisplayedErrors {
		t.Errorf("displayed errors = %d, want %d", len(res.Errors), MaxDisplayedErrors)
	}
}

func TestValidateAllRows_ChecksumStableAndDistinct(t *testing.T) {
	cm := ColumnMap{Date: "Date", Description: "Description", Amount: "Amount"}
	rows := []Record{
		{"Date": "01/02/2024", "Description": "COFFEE", "Amount": "3.50"},
		{"Date": "01/02/2024", "Description": "COFFEE", "Amount": "3.51"},
	}

	first := ValidateAllRows(rows, cm, "Current")
	second := ValidateAllRows(rows, cm, "Current")

	if first.Parsed[0].Checksum != second.Parsed[0].Checksum {
		t.Error("checksum must be deterministic for an unchanged row")
	}
	if first.Parsed[0].Checksum == first.Parsed[1].Checksum {
		t.Error("rows differing in any cell must have distinct checksums")
	}
	if len(first.Parsed[0].Checksum) != 64 {
		t.Errorf("checksum should be hex sha256, got length %d", len(first.Parsed[0].Checksum))
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("25/12/2024")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Year != 2024 || int(d.Month) != 12 || d.Day != 25 {
		t.Errorf("ParseDate() = %v", d)
	}

	for _, bad := range []string{"2024-12-25", "12/25/2024", "25 Dec 2024", ""} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) should fail", bad)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "3.50", want: "-3.50"},
		{in: "£1,234.56", want: "-1234.56"},
		{in: "-25.00", want: "25.00"},
		{in: "  £10  ", want: "-10"},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got.String(), want.String())
		}
	}
}

func TestDetectOnline(t *testing.T) {
	if !detectOnline("AMAZON MARKETPLACE") {
		t.Error("amazon should be detected as online")
	}
	if !detectOnline("PayPal *Steam") {
		t.Error("paypal should be detected as online")
	}
	if detectOnline("TESCO STORES 2041") {
		t.Error("supermarket should not be online")
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("  MILTON   KEYNES "); got != "Milton Keynes" {
		t.Errorf("titleCase() = %q", got)
	}
}
