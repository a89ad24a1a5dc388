package reconcile

import (
	"regexp"
	"strings"
)

// Field is a logical column a reconciliation understands.
type Field string

const (
	FieldVoucherNo Field = "voucher_no"
	FieldDate      Field = "date"
	FieldParty     Field = "party"
	FieldGSTIN     Field = "gstin"
	FieldTaxable   Field = "taxable"
	FieldCGST      Field = "cgst"
	FieldSGST      Field = "sgst"
	FieldIGST      Field = "igst"
	FieldTotal     Field = "total"
)

// ColumnRule maps headers matching Pattern to Field.
type ColumnRule struct {
	Field   Field
	Pattern *regexp.Regexp
}

// DefaultRules are the header rules used for GST registers. Earlier rules claim headers
// first.
var DefaultRules = []ColumnRule{
	{Field: FieldVoucherNo, Pattern: regexp.MustCompile(`(?i)voucher\s*no|invoice\s*(no|number)|bill\s*no`)},
	{Field: FieldGSTIN, Pattern: regexp.MustCompile(`(?i)gstin|gst\s*(no|number)|\buin\b`)},
	{Field: FieldDate, Pattern: regexp.MustCompile(`(?i)date`)},
	{Field: FieldTaxable, Pattern: regexp.MustCompile(`(?i)taxable`)},
	{Field: FieldCGST, Pattern: regexp.MustCompile(`(?i)cgst|central\s*tax`)},
	{Field: FieldSGST, Pattern: regexp.MustCompile(`(?i)sgst|utgst|state\s*(/\s*ut\s*)?tax`)},
	{Field: FieldIGST, Pattern: regexp.MustCompile(`(?i)igst|integrated\s*tax`)},
	{Field: FieldTotal, Pattern: regexp.MustCompile(`(?i)^\s*total\s*$|invoice\s*value|total\s*amount|grand\s*total`)},
	{Field: FieldParty, Pattern: regexp.MustCompile(`(?i)party|customer|supplier|buyer|trade\s*name|name`)},
}

// ColumnMapping is the result of header detection for one dataset.
type ColumnMapping struct {
	KeyField Field            `json:"key_field"`
	Columns  map[Field]string `json:"columns"`
	Missing  []Field          `json:"missing,omitempty"`
}

// DetectColumns assigns headers to fields. The first field of rules is the business key;
// when it is not found the mapping is still returned together with ErrUnknownKeys.
func DetectColumns(headers []string, rules []ColumnRule) (ColumnMapping, error) {
	mapping := ColumnMapping{Columns: make(map[Field]string, len(rules))}
	if len(rules) > 0 {
		mapping.KeyField = rules[0].Field
	}
	claimed := make(map[int]bool, len(headers))
	for _, rule := range rules {
		found := false
		for idx, header := range headers {
			if claimed[idx] {
				continue
			}
			name := strings.TrimSpace(header)
			if name == "" || !rule.Pattern.MatchString(name) {
				continue
			}
			claimed[idx] = true
			mapping.Columns[rule.Field] = name
			found = true
			break
		}
		if !found {
			mapping.Missing = append(mapping.Missing, rule.Field)
		}
	}
	if !mapping.HasKey() {
		return mapping, ErrUnknownKeys
	}
	return mapping, nil
}

// Has reports whether field was detected.
func (m ColumnMapping) Has(field Field) bool {
	_, ok := m.Columns[field]
	return ok
}

// HasKey reports whether the business key column was detected.
func (m ColumnMapping) HasKey() bool {
	return m.KeyField != "" && m.Has(m.KeyField)
}

// Accessor returns an accessor for field, nil when the column is missing.
func (m ColumnMapping) Accessor(field Field) Accessor {
	column, ok := m.Columns[field]
	if !ok {
		return nil
	}
	return Column(column)
}

// Key returns the business key extractor, nil when the key column is missing.
func (m ColumnMapping) Key() KeyFunc {
	if !m.HasKey() {
		return nil
	}
	column := m.Columns[m.KeyField]
	return func(r Record) string { return r.Get(column) }
}
