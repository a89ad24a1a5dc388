package reconcile

import (
	"errors"
	"strings"
)

// Status is the classification of a reconciled record.
type Status string

const (
	StatusUnmatched         Status = "UNMATCHED"
	StatusMatched           Status = "MATCHED"
	StatusMismatch          Status = "MISMATCH"
	StatusMissingInExternal Status = "MISSING_IN_EXTERNAL"
	StatusMissingInInternal Status = "MISSING_IN_INTERNAL"
	StatusUnknownKeys       Status = "UNKNOWN_KEYS"
)

var (
	// ErrUnknownKeys indicates the business key column could not be detected.
	ErrUnknownKeys = errors.New("reconcile: business key column not found")
	// ErrEmptySheet indicates an import without a header row.
	ErrEmptySheet = errors.New("reconcile: sheet has no header row")
	// ErrUnsupportedFormat indicates an import file type that cannot be read.
	ErrUnsupportedFormat = errors.New("reconcile: unsupported file format")
)

// Record is one row keyed by column header.
type Record map[string]string

// Get returns the trimmed value stored under column.
func (r Record) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// Accessor extracts a raw field value from a record.
type Accessor func(Record) string

// Column returns an accessor reading a fixed column.
func Column(name string) Accessor {
	return func(r Record) string { return r.Get(name) }
}

// KeyFunc extracts a business key from a record.
type KeyFunc func(Record) string

// KeyPair holds the key extractors for each side.
type KeyPair struct {
	Internal KeyFunc
	External KeyFunc
}

// CheckKind selects the comparison used by a FieldCheck.
type CheckKind string

const (
	CheckString CheckKind = "string"
	CheckNumber CheckKind = "number"
	CheckDate   CheckKind = "date"
)

// DefaultTolerance is the absolute tolerance used by numeric checks without one.
const DefaultTolerance = 0.1

// FieldCheck compares one field between an internal and an external record. A nil
// accessor means the column was not found and the check cannot run.
type FieldCheck struct {
	Label     string
	Kind      CheckKind
	Internal  Accessor
	External  Accessor
	Tolerance float64
}

// Row is the outcome for one internal record or one leftover external record.
type Row struct {
	Status   Status `json:"status"`
	Key      string `json:"key"`
	Reason   string `json:"reason,omitempty"`
	Internal Record `json:"internal,omitempty"`
	External Record `json:"external,omitempty"`
}

// Stats counts rows per status.
type Stats struct {
	Total             int `json:"total"`
	Matched           int `json:"matched"`
	Mismatch          int `json:"mismatch"`
	MissingInExternal int `json:"missing_in_external"`
	MissingInInternal int `json:"missing_in_internal"`
	UnknownKeys       int `json:"unknown_keys"`
}

func (s *Stats) add(status Status) {
	s.Total++
	switch status {
	case StatusMatched:
		s.Matched++
	case StatusMismatch:
		s.Mismatch++
	case StatusMissingInExternal:
		s.MissingInExternal++
	case StatusMissingInInternal:
		s.MissingInInternal++
	case StatusUnknownKeys:
		s.UnknownKeys++
	}
}

// Discrepancies counts rows that are not matched.
func (s Stats) Discrepancies() int {
	return s.Total - s.Matched
}

// Result is the full reconciliation output.
type Result struct {
	Rows  []Row `json:"rows"`
	Stats Stats `json:"stats"`
}
