package reconcile

// CheckSpec declares a check in terms of logical fields.
type CheckSpec struct {
	Label     string
	Field     Field
	Kind      CheckKind
	Tolerance float64
}

// GSTChecks is the check order used for GST register reconciliation.
var GSTChecks = []CheckSpec{
	{Label: "Date", Field: FieldDate, Kind: CheckDate},
	{Label: "GSTIN", Field: FieldGSTIN, Kind: CheckString},
	{Label: "Taxable Value", Field: FieldTaxable, Kind: CheckNumber},
	{Label: "CGST", Field: FieldCGST, Kind: CheckNumber},
	{Label: "SGST", Field: FieldSGST, Kind: CheckNumber},
	{Label: "IGST", Field: FieldIGST, Kind: CheckNumber},
	{Label: "Total", Field: FieldTotal, Kind: CheckNumber},
}

// Matcher reconciles datasets whose columns were detected up front.
type Matcher struct {
	internal ColumnMapping
	external ColumnMapping
	keys     KeyPair
	checks   []FieldCheck
}

// NewMatcher binds check specs to the detected columns of both sides. Numeric specs
// without a tolerance use tolerance.
func NewMatcher(internal, external ColumnMapping, specs []CheckSpec, tolerance float64) *Matcher {
	m := &Matcher{
		internal: internal,
		external: external,
		keys:     KeyPair{Internal: internal.Key(), External: external.Key()},
	}
	for _, spec := range specs {
		check := FieldCheck{
			Label:     spec.Label,
			Kind:      spec.Kind,
			Internal:  internal.Accessor(spec.Field),
			External:  external.Accessor(spec.Field),
			Tolerance: spec.Tolerance,
		}
		if check.Kind == CheckNumber && check.Tolerance <= 0 {
			check.Tolerance = tolerance
		}
		m.checks = append(m.checks, check)
	}
	return m
}

// KeysKnown reports whether both sides expose the business key.
func (m *Matcher) KeysKnown() bool {
	return m.keys.Internal != nil && m.keys.External != nil
}

// Mapping returns the detected external columns.
func (m *Matcher) Mapping() ColumnMapping {
	return m.external
}

// Reconcile runs the bound checks over the two datasets.
func (m *Matcher) Reconcile(internal, external []Record) Result {
	return Reconcile(internal, external, m.keys, m.checks)
}
