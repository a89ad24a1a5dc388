package reconcile

import (
	"strconv"
	"time"
)

// Headers used when internal vouchers are rendered as records.
const (
	HeaderVoucherNo = "Voucher No"
	HeaderDate      = "Date"
	HeaderParty     = "Party Name"
	HeaderGSTIN     = "GSTIN"
	HeaderTaxable   = "Taxable Value"
	HeaderCGST      = "CGST"
	HeaderSGST      = "SGST"
	HeaderIGST      = "IGST"
	HeaderTotal     = "Total"
)

// VoucherHeaders lists the internal headers in display order.
var VoucherHeaders = []string{
	HeaderVoucherNo, HeaderDate, HeaderParty, HeaderGSTIN, HeaderTaxable,
	HeaderCGST, HeaderSGST, HeaderIGST, HeaderTotal,
}

// Voucher is an internally recorded sales or purchase voucher with its tax breakdown.
type Voucher struct {
	VoucherNo string    `json:"voucher_no"`
	Date      time.Time `json:"date"`
	Party     string    `json:"party"`
	GSTIN     string    `json:"gstin"`
	Taxable   float64   `json:"taxable"`
	CGST      float64   `json:"cgst"`
	SGST      float64   `json:"sgst"`
	IGST      float64   `json:"igst"`
	Total     float64   `json:"total"`
}

// Record renders the voucher with the internal headers.
func (v Voucher) Record() Record {
	date := ""
	if !v.Date.IsZero() {
		date = v.Date.Format(CanonicalDateLayout)
	}
	return Record{
		HeaderVoucherNo: v.VoucherNo,
		HeaderDate:      date,
		HeaderParty:     v.Party,
		HeaderGSTIN:     v.GSTIN,
		HeaderTaxable:   formatAmount(v.Taxable),
		HeaderCGST:      formatAmount(v.CGST),
		HeaderSGST:      formatAmount(v.SGST),
		HeaderIGST:      formatAmount(v.IGST),
		HeaderTotal:     formatAmount(v.Total),
	}
}

// VoucherRecords converts vouchers preserving order.
func VoucherRecords(vouchers []Voucher) []Record {
	out := make([]Record, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, v.Record())
	}
	return out
}

// VoucherMapping is the column mapping of records produced by Voucher.Record.
func VoucherMapping() ColumnMapping {
	mapping, _ := DetectColumns(VoucherHeaders, DefaultRules)
	return mapping
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
