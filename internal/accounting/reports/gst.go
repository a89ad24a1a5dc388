package reports

import (
	"regexp"
	"sort"
	"strings"

	"github.com/odyssey-erp/bookreports/internal/reconcile"
)

// PartyClass is the B2B/B2C classification of a voucher.
type PartyClass string

const (
	ClassB2B PartyClass = "B2B"
	ClassB2C PartyClass = "B2C"
)

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// ClassifyParty returns B2B when a registration number is present.
func ClassifyParty(gstin string) PartyClass {
	if strings.TrimSpace(gstin) == "" {
		return ClassB2C
	}
	return ClassB2B
}

// ValidGSTIN checks the structural format of a registration number.
func ValidGSTIN(gstin string) bool {
	return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(gstin)))
}

// GSTRow is a voucher annotated for the B2B/B2C register.
type GSTRow struct {
	Voucher    reconcile.Voucher `json:"voucher"`
	Class      PartyClass        `json:"class"`
	ValidGSTIN bool              `json:"valid_gstin"`
	Tax        float64           `json:"tax"`
}

// GSTSection holds one classification with totals.
type GSTSection struct {
	Class   PartyClass `json:"class"`
	Rows    []GSTRow   `json:"rows"`
	Taxable float64    `json:"taxable"`
	CGST    float64    `json:"cgst"`
	SGST    float64    `json:"sgst"`
	IGST    float64    `json:"igst"`
	Total   float64    `json:"total"`
}

// GSTRegister splits vouchers into B2B and B2C.
type GSTRegister struct {
	B2B GSTSection `json:"b2b"`
	B2C GSTSection `json:"b2c"`
}

// BuildGSTRegister classifies vouchers, ordering each section by date then voucher number.
func BuildGSTRegister(vouchers []reconcile.Voucher) GSTRegister {
	reg := GSTRegister{B2B: GSTSection{Class: ClassB2B}, B2C: GSTSection{Class: ClassB2C}}
	for _, v := range vouchers {
		row := GSTRow{
			Voucher:    v,
			Class:      ClassifyParty(v.GSTIN),
			ValidGSTIN: ValidGSTIN(v.GSTIN),
			Tax:        v.CGST + v.SGST + v.IGST,
		}
		section := &reg.B2C
		if row.Class == ClassB2B {
			section = &reg.B2B
		}
		section.Rows = append(section.Rows, row)
		section.Taxable += v.Taxable
		section.CGST += v.CGST
		section.SGST += v.SGST
		section.IGST += v.IGST
		section.Total += v.Total
	}
	for _, section := range []*GSTSection{&reg.B2B, &reg.B2C} {
		rows := section.Rows
		sort.SliceStable(rows, func(i, j int) bool {
			if !rows[i].Voucher.Date.Equal(rows[j].Voucher.Date) {
				return rows[i].Voucher.Date.Before(rows[j].Voucher.Date)
			}
			return rows[i].Voucher.VoucherNo < rows[j].Voucher.VoucherNo
		})
	}
	return reg
}
