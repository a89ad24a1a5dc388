package reconcile

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// CanonicalDateLayout is the layout both sides are normalised to before comparison.
const CanonicalDateLayout = "02/01/2006"

// serialThreshold separates spreadsheet serial day numbers from other numerics.
// 20000 is 1954-10-03, so anything above it is read as a serial date.
const serialThreshold = 20000

// maxSerial is 9999-12-31, the last day a spreadsheet serial can express.
const maxSerial = 2958465

var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2006-01-02",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02-Jan-06",
	"02/01/06",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// NormalizeDate converts spreadsheet serials and common day-first layouts to DD/MM/YYYY.
// Values that cannot be parsed are returned trimmed. Month-first strings such as
// 04/05/2024 are always read as day-first.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= serialThreshold || serial > maxSerial {
			return s
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return s
		}
		return t.Format(CanonicalDateLayout)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(CanonicalDateLayout)
		}
	}
	return s
}

// ParseDate returns the time for any value NormalizeDate understands.
func ParseDate(raw string) (time.Time, bool) {
	t, err := time.Parse(CanonicalDateLayout, NormalizeDate(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
