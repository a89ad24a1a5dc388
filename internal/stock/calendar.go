package stock

import "time"

// DefaultFiscalStartMonth is used when no start month is configured.
const DefaultFiscalStartMonth = time.April

// FiscalCalendar orders the twelve months of a fiscal year.
type FiscalCalendar struct {
	StartMonth time.Month
}

// NewFiscalCalendar returns a calendar starting at start, or April for invalid months.
func NewFiscalCalendar(start time.Month) FiscalCalendar {
	if start < time.January || start > time.December {
		start = DefaultFiscalStartMonth
	}
	return FiscalCalendar{StartMonth: start}
}

func (c FiscalCalendar) start() time.Month {
	if c.StartMonth < time.January || c.StartMonth > time.December {
		return DefaultFiscalStartMonth
	}
	return c.StartMonth
}

// Periods returns the months in fiscal order.
func (c FiscalCalendar) Periods() []time.Month {
	out := make([]time.Month, 12)
	for i := range out {
		out[i] = time.Month((int(c.start())-1+i)%12 + 1)
	}
	return out
}

// PeriodIndex returns the 0-based fiscal period of t.
func (c FiscalCalendar) PeriodIndex(t time.Time) int {
	return (int(t.Month()) - int(c.start()) + 12) % 12
}

// FiscalYear returns the calendar year in which the fiscal year containing t starts.
func (c FiscalCalendar) FiscalYear(t time.Time) int {
	if t.Month() < c.start() {
		return t.Year() - 1
	}
	return t.Year()
}

// Bounds returns the inclusive start and exclusive end of fiscal year fy.
func (c FiscalCalendar) Bounds(fy int, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(fy, c.start(), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(1, 0, 0)
}

// Label renders a fiscal year such as "2024-25".
func (c FiscalCalendar) Label(fy int) string {
	if c.start() == time.January {
		return time.Date(fy, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	}
	return time.Date(fy, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006") + "-" +
		time.Date(fy+1, 1, 1, 0, 0, 0, 0, time.UTC).Format("06")
}
