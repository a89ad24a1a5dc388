package reports

// Header carries the labels shown above every report.
type Header struct {
	CompanyID   int64    `json:"company_id"`
	PeriodLabel string   `json:"period_label"`
	FilterView  string   `json:"filter_view,omitempty"`
	FailedFeeds []string `json:"failed_feeds,omitempty"`
}

// TrialBalanceViewModel holds response data for the trial balance report.
type TrialBalanceViewModel struct {
	Header
	Report TrialBalance `json:"report"`
}

// ProfitAndLossViewModel holds response data for profit & loss.
type ProfitAndLossViewModel struct {
	Header
	Report ProfitAndLoss `json:"report"`
}

// BalanceSheetViewModel contains data for the balance sheet report.
type BalanceSheetViewModel struct {
	Header
	Report BalanceSheet `json:"report"`
}

// StockSummaryViewModel contains data for the monthly stock report.
type StockSummaryViewModel struct {
	Header
	Report StockSummary `json:"report"`
}

// GSTRegisterViewModel contains data for the B2B/B2C register.
type GSTRegisterViewModel struct {
	Header
	Report GSTRegister `json:"report"`
}
