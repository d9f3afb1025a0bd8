package model

import "github.com/shopspring/decimal"

// RevenueStatus classifies rolling 12-month revenue against the ceiling.
type RevenueStatus string

const (
	RevenueOK       RevenueStatus = "OK"
	RevenueAlert    RevenueStatus = "ALERT"
	RevenueExceeded RevenueStatus = "EXCEEDED"
)

// RevenueMetrics is computed on demand from a company's invoice set and
// never persisted. All values are rounded to 2 places at this boundary.
type RevenueMetrics struct {
	Revenue         decimal.Decimal `json:"revenue"`
	Ceiling         decimal.Decimal `json:"ceiling"`
	UsagePercent    decimal.Decimal `json:"usage_percent"`
	Status          RevenueStatus   `json:"status"`
	AvailableMargin decimal.Decimal `json:"available_margin"`
}

// CompanyStatistics summarizes a company's imported invoices.
type CompanyStatistics struct {
	TotalInvoices int             `json:"total_invoices"`
	Approved      int             `json:"approved"`
	Violations    int             `json:"violations"`
	TotalValue    decimal.Decimal `json:"total_value"`
}
