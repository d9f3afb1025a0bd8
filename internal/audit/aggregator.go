package audit

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fiscalfacil/audit-service/internal/model"
	"github.com/fiscalfacil/audit-service/internal/money"
)

// RevenuePolicy controls which invoices count toward rolling revenue.
type RevenuePolicy string

const (
	// RevenuePolicyAllInvoices counts every invoice in the window
	// regardless of its audit verdict. This mirrors how accountants have
	// operated the system so far.
	RevenuePolicyAllInvoices RevenuePolicy = "all"

	// RevenuePolicyApprovedOnly excludes invoices flagged with a
	// service-code violation.
	RevenuePolicyApprovedOnly RevenuePolicy = "approved_only"
)

// Regime ceiling defaults in BRL. An unknown regime falls back to the
// MEI ceiling, the most restrictive one.
var (
	ceilingMEI             = decimal.RequireFromString("81000.00")
	ceilingSimplesNacional = decimal.RequireFromString("4800000.00")
	ceilingLucroPresumido  = decimal.RequireFromString("78000000.00")
)

// Usage thresholds, in percent. Lower bounds are inclusive.
var (
	alertThreshold    = decimal.RequireFromString("80")
	exceededThreshold = decimal.RequireFromString("100")
)

// Aggregator computes rolling 12-month revenue metrics against the
// regime ceiling.
type Aggregator struct {
	policy RevenuePolicy
}

// NewAggregator creates an aggregator with the given revenue policy
func NewAggregator(policy RevenuePolicy) *Aggregator {
	if policy == "" {
		policy = RevenuePolicyAllInvoices
	}
	return &Aggregator{policy: policy}
}

// ComputeMetrics sums invoice values issued within [asOf-12 months, asOf]
// (inclusive on both ends, by issue date) and compares the total against
// the company's ceiling. Accumulation is exact; rounding to 2 places
// happens only here, at the output boundary.
func (a *Aggregator) ComputeMetrics(company *model.Company, invoices []model.Invoice, asOf time.Time) model.RevenueMetrics {
	start := asOf.AddDate(0, -12, 0)

	revenue := money.Zero
	for _, inv := range invoices {
		if inv.IssueDate.Before(start) || inv.IssueDate.After(asOf) {
			continue
		}
		if a.policy == RevenuePolicyApprovedOnly && inv.Verdict.Status != model.VerdictApproved {
			continue
		}
		revenue = revenue.Add(inv.TotalValue)
	}

	ceiling := ResolveCeiling(company)
	usage := money.Percent(revenue, ceiling)

	status := model.RevenueOK
	switch {
	case usage.GreaterThanOrEqual(exceededThreshold):
		status = model.RevenueExceeded
	case usage.GreaterThanOrEqual(alertThreshold):
		status = model.RevenueAlert
	}

	return model.RevenueMetrics{
		Revenue:         money.Round2(revenue),
		Ceiling:         money.Round2(ceiling),
		UsagePercent:    money.Round2(usage),
		Status:          status,
		AvailableMargin: money.Round2(ceiling.Sub(revenue)),
	}
}

// ResolveCeiling returns the company's annual revenue ceiling: the
// explicit override when present, otherwise the regime default.
func ResolveCeiling(company *model.Company) decimal.Decimal {
	if company.CeilingOverride != nil {
		return *company.CeilingOverride
	}
	switch company.TaxRegime {
	case model.RegimeSimplesNacional:
		return ceilingSimplesNacional
	case model.RegimeLucroPresumido:
		return ceilingLucroPresumido
	default:
		return ceilingMEI
	}
}
