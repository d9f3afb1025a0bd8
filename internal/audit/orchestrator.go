package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fiscalfacil/audit-service/internal/model"
	"github.com/fiscalfacil/audit-service/internal/money"
	xmlparser "github.com/fiscalfacil/audit-service/internal/parser/xml"
)

// MaxBatchFiles caps a single batch submission. Requests above the cap
// fail fast before any document is touched.
const MaxBatchFiles = 100

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrForbidden       = errors.New("company does not belong to the requesting user")
	ErrTooManyFiles    = errors.New("batch exceeds the maximum number of files")
)

// CompanyStore resolves companies and their authorized mappings.
// Read-only from the orchestrator's perspective. FindByID returns
// (nil, nil) when the company does not exist.
type CompanyStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error)
}

// InvoiceStore persists audited invoices. Append-only: the orchestrator
// never updates or deletes a record.
type InvoiceStore interface {
	Save(ctx context.Context, inv *model.Invoice) error
	ListByCompany(ctx context.Context, companyID uuid.UUID, from, to *time.Time) ([]model.Invoice, error)
}

// BatchFile is one document of a batch submission
type BatchFile struct {
	Name    string
	Content []byte
}

// FileOutcome records the result for one document of a batch
type FileOutcome struct {
	File    string         `json:"file"`
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Invoice *model.Invoice `json:"invoice,omitempty"`
}

// BatchResult summarizes a batch submission. Succeeded+Failed always
// equals Total, and Outcomes preserves input order.
type BatchResult struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outcomes  []FileOutcome `json:"outcomes"`
}

// Service sequences parse, validate, persist and aggregate for invoice
// submissions.
type Service struct {
	companies CompanyStore
	invoices  InvoiceStore
	parser    *xmlparser.Registry
	agg       *Aggregator
	log       *zap.Logger
	now       func() time.Time
}

// NewService creates the audit orchestrator. Store handles come in as
// parameters; the service holds no process-wide state.
func NewService(companies CompanyStore, invoices InvoiceStore, parser *xmlparser.Registry, agg *Aggregator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		companies: companies,
		invoices:  invoices,
		parser:    parser,
		agg:       agg,
		log:       log,
		now:       time.Now,
	}
}

// resolveOwned loads the company and enforces ownership before any
// parsing work. The not-found and forbidden paths are deliberately
// distinct errors; the HTTP layer keeps them distinct too, but only
// after the ownership check has passed for cross-tenant requests.
func (s *Service) resolveOwned(ctx context.Context, principalID, companyID uuid.UUID) (*model.Company, error) {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, ErrCompanyNotFound
	}
	if company.OwnerID != principalID {
		return nil, ErrForbidden
	}
	return company, nil
}

// Ingest audits a single document: resolve company, parse, validate,
// persist, return the full audited record. On a parse failure nothing is
// persisted and the structured error is surfaced as-is.
func (s *Service) Ingest(ctx context.Context, principalID, companyID uuid.UUID, raw []byte) (*model.Invoice, error) {
	company, err := s.resolveOwned(ctx, principalID, companyID)
	if err != nil {
		return nil, err
	}

	inv, err := s.parser.Parse(raw)
	if err != nil {
		s.log.Warn("invoice rejected at parse",
			zap.String("company_id", companyID.String()),
			zap.Error(err))
		return nil, err
	}

	inv.ID = uuid.New()
	inv.CompanyID = company.ID
	inv.Verdict = Validate(inv.ServiceCode, company.Mappings)
	inv.ImportedAt = s.now().UTC()

	// Violations are recorded, not discarded: auditors need the full
	// picture, including non-compliant invoices.
	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}

	s.log.Info("invoice audited",
		zap.String("company_id", companyID.String()),
		zap.Int64("number", inv.Number),
		zap.String("verdict", string(inv.Verdict.Status)))
	return inv, nil
}

// IngestBatch audits up to MaxBatchFiles documents with best-effort
// continuation: one document's failure never aborts its siblings, and
// the outcome slice matches input order.
func (s *Service) IngestBatch(ctx context.Context, principalID, companyID uuid.UUID, files []BatchFile) (*BatchResult, error) {
	if len(files) > MaxBatchFiles {
		return nil, ErrTooManyFiles
	}

	// Ownership is checked once up front; per-file Ingest would repeat it.
	company, err := s.resolveOwned(ctx, principalID, companyID)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		Total:    len(files),
		Outcomes: make([]FileOutcome, 0, len(files)),
	}

	for _, f := range files {
		inv, err := s.ingestParsed(ctx, company, f.Content)
		if err != nil {
			result.Failed++
			result.Outcomes = append(result.Outcomes, FileOutcome{
				File:  f.Name,
				Error: err.Error(),
			})
			continue
		}
		result.Succeeded++
		result.Outcomes = append(result.Outcomes, FileOutcome{
			File:    f.Name,
			OK:      true,
			Invoice: inv,
		})
	}

	s.log.Info("batch audited",
		zap.String("company_id", companyID.String()),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result, nil
}

// ingestParsed runs parse-validate-persist against an already resolved
// company.
func (s *Service) ingestParsed(ctx context.Context, company *model.Company, raw []byte) (*model.Invoice, error) {
	inv, err := s.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	inv.ID = uuid.New()
	inv.CompanyID = company.ID
	inv.Verdict = Validate(inv.ServiceCode, company.Mappings)
	inv.ImportedAt = s.now().UTC()

	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns a company's imported invoices, optionally limited
// to an issue-date range.
func (s *Service) ListInvoices(ctx context.Context, principalID, companyID uuid.UUID, from, to *time.Time) ([]model.Invoice, error) {
	if _, err := s.resolveOwned(ctx, principalID, companyID); err != nil {
		return nil, err
	}
	return s.invoices.ListByCompany(ctx, companyID, from, to)
}

// Metrics computes the rolling 12-month revenue metrics as of the given
// date.
func (s *Service) Metrics(ctx context.Context, principalID, companyID uuid.UUID, asOf time.Time) (*model.RevenueMetrics, *model.Company, error) {
	company, err := s.resolveOwned(ctx, principalID, companyID)
	if err != nil {
		return nil, nil, err
	}
	invoices, err := s.invoices.ListByCompany(ctx, companyID, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	m := s.agg.ComputeMetrics(company, invoices, asOf)
	return &m, company, nil
}

// Statistics summarizes a company's invoice set: counts per verdict and
// the exact total value.
func (s *Service) Statistics(ctx context.Context, principalID, companyID uuid.UUID) (*model.CompanyStatistics, error) {
	if _, err := s.resolveOwned(ctx, principalID, companyID); err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListByCompany(ctx, companyID, nil, nil)
	if err != nil {
		return nil, err
	}

	stats := &model.CompanyStatistics{
		TotalInvoices: len(invoices),
		TotalValue:    money.Zero,
	}
	for _, inv := range invoices {
		if inv.Verdict.Status == model.VerdictApproved {
			stats.Approved++
		} else {
			stats.Violations++
		}
		stats.TotalValue = stats.TotalValue.Add(inv.TotalValue)
	}
	stats.TotalValue = money.Round2(stats.TotalValue)
	return stats, nil
}
