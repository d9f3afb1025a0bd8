package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fiscalfacil/audit-service/internal/audit"
	"github.com/fiscalfacil/audit-service/internal/auth"
	"github.com/fiscalfacil/audit-service/internal/model"
	"github.com/fiscalfacil/audit-service/internal/money"
	"github.com/fiscalfacil/audit-service/internal/registry"
	"github.com/fiscalfacil/audit-service/internal/report"
	"github.com/fiscalfacil/audit-service/internal/store"
)

func (s *Server) handleCreateCompany(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
		return
	}

	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	regime := model.TaxRegime(req.TaxRegime)
	switch regime {
	case model.RegimeMEI, model.RegimeSimplesNacional, model.RegimeLucroPresumido:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown tax regime %q", req.TaxRegime)})
		return
	}

	company := &model.Company{
		ID:        uuid.New(),
		OwnerID:   userID,
		CNPJ:      model.NormalizeCNPJ(req.CNPJ),
		LegalName: req.LegalName,
		TradeName: req.TradeName,
		TaxRegime: regime,
		OpenedAt:  req.OpenedAt,
		CreatedAt: time.Now().UTC(),
	}
	if req.CeilingOverride != "" {
		ceiling, err := money.FromString(req.CeilingOverride)
		if err != nil || !money.IsNonNegative(ceiling) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "ceiling_override must be a non-negative decimal"})
			return
		}
		company.CeilingOverride = &ceiling
	}
	for _, m := range req.Mappings {
		company.Mappings = append(company.Mappings, model.ServiceMapping{
			CNAECode:             m.CNAECode,
			MunicipalServiceCode: m.MunicipalServiceCode,
			Description:          m.Description,
		})
	}

	if err := s.companies.Create(c.Request.Context(), company); err != nil {
		if errors.Is(err, store.ErrDuplicateCNPJ) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "a company with this CNPJ is already registered"})
			return
		}
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, company)
}

func (s *Server) handleListCompanies(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
		return
	}

	companies, err := s.companies.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

func (s *Server) handleGetCompany(c *gin.Context) {
	userID, companyID, ok := s.pathCompany(c)
	if !ok {
		return
	}

	company, err := s.companies.FindByID(c.Request.Context(), companyID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if company == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "company not found"})
		return
	}
	if company.OwnerID != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "company does not belong to the requesting user"})
		return
	}
	c.JSON(http.StatusOK, company)
}

func (s *Server) handleImport(c *gin.Context) {
	userID, companyID, ok := s.pathCompany(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return
	}

	inv, err := s.audit.Ingest(c.Request.Context(), userID, companyID, body)
	if err != nil {
		s.respondAuditError(c, err)
		return
	}
	c.JSON(http.StatusCreated, IngestResponse{Invoice: inv})
}

func (s *Server) handleImportBatch(c *gin.Context) {
	userID, companyID, ok := s.pathCompany(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "expected multipart form"})
		return
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no files submitted"})
		return
	}

	files := make([]audit.BatchFile, 0, len(uploads))
	for _, fh := range uploads {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("failed to open %s", fh.Filename)})
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("failed to read %s", fh.Filename)})
			return
		}
		files = append(files, audit.BatchFile{Name: fh.Filename, Content: content})
	}

	result, err := s.audit.IngestBatch(c.Request.Context(), userID, companyID, files)
	if err != nil {
		s.respondAuditError(c, err)
		return
	}
	c.JSON(http.StatusOK, BatchResponse{
		Total:     result.Total,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Outcomes:  result.Outcomes,
	})
}

func (s *Server) handleListInvoices(c *gin.Context) {
	userID, companyID, ok := s.pathCompany(c)
	if !ok {
		return
	}

	from, ok := s.dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := s.dateQuery(c, "to")
	if !ok {
		return
	}

	invoices, err := s.audit.ListInvoices(c.Request.Context(), userID, companyID, from, to)
	if err != nil {
		s.respondAuditError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "total": len(invoices)})
}

func (s *Server) handleStatistics(c *gin.Context) {
	userID, companyID, ok := s.pathCompany(c)
	if !ok {
		return
	}

	stats, err := s.audit.Statistics(c.Request.Context(), userID, companyID)
	if err != nil {
		s.respondAuditError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleMetrics(c *gin.Context) {
	userID, companyID, ok := s.pathCompany(c)
	if !ok {
		return
	}

	asOf := time.Now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "as_of must be YYYY-MM-DD"})
			return
		}
		asOf = parsed
	}

	metrics, company, err := s.audit.Metrics(c.Request.Context(), userID, companyID, asOf)
	if err != nil {
		s.respondAuditError(c, err)
		return
	}
	c.JSON(http.StatusOK, MetricsResponse{
		CompanyID: company.ID.String(),
		TaxRegime: string(company.TaxRegime),
		Metrics:   *metrics,
	})
}

func (s *Server) handleReport(c *gin.Context) {
	userID, companyID, ok := s.pathCompany(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	metrics, company, err := s.audit.Metrics(c.Request.Context(), userID, companyID, now)
	if err != nil {
		s.respondAuditError(c, err)
		return
	}
	stats, err := s.audit.Statistics(c.Request.Context(), userID, companyID)
	if err != nil {
		s.respondAuditError(c, err)
		return
	}
	invoices, err := s.audit.ListInvoices(c.Request.Context(), userID, companyID, nil, nil)
	if err != nil {
		s.respondAuditError(c, err)
		return
	}

	pdf, err := report.Generate(report.ComplianceReport{
		Company:     company,
		Metrics:     metrics,
		Statistics:  stats,
		Invoices:    invoices,
		GeneratedAt: now.Format("02/01/2006"),
	})
	if err != nil {
		s.serverError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=relatorio-%s.pdf", company.CNPJ))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (s *Server) handleRegistryLookup(c *gin.Context) {
	profile, err := s.registry.Lookup(c.Request.Context(), c.Param("cnpj"))
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "cnpj not found"})
		case errors.Is(err, registry.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "registry service unavailable"})
		default:
			s.serverError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, profile)
}

// pathCompany resolves the authenticated user and the :id path parameter.
// On failure it writes the error response and returns ok=false.
func (s *Server) pathCompany(c *gin.Context) (userID, companyID uuid.UUID, ok bool) {
	userID, found := auth.UserID(c)
	if !found {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
		return uuid.Nil, uuid.Nil, false
	}
	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid company id"})
		return uuid.Nil, uuid.Nil, false
	}
	return userID, companyID, true
}

func (s *Server) dateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%s must be YYYY-MM-DD", name)})
		return nil, false
	}
	return &parsed, true
}

// respondAuditError maps orchestrator errors onto HTTP statuses. Parse
// failures carry their structured kind and field so clients can react
// per error class.
func (s *Server) respondAuditError(c *gin.Context, err error) {
	var parseErr *model.ParseError
	switch {
	case errors.As(err, &parseErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: parseErr.Message,
			Kind:  string(parseErr.Kind),
			Field: parseErr.Field,
		})
	case errors.Is(err, audit.ErrCompanyNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "company not found"})
	case errors.Is(err, audit.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "company does not belong to the requesting user"})
	case errors.Is(err, audit.ErrTooManyFiles):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("batch exceeds the maximum of %d files", audit.MaxBatchFiles),
		})
	default:
		s.serverError(c, err)
	}
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.log.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
