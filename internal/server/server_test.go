package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalfacil/audit-service/internal/audit"
	"github.com/fiscalfacil/audit-service/internal/auth"
	"github.com/fiscalfacil/audit-service/internal/config"
	"github.com/fiscalfacil/audit-service/internal/model"
	xmlparser "github.com/fiscalfacil/audit-service/internal/parser/xml"
	"github.com/fiscalfacil/audit-service/internal/registry"
	"github.com/fiscalfacil/audit-service/internal/store"
)

type testEnv struct {
	server  *Server
	auth    *auth.Service
	userID  uuid.UUID
	token   string
	company *model.Company
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := store.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)

	companies := store.NewCompanyRepository(db)
	invoices := store.NewInvoiceRepository(db)
	authSvc := auth.NewService(config.JWTConfig{
		Secret: "test-secret-with-enough-entropy-1234",
		Issuer: "fiscalaudit-test",
	})
	auditSvc := audit.NewService(companies, invoices, xmlparser.NewRegistry(), audit.NewAggregator(""), nil)

	srv := NewServer(&Config{Address: ":0", Debug: false}, Deps{
		Companies: companies,
		Audit:     auditSvc,
		Auth:      authSvc,
		Registry:  registry.NewClient(),
		DB:        db,
		Log:       nil,
	})

	userID := uuid.New()
	token, err := authSvc.GenerateToken(userID)
	require.NoError(t, err)

	company := &model.Company{
		ID:        uuid.New(),
		OwnerID:   userID,
		CNPJ:      "12345678000190",
		LegalName: "ACME SERVICOS LTDA",
		TaxRegime: model.RegimeMEI,
		Mappings: []model.ServiceMapping{
			{CNAECode: "6201501", MunicipalServiceCode: "0802", Description: "Desenvolvimento de sistemas"},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, companies.Create(context.Background(), company))

	return &testEnv{server: srv, auth: authSvc, userID: userID, token: token, company: company}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+e.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func nfsdDoc(number int, date, code, value string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="ISO-8859-1"?>
<tbnfd>
  <nfdok>
    <NewDataSet>
      <NOTA_FISCAL>
        <NumeroNota>%d</NumeroNota>
        <DataEmissao>%sT00:00:00</DataEmissao>
        <Cae>%s</Cae>
        <ValorTotalNota>%s</ValorTotalNota>
        <ChaveValidacao>ABC123</ChaveValidacao>
        <ClienteCNPJCPF>98765432000110</ClienteCNPJCPF>
      </NOTA_FISCAL>
    </NewDataSet>
  </nfdok>
</tbnfd>`, number, date, code, value))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateCompany(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(CreateCompanyRequest{
		CNPJ:      "11.222.333/0001-81",
		LegalName: "NOVA EMPRESA LTDA",
		TaxRegime: "Simples Nacional",
		Mappings: []ServiceMappingRequest{
			{MunicipalServiceCode: "0702"},
		},
	})
	w := env.do(t, http.MethodPost, "/api/v1/companies", body, "application/json")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.Company
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "11222333000181", created.CNPJ)
	assert.Equal(t, env.userID, created.OwnerID)
	require.Len(t, created.Mappings, 1)
}

func TestCreateCompanyDuplicateCNPJ(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(CreateCompanyRequest{
		CNPJ:      env.company.CNPJ,
		LegalName: "OUTRA EMPRESA",
		TaxRegime: "MEI",
	})
	w := env.do(t, http.MethodPost, "/api/v1/companies", body, "application/json")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateCompanyRejectsUnknownRegime(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(CreateCompanyRequest{
		CNPJ:      "11222333000181",
		LegalName: "EMPRESA",
		TaxRegime: "Lucro Real",
	})
	w := env.do(t, http.MethodPost, "/api/v1/companies", body, "application/json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportApprovedInvoice(t *testing.T) {
	env := newTestEnv(t)

	doc := nfsdDoc(1024, "2026-03-10", "0802", "1500.50")
	w := env.do(t, http.MethodPost, "/api/v1/companies/"+env.company.ID.String()+"/invoices/import", doc, "application/xml")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1024), resp.Invoice.Number)
	assert.Equal(t, model.VerdictApproved, resp.Invoice.Verdict.Status)
	assert.Equal(t, "1500.5", resp.Invoice.TotalValue.String())
}

func TestImportParseErrorCarriesKind(t *testing.T) {
	env := newTestEnv(t)

	doc := nfsdDoc(1024, "garbage-date", "0802", "1500.50")
	w := env.do(t, http.MethodPost, "/api/v1/companies/"+env.company.ID.String()+"/invoices/import", doc, "application/xml")

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_date", resp.Kind)
	assert.Equal(t, "DataEmissao", resp.Field)
}

func TestImportCompanyNotFound(t *testing.T) {
	env := newTestEnv(t)

	doc := nfsdDoc(1, "2026-01-01", "0802", "10.00")
	w := env.do(t, http.MethodPost, "/api/v1/companies/"+uuid.NewString()+"/invoices/import", doc, "application/xml")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportForeignCompanyForbidden(t *testing.T) {
	env := newTestEnv(t)

	otherToken, err := env.auth.GenerateToken(uuid.New())
	require.NoError(t, err)

	doc := nfsdDoc(1, "2026-01-01", "0802", "10.00")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/companies/"+env.company.ID.String()+"/invoices/import", bytes.NewReader(doc))
	req.Header.Set("Authorization", "Bearer "+otherToken)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestImportBatchPartialFailure(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	docs := map[string][]byte{
		"nota1.xml": nfsdDoc(1, "2026-01-10", "0802", "100.00"),
		"nota2.xml": nfsdDoc(2, "bad-date-1", "0802", "100.00"),
		"nota3.xml": nfsdDoc(3, "2026-01-12", "0802", "100.00"),
		"nota4.xml": nfsdDoc(4, "bad-date-2", "0802", "100.00"),
		"nota5.xml": nfsdDoc(5, "2026-01-14", "0802", "100.00"),
	}
	for _, name := range []string{"nota1.xml", "nota2.xml", "nota3.xml", "nota4.xml", "nota5.xml"} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(docs[name])
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	w := env.do(t, http.MethodPost, "/api/v1/companies/"+env.company.ID.String()+"/invoices/import-batch", buf.Bytes(), mw.FormDataContentType())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, 3, resp.Succeeded)
	assert.Equal(t, 2, resp.Failed)
	require.Len(t, resp.Outcomes, 5)
	assert.True(t, resp.Outcomes[0].OK)
	assert.False(t, resp.Outcomes[1].OK)
	assert.Contains(t, resp.Outcomes[1].Error, "invalid_date")
}

func TestListInvoices(t *testing.T) {
	env := newTestEnv(t)

	for i, date := range []string{"2026-01-10", "2026-02-10", "2026-03-10"} {
		doc := nfsdDoc(i+1, date, "0802", "100.00")
		w := env.do(t, http.MethodPost, "/api/v1/companies/"+env.company.ID.String()+"/invoices/import", doc, "application/xml")
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/v1/companies/"+env.company.ID.String()+"/invoices?from=2026-02-01&to=2026-02-28", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestMetricsAlertStatus(t *testing.T) {
	env := newTestEnv(t)

	doc := nfsdDoc(1, "2026-05-10", "0802", "64800.00")
	w := env.do(t, http.MethodPost, "/api/v1/companies/"+env.company.ID.String()+"/invoices/import", doc, "application/xml")
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/companies/"+env.company.ID.String()+"/metrics?as_of=2026-06-01", nil, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.RevenueAlert, resp.Metrics.Status)
	assert.Equal(t, "MEI", resp.TaxRegime)
	assert.Equal(t, "16200", resp.Metrics.AvailableMargin.String())
}

func TestStatistics(t *testing.T) {
	env := newTestEnv(t)

	approved := nfsdDoc(1, "2026-05-10", "0802", "100.00")
	violation := nfsdDoc(2, "2026-05-11", "9999", "50.00")
	for _, doc := range [][]byte{approved, violation} {
		w := env.do(t, http.MethodPost, "/api/v1/companies/"+env.company.ID.String()+"/invoices/import", doc, "application/xml")
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/v1/companies/"+env.company.ID.String()+"/statistics", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var stats model.CompanyStatistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalInvoices)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Violations)
	assert.Equal(t, "150", stats.TotalValue.String())
}

func TestReportReturnsPDF(t *testing.T) {
	env := newTestEnv(t)

	doc := nfsdDoc(1, time.Now().UTC().AddDate(0, -1, 0).Format("2006-01-02"), "0802", "1500.50")
	w := env.do(t, http.MethodPost, "/api/v1/companies/"+env.company.ID.String()+"/invoices/import", doc, "application/xml")
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/companies/"+env.company.ID.String()+"/report", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", w.Body.String()[:4])
}

func TestRegistryLookupProxiesNotFound(t *testing.T) {
	env := newTestEnv(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	env.server.registry = registry.NewClient(registry.WithBaseURL(upstream.URL))

	w := env.do(t, http.MethodGet, "/api/v1/registry/cnpj/12345678000190", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCompanyOwnershipBoundary(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/companies/"+env.company.ID.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	otherToken, err := env.auth.GenerateToken(uuid.New())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/"+env.company.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+otherToken)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	w = env.do(t, http.MethodGet, "/api/v1/companies/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
