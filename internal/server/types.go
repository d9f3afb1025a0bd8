package server

import (
	"github.com/fiscalfacil/audit-service/internal/audit"
	"github.com/fiscalfacil/audit-service/internal/model"
)

// CreateCompanyRequest is the payload for company registration
type CreateCompanyRequest struct {
	CNPJ            string                  `json:"cnpj" binding:"required"`
	LegalName       string                  `json:"legal_name" binding:"required"`
	TradeName       string                  `json:"trade_name"`
	TaxRegime       string                  `json:"tax_regime" binding:"required"`
	OpenedAt        string                  `json:"opened_at"`
	CeilingOverride string                  `json:"ceiling_override"`
	Mappings        []ServiceMappingRequest `json:"mappings"`
}

// ServiceMappingRequest is one authorized service code
type ServiceMappingRequest struct {
	CNAECode             string `json:"cnae_code"`
	MunicipalServiceCode string `json:"municipal_service_code" binding:"required"`
	Description          string `json:"description"`
}

// IngestResponse is the response for a single document import
type IngestResponse struct {
	Invoice *model.Invoice `json:"invoice"`
}

// BatchResponse is the response for a batch import
type BatchResponse struct {
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Outcomes  []audit.FileOutcome `json:"outcomes"`
}

// MetricsResponse pairs revenue metrics with the company they describe
type MetricsResponse struct {
	CompanyID string               `json:"company_id"`
	TaxRegime string               `json:"tax_regime"`
	Metrics   model.RevenueMetrics `json:"metrics"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}
