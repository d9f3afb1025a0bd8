package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRegime is a company's fiscal classification. Each regime carries a
// default annual revenue ceiling.
type TaxRegime string

const (
	RegimeMEI             TaxRegime = "MEI"
	RegimeSimplesNacional TaxRegime = "Simples Nacional"
	RegimeLucroPresumido  TaxRegime = "Lucro Presumido"
)

// ServiceMapping pairs a CNAE classification code with the municipal
// service code a company is authorized to invoice under.
type ServiceMapping struct {
	CNAECode             string `json:"cnae_code"`
	MunicipalServiceCode string `json:"municipal_service_code"`
	Description          string `json:"description,omitempty"`
}

// Company owns a whitelist of service mappings and the invoices imported
// for it.
type Company struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CNPJ      string    `json:"cnpj"`
	LegalName string    `json:"legal_name"`
	TradeName string    `json:"trade_name,omitempty"`
	TaxRegime TaxRegime `json:"tax_regime"`
	OpenedAt  string    `json:"opened_at,omitempty"`

	// CeilingOverride, when set, takes precedence over the regime default.
	CeilingOverride *decimal.Decimal `json:"ceiling_override,omitempty"`

	Mappings  []ServiceMapping `json:"mappings"`
	CreatedAt time.Time        `json:"created_at"`
}

// CompanyProfile is the pre-fill data returned by the national company
// registry. It never enters the audit pipeline.
type CompanyProfile struct {
	CNPJ           string   `json:"cnpj"`
	LegalName      string   `json:"legal_name"`
	TradeName      string   `json:"trade_name,omitempty"`
	Street         string   `json:"street,omitempty"`
	District       string   `json:"district,omitempty"`
	City           string   `json:"city,omitempty"`
	State          string   `json:"state,omitempty"`
	PrimaryCNAE    string   `json:"primary_cnae,omitempty"`
	SecondaryCNAEs []string `json:"secondary_cnaes,omitempty"`
}

// NormalizeCNPJ strips everything but digits from a CNPJ.
func NormalizeCNPJ(cnpj string) string {
	var b strings.Builder
	for _, r := range cnpj {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
