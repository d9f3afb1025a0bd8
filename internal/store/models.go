package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fiscalfacil/audit-service/internal/model"
)

// Persistence records. Monetary amounts are stored in their exact string
// form and only become decimals again at this boundary; UUIDs are stored
// as text so the schema works on both sqlite and postgres.

type companyRecord struct {
	ID              string `gorm:"primaryKey;size:36"`
	OwnerID         string `gorm:"size:36;index"`
	CNPJ            string `gorm:"size:14;uniqueIndex"`
	LegalName       string
	TradeName       string
	TaxRegime       string
	OpenedAt        string
	CeilingOverride *string
	Mappings        []mappingRecord `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time
}

func (companyRecord) TableName() string { return "companies" }

type mappingRecord struct {
	ID                   uint   `gorm:"primaryKey;autoIncrement"`
	CompanyID            string `gorm:"size:36;index"`
	CNAECode             string
	MunicipalServiceCode string
	Description          string
}

func (mappingRecord) TableName() string { return "service_mappings" }

type invoiceRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	CompanyID     string `gorm:"size:36;index"`
	Number        int64
	IssueDate     time.Time `gorm:"index"`
	ServiceCode   string
	TotalValue    string
	ValidationKey string
	PayerTaxID    string
	RawXML        []byte
	VerdictStatus string
	VerdictReason string
	ImportedAt    time.Time
}

func (invoiceRecord) TableName() string { return "invoices" }

func newCompanyRecord(c *model.Company) *companyRecord {
	rec := &companyRecord{
		ID:        c.ID.String(),
		OwnerID:   c.OwnerID.String(),
		CNPJ:      c.CNPJ,
		LegalName: c.LegalName,
		TradeName: c.TradeName,
		TaxRegime: string(c.TaxRegime),
		OpenedAt:  c.OpenedAt,
		CreatedAt: c.CreatedAt,
	}
	if c.CeilingOverride != nil {
		s := c.CeilingOverride.String()
		rec.CeilingOverride = &s
	}
	for _, m := range c.Mappings {
		rec.Mappings = append(rec.Mappings, mappingRecord{
			CompanyID:            rec.ID,
			CNAECode:             m.CNAECode,
			MunicipalServiceCode: m.MunicipalServiceCode,
			Description:          m.Description,
		})
	}
	return rec
}

func (r *companyRecord) toDomain() (*model.Company, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("company %s: bad id: %w", r.ID, err)
	}
	ownerID, err := uuid.Parse(r.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("company %s: bad owner id: %w", r.ID, err)
	}

	c := &model.Company{
		ID:        id,
		OwnerID:   ownerID,
		CNPJ:      r.CNPJ,
		LegalName: r.LegalName,
		TradeName: r.TradeName,
		TaxRegime: model.TaxRegime(r.TaxRegime),
		OpenedAt:  r.OpenedAt,
		CreatedAt: r.CreatedAt,
	}
	if r.CeilingOverride != nil {
		d, err := decimal.NewFromString(*r.CeilingOverride)
		if err != nil {
			return nil, fmt.Errorf("company %s: bad ceiling override %q: %w", r.ID, *r.CeilingOverride, err)
		}
		c.CeilingOverride = &d
	}
	for _, m := range r.Mappings {
		c.Mappings = append(c.Mappings, model.ServiceMapping{
			CNAECode:             m.CNAECode,
			MunicipalServiceCode: m.MunicipalServiceCode,
			Description:          m.Description,
		})
	}
	return c, nil
}

func newInvoiceRecord(inv *model.Invoice) *invoiceRecord {
	return &invoiceRecord{
		ID:            inv.ID.String(),
		CompanyID:     inv.CompanyID.String(),
		Number:        inv.Number,
		IssueDate:     inv.IssueDate,
		ServiceCode:   inv.ServiceCode,
		TotalValue:    inv.TotalValue.String(),
		ValidationKey: inv.ValidationKey,
		PayerTaxID:    inv.PayerTaxID,
		RawXML:        inv.RawXML,
		VerdictStatus: string(inv.Verdict.Status),
		VerdictReason: inv.Verdict.Reason,
		ImportedAt:    inv.ImportedAt,
	}
}

func (r *invoiceRecord) toDomain() (*model.Invoice, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: bad id: %w", r.ID, err)
	}
	companyID, err := uuid.Parse(r.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: bad company id: %w", r.ID, err)
	}
	total, err := decimal.NewFromString(r.TotalValue)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: bad total value %q: %w", r.ID, r.TotalValue, err)
	}

	return &model.Invoice{
		ID:            id,
		CompanyID:     companyID,
		Number:        r.Number,
		IssueDate:     r.IssueDate,
		ServiceCode:   r.ServiceCode,
		TotalValue:    total,
		ValidationKey: r.ValidationKey,
		PayerTaxID:    r.PayerTaxID,
		RawXML:        r.RawXML,
		Verdict: model.AuditVerdict{
			Status: model.VerdictStatus(r.VerdictStatus),
			Reason: r.VerdictReason,
		},
		ImportedAt: r.ImportedAt,
	}, nil
}
