package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiscalfacil/audit-service/internal/model"
)

// InvoiceRepository persists audited invoices using GORM. Append-only:
// there is deliberately no update or delete here.
type InvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Save inserts one audited invoice.
func (r *InvoiceRepository) Save(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Create(newInvoiceRecord(inv)).Error
}

// ListByCompany returns a company's invoices ordered by issue date, with
// an optional inclusive issue-date range.
func (r *InvoiceRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, from, to *time.Time) ([]model.Invoice, error) {
	q := r.db.WithContext(ctx).
		Where("company_id = ?", companyID.String()).
		Order("issue_date, imported_at")
	if from != nil {
		q = q.Where("issue_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("issue_date <= ?", *to)
	}

	var recs []invoiceRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}

	out := make([]model.Invoice, 0, len(recs))
	for i := range recs {
		inv, err := recs[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, nil
}
