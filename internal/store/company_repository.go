package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiscalfacil/audit-service/internal/model"
)

// ErrDuplicateCNPJ is returned when registering a company whose CNPJ is
// already known.
var ErrDuplicateCNPJ = errors.New("company with this CNPJ already exists")

// CompanyRepository persists companies and their authorized service
// mappings using GORM.
type CompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create registers a company together with its mapping whitelist.
func (r *CompanyRepository) Create(ctx context.Context, c *model.Company) error {
	existing, err := r.FindByCNPJ(ctx, c.CNPJ)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateCNPJ
	}
	return r.db.WithContext(ctx).Create(newCompanyRecord(c)).Error
}

// FindByID loads a company with its mappings. Returns (nil, nil) when
// the company does not exist.
func (r *CompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var rec companyRecord
	err := r.db.WithContext(ctx).
		Preload("Mappings").
		First(&rec, "id = ?", id.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec.toDomain()
}

// FindByCNPJ looks a company up by its normalized CNPJ. Returns
// (nil, nil) when absent.
func (r *CompanyRepository) FindByCNPJ(ctx context.Context, cnpj string) (*model.Company, error) {
	var rec companyRecord
	err := r.db.WithContext(ctx).
		Preload("Mappings").
		First(&rec, "cnpj = ?", model.NormalizeCNPJ(cnpj)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec.toDomain()
}

// ListByOwner returns every company registered by the given principal.
func (r *CompanyRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Company, error) {
	var recs []companyRecord
	err := r.db.WithContext(ctx).
		Preload("Mappings").
		Where("owner_id = ?", ownerID.String()).
		Order("created_at").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]model.Company, 0, len(recs))
	for i := range recs {
		c, err := recs[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}
