package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fiscalfacil/audit-service/internal/config"
	"github.com/fiscalfacil/audit-service/internal/model"
	"github.com/fiscalfacil/audit-service/internal/store"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	return db
}

func sampleCompany(owner uuid.UUID) *model.Company {
	return &model.Company{
		ID:        uuid.New(),
		OwnerID:   owner,
		CNPJ:      "12345678000190",
		LegalName: "Acme Serviços Ltda",
		TradeName: "Acme",
		TaxRegime: model.RegimeMEI,
		OpenedAt:  "2020-05-01",
		Mappings: []model.ServiceMapping{
			{CNAECode: "6201-5/01", MunicipalServiceCode: "01.01", Description: "Software"},
			{CNAECode: "8599-6/04", MunicipalServiceCode: "08.02", Description: "Treinamento"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestCompanyRepository_CreateAndFind(t *testing.T) {
	db := openTestDB(t)
	repo := store.NewCompanyRepository(db)
	ctx := context.Background()

	company := sampleCompany(uuid.New())
	require.NoError(t, repo.Create(ctx, company))

	got, err := repo.FindByID(ctx, company.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, company.CNPJ, got.CNPJ)
	assert.Equal(t, company.LegalName, got.LegalName)
	assert.Equal(t, model.RegimeMEI, got.TaxRegime)
	assert.Len(t, got.Mappings, 2)
	assert.Equal(t, "08.02", got.Mappings[1].MunicipalServiceCode)
}

func TestCompanyRepository_FindMissingReturnsNil(t *testing.T) {
	db := openTestDB(t)
	repo := store.NewCompanyRepository(db)

	got, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCompanyRepository_DuplicateCNPJ(t *testing.T) {
	db := openTestDB(t)
	repo := store.NewCompanyRepository(db)
	ctx := context.Background()

	first := sampleCompany(uuid.New())
	require.NoError(t, repo.Create(ctx, first))

	second := sampleCompany(uuid.New())
	second.ID = uuid.New()
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, store.ErrDuplicateCNPJ)
}

func TestCompanyRepository_CeilingOverrideRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := store.NewCompanyRepository(db)
	ctx := context.Background()

	override := decimal.RequireFromString("120000.00")
	company := sampleCompany(uuid.New())
	company.CeilingOverride = &override
	require.NoError(t, repo.Create(ctx, company))

	got, err := repo.FindByID(ctx, company.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CeilingOverride)
	assert.True(t, override.Equal(*got.CeilingOverride))
}

func TestCompanyRepository_ListByOwner(t *testing.T) {
	db := openTestDB(t)
	repo := store.NewCompanyRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	mine := sampleCompany(owner)
	require.NoError(t, repo.Create(ctx, mine))

	other := sampleCompany(uuid.New())
	other.CNPJ = "98765432000155"
	require.NoError(t, repo.Create(ctx, other))

	got, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)
}

func TestInvoiceRepository_SaveAndList(t *testing.T) {
	db := openTestDB(t)
	companies := store.NewCompanyRepository(db)
	invoices := store.NewInvoiceRepository(db)
	ctx := context.Background()

	company := sampleCompany(uuid.New())
	require.NoError(t, companies.Create(ctx, company))

	inv := &model.Invoice{
		ID:          uuid.New(),
		CompanyID:   company.ID,
		Number:      42,
		IssueDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		ServiceCode: "08.02",
		TotalValue:  decimal.RequireFromString("1500.50"),
		RawXML:      []byte("<tbnfd/>"),
		Verdict:     model.AuditVerdict{Status: model.VerdictApproved, Reason: "ok"},
		ImportedAt:  time.Now().UTC(),
	}
	require.NoError(t, invoices.Save(ctx, inv))

	got, err := invoices.ListByCompany(ctx, company.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(42), got[0].Number)
	assert.True(t, decimal.RequireFromString("1500.50").Equal(got[0].TotalValue),
		"amount must survive storage exactly, got %s", got[0].TotalValue)
	assert.Equal(t, model.VerdictApproved, got[0].Verdict.Status)
	assert.Equal(t, []byte("<tbnfd/>"), got[0].RawXML)
}

func TestInvoiceRepository_ReimportCreatesNewRecord(t *testing.T) {
	db := openTestDB(t)
	companies := store.NewCompanyRepository(db)
	invoices := store.NewInvoiceRepository(db)
	ctx := context.Background()

	company := sampleCompany(uuid.New())
	require.NoError(t, companies.Create(ctx, company))

	for i := 0; i < 2; i++ {
		inv := &model.Invoice{
			ID:          uuid.New(),
			CompanyID:   company.ID,
			Number:      7, // same physical invoice number
			IssueDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			ServiceCode: "08.02",
			TotalValue:  decimal.RequireFromString("10.00"),
			Verdict:     model.AuditVerdict{Status: model.VerdictApproved},
			ImportedAt:  time.Now().UTC(),
		}
		require.NoError(t, invoices.Save(ctx, inv))
	}

	got, err := invoices.ListByCompany(ctx, company.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestInvoiceRepository_DateRange(t *testing.T) {
	db := openTestDB(t)
	companies := store.NewCompanyRepository(db)
	invoices := store.NewInvoiceRepository(db)
	ctx := context.Background()

	company := sampleCompany(uuid.New())
	require.NoError(t, companies.Create(ctx, company))

	for i, day := range []int{1, 15, 28} {
		inv := &model.Invoice{
			ID:          uuid.New(),
			CompanyID:   company.ID,
			Number:      int64(i + 1),
			IssueDate:   time.Date(2025, 2, day, 0, 0, 0, 0, time.UTC),
			ServiceCode: "08.02",
			TotalValue:  decimal.RequireFromString("10.00"),
			Verdict:     model.AuditVerdict{Status: model.VerdictApproved},
			ImportedAt:  time.Now().UTC(),
		}
		require.NoError(t, invoices.Save(ctx, inv))
	}

	from := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)
	got, err := invoices.ListByCompany(ctx, company.ID, &from, &to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Number)
}
