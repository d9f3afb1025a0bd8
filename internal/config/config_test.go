package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalfacil/audit-service/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "fiscal-audit", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "https://brasilapi.com.br", cfg.Registry.BaseURL)
	assert.Equal(t, "all", cfg.Audit.RevenuePolicy)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FISCAL_DATABASE_DRIVER", "postgres")
	t.Setenv("FISCAL_AUDIT_REVENUE_POLICY", "approved_only")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "approved_only", cfg.Audit.RevenuePolicy)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("FISCAL_DATABASE_DRIVER", "oracle")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestLoad_RejectsUnknownRevenuePolicy(t *testing.T) {
	t.Setenv("FISCAL_AUDIT_REVENUE_POLICY", "sometimes")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revenue_policy")
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("FISCAL_APP_ENV", "production")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}
