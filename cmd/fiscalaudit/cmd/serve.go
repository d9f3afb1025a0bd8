package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fiscalfacil/audit-service/internal/audit"
	"github.com/fiscalfacil/audit-service/internal/auth"
	"github.com/fiscalfacil/audit-service/internal/config"
	"github.com/fiscalfacil/audit-service/internal/logger"
	xmlparser "github.com/fiscalfacil/audit-service/internal/parser/xml"
	"github.com/fiscalfacil/audit-service/internal/registry"
	"github.com/fiscalfacil/audit-service/internal/server"
	"github.com/fiscalfacil/audit-service/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the audit API server.

Endpoints:
  POST /api/v1/companies                              - Register a company
  GET  /api/v1/companies                              - List own companies
  GET  /api/v1/companies/:id                          - Company details
  POST /api/v1/companies/:id/invoices/import          - Audit a single XML document
  POST /api/v1/companies/:id/invoices/import-batch    - Audit up to 100 documents
  GET  /api/v1/companies/:id/invoices                 - List audited invoices
  GET  /api/v1/companies/:id/statistics               - Invoice counters
  GET  /api/v1/companies/:id/metrics                  - Rolling 12-month revenue
  GET  /api/v1/companies/:id/report                   - Compliance report (PDF)
  GET  /api/v1/registry/cnpj/:cnpj                    - Registry pre-fill lookup
  GET  /health                                        - Health check

Configuration comes from config.toml and FISCAL_* environment variables.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Log)
	defer log.Sync()

	db, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	companies := store.NewCompanyRepository(db)
	invoices := store.NewInvoiceRepository(db)

	auditSvc := audit.NewService(
		companies,
		invoices,
		xmlparser.NewRegistry(),
		audit.NewAggregator(audit.RevenuePolicy(cfg.Audit.RevenuePolicy)),
		log,
	)

	srv := server.NewServer(&server.Config{
		Address:      cfg.HTTP.Address,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Debug:        cfg.HTTP.Debug,
	}, server.Deps{
		Companies: companies,
		Audit:     auditSvc,
		Auth:      auth.NewService(cfg.JWT),
		Registry: registry.NewClient(
			registry.WithBaseURL(cfg.Registry.BaseURL),
			registry.WithTimeout(cfg.Registry.Timeout),
			registry.WithLogger(log),
		),
		DB:  db,
		Log: log,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")
		os.Exit(0)
	}()

	log.Info("starting server",
		zap.String("address", cfg.HTTP.Address),
		zap.String("env", cfg.App.Env))
	return srv.Run()
}
