package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fiscalfacil/audit-service/internal/audit"
	"github.com/fiscalfacil/audit-service/internal/model"
	xmlparser "github.com/fiscalfacil/audit-service/internal/parser/xml"
)

var (
	metricsRegime string
	metricsAsOf   string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics [files...]",
	Short: "Compute rolling 12-month revenue from XML files",
	Long: `Parse NFS-D XML files and compute the rolling 12-month revenue
against the ceiling of the given tax regime.

Examples:
  fiscalaudit metrics notas/ --regime MEI
  fiscalaudit metrics *.xml --regime "Simples Nacional" --as-of 2026-06-30`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsCmd.Flags().StringVar(&metricsRegime, "regime", "MEI", "Tax regime (MEI, Simples Nacional, Lucro Presumido)")
	metricsCmd.Flags().StringVar(&metricsAsOf, "as-of", "", "Reference date YYYY-MM-DD (default: today)")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	regime := model.TaxRegime(metricsRegime)
	switch regime {
	case model.RegimeMEI, model.RegimeSimplesNacional, model.RegimeLucroPresumido:
	default:
		return fmt.Errorf("unknown tax regime %q", metricsRegime)
	}

	asOf := time.Now().UTC()
	if metricsAsOf != "" {
		parsed, err := time.Parse("2006-01-02", metricsAsOf)
		if err != nil {
			return fmt.Errorf("as-of must be YYYY-MM-DD")
		}
		asOf = parsed
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	parser := xmlparser.NewRegistry()
	var invoices []model.Invoice
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		inv, err := parser.Parse(raw)
		if err != nil {
			printVerbose("skipping %s: %v\n", file, err)
			continue
		}
		invoices = append(invoices, *inv)
	}

	company := &model.Company{TaxRegime: regime}
	metrics := audit.NewAggregator("").ComputeMetrics(company, invoices, asOf)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(metrics)
}
