package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "fiscalaudit",
	Short: "Audit Brazilian service invoices (NFS-D XML)",
	Long: `Fiscal Audit checks municipal service invoices against a company's
authorized service codes and tracks rolling 12-month revenue against the
regime ceiling.

Examples:
  # Start the API server
  fiscalaudit serve

  # Audit XML files offline against a set of authorized codes
  fiscalaudit audit nota1.xml nota2.xml --codes 0802,0702

  # Compute rolling revenue metrics from a directory of invoices
  fiscalaudit metrics notas/ --regime MEI`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
