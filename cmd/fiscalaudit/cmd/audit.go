package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fiscalfacil/audit-service/internal/audit"
	"github.com/fiscalfacil/audit-service/internal/model"
	xmlparser "github.com/fiscalfacil/audit-service/internal/parser/xml"
)

var (
	authorizedCodes string
	outputFile      string
)

var auditCmd = &cobra.Command{
	Use:   "audit [files...]",
	Short: "Audit invoice XML files offline",
	Long: `Parse NFS-D XML files and check each declared service code against
a comma-separated list of authorized municipal codes. Nothing is
persisted; this is the offline version of the import endpoint.

Examples:
  fiscalaudit audit nota.xml --codes 0802
  fiscalaudit audit notas/ --codes 0802,0702 -f table
  fiscalaudit audit *.xml --codes 0802 -o results.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&authorizedCodes, "codes", "", "Comma-separated authorized municipal service codes (required)")
	auditCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	auditCmd.MarkFlagRequired("codes")
}

type auditOutcome struct {
	File    string         `json:"file"`
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Invoice *model.Invoice `json:"invoice,omitempty"`
}

func runAudit(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) > audit.MaxBatchFiles {
		return fmt.Errorf("too many files: %d (maximum %d)", len(files), audit.MaxBatchFiles)
	}

	var mappings []model.ServiceMapping
	for _, code := range strings.Split(authorizedCodes, ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			mappings = append(mappings, model.ServiceMapping{MunicipalServiceCode: code})
		}
	}

	parser := xmlparser.NewRegistry()
	outcomes := make([]auditOutcome, 0, len(files))
	for _, file := range files {
		printVerbose("auditing %s\n", file)

		raw, err := os.ReadFile(file)
		if err != nil {
			outcomes = append(outcomes, auditOutcome{File: file, Error: err.Error()})
			continue
		}
		inv, err := parser.Parse(raw)
		if err != nil {
			outcomes = append(outcomes, auditOutcome{File: file, Error: err.Error()})
			continue
		}
		inv.Verdict = audit.Validate(inv.ServiceCode, mappings)
		outcomes = append(outcomes, auditOutcome{File: file, OK: true, Invoice: inv})
	}

	return writeOutcomes(outcomes)
}

func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
				files = append(files, filepath.Join(arg, entry.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no XML files found")
	}
	return files, nil
}

func writeOutcomes(outcomes []auditOutcome) error {
	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if outputFormat == "table" {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tNUMBER\tDATE\tCODE\tVALUE\tVERDICT")
		for _, o := range outcomes {
			if !o.OK {
				fmt.Fprintf(w, "%s\t-\t-\t-\t-\tERROR: %s\n", o.File, o.Error)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
				o.File,
				o.Invoice.Number,
				o.Invoice.IssueDate.Format("2006-01-02"),
				o.Invoice.ServiceCode,
				o.Invoice.TotalValue.StringFixed(2),
				o.Invoice.Verdict.Status)
		}
		return w.Flush()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(outcomes)
}
