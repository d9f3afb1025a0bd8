// Package report renders compliance reports as PDF documents.
package report

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/fiscalfacil/audit-service/internal/model"
)

// ComplianceReport carries everything the PDF shows: company identity,
// revenue standing and the audited invoices.
type ComplianceReport struct {
	Company     *model.Company
	Metrics     *model.RevenueMetrics
	Statistics  *model.CompanyStatistics
	Invoices    []model.Invoice
	GeneratedAt string
}

// Generate renders the compliance report and returns the PDF bytes.
func Generate(rep ComplianceReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Relatório de Conformidade Fiscal", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New(rep.Company.LegalName, props.Text{Style: fontstyle.Bold}),
			text.New("CNPJ: "+rep.Company.CNPJ, props.Text{Top: 5}),
			text.New("Regime: "+string(rep.Company.TaxRegime), props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Gerado em: "+rep.GeneratedAt, props.Text{Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(12, "Receita acumulada (12 meses)", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   2,
		}),
	)
	m.AddRow(28,
		col.New(12).Add(
			text.New(fmt.Sprintf("Receita: R$ %s", rep.Metrics.Revenue.StringFixed(2)), props.Text{Top: 0}),
			text.New(fmt.Sprintf("Teto do regime: R$ %s", rep.Metrics.Ceiling.StringFixed(2)), props.Text{Top: 5}),
			text.New(fmt.Sprintf("Utilização: %s%%", rep.Metrics.UsagePercent.StringFixed(2)), props.Text{Top: 10}),
			text.New(fmt.Sprintf("Margem disponível: R$ %s", rep.Metrics.AvailableMargin.StringFixed(2)), props.Text{Top: 15}),
			text.New("Situação: "+statusLabel(rep.Metrics.Status), props.Text{Top: 20, Style: fontstyle.Bold}),
		),
	)

	if rep.Statistics != nil {
		m.AddRow(10,
			text.NewCol(12, "Resumo das notas", props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   2,
			}),
		)
		m.AddRow(16,
			col.New(12).Add(
				text.New(fmt.Sprintf("Total de notas: %d", rep.Statistics.TotalInvoices), props.Text{Top: 0}),
				text.New(fmt.Sprintf("Aprovadas: %d  |  Irregulares: %d", rep.Statistics.Approved, rep.Statistics.Violations), props.Text{Top: 5}),
				text.New(fmt.Sprintf("Valor total: R$ %s", rep.Statistics.TotalValue.StringFixed(2)), props.Text{Top: 10}),
			),
		)
	}

	m.AddRow(8,
		text.NewCol(5, "Nota", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Emissão", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Código", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Valor", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Situação", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, inv := range rep.Invoices {
		m.AddRow(6,
			text.NewCol(5, fmt.Sprintf("%d", inv.Number), props.Text{Size: 8}),
			text.NewCol(2, inv.IssueDate.Format("02/01/2006"), props.Text{Size: 8}),
			text.NewCol(2, inv.ServiceCode, props.Text{Size: 8}),
			text.NewCol(1, inv.TotalValue.StringFixed(2), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, verdictLabel(inv.Verdict.Status), props.Text{Size: 8, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func statusLabel(s model.RevenueStatus) string {
	switch s {
	case model.RevenueExceeded:
		return "TETO EXCEDIDO"
	case model.RevenueAlert:
		return "ALERTA"
	default:
		return "REGULAR"
	}
}

func verdictLabel(s model.VerdictStatus) string {
	if s == model.VerdictApproved {
		return "Aprovada"
	}
	return "Irregular"
}
