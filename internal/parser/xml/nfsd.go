package xml

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fiscalfacil/audit-service/internal/model"
)

// NFSD XML structures. The document must resolve to the fixed path
// tbnfd > nfdok > NewDataSet > NOTA_FISCAL; anything else is layout drift.
type nfsdDocument struct {
	XMLName xml.Name   `xml:"tbnfd"`
	Nfdok   *nfsdNfdok `xml:"nfdok"`
}

type nfsdNfdok struct {
	DataSet *nfsdDataSet `xml:"NewDataSet"`
}

type nfsdDataSet struct {
	Record *nfsdRecord `xml:"NOTA_FISCAL"`
}

type nfsdRecord struct {
	NumeroNota     string `xml:"NumeroNota"`
	DataEmissao    string `xml:"DataEmissao"`
	Cae            string `xml:"Cae"`
	ValorTotalNota string `xml:"ValorTotalNota"`
	ChaveValidacao string `xml:"ChaveValidacao"`
	ClienteCNPJCPF string `xml:"ClienteCNPJCPF"`
}

// NFSDLayout parses the NFS-D municipal service invoice layout
type NFSDLayout struct{}

// NewNFSDLayout creates a new NFS-D layout
func NewNFSDLayout() *NFSDLayout {
	return &NFSDLayout{}
}

// Name returns the layout name
func (l *NFSDLayout) Name() string {
	return "nfsd"
}

// CanParse checks for the NFS-D root container
func (l *NFSDLayout) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte("<tbnfd"))
}

// Parse parses NFS-D XML into the canonical Invoice
func (l *NFSDLayout) Parse(content, original []byte) (*model.Invoice, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	// Content is already normalized to UTF-8; the declared charset in the
	// XML prolog (often ISO-8859-1) must not trigger a second decode.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var doc nfsdDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, model.NewParseError(model.ParseErrUnrecognizedLayout, "document",
			"content is not a well-formed service invoice XML", err)
	}

	if doc.Nfdok == nil || doc.Nfdok.DataSet == nil || doc.Nfdok.DataSet.Record == nil {
		return nil, model.NewParseError(model.ParseErrUnrecognizedLayout, "document",
			"expected record at tbnfd/nfdok/NewDataSet/NOTA_FISCAL is missing", nil)
	}
	rec := doc.Nfdok.DataSet.Record

	number, err := parseInvoiceNumber(rec.NumeroNota)
	if err != nil {
		return nil, err
	}

	issueDate, err := parseIssueDate(rec.DataEmissao)
	if err != nil {
		return nil, err
	}

	serviceCode := strings.TrimSpace(rec.Cae)
	if serviceCode == "" {
		return nil, model.NewParseError(model.ParseErrMissingField, "Cae",
			"declared service code is required", nil)
	}

	total, err := parseTotalValue(rec.ValorTotalNota)
	if err != nil {
		return nil, err
	}

	return &model.Invoice{
		Number:        number,
		IssueDate:     issueDate,
		ServiceCode:   serviceCode,
		TotalValue:    total,
		ValidationKey: strings.TrimSpace(rec.ChaveValidacao),
		PayerTaxID:    strings.TrimSpace(rec.ClienteCNPJCPF),
		RawXML:        original,
	}, nil
}

func parseInvoiceNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, model.NewParseError(model.ParseErrMissingField, "NumeroNota",
			"invoice number is required", nil)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, model.NewParseError(model.ParseErrMissingField, "NumeroNota",
			"invoice number is not an integer", err)
	}
	return n, nil
}

// parseIssueDate keeps only the YYYY-MM-DD prefix; source systems append
// variable time suffixes that are never retained.
func parseIssueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return time.Time{}, model.NewParseError(model.ParseErrInvalidDate, "DataEmissao",
			"issue date is too short for a YYYY-MM-DD prefix", nil)
	}
	d, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, model.NewParseError(model.ParseErrInvalidDate, "DataEmissao",
			"issue date prefix does not parse as YYYY-MM-DD", err)
	}
	return d, nil
}

// parseTotalValue treats an absent or empty value as zero and keeps the
// amount as an exact decimal.
func parseTotalValue(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, model.NewParseError(model.ParseErrInvalidAmount, "ValorTotalNota",
			"total value is not a decimal number", err)
	}
	return d, nil
}
