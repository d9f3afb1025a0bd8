// Package auditlib provides a public API for auditing Brazilian NFS-D
// service invoices without running the full service.
//
// Example usage:
//
//	result, err := auditlib.AuditBytes(raw, []string{"0802"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Verdict.Status)
package auditlib

import (
	"github.com/fiscalfacil/audit-service/internal/audit"
	"github.com/fiscalfacil/audit-service/internal/model"
	xmlparser "github.com/fiscalfacil/audit-service/internal/parser/xml"
)

// Re-export core types for public API
type (
	Invoice        = model.Invoice
	AuditVerdict   = model.AuditVerdict
	VerdictStatus  = model.VerdictStatus
	ServiceMapping = model.ServiceMapping
	ParseError     = model.ParseError
	ParseErrorKind = model.ParseErrorKind
)

// Re-export verdict constants
const (
	VerdictApproved             = model.VerdictApproved
	VerdictServiceCodeViolation = model.VerdictServiceCodeViolation
)

// Re-export parse error kinds
const (
	ParseErrEncoding           = model.ParseErrEncoding
	ParseErrUnrecognizedLayout = model.ParseErrUnrecognizedLayout
	ParseErrInvalidDate        = model.ParseErrInvalidDate
	ParseErrInvalidAmount      = model.ParseErrInvalidAmount
	ParseErrMissingField       = model.ParseErrMissingField
)

// ParseBytes parses a single NFS-D XML document. Failures are always
// *ParseError values.
func ParseBytes(raw []byte) (*Invoice, error) {
	return xmlparser.NewRegistry().Parse(raw)
}

// AuditBytes parses a document and checks its declared service code
// against the authorized municipal codes. The returned invoice carries
// the verdict.
func AuditBytes(raw []byte, authorizedCodes []string) (*Invoice, error) {
	inv, err := ParseBytes(raw)
	if err != nil {
		return nil, err
	}
	mappings := make([]ServiceMapping, 0, len(authorizedCodes))
	for _, code := range authorizedCodes {
		mappings = append(mappings, ServiceMapping{MunicipalServiceCode: code})
	}
	inv.Verdict = audit.Validate(inv.ServiceCode, mappings)
	return inv, nil
}
