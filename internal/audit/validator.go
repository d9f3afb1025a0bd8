package audit

import (
	"fmt"

	"github.com/fiscalfacil/audit-service/internal/model"
)

// Validate matches a declared municipal service code against a company's
// authorized mappings. Pure and deterministic: the same invoice always
// gets the same verdict no matter when it is re-evaluated.
func Validate(declaredServiceCode string, mappings []model.ServiceMapping) model.AuditVerdict {
	for _, m := range mappings {
		if m.MunicipalServiceCode == declaredServiceCode {
			return model.AuditVerdict{
				Status: model.VerdictApproved,
				Reason: "invoice service code is authorized",
			}
		}
	}
	return model.AuditVerdict{
		Status: model.VerdictServiceCodeViolation,
		Reason: fmt.Sprintf("service code %q is not authorized for this company", declaredServiceCode),
	}
}
