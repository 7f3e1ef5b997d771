package handlers

import (
	"net/http"

	"github.com/ekaya-inc/ekaya-canvas/pkg/audit"
	"github.com/ekaya-inc/ekaya-canvas/pkg/sql"
)

// Middleware wraps a handler, e.g. with rate limiting.
type Middleware func(http.HandlerFunc) http.HandlerFunc

func wrap(m Middleware, next http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return next
	}
	return m(next)
}

// auditFilters reports filter values that look like SQL injection. Queries
// are parameterised, so the request continues either way.
func auditFilters(r *http.Request, auditor *audit.SecurityAuditor, params map[string]string) {
	if auditor == nil {
		return
	}
	for _, hit := range sql.CheckAllParameters(params) {
		auditor.LogInjectionAttempt(r.Context(), r.Pattern, audit.SQLInjectionDetails{
			ParamName:   hit.ParamName,
			ParamValue:  hit.ParamValue,
			Fingerprint: hit.Fingerprint,
		}, r.RemoteAddr)
	}
}

func auditDeletion(r *http.Request, auditor *audit.SecurityAuditor, resourceType, id string) {
	if auditor == nil {
		return
	}
	auditor.LogResourceDeleted(r.Context(), r.Pattern, audit.ResourceDetails{
		ResourceType: resourceType,
		ResourceID:   id,
	}, r.RemoteAddr)
}
