package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// ParseTenantID extracts the tenant ID from the request path.
// Tenant ids are opaque strings, so only emptiness is rejected.
// Expects path parameter: tid
func ParseTenantID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parsePathParam(w, r, "tid", "invalid_tenant_id", "Missing tenant ID", logger)
}

// ParseExternalID extracts the caller-supplied entity identifier from the
// request path.
// Expects path parameter: xid
func ParseExternalID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parsePathParam(w, r, "xid", "invalid_external_id", "Missing entity external ID", logger)
}

// parsePathParam is the internal helper that does the actual parsing work.
func parsePathParam(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (string, bool) {
	value := r.PathValue(pathParam)
	if value == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return value, true
}
