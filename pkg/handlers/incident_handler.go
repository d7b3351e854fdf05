package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/opslens/contextgraph/pkg/apperrors"
	"github.com/opslens/contextgraph/pkg/auth"
	"github.com/opslens/contextgraph/pkg/services"
)

// TenantMiddleware is a function that wraps a handler with tenant context.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// IncidentHandler handles incident analysis HTTP requests.
type IncidentHandler struct {
	incidentService services.IncidentService
	logger          *zap.Logger
}

// NewIncidentHandler creates a new incident handler.
func NewIncidentHandler(incidentService services.IncidentService, logger *zap.Logger) *IncidentHandler {
	return &IncidentHandler{
		incidentService: incidentService,
		logger:          logger,
	}
}

// RegisterRoutes registers the incident handler's routes on the given mux.
func (h *IncidentHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("GET /api/tenants/{tid}/incidents/{xid}/context",
		authMiddleware.RequireAuthWithPathValidation("tid")(tenantMiddleware(h.GetContext)))
}

// GetContext handles GET /api/tenants/{tid}/incidents/{xid}/context
func (h *IncidentHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := ParseTenantID(w, r, h.logger)
	if !ok {
		return
	}
	externalID, ok := ParseExternalID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.incidentService.AnalyzeIncident(r.Context(), tenantID, externalID)
	if err != nil {
		h.writeAnalysisError(w, tenantID, externalID, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode incident context", zap.Error(err))
	}
}

func (h *IncidentHandler) writeAnalysisError(w http.ResponseWriter, tenantID, externalID string, err error) {
	var notFound *apperrors.EntityNotFoundError

	switch {
	case errors.As(err, &notFound):
		if werr := ErrorResponse(w, http.StatusNotFound, "entity_not_found", notFound.Error()); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	case errors.Is(err, apperrors.ErrTenantRequired):
		if werr := ErrorResponse(w, http.StatusBadRequest, "tenant_required", err.Error()); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		h.logger.Error("Entity store unavailable during analysis",
			zap.String("tenant_id", tenantID),
			zap.String("external_id", externalID),
			zap.Error(err))
		if werr := ErrorResponse(w, http.StatusServiceUnavailable, "store_unavailable", "Entity store unavailable"); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	default:
		h.logger.Error("Incident analysis failed",
			zap.String("tenant_id", tenantID),
			zap.String("external_id", externalID),
			zap.Error(err))
		if werr := ErrorResponse(w, http.StatusInternalServerError, "analysis_failed", "Incident analysis failed"); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	}
}
