package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/opslens/contextgraph/pkg/apperrors"
	"github.com/opslens/contextgraph/pkg/auth"
	"github.com/opslens/contextgraph/pkg/services"
)

// ClearTopologyResponse for DELETE /topology.
type ClearTopologyResponse struct {
	EntitiesDeleted      int64 `json:"entities_deleted"`
	RelationshipsDeleted int64 `json:"relationships_deleted"`
}

// TopologyHandler handles topology ingestion HTTP requests.
type TopologyHandler struct {
	topologyService services.TopologyService
	logger          *zap.Logger
}

// NewTopologyHandler creates a new topology handler.
func NewTopologyHandler(topologyService services.TopologyService, logger *zap.Logger) *TopologyHandler {
	return &TopologyHandler{
		topologyService: topologyService,
		logger:          logger,
	}
}

// RegisterRoutes registers the topology handler's routes on the given mux.
func (h *TopologyHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/tenants/{tid}/topology"

	mux.HandleFunc("POST "+base+"/entities",
		authMiddleware.RequireAuthWithPathValidation("tid")(tenantMiddleware(h.UpsertEntity)))
	mux.HandleFunc("POST "+base+"/relationships",
		authMiddleware.RequireAuthWithPathValidation("tid")(tenantMiddleware(h.Link)))
	mux.HandleFunc("DELETE "+base,
		authMiddleware.RequireAuthWithPathValidation("tid")(tenantMiddleware(h.Clear)))
}

// UpsertEntity handles POST /api/tenants/{tid}/topology/entities
func (h *TopologyHandler) UpsertEntity(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := ParseTenantID(w, r, h.logger)
	if !ok {
		return
	}

	var input services.EntityInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if werr := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid JSON body"); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
		return
	}

	entity, err := h.topologyService.UpsertEntity(r.Context(), tenantID, &input)
	if err != nil {
		h.writeIngestionError(w, tenantID, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, entity); err != nil {
		h.logger.Error("Failed to encode entity response", zap.Error(err))
	}
}

// Link handles POST /api/tenants/{tid}/topology/relationships
func (h *TopologyHandler) Link(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := ParseTenantID(w, r, h.logger)
	if !ok {
		return
	}

	var input services.LinkInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if werr := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid JSON body"); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
		return
	}

	rel, err := h.topologyService.Link(r.Context(), tenantID, &input)
	if err != nil {
		h.writeIngestionError(w, tenantID, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, rel); err != nil {
		h.logger.Error("Failed to encode relationship response", zap.Error(err))
	}
}

// Clear handles DELETE /api/tenants/{tid}/topology
func (h *TopologyHandler) Clear(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := ParseTenantID(w, r, h.logger)
	if !ok {
		return
	}

	entities, relationships, err := h.topologyService.ClearTenant(r.Context(), tenantID)
	if err != nil {
		h.writeIngestionError(w, tenantID, err)
		return
	}

	response := ClearTopologyResponse{
		EntitiesDeleted:      entities,
		RelationshipsDeleted: relationships,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode clear response", zap.Error(err))
	}
}

func (h *TopologyHandler) writeIngestionError(w http.ResponseWriter, tenantID string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		if werr := ErrorResponse(w, http.StatusBadRequest, "invalid_input", err.Error()); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	case errors.Is(err, apperrors.ErrCrossTenant):
		if werr := ErrorResponse(w, http.StatusBadRequest, "cross_tenant", err.Error()); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	case errors.Is(err, apperrors.ErrNotFound):
		if werr := ErrorResponse(w, http.StatusNotFound, "entity_not_found", err.Error()); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		h.logger.Error("Entity store unavailable during ingestion",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		if werr := ErrorResponse(w, http.StatusServiceUnavailable, "store_unavailable", "Entity store unavailable"); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	default:
		h.logger.Error("Topology ingestion failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		if werr := ErrorResponse(w, http.StatusInternalServerError, "ingestion_failed", "Topology ingestion failed"); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	}
}
