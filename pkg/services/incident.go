package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opslens/contextgraph/pkg/apperrors"
	"github.com/opslens/contextgraph/pkg/metrics"
	"github.com/opslens/contextgraph/pkg/models"
	"github.com/opslens/contextgraph/pkg/repositories"
)

// IncidentService assembles the incident context for one entity: upstream
// root-cause candidates, downstream impacts, and contractual SLA exposure
// reached through downstream enterprise customers.
type IncidentService interface {
	// AnalyzeIncident resolves the entity by (tenant, external id) and
	// classifies its neighborhood. Returns *apperrors.EntityNotFoundError
	// when the entity does not exist for the tenant.
	//
	// The call issues a bounded number of store lookups: one resolve, one
	// two-direction neighbor fetch, and one outgoing-only fetch per
	// downstream enterprise customer. This holds for any topology,
	// including cyclic ones.
	AnalyzeIncident(ctx context.Context, tenantID, externalID string) (*models.IncidentContext, error)
}

type incidentService struct {
	entityRepo repositories.EntityRepository
	relRepo    repositories.RelationshipRepository
	traversal  TraversalService
	metrics    *metrics.Registry
	logger     *zap.Logger
}

// NewIncidentService creates a new IncidentService.
func NewIncidentService(
	entityRepo repositories.EntityRepository,
	relRepo repositories.RelationshipRepository,
	traversal TraversalService,
	m *metrics.Registry,
	logger *zap.Logger,
) IncidentService {
	return &incidentService{
		entityRepo: entityRepo,
		relRepo:    relRepo,
		traversal:  traversal,
		metrics:    m,
		logger:     logger.Named("incident"),
	}
}

var _ IncidentService = (*incidentService)(nil)

func (s *incidentService) AnalyzeIncident(ctx context.Context, tenantID, externalID string) (*models.IncidentContext, error) {
	start := time.Now()
	result, err := s.analyze(ctx, tenantID, externalID)
	s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	s.metrics.AnalysesTotal.WithLabelValues(outcomeLabel(err)).Inc()
	return result, err
}

func (s *incidentService) analyze(ctx context.Context, tenantID, externalID string) (*models.IncidentContext, error) {
	if tenantID == "" {
		return nil, apperrors.ErrTenantRequired
	}

	entity, err := s.entityRepo.Resolve(ctx, tenantID, externalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Info("Incident entity not found",
				zap.String("tenant_id", tenantID),
				zap.String("external_id", externalID))
			return nil, &apperrors.EntityNotFoundError{ExternalID: externalID, TenantID: tenantID}
		}
		return nil, fmt.Errorf("resolve incident entity: %w", err)
	}

	classification, err := s.traversal.ClassifyNeighbors(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("classify neighbors: %w", err)
	}

	slas, err := s.collectCriticalSLAs(ctx, classification.Downstream)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Incident context assembled",
		zap.String("tenant_id", tenantID),
		zap.String("external_id", externalID),
		zap.String("entity_type", string(entity.Type)),
		zap.Int("upstream", len(classification.Upstream)),
		zap.Int("downstream", len(classification.Downstream)),
		zap.Int("critical_slas", len(slas)))

	return &models.IncidentContext{
		EntityID:             entity.ID,
		EntityName:           entity.Name,
		EntityType:           entity.Type,
		UpstreamDependencies: classification.Upstream,
		DownstreamImpacts:    classification.Downstream,
		CriticalSLAs:         slas,
	}, nil
}

// collectCriticalSLAs performs the bounded second pass: exactly one extra
// outgoing-only hop per downstream enterprise customer, collecting COVERED_BY
// targets. SLA coverage is a leaf fact attached directly to a customer node;
// deeper search would either loop (customer to SLA to customer) or surface
// irrelevant edges, so this never recurses further.
func (s *incidentService) collectCriticalSLAs(ctx context.Context, downstream []models.ImpactEntry) ([]models.ImpactEntry, error) {
	slas := make([]models.ImpactEntry, 0)

	for _, impact := range downstream {
		if impact.EntityType != models.EntityTypeEnterpriseCustomer {
			continue
		}

		neighbors, err := s.relRepo.Neighbors(ctx, impact.EntityID, models.DirectionOutgoing)
		if err != nil {
			return nil, fmt.Errorf("fetch SLA coverage for customer %s: %w", impact.EntityID, err)
		}

		for _, n := range neighbors {
			if n.Relationship.Type != models.RelationshipCoveredBy {
				continue
			}
			slas = append(slas, models.ImpactEntry{
				Relationship: n.Relationship.Type,
				Direction:    models.TraversalDownstream,
				EntityID:     n.Entity.ID,
				EntityName:   n.Entity.Name,
				EntityType:   n.Entity.Type,
				ExternalID:   n.Entity.ExternalID,
			})
		}
	}

	return slas, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
