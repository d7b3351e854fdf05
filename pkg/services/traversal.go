package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opslens/contextgraph/pkg/config"
	"github.com/opslens/contextgraph/pkg/metrics"
	"github.com/opslens/contextgraph/pkg/models"
	"github.com/opslens/contextgraph/pkg/repositories"
)

// Classification holds the direct neighbors of an entity split into
// root-cause candidates (upstream) and affected parties (downstream).
// Neighbors whose relationship carries no cause/effect semantics appear in
// neither list.
type Classification struct {
	Upstream   []models.ImpactEntry
	Downstream []models.ImpactEntry
}

// TraversalService classifies the direct neighbors of a topology entity.
//
// Classification depends on which endpoint is semantically upstream by
// relationship type, not merely on edge direction: HOSTS and SERVES put the
// source upstream of the target; DEPENDS_ON puts the target upstream of the
// source (the source is the dependent); COVERED_BY puts the target downstream
// of the source (contractual consequence); CONNECTS_TO and unknown types are
// never classified.
type TraversalService interface {
	ClassifyNeighbors(ctx context.Context, entity *models.NetworkEntity) (*Classification, error)
}

type traversalService struct {
	relationshipRepo repositories.RelationshipRepository
	cfg              config.TraversalConfig
	metrics          *metrics.Registry
	logger           *zap.Logger
}

// NewTraversalService creates a new TraversalService.
func NewTraversalService(
	relationshipRepo repositories.RelationshipRepository,
	cfg config.TraversalConfig,
	m *metrics.Registry,
	logger *zap.Logger,
) TraversalService {
	return &traversalService{
		relationshipRepo: relationshipRepo,
		cfg:              cfg,
		metrics:          m,
		logger:           logger.Named("traversal"),
	}
}

var _ TraversalService = (*traversalService)(nil)

func (s *traversalService) ClassifyNeighbors(ctx context.Context, entity *models.NetworkEntity) (*Classification, error) {
	// Single store call covering both directions; the bound in
	// IncidentService.AnalyzeIncident depends on this staying one call.
	neighbors, err := s.relationshipRepo.Neighbors(ctx, entity.ID, models.DirectionBoth)
	if err != nil {
		return nil, fmt.Errorf("fetch neighbors: %w", err)
	}

	result := &Classification{
		Upstream:   make([]models.ImpactEntry, 0, len(neighbors)),
		Downstream: make([]models.ImpactEntry, 0, len(neighbors)),
	}

	for _, n := range neighbors {
		s.observeDefects(entity, n)

		direction, classified := s.classify(entity, n)
		if !classified {
			continue
		}

		entry := models.ImpactEntry{
			Relationship: n.Relationship.Type,
			Direction:    direction,
			EntityID:     n.Entity.ID,
			EntityName:   n.Entity.Name,
			EntityType:   n.Entity.Type,
			ExternalID:   n.Entity.ExternalID,
		}

		switch direction {
		case models.TraversalUpstream:
			result.Upstream = append(result.Upstream, entry)
		case models.TraversalDownstream:
			result.Downstream = append(result.Downstream, entry)
		}
	}

	return result, nil
}

// classify applies the relationship rule table. Exactly one of
// {upstream, downstream, drop} fires per neighbor; direction and type
// together fully determine the outcome.
func (s *traversalService) classify(entity *models.NetworkEntity, n models.Neighbor) (models.TraversalDirection, bool) {
	outgoing := n.IsOutgoing(entity.ID)

	switch n.Relationship.Type {
	case models.RelationshipHosts:
		if !outgoing {
			// The source hosts/contains me: root-cause candidate.
			return models.TraversalUpstream, true
		}
		// Entity hosting something is unusual in recorded topologies.
		if s.cfg.HostsForwardDownstream {
			s.logger.Debug("Classifying outgoing HOSTS edge as downstream",
				zap.String("entity_id", entity.ID.String()),
				zap.String("relationship_id", n.Relationship.ID.String()))
			return models.TraversalDownstream, true
		}
		return "", false

	case models.RelationshipServes:
		if outgoing {
			// I serve the target: my failure impacts them.
			return models.TraversalDownstream, true
		}
		// I am served by the source: their outage impacts me.
		return models.TraversalUpstream, true

	case models.RelationshipDependsOn:
		if outgoing {
			// I depend on the target: the target is a cause candidate.
			return models.TraversalUpstream, true
		}
		// The source depends on me: the source is an affected party.
		return models.TraversalDownstream, true

	case models.RelationshipCoveredBy:
		if outgoing {
			// I am covered by the target SLA: contractual impact.
			return models.TraversalDownstream, true
		}
		return "", false

	case models.RelationshipConnectsTo:
		// Peer relation, no cause/effect semantics.
		return "", false

	default:
		// Topology producers evolve independently of the analyzer; an
		// unknown type is dropped, never an error.
		s.metrics.MalformedTopologyTotal.WithLabelValues("unknown_relationship").Inc()
		s.logger.Debug("Dropping neighbor with unknown relationship type",
			zap.String("relationship_type", string(n.Relationship.Type)))
		return "", false
	}
}

// observeDefects flags ingestion defects without interrupting traversal;
// partial analysis is more useful than none during an active incident.
func (s *traversalService) observeDefects(entity *models.NetworkEntity, n models.Neighbor) {
	rel := n.Relationship

	if rel.SourceID == rel.TargetID {
		s.metrics.MalformedTopologyTotal.WithLabelValues("self_loop").Inc()
		s.logger.Warn("Self-loop relationship encountered",
			zap.String("relationship_id", rel.ID.String()),
			zap.String("entity_id", entity.ID.String()))
	}

	// Denormalized endpoint type drifting from the stored entity type means
	// the edge was written against a stale entity record.
	declared := rel.SourceType
	if n.IsOutgoing(entity.ID) {
		declared = rel.TargetType
	}
	if declared != n.Entity.Type {
		s.metrics.MalformedTopologyTotal.WithLabelValues("type_mismatch").Inc()
		s.logger.Warn("Relationship endpoint type differs from stored entity type",
			zap.String("relationship_id", rel.ID.String()),
			zap.String("declared_type", string(declared)),
			zap.String("stored_type", string(n.Entity.Type)))
	}
}
