package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opslens/contextgraph/pkg/apperrors"
	"github.com/opslens/contextgraph/pkg/database"
	"github.com/opslens/contextgraph/pkg/models"
)

// RelationshipRepository provides data access for topology edges.
type RelationshipRepository interface {
	// Link inserts a directed edge. Direction is taken exactly as recorded;
	// the repository never infers or flips it.
	Link(ctx context.Context, rel *models.EntityRelationship) error
	// Neighbors returns the adjacency of an entity in the given direction
	// together with the entity on the far side of each edge. Only edges
	// whose validity window covers now are returned. Ordering is stable
	// (created_at, id) so traversal output is deterministic.
	Neighbors(ctx context.Context, entityID uuid.UUID, direction models.Direction) ([]models.Neighbor, error)
	// CloseValidity ends an edge's validity window. Edges are never
	// otherwise mutated.
	CloseValidity(ctx context.Context, id uuid.UUID, until time.Time) error
	DeleteByTenant(ctx context.Context, tenantID string) (int64, error)
}

type relationshipRepository struct{}

// NewRelationshipRepository creates a new RelationshipRepository.
func NewRelationshipRepository() RelationshipRepository {
	return &relationshipRepository{}
}

var _ RelationshipRepository = (*relationshipRepository)(nil)

func (r *relationshipRepository) Link(ctx context.Context, rel *models.EntityRelationship) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO entity_relationships (
			id, tenant_id, source_id, source_type, target_id, target_type,
			relationship_type, weight, valid_from, valid_until, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := scope.Conn.Exec(ctx, query,
		rel.ID, rel.TenantID, rel.SourceID, rel.SourceType, rel.TargetID, rel.TargetType,
		rel.Type, rel.Weight, rel.ValidFrom, rel.ValidUntil, rel.CreatedAt,
	)
	if err != nil {
		return apperrors.NewStoreError("link", err)
	}

	return nil
}

// neighborQuery joins each matching edge with the entity on its far side.
// The CASE join handles self-loops by resolving to the queried entity itself.
const neighborQuery = `
	SELECT r.id, r.tenant_id, r.source_id, r.source_type, r.target_id, r.target_type,
	       r.relationship_type, r.weight, r.valid_from, r.valid_until, r.created_at,
	       e.id, e.tenant_id, e.external_id, e.entity_type, e.name, e.attributes,
	       e.latitude, e.longitude, e.revenue_weight, e.sla_tier, e.created_at, e.last_seen_at
	FROM entity_relationships r
	JOIN entities e ON e.id = CASE WHEN r.source_id = $1 THEN r.target_id ELSE r.source_id END
	WHERE %s
	  AND (r.valid_from IS NULL OR r.valid_from <= now())
	  AND (r.valid_until IS NULL OR r.valid_until > now())
	ORDER BY r.created_at, r.id`

func (r *relationshipRepository) Neighbors(ctx context.Context, entityID uuid.UUID, direction models.Direction) ([]models.Neighbor, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	var cond string
	switch direction {
	case models.DirectionOutgoing:
		cond = `r.source_id = $1`
	case models.DirectionIncoming:
		cond = `r.target_id = $1`
	case models.DirectionBoth:
		cond = `(r.source_id = $1 OR r.target_id = $1)`
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	rows, err := scope.Conn.Query(ctx, fmt.Sprintf(neighborQuery, cond), entityID)
	if err != nil {
		return nil, apperrors.NewStoreError("neighbors", err)
	}
	defer rows.Close()

	var neighbors []models.Neighbor
	for rows.Next() {
		var rel models.EntityRelationship
		var e models.NetworkEntity

		err := rows.Scan(
			&rel.ID, &rel.TenantID, &rel.SourceID, &rel.SourceType, &rel.TargetID, &rel.TargetType,
			&rel.Type, &rel.Weight, &rel.ValidFrom, &rel.ValidUntil, &rel.CreatedAt,
			&e.ID, &e.TenantID, &e.ExternalID, &e.Type, &e.Name, &e.Attributes,
			&e.Latitude, &e.Longitude, &e.RevenueWeight, &e.SLATier, &e.CreatedAt, &e.LastSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}

		neighbors = append(neighbors, models.Neighbor{Relationship: &rel, Entity: &e})
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("neighbors", err)
	}

	return neighbors, nil
}

func (r *relationshipRepository) CloseValidity(ctx context.Context, id uuid.UUID, until time.Time) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx,
		`UPDATE entity_relationships SET valid_until = $1 WHERE id = $2`, until, id)
	if err != nil {
		return apperrors.NewStoreError("close_validity", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *relationshipRepository) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM entity_relationships WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, apperrors.NewStoreError("delete_by_tenant", err)
	}

	return tag.RowsAffected(), nil
}
