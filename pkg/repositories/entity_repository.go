// Package repositories provides data access for the topology graph. It is
// the concrete entity store behind the traversal engine; services depend on
// the interfaces only, so any storage with tenant-scoped lookup and
// direction-filtered adjacency can replace the pgx implementations.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opslens/contextgraph/pkg/apperrors"
	"github.com/opslens/contextgraph/pkg/database"
	"github.com/opslens/contextgraph/pkg/models"
)

// EntityRepository provides data access for network entities.
type EntityRepository interface {
	// Resolve looks up an entity by its caller-supplied external id within
	// one tenant. Returns apperrors.ErrNotFound when absent. If ingestion
	// ever permits duplicate external ids, the most recently seen entity
	// wins (ORDER BY last_seen_at DESC).
	Resolve(ctx context.Context, tenantID, externalID string) (*models.NetworkEntity, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.NetworkEntity, error)
	// Upsert creates the entity or refreshes its mutable attributes.
	// Identity fields (id, tenant_id, external_id) are never rewritten;
	// last_seen_at is bumped on every refresh.
	Upsert(ctx context.Context, entity *models.NetworkEntity) error
	// DeleteByTenant removes every entity of the tenant. Relationships go
	// with them via ON DELETE CASCADE. Returns the number of entities removed.
	DeleteByTenant(ctx context.Context, tenantID string) (int64, error)
}

type entityRepository struct{}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository() EntityRepository {
	return &entityRepository{}
}

var _ EntityRepository = (*entityRepository)(nil)

const entityColumns = `id, tenant_id, external_id, entity_type, name, attributes,
	       latitude, longitude, revenue_weight, sla_tier, created_at, last_seen_at`

func (r *entityRepository) Resolve(ctx context.Context, tenantID, externalID string) (*models.NetworkEntity, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE tenant_id = $1 AND external_id = $2
		ORDER BY last_seen_at DESC
		LIMIT 1`

	row := scope.Conn.QueryRow(ctx, query, tenantID, externalID)
	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewStoreError("resolve", err)
	}

	return entity, nil
}

func (r *entityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.NetworkEntity, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE id = $1`

	row := scope.Conn.QueryRow(ctx, query, id)
	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewStoreError("get_by_id", err)
	}

	return entity, nil
}

func (r *entityRepository) Upsert(ctx context.Context, entity *models.NetworkEntity) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}

	now := time.Now()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.LastSeenAt = now

	if entity.Attributes == nil {
		entity.Attributes = map[string]string{}
	}

	query := `
		INSERT INTO entities (
			id, tenant_id, external_id, entity_type, name, attributes,
			latitude, longitude, revenue_weight, sla_tier, created_at, last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id, external_id) WHERE external_id <> ''
		DO UPDATE SET
			entity_type = EXCLUDED.entity_type,
			name = EXCLUDED.name,
			attributes = EXCLUDED.attributes,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			revenue_weight = EXCLUDED.revenue_weight,
			sla_tier = EXCLUDED.sla_tier,
			last_seen_at = EXCLUDED.last_seen_at`

	_, err := scope.Conn.Exec(ctx, query,
		entity.ID, entity.TenantID, entity.ExternalID, entity.Type, entity.Name, entity.Attributes,
		entity.Latitude, entity.Longitude, entity.RevenueWeight, entity.SLATier,
		entity.CreatedAt, entity.LastSeenAt,
	)
	if err != nil {
		return apperrors.NewStoreError("upsert_entity", err)
	}

	return nil
}

func (r *entityRepository) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM entities WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, apperrors.NewStoreError("delete_by_tenant", err)
	}

	return tag.RowsAffected(), nil
}

func scanEntity(row pgx.Row) (*models.NetworkEntity, error) {
	var e models.NetworkEntity

	err := row.Scan(
		&e.ID, &e.TenantID, &e.ExternalID, &e.Type, &e.Name, &e.Attributes,
		&e.Latitude, &e.Longitude, &e.RevenueWeight, &e.SLATier,
		&e.CreatedAt, &e.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}

	return &e, nil
}
