package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opslens/contextgraph/pkg/apperrors"
	"github.com/opslens/contextgraph/pkg/config"
	"github.com/opslens/contextgraph/pkg/metrics"
	"github.com/opslens/contextgraph/pkg/models"
)

// ============================================================================
// Mock Implementations
// ============================================================================

type mockRelationshipRepo struct {
	neighbors     map[uuid.UUID][]models.Neighbor
	neighborsFn   func(ctx context.Context, entityID uuid.UUID, direction models.Direction) ([]models.Neighbor, error)
	neighborCalls int
}

func newMockRelationshipRepo() *mockRelationshipRepo {
	return &mockRelationshipRepo{
		neighbors: make(map[uuid.UUID][]models.Neighbor),
	}
}

func (m *mockRelationshipRepo) Neighbors(ctx context.Context, entityID uuid.UUID, direction models.Direction) ([]models.Neighbor, error) {
	m.neighborCalls++
	if m.neighborsFn != nil {
		return m.neighborsFn(ctx, entityID, direction)
	}

	var result []models.Neighbor
	for _, n := range m.neighbors[entityID] {
		switch direction {
		case models.DirectionOutgoing:
			if n.Relationship.SourceID == entityID {
				result = append(result, n)
			}
		case models.DirectionIncoming:
			if n.Relationship.TargetID == entityID {
				result = append(result, n)
			}
		default:
			result = append(result, n)
		}
	}
	return result, nil
}

// Stub methods to satisfy interface
func (m *mockRelationshipRepo) Link(ctx context.Context, rel *models.EntityRelationship) error {
	return nil
}
func (m *mockRelationshipRepo) CloseValidity(ctx context.Context, id uuid.UUID, until time.Time) error {
	return nil
}
func (m *mockRelationshipRepo) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	return 0, nil
}

// ============================================================================
// Test helpers
// ============================================================================

func testEntity(entityType models.EntityType, name string) *models.NetworkEntity {
	return &models.NetworkEntity{
		ID:         uuid.New(),
		TenantID:   "tenant-a",
		ExternalID: name,
		Type:       entityType,
		Name:       name,
		CreatedAt:  time.Now(),
		LastSeenAt: time.Now(),
	}
}

func testEdge(source, target *models.NetworkEntity, relType models.RelationshipType) *models.EntityRelationship {
	return &models.EntityRelationship{
		ID:         uuid.New(),
		TenantID:   source.TenantID,
		SourceID:   source.ID,
		SourceType: source.Type,
		TargetID:   target.ID,
		TargetType: target.Type,
		Type:       relType,
		CreatedAt:  time.Now(),
	}
}

// addEdge registers the edge on both endpoints' adjacency so direction
// filtering in the mock behaves like the real repository.
func (m *mockRelationshipRepo) addEdge(source, target *models.NetworkEntity, relType models.RelationshipType) {
	rel := testEdge(source, target, relType)
	m.neighbors[source.ID] = append(m.neighbors[source.ID], models.Neighbor{Relationship: rel, Entity: target})
	m.neighbors[target.ID] = append(m.neighbors[target.ID], models.Neighbor{Relationship: rel, Entity: source})
}

func newTraversalForTest(repo *mockRelationshipRepo, hostsForward bool) (TraversalService, *metrics.Registry) {
	m := metrics.NewRegistry()
	svc := NewTraversalService(repo, config.TraversalConfig{HostsForwardDownstream: hostsForward}, m, zap.NewNop())
	return svc, m
}

// ============================================================================
// Classification rule table
// ============================================================================

func TestClassifyNeighbors_RuleTable(t *testing.T) {
	tests := []struct {
		name          string
		relType       models.RelationshipType
		incidentIsSrc bool
		wantUpstream  int
		wantDown      int
	}{
		{"incoming HOSTS is upstream", models.RelationshipHosts, false, 1, 0},
		{"outgoing HOSTS is downstream when forwarding enabled", models.RelationshipHosts, true, 0, 1},
		{"outgoing SERVES is downstream", models.RelationshipServes, true, 0, 1},
		{"incoming SERVES is upstream", models.RelationshipServes, false, 1, 0},
		{"outgoing DEPENDS_ON is upstream", models.RelationshipDependsOn, true, 1, 0},
		{"incoming DEPENDS_ON is downstream", models.RelationshipDependsOn, false, 0, 1},
		{"outgoing COVERED_BY is downstream", models.RelationshipCoveredBy, true, 0, 1},
		{"incoming COVERED_BY is dropped", models.RelationshipCoveredBy, false, 0, 0},
		{"outgoing CONNECTS_TO is dropped", models.RelationshipConnectsTo, true, 0, 0},
		{"incoming CONNECTS_TO is dropped", models.RelationshipConnectsTo, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incident := testEntity(models.EntityTypeCell, "cell-0001")
			other := testEntity(models.EntityTypeVoiceCore, "core-1")

			repo := newMockRelationshipRepo()
			if tt.incidentIsSrc {
				repo.addEdge(incident, other, tt.relType)
			} else {
				repo.addEdge(other, incident, tt.relType)
			}

			svc, _ := newTraversalForTest(repo, true)
			result, err := svc.ClassifyNeighbors(context.Background(), incident)
			require.NoError(t, err)

			assert.Len(t, result.Upstream, tt.wantUpstream)
			assert.Len(t, result.Downstream, tt.wantDown)

			for _, entry := range append(result.Upstream, result.Downstream...) {
				assert.Equal(t, other.ID, entry.EntityID)
				assert.Equal(t, other.Name, entry.EntityName)
				assert.Equal(t, tt.relType, entry.Relationship)
			}
		})
	}
}

func TestClassifyNeighbors_EveryNeighborClassifiedOrDropped(t *testing.T) {
	// Every relationship type in both directions lands in exactly one of
	// upstream, downstream, or neither. No neighbor appears twice.
	incident := testEntity(models.EntityTypeCell, "cell-0001")
	repo := newMockRelationshipRepo()

	allTypes := []models.RelationshipType{
		models.RelationshipHosts, models.RelationshipServes,
		models.RelationshipDependsOn, models.RelationshipCoveredBy,
		models.RelationshipConnectsTo,
	}
	for _, relType := range allTypes {
		repo.addEdge(incident, testEntity(models.EntityTypeServiceZone, "out-"+string(relType)), relType)
		repo.addEdge(testEntity(models.EntityTypeSite, "in-"+string(relType)), incident, relType)
	}

	svc, _ := newTraversalForTest(repo, true)
	result, err := svc.ClassifyNeighbors(context.Background(), incident)
	require.NoError(t, err)

	seen := make(map[uuid.UUID]int)
	for _, entry := range append(result.Upstream, result.Downstream...) {
		seen[entry.EntityID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "entity %s classified more than once", id)
	}

	// 10 neighbors total: COVERED_BY incoming and CONNECTS_TO both ways drop.
	assert.Equal(t, 7, len(result.Upstream)+len(result.Downstream))
}

func TestClassifyNeighbors_HostsForwardDisabled(t *testing.T) {
	incident := testEntity(models.EntityTypeSite, "site-1")
	hosted := testEntity(models.EntityTypeCell, "cell-0001")

	repo := newMockRelationshipRepo()
	repo.addEdge(incident, hosted, models.RelationshipHosts)

	svc, _ := newTraversalForTest(repo, false)
	result, err := svc.ClassifyNeighbors(context.Background(), incident)
	require.NoError(t, err)

	assert.Empty(t, result.Upstream)
	assert.Empty(t, result.Downstream)
}

func TestClassifyNeighbors_NoNeighbors(t *testing.T) {
	incident := testEntity(models.EntityTypeCell, "cell-0001")
	repo := newMockRelationshipRepo()

	svc, _ := newTraversalForTest(repo, true)
	result, err := svc.ClassifyNeighbors(context.Background(), incident)
	require.NoError(t, err)

	// Empty but non-nil, so JSON renders [] rather than null.
	assert.NotNil(t, result.Upstream)
	assert.NotNil(t, result.Downstream)
	assert.Empty(t, result.Upstream)
	assert.Empty(t, result.Downstream)
}

func TestClassifyNeighbors_UnknownRelationshipTypeDropped(t *testing.T) {
	incident := testEntity(models.EntityTypeCell, "cell-0001")
	other := testEntity(models.EntityTypeVoiceCore, "core-1")

	repo := newMockRelationshipRepo()
	rel := testEdge(incident, other, models.RelationshipType("ROUTES_AROUND"))
	repo.neighbors[incident.ID] = []models.Neighbor{{Relationship: rel, Entity: other}}

	svc, m := newTraversalForTest(repo, true)
	result, err := svc.ClassifyNeighbors(context.Background(), incident)
	require.NoError(t, err)

	assert.Empty(t, result.Upstream)
	assert.Empty(t, result.Downstream)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.MalformedTopologyTotal.WithLabelValues("unknown_relationship")))
}

func TestClassifyNeighbors_SelfLoopObservedNotFatal(t *testing.T) {
	incident := testEntity(models.EntityTypeCell, "cell-0001")

	repo := newMockRelationshipRepo()
	rel := testEdge(incident, incident, models.RelationshipDependsOn)
	repo.neighbors[incident.ID] = []models.Neighbor{{Relationship: rel, Entity: incident}}

	svc, m := newTraversalForTest(repo, true)
	result, err := svc.ClassifyNeighbors(context.Background(), incident)
	require.NoError(t, err)

	// Still classified by the rule table; the defect is only observed.
	assert.Len(t, result.Upstream, 1)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.MalformedTopologyTotal.WithLabelValues("self_loop")))
}

func TestClassifyNeighbors_TypeMismatchObserved(t *testing.T) {
	incident := testEntity(models.EntityTypeCell, "cell-0001")
	other := testEntity(models.EntityTypeVoiceCore, "core-1")

	repo := newMockRelationshipRepo()
	rel := testEdge(incident, other, models.RelationshipDependsOn)
	rel.TargetType = models.EntityTypeSMSCenter // stale denormalized type
	repo.neighbors[incident.ID] = []models.Neighbor{{Relationship: rel, Entity: other}}

	svc, m := newTraversalForTest(repo, true)
	result, err := svc.ClassifyNeighbors(context.Background(), incident)
	require.NoError(t, err)

	assert.Len(t, result.Upstream, 1)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.MalformedTopologyTotal.WithLabelValues("type_mismatch")))
}

func TestClassifyNeighbors_StoreErrorPropagates(t *testing.T) {
	incident := testEntity(models.EntityTypeCell, "cell-0001")

	repo := newMockRelationshipRepo()
	repo.neighborsFn = func(ctx context.Context, entityID uuid.UUID, direction models.Direction) ([]models.Neighbor, error) {
		return nil, apperrors.NewStoreError("neighbors", errors.New("connection refused"))
	}

	svc, _ := newTraversalForTest(repo, true)
	_, err := svc.ClassifyNeighbors(context.Background(), incident)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}
