package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opslens/contextgraph/pkg/apperrors"
	"github.com/opslens/contextgraph/pkg/models"
)

func newTopologyForTest(entityRepo *mockEntityRepo, relRepo *mockRelationshipRepo) TopologyService {
	return NewTopologyService(entityRepo, relRepo, zap.NewNop())
}

func TestUpsertEntity_Success(t *testing.T) {
	entityRepo := newMockEntityRepo()
	svc := newTopologyForTest(entityRepo, newMockRelationshipRepo())

	entity, err := svc.UpsertEntity(context.Background(), "tenant-a", &EntityInput{
		ExternalID: "cell-0042",
		Type:       models.EntityTypeCell,
		Name:       "Cell 0042",
		Attributes: map[string]string{"band": "n78"},
	})
	require.NoError(t, err)

	assert.Equal(t, "tenant-a", entity.TenantID)
	assert.Equal(t, "cell-0042", entity.ExternalID)
	assert.Equal(t, models.EntityTypeCell, entity.Type)
}

func TestUpsertEntity_Validation(t *testing.T) {
	svc := newTopologyForTest(newMockEntityRepo(), newMockRelationshipRepo())

	tests := []struct {
		name    string
		tenant  string
		input   *EntityInput
		wantErr error
	}{
		{
			name:    "empty tenant",
			tenant:  "",
			input:   &EntityInput{ExternalID: "x", Type: models.EntityTypeCell, Name: "x"},
			wantErr: apperrors.ErrTenantRequired,
		},
		{
			name:    "missing name",
			tenant:  "tenant-a",
			input:   &EntityInput{ExternalID: "x", Type: models.EntityTypeCell},
			wantErr: apperrors.ErrInvalidInput,
		},
		{
			name:    "unknown entity type",
			tenant:  "tenant-a",
			input:   &EntityInput{ExternalID: "x", Type: "submarine", Name: "x"},
			wantErr: apperrors.ErrInvalidInput,
		},
		{
			name:    "latitude out of range",
			tenant:  "tenant-a",
			input:   &EntityInput{ExternalID: "x", Type: models.EntityTypeCell, Name: "x", Latitude: float64Ptr(123.0)},
			wantErr: apperrors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertEntity(context.Background(), tt.tenant, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLink_DenormalizesEndpointTypes(t *testing.T) {
	cell := testEntity(models.EntityTypeCell, "cell-0042")
	core := testEntity(models.EntityTypeVoiceCore, "core-1")

	entityRepo := newMockEntityRepo()
	entityRepo.add(cell)
	entityRepo.add(core)

	svc := newTopologyForTest(entityRepo, newMockRelationshipRepo())
	rel, err := svc.Link(context.Background(), "tenant-a", &LinkInput{
		SourceExternalID: "cell-0042",
		TargetExternalID: "core-1",
		Type:             models.RelationshipDependsOn,
	})
	require.NoError(t, err)

	assert.Equal(t, cell.ID, rel.SourceID)
	assert.Equal(t, models.EntityTypeCell, rel.SourceType)
	assert.Equal(t, core.ID, rel.TargetID)
	assert.Equal(t, models.EntityTypeVoiceCore, rel.TargetType)
}

func TestLink_MissingEndpoint(t *testing.T) {
	cell := testEntity(models.EntityTypeCell, "cell-0042")
	entityRepo := newMockEntityRepo()
	entityRepo.add(cell)

	svc := newTopologyForTest(entityRepo, newMockRelationshipRepo())
	_, err := svc.Link(context.Background(), "tenant-a", &LinkInput{
		SourceExternalID: "cell-0042",
		TargetExternalID: "core-missing",
		Type:             models.RelationshipDependsOn,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLink_UnknownRelationshipTypeRejected(t *testing.T) {
	svc := newTopologyForTest(newMockEntityRepo(), newMockRelationshipRepo())

	_, err := svc.Link(context.Background(), "tenant-a", &LinkInput{
		SourceExternalID: "a",
		TargetExternalID: "b",
		Type:             "TANGENTIAL_TO",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestLink_CrossTenantRefused(t *testing.T) {
	cell := testEntity(models.EntityTypeCell, "cell-0042")
	foreign := testEntity(models.EntityTypeVoiceCore, "core-1")
	foreign.TenantID = "tenant-b"

	entityRepo := newMockEntityRepo()
	entityRepo.resolveFn = func(ctx context.Context, tenantID, externalID string) (*models.NetworkEntity, error) {
		if externalID == "cell-0042" {
			return cell, nil
		}
		return foreign, nil
	}

	svc := newTopologyForTest(entityRepo, newMockRelationshipRepo())
	_, err := svc.Link(context.Background(), "tenant-a", &LinkInput{
		SourceExternalID: "cell-0042",
		TargetExternalID: "core-1",
		Type:             models.RelationshipDependsOn,
	})
	assert.ErrorIs(t, err, apperrors.ErrCrossTenant)
}

func TestSeedFromFile(t *testing.T) {
	seed := `
entities:
  - external_id: rn-007
    type: radio-node
    name: Radio Node 007
  - external_id: cell-0042
    type: cell
    name: Cell 0042
relationships:
  - source: rn-007
    target: cell-0042
    type: HOSTS
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	entityRepo := newMockEntityRepo()
	svc := newTopologyForTest(entityRepo, newMockRelationshipRepo())

	summary, err := svc.SeedFromFile(context.Background(), "tenant-a", path)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Entities)
	assert.Equal(t, 1, summary.Relationships)
	assert.Len(t, entityRepo.entities, 2)
}

func TestSeedFromFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entities: [not: valid: yaml"), 0o600))

	svc := newTopologyForTest(newMockEntityRepo(), newMockRelationshipRepo())
	_, err := svc.SeedFromFile(context.Background(), "tenant-a", path)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func float64Ptr(v float64) *float64 { return &v }
