package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslens/contextgraph/pkg/apperrors"
	"github.com/opslens/contextgraph/pkg/database"
	"github.com/opslens/contextgraph/pkg/models"
	"github.com/opslens/contextgraph/pkg/testhelpers"
)

// tenantContext acquires a tenant-scoped connection for the duration of the test.
func tenantContext(t *testing.T, db *database.DB, tenantID string) context.Context {
	t.Helper()

	scope, err := db.WithTenant(context.Background(), tenantID)
	require.NoError(t, err)
	t.Cleanup(scope.Close)

	return database.SetTenantScope(context.Background(), scope)
}

func TestEntityRepository_UpsertAndResolve(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewEntityRepository()
	ctx := tenantContext(t, testDB.DB, "tenant-upsert")

	entity := &models.NetworkEntity{
		TenantID:   "tenant-upsert",
		ExternalID: "cell-0042",
		Type:       models.EntityTypeCell,
		Name:       "Cell 0042",
		Attributes: map[string]string{"band": "n78"},
	}
	require.NoError(t, repo.Upsert(ctx, entity))

	stored, err := repo.Resolve(ctx, "tenant-upsert", "cell-0042")
	require.NoError(t, err)
	assert.Equal(t, "Cell 0042", stored.Name)
	assert.Equal(t, models.EntityTypeCell, stored.Type)
	assert.Equal(t, "n78", stored.Attributes["band"])

	// A second upsert refreshes attributes but keeps the identity.
	require.NoError(t, repo.Upsert(ctx, &models.NetworkEntity{
		TenantID:   "tenant-upsert",
		ExternalID: "cell-0042",
		Type:       models.EntityTypeCell,
		Name:       "Cell 0042 renamed",
	}))

	refreshed, err := repo.Resolve(ctx, "tenant-upsert", "cell-0042")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, refreshed.ID)
	assert.Equal(t, "Cell 0042 renamed", refreshed.Name)
	assert.False(t, refreshed.LastSeenAt.Before(stored.LastSeenAt))
}

func TestEntityRepository_ResolveNotFound(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewEntityRepository()
	ctx := tenantContext(t, testDB.DB, "tenant-missing")

	_, err := repo.Resolve(ctx, "tenant-missing", "no-such-entity")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEntityRepository_TenantIsolation(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewEntityRepository()

	ctxA := tenantContext(t, testDB.DB, "tenant-iso-a")
	require.NoError(t, repo.Upsert(ctxA, &models.NetworkEntity{
		TenantID:   "tenant-iso-a",
		ExternalID: "shared-id",
		Type:       models.EntityTypeCell,
		Name:       "Tenant A cell",
	}))

	// The same external id is invisible under another tenant's scope.
	ctxB := tenantContext(t, testDB.DB, "tenant-iso-b")
	_, err := repo.Resolve(ctxB, "tenant-iso-b", "shared-id")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEntityRepository_DeleteByTenant(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewEntityRepository()
	ctx := tenantContext(t, testDB.DB, "tenant-delete")

	for _, xid := range []string{"e1", "e2", "e3"} {
		require.NoError(t, repo.Upsert(ctx, &models.NetworkEntity{
			TenantID:   "tenant-delete",
			ExternalID: xid,
			Type:       models.EntityTypeSite,
			Name:       xid,
		}))
	}

	deleted, err := repo.DeleteByTenant(ctx, "tenant-delete")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	_, err = repo.Resolve(ctx, "tenant-delete", "e1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
