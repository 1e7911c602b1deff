//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/formr/engine/internal/library"
	"github.com/formr/engine/internal/migrations"
	"github.com/formr/engine/internal/models"
	"github.com/formr/engine/pkg/database"
	appErr "github.com/formr/engine/pkg/errors"
)

func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("formr"),
		postgres.WithUsername("formr"),
		postgres.WithPassword("formr"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, database.Options{Driver: database.DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, migrations.Run(ctx, db))
	// a second run must be a no-op
	require.NoError(t, migrations.Run(ctx, db))
	return db
}

func TestPostgresTemplateLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newPostgresDB(t)
	repo := NewTemplateRepository(db)
	tenant := uuid.New()

	section := withID(control("Address", models.ControlSection, 0))
	street := childOf(withID(control("Street", models.ControlTextInput, 1)), section)
	created, err := repo.Create(ctx, &models.FormTemplate{
		Name: "Shipping", Version: 1, TenantID: tenant,
		Controls: []models.FormControl{street, section},
	})
	require.NoError(t, err)
	require.Len(t, created.Controls, 2)

	// dropping the whole subtree exercises the RESTRICT self reference
	got, err := repo.Update(ctx, &models.FormTemplate{
		ID: created.ID, TenantID: tenant, Name: "Shipping", Version: 2,
		Controls: []models.FormControl{control("Notes", models.ControlMultilineText, 0)},
	}, created.Revision())
	require.NoError(t, err)
	require.Len(t, got.Controls, 1)
	assert.Equal(t, "Notes", got.Controls[0].Label)

	_, err = repo.Create(ctx, &models.FormTemplate{Name: "Shipping", Version: 2, TenantID: tenant, Controls: []models.FormControl{}})
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict), "got %v", err)

	require.NoError(t, repo.SoftDelete(ctx, tenant, created.ID))
	_, err = repo.FetchByID(ctx, tenant, created.ID)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestPostgresRejectsForeignParent(t *testing.T) {
	ctx := context.Background()
	db := newPostgresDB(t)
	repo := NewTemplateRepository(db)
	tenant := uuid.New()

	orphan := control("Orphan", models.ControlTextInput, 0)
	missing := uuid.New()
	orphan.ParentControlID = &missing

	_, err := repo.Create(ctx, &models.FormTemplate{
		Name: "Broken", Version: 1, TenantID: tenant,
		Controls: []models.FormControl{orphan},
	})
	assert.True(t, appErr.IsCode(err, appErr.CodeInternal), "got %v", err)
}

func TestPostgresLibrarySeed(t *testing.T) {
	ctx := context.Background()
	db := newPostgresDB(t)
	entries, err := library.Load()
	require.NoError(t, err)
	require.NoError(t, migrations.Seed(ctx, db, entries))

	got, err := NewControlLibraryRepository(db).ListLibrary(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(entries))
	assert.Equal(t, models.CategoryBasicInputs, got[0].Category)
	assert.Equal(t, models.CategoryLayout, got[len(got)-1].Category)
}
