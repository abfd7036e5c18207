package repository

import (
	"context"
	"testing"
	"time"

	"techatlas/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJob(t *testing.T, store *GormStore[models.Job, *models.Job], slug, title, jobType string, remote bool, created time.Time) *models.Job {
	t.Helper()
	job := &models.Job{Title: title, Company: "Acme", Type: jobType, Remote: remote}
	job.Slug = slug
	job.Status = models.StatusApproved
	job.CreatedAt = created
	job.UpdatedAt = created
	require.NoError(t, store.Create(context.Background(), job))
	return job
}

func TestGormStore_ListFilters(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore[models.Job](db, models.MustKind(models.KindJob))
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	seedJob(t, store, "go-dev", "Go Developer", "full-time", true, base)
	seedJob(t, store, "ux-intern", "UX Intern", "internship", false, base.Add(24*time.Hour))
	seedJob(t, store, "senior-go", "Senior Go Engineer", "full-time", false, base.Add(48*time.Hour))

	pending := &models.Job{Title: "Draft", Company: "Acme", Type: "contract"}
	pending.Slug = "draft"
	pending.Status = models.StatusPending
	require.NoError(t, store.Create(ctx, pending))

	t.Run("status and newest first", func(t *testing.T) {
		rows, err := store.List(ctx, models.Filters{Status: models.StatusApproved})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "senior-go", rows[0].Slug)
		assert.Equal(t, "go-dev", rows[2].Slug)
	})

	t.Run("exact fields", func(t *testing.T) {
		rows, err := store.List(ctx, models.Filters{Status: models.StatusApproved, Fields: map[string]any{"type": "full-time", "remote": true}})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "go-dev", rows[0].Slug)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		rows, err := store.List(ctx, models.Filters{Search: "GO"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("since bound", func(t *testing.T) {
		rows, err := store.List(ctx, models.Filters{
			Status: models.StatusApproved,
			Since:  &models.TimeBound{Column: "created_at", From: base.Add(time.Hour)},
		})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("limit", func(t *testing.T) {
		rows, err := store.List(ctx, models.Filters{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestGormStore_CRUD(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore[models.Hub](db, models.MustKind(models.KindHub))
	ctx := context.Background()

	missing, err := store.GetBySlug(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, missing)

	hub := &models.Hub{Name: "Outbox Hub", District: "Kampala", Tags: []string{"coworking"}}
	hub.Slug = "outbox-hub"
	hub.Status = models.StatusApproved
	require.NoError(t, store.Create(ctx, hub))
	require.NotZero(t, hub.ID)

	dup := &models.Hub{Name: "Outbox Hub"}
	dup.Slug = "outbox-hub"
	dup.Status = models.StatusApproved
	assert.ErrorIs(t, store.Create(ctx, dup), ErrConflict)

	got, err := store.GetBySlug(ctx, "outbox-hub")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Kampala", got.District)
	assert.Equal(t, []string{"coworking"}, []string(got.Tags))

	got.District = "Wakiso"
	got.Featured = false
	require.NoError(t, store.Update(ctx, got))

	byID, err := store.GetByID(ctx, hub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wakiso", byID.District)

	ghost := &models.Hub{Name: "Ghost"}
	ghost.ID = 999
	ghost.Slug = "ghost"
	assert.ErrorIs(t, store.Update(ctx, ghost), ErrNotFound)

	require.NoError(t, store.Delete(ctx, hub.ID))
	assert.ErrorIs(t, store.Delete(ctx, hub.ID), ErrNotFound)
}
