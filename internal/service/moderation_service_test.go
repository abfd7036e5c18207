package service

import (
	"context"
	"testing"
	"time"

	"techatlas/internal/models"
	"techatlas/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedHub(t *testing.T, db *gorm.DB, slug string, status models.Status, created time.Time) {
	t.Helper()
	h := &models.Hub{Name: slug}
	h.Slug = slug
	h.Status = status
	h.CreatedAt = created
	require.NoError(t, db.Create(h).Error)
}

func TestModerationService_StatsAndPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedHub(t, db, "innovation-village", models.StatusApproved, fixedNow.Add(-72*time.Hour))
	seedHub(t, db, "outbox", models.StatusPending, fixedNow.Add(-48*time.Hour))
	seedHub(t, db, "refactory", models.StatusRejected, fixedNow.Add(-24*time.Hour))

	job := &models.Job{Title: "Data Analyst", Company: "Fenix", Type: "full-time"}
	job.Slug = "data-analyst-fenix"
	job.Status = models.StatusPending
	job.CreatedAt = fixedNow.Add(-time.Hour)
	require.NoError(t, db.Create(job).Error)

	require.NoError(t, db.Create(&models.User{Username: "nakato", Email: "nakato@example.com"}).Error)

	registry := NewRegistry(repository.ChainConfig{DB: db}, ContentDeps{})
	svc := NewModerationService(db, registry)
	svc.now = clock

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Kinds, len(registry.All()))
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Users)
	assert.True(t, stats.GeneratedAt.Equal(fixedNow))

	hubs := stats.Kinds[0]
	assert.Equal(t, models.KindHub, hubs.Kind)
	assert.Equal(t, int64(3), hubs.Total)
	assert.Equal(t, int64(1), hubs.Approved())
	assert.Equal(t, int64(1), hubs.ByStatus[models.StatusRejected])

	items, err := svc.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.KindJob, items[0].Kind, "newest first")
	assert.Equal(t, "data-analyst-fenix", items[0].Record.GetSlug())
	assert.Equal(t, models.KindHub, items[1].Kind)

	items, err = svc.Pending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestModerationService_StatsWithoutDatabase(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(repository.ChainConfig{}, ContentDeps{Now: clock})
	hubs, ok := registry.Lookup("hubs")
	require.True(t, ok)

	_, _, err := hubs.Create(ctx, moderator, []byte(`{"name":"Design Hub Kampala","status":"approved"}`))
	require.NoError(t, err)
	_, _, err = hubs.Create(ctx, member, []byte(`{"name":"Hive Colab"}`))
	require.NoError(t, err)

	stats, err := NewModerationService(nil, registry).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(2), stats.Kinds[0].Total)
	assert.Zero(t, stats.Users)

	items, err := NewModerationService(nil, registry).Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hive-colab", items[0].Record.GetSlug())
}
