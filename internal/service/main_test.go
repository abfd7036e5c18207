package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"techatlas/internal/database"
	"techatlas/internal/events"
	"techatlas/internal/models"
	"techatlas/internal/repository"
	"techatlas/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ContentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.ContentEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fakeIndex struct {
	mu      sync.Mutex
	docs    map[string]search.Document
	removed []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[string]search.Document{}}
}

func (f *fakeIndex) Index(_ context.Context, doc search.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ObjectID] = doc
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, objectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, objectID)
	f.removed = append(f.removed, objectID)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]search.Document, error) {
	return nil, nil
}

var errStoreDown = errors.New("dial tcp: connection refused")

// downStore fails every call, standing in for an unreachable database.
type downStore[T any] struct{}

func (downStore[T]) Name() string          { return "primary" }
func (downStore[T]) Tier() repository.Tier { return repository.TierPrimary }
func (downStore[T]) List(context.Context, models.Filters) ([]*T, error) {
	return nil, errStoreDown
}
func (downStore[T]) GetBySlug(context.Context, string) (*T, error) { return nil, errStoreDown }
func (downStore[T]) GetByID(context.Context, uint) (*T, error)     { return nil, errStoreDown }
func (downStore[T]) Create(context.Context, *T) error              { return errStoreDown }
func (downStore[T]) Update(context.Context, *T) error              { return errStoreDown }
func (downStore[T]) Delete(context.Context, uint) error            { return errStoreDown }

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
