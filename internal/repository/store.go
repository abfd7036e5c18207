// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"techatlas/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by Update and Delete when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint (the slug) is violated.
	ErrConflict = errors.New("record already exists")
	// ErrStoreFull is returned by a bounded memory store at capacity.
	ErrStoreFull = errors.New("store is at capacity")
	// ErrNoStores is returned by a fallback chain without stores.
	ErrNoStores = errors.New("no content stores configured")
)

// Tier positions a store in the fallback chain.
type Tier int

const (
	TierPrimary Tier = iota
	TierSecondary
	TierMemory
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// ContentStore persists one content kind. GetBySlug and GetByID return
// (nil, nil) when the record does not exist.
type ContentStore[T any] interface {
	Name() string
	Tier() Tier
	List(ctx context.Context, filters models.Filters) ([]*T, error)
	GetBySlug(ctx context.Context, slug string) (*T, error)
	GetByID(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, rec *T) error
	Update(ctx context.Context, rec *T) error
	Delete(ctx context.Context, id uint) error
}

// RecordPtr constrains PT to a pointer to T that implements models.Record.
type RecordPtr[T any] interface {
	*T
	models.Record
}

// DegradedWriteError reports a create that no store accepted. Record holds
// the unpersisted record handed back to the caller.
type DegradedWriteError struct {
	Kind     models.Kind
	Record   any
	Attempts []Attempt
}

func (e *DegradedWriteError) Error() string {
	return fmt.Sprintf("%s was not persisted: every content store failed", e.Kind)
}

func (e *DegradedWriteError) Unwrap() []error {
	var errs []error
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// cloneRecord deep copies rec through its JSON form.
func cloneRecord[T any](rec *T) (*T, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// recordFields returns the JSON object form of rec.
func recordFields(rec any) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// isUniqueConstraintError reports unique violations across the supported dialects.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505")
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func stamp(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now()
}
