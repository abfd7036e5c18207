package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"techatlas/internal/models"
	"techatlas/internal/observability"
	"techatlas/internal/validation"

	"go.uber.org/zap"
)

// Attempt is one store call made while serving an operation.
type Attempt struct {
	Store    string        `json:"store"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Count    int           `json:"count"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report describes how the fallback chain served an operation.
type Report struct {
	Op       string      `json:"op"`
	Kind     models.Kind `json:"kind"`
	Served   string      `json:"served,omitempty"`
	Attempts []Attempt   `json:"attempts"`
	Degraded bool        `json:"degraded,omitempty"`
}

// Fallback reports whether a store other than the first one served the call.
func (r *Report) Fallback() bool {
	return r.Served != "" && len(r.Attempts) > 0 && r.Attempts[0].Store != r.Served
}

func (r *Report) record(a Attempt) {
	if a.Err != nil {
		a.Error = a.Err.Error()
	}
	r.Attempts = append(r.Attempts, a)
}

// FallbackOption customizes a FallbackStore.
type FallbackOption func(*fallbackOptions)

type fallbackOptions struct {
	logger *zap.Logger
	now    func() time.Time
	mock   *bool
}

// WithLogger sets the logger used for failed attempts.
func WithLogger(l *zap.Logger) FallbackOption {
	return func(o *fallbackOptions) { o.logger = l }
}

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) FallbackOption {
	return func(o *fallbackOptions) { o.now = now }
}

// WithMockOnFailure overrides the kind's degraded-write behaviour.
func WithMockOnFailure(enabled bool) FallbackOption {
	return func(o *fallbackOptions) { o.mock = &enabled }
}

// FallbackStore runs each operation against an ordered chain of stores:
// primary, then secondary, then memory.
type FallbackStore[T any, PT RecordPtr[T]] struct {
	info   models.KindInfo
	stores []ContentStore[T]
	logger *zap.Logger
	now    func() time.Time
	mock   bool
}

// NewFallbackStore chains stores in the given order. Nil stores are skipped.
func NewFallbackStore[T any, PT RecordPtr[T]](info models.KindInfo, stores []ContentStore[T], opts ...FallbackOption) *FallbackStore[T, PT] {
	o := fallbackOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	chain := make([]ContentStore[T], 0, len(stores))
	for _, s := range stores {
		if s != nil {
			chain = append(chain, s)
		}
	}

	mock := info.MockOnFailure
	if o.mock != nil {
		mock = *o.mock
	}
	return &FallbackStore[T, PT]{info: info, stores: chain, logger: o.logger, now: o.now, mock: mock}
}

// Kind returns the content kind served by the chain.
func (f *FallbackStore[T, PT]) Kind() models.KindInfo { return f.info }

// Stores returns the names of the chained stores in order.
func (f *FallbackStore[T, PT]) Stores() []string {
	names := make([]string, len(f.stores))
	for i, s := range f.stores {
		names[i] = s.Name()
	}
	return names
}

func (f *FallbackStore[T, PT]) attempt(ctx context.Context, op string, s ContentStore[T], report *Report, call func(context.Context) (int, error)) error {
	ctx, span := observability.StartStoreAttempt(ctx, string(f.info.Kind), op, s.Name())
	start := time.Now()
	count, err := call(ctx)
	elapsed := time.Since(start)
	observability.EndSpan(span, err)

	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrConflict):
		result = "conflict"
	default:
		result = "error"
		f.logger.Warn("content store attempt failed",
			zap.String("kind", string(f.info.Kind)),
			zap.String("op", op),
			zap.String("store", s.Name()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	}
	observability.ObserveStoreAttempt(string(f.info.Kind), op, s.Name(), result, elapsed)
	report.record(Attempt{Store: s.Name(), Err: err, Count: count, Duration: elapsed})
	return err
}

func (f *FallbackStore[T, PT]) served(report *Report, store string) {
	report.Served = store
	if report.Fallback() {
		f.logger.Info("content served by fallback store",
			zap.String("kind", string(f.info.Kind)),
			zap.String("op", report.Op),
			zap.String("store", store),
		)
	}
}

// List returns the first non-empty result from the primary or secondary
// store. The memory store's answer is accepted even when empty. When every
// store either fails or is empty, the earliest empty answer wins.
func (f *FallbackStore[T, PT]) List(ctx context.Context, filters models.Filters) ([]*T, *Report, error) {
	report := &Report{Op: "list", Kind: f.info.Kind}
	if len(f.stores) == 0 {
		return nil, report, ErrNoStores
	}

	var (
		empty     []*T
		emptyFrom string
		lastErr   error
	)
	for i, s := range f.stores {
		var rows []*T
		err := f.attempt(ctx, "list", s, report, func(ctx context.Context) (int, error) {
			var err error
			rows, err = s.List(ctx, filters)
			return len(rows), err
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(rows) > 0 || i == len(f.stores)-1 || s.Tier() == TierMemory {
			f.served(report, s.Name())
			return nonNil(rows), report, nil
		}
		if emptyFrom == "" {
			empty, emptyFrom = rows, s.Name()
		}
	}

	if emptyFrom != "" {
		f.served(report, emptyFrom)
		return nonNil(empty), report, nil
	}
	return nil, report, lastErr
}

// GetBySlug asks the primary store and only moves on when it errors. The
// secondary store is consulted only for kinds that allow it. A nil record
// with a nil error means not found.
func (f *FallbackStore[T, PT]) GetBySlug(ctx context.Context, slug string) (*T, *Report, error) {
	return f.get(ctx, "get_by_slug", func(ctx context.Context, s ContentStore[T]) (*T, error) {
		return s.GetBySlug(ctx, slug)
	})
}

// GetByID follows the same policy as GetBySlug.
func (f *FallbackStore[T, PT]) GetByID(ctx context.Context, id uint) (*T, *Report, error) {
	return f.get(ctx, "get_by_id", func(ctx context.Context, s ContentStore[T]) (*T, error) {
		return s.GetByID(ctx, id)
	})
}

func (f *FallbackStore[T, PT]) get(ctx context.Context, op string, fetch func(context.Context, ContentStore[T]) (*T, error)) (*T, *Report, error) {
	report := &Report{Op: op, Kind: f.info.Kind}
	lastErr := ErrNoStores
	for _, s := range f.stores {
		if s.Tier() == TierSecondary && !f.info.ReadSecondary {
			report.Attempts = append(report.Attempts, Attempt{Store: s.Name(), Skipped: true})
			continue
		}
		var rec *T
		err := f.attempt(ctx, op, s, report, func(ctx context.Context) (int, error) {
			var err error
			rec, err = fetch(ctx, s)
			if rec == nil {
				return 0, err
			}
			return 1, err
		})
		if err != nil {
			lastErr = err
			continue
		}
		f.served(report, s.Name())
		return rec, report, nil
	}
	return nil, report, lastErr
}

// Prepare fills the derived fields of a new record: slug, creator, default
// status and timestamps.
func (f *FallbackStore[T, PT]) Prepare(rec *T, callerID uint) error {
	p := PT(rec)
	if p.GetSlug() == "" {
		p.SetSlug(validation.GenerateSlug(p.SlugSource()))
	}
	if p.GetSlug() == "" {
		return models.NewValidationError(fmt.Sprintf("cannot derive a slug for this %s", f.info.Singular))
	}
	p.SetCreatedBy(callerID)
	if p.GetStatus() == "" {
		p.SetStatus(f.info.DefaultStatus)
	}
	p.Touch(stamp(f.now))
	return nil
}

// Create prepares rec and writes it to the first store that accepts it.
// A slug conflict stops the chain. When every store fails and the kind
// allows it, rec is given a timestamp id and a *DegradedWriteError is
// returned so callers can answer with the unpersisted record.
func (f *FallbackStore[T, PT]) Create(ctx context.Context, rec *T, callerID uint) (*Report, error) {
	report := &Report{Op: "create", Kind: f.info.Kind}
	if err := f.Prepare(rec, callerID); err != nil {
		return report, err
	}

	lastErr := ErrNoStores
	for _, s := range f.stores {
		candidate, err := cloneRecord(rec)
		if err != nil {
			return report, err
		}
		err = f.attempt(ctx, "create", s, report, func(ctx context.Context) (int, error) {
			if err := s.Create(ctx, candidate); err != nil {
				return 0, err
			}
			return 1, nil
		})
		if err == nil {
			*rec = *candidate
			f.served(report, s.Name())
			return report, nil
		}
		if errors.Is(err, ErrConflict) {
			return report, err
		}
		lastErr = err
	}

	if !f.mock {
		return report, lastErr
	}

	PT(rec).SetID(uint(stamp(f.now).UnixMilli()))
	report.Degraded = true
	f.logger.Warn("content write degraded to unpersisted record",
		zap.String("kind", string(f.info.Kind)),
		zap.String("slug", PT(rec).GetSlug()),
	)
	observability.DegradedWrites.WithLabelValues(string(f.info.Kind)).Inc()
	return report, &DegradedWriteError{Kind: f.info.Kind, Record: rec, Attempts: report.Attempts}
}

// Update writes rec to the first store that holds it.
func (f *FallbackStore[T, PT]) Update(ctx context.Context, rec *T) (*Report, error) {
	report := &Report{Op: "update", Kind: f.info.Kind}
	PT(rec).Touch(stamp(f.now))
	return report, f.write(ctx, report, func(ctx context.Context, s ContentStore[T]) error {
		candidate, err := cloneRecord(rec)
		if err != nil {
			return err
		}
		if err := s.Update(ctx, candidate); err != nil {
			return err
		}
		*rec = *candidate
		return nil
	})
}

// Delete removes the record from the first store that holds it.
func (f *FallbackStore[T, PT]) Delete(ctx context.Context, id uint) (*Report, error) {
	report := &Report{Op: "delete", Kind: f.info.Kind}
	return report, f.write(ctx, report, func(ctx context.Context, s ContentStore[T]) error {
		return s.Delete(ctx, id)
	})
}

func (f *FallbackStore[T, PT]) write(ctx context.Context, report *Report, call func(context.Context, ContentStore[T]) error) error {
	var lastErr error
	for _, s := range f.stores {
		err := f.attempt(ctx, report.Op, s, report, func(ctx context.Context) (int, error) {
			if err := call(ctx, s); err != nil {
				return 0, err
			}
			return 1, nil
		})
		if err == nil {
			f.served(report, s.Name())
			return nil
		}
		if errors.Is(err, ErrConflict) {
			return err
		}
		if !errors.Is(err, ErrNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return ErrNotFound
}

func nonNil[T any](rows []*T) []*T {
	if rows == nil {
		return []*T{}
	}
	return rows
}
