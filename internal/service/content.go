package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"techatlas/internal/cache"
	"techatlas/internal/events"
	"techatlas/internal/middleware"
	"techatlas/internal/models"
	"techatlas/internal/repository"
	"techatlas/internal/search"
	"techatlas/internal/validation"

	"go.uber.org/zap"
)

// Caller is the identity a request runs as. ID is 0 for anonymous callers.
type Caller struct {
	ID   uint
	Role models.Role
}

// Authenticated reports whether the caller presented a valid token.
func (c Caller) Authenticated() bool { return c.ID != 0 }

// IsModerator reports whether the caller may review listings.
func (c Caller) IsModerator() bool { return c.Role.AtLeast(models.RoleModerator) }

// ContentAPI is the kind-agnostic surface the HTTP layer drives.
type ContentAPI interface {
	Info() models.KindInfo
	List(ctx context.Context, caller Caller, query map[string]string) ([]models.Record, *repository.Report, error)
	Get(ctx context.Context, caller Caller, slug string) (models.Record, error)
	Create(ctx context.Context, caller Caller, body []byte) (models.Record, *repository.Report, error)
	Update(ctx context.Context, caller Caller, id uint, body []byte) (models.Record, error)
	Delete(ctx context.Context, caller Caller, id uint) error
	Review(ctx context.Context, caller Caller, id uint, status models.Status) (models.Record, error)
	Pending(ctx context.Context, limit int) ([]models.Record, error)
	Search(ctx context.Context, term string, limit int) ([]models.Record, error)
	Titles(ctx context.Context, limit int) ([]string, error)
}

// ContentDeps are the collaborators shared by every content service.
type ContentDeps struct {
	Events events.Publisher
	Index  search.Indexer
	Now    func() time.Time
}

// ContentService implements ContentAPI for one listing type on top of its
// fallback chain.
type ContentService[T any, PT repository.RecordPtr[T]] struct {
	store  *repository.FallbackStore[T, PT]
	events events.Publisher
	index  search.Indexer
	now    func() time.Time
}

// NewContentService wraps store.
func NewContentService[T any, PT repository.RecordPtr[T]](store *repository.FallbackStore[T, PT], deps ContentDeps) *ContentService[T, PT] {
	s := &ContentService[T, PT]{store: store, events: deps.Events, index: deps.Index, now: deps.Now}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *ContentService[T, PT]) Info() models.KindInfo { return s.store.Kind() }

// Filters turns list query parameters into store filters. Only the kind's
// whitelisted keys are honoured; non-moderators always see approved rows.
func (s *ContentService[T, PT]) Filters(caller Caller, query map[string]string) (models.Filters, error) {
	info := s.store.Kind()
	f := models.Filters{Status: models.StatusApproved, Fields: map[string]any{}}

	if raw := strings.TrimSpace(query["status"]); raw != "" && caller.IsModerator() {
		switch status := models.Status(strings.ToLower(raw)); {
		case raw == "all":
			f.Status = ""
		case status.Valid():
			f.Status = status
		default:
			return f, models.NewValidationError(fmt.Sprintf("unknown status %q", raw))
		}
	}

	for key, column := range info.FilterKeys {
		raw := strings.TrimSpace(query[key])
		if raw == "" {
			continue
		}
		if info.BoolFilters[key] {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return f, models.NewValidationError(fmt.Sprintf("%s must be true or false", key))
			}
			f.Fields[column] = b
			continue
		}
		f.Fields[column] = raw
	}

	if info.UpcomingColumn != "" {
		if upcoming, _ := strconv.ParseBool(query["upcoming"]); upcoming {
			f.Since = &models.TimeBound{Column: info.UpcomingColumn, From: s.now().UTC()}
		}
	}

	f.Search = strings.TrimSpace(query["search"])
	if f.Search == "" {
		f.Search = strings.TrimSpace(query["q"])
	}

	if raw := query["limit"]; raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return f, models.NewValidationError("limit must be a positive number")
		}
		f.Limit = limit
	}
	return f, nil
}

func (s *ContentService[T, PT]) List(ctx context.Context, caller Caller, query map[string]string) ([]models.Record, *repository.Report, error) {
	filters, err := s.Filters(caller, query)
	if err != nil {
		return nil, nil, err
	}
	rows, report, err := s.store.List(ctx, filters)
	if err != nil {
		return nil, report, models.NewInternalError(err)
	}
	return records[T, PT](rows), report, nil
}

// Get returns the listing with slug. Listings that are not approved are
// only visible to moderators and to their creator. Anonymous reads of
// approved listings go through the cache.
func (s *ContentService[T, PT]) Get(ctx context.Context, caller Caller, slug string) (models.Record, error) {
	info := s.store.Kind()
	if !caller.Authenticated() {
		var rec T
		err := cache.Aside(ctx, cache.ListingKey(string(info.Kind), slug), &rec, cache.ListingTTL, func() error {
			found, err := s.fetch(ctx, slug)
			if err != nil {
				return err
			}
			if PT(found).GetStatus() != models.StatusApproved {
				return models.NewNotFoundError(info.Singular, slug)
			}
			rec = *found
			return nil
		})
		if err != nil {
			return nil, err
		}
		return PT(&rec), nil
	}

	rec, err := s.fetch(ctx, slug)
	if err != nil {
		return nil, err
	}
	p := PT(rec)
	if p.GetStatus() != models.StatusApproved && !caller.IsModerator() && p.GetCreatedBy() != caller.ID {
		return nil, models.NewNotFoundError(info.Singular, slug)
	}
	return p, nil
}

func (s *ContentService[T, PT]) fetch(ctx context.Context, slug string) (*T, error) {
	rec, _, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if rec == nil {
		return nil, models.NewNotFoundError(s.store.Kind().Singular, slug)
	}
	return rec, nil
}

func (s *ContentService[T, PT]) byID(ctx context.Context, id uint) (*T, error) {
	rec, _, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if rec == nil {
		return nil, models.NewNotFoundError(s.store.Kind().Singular, id)
	}
	return rec, nil
}

// Create decodes and validates body, then writes it through the chain.
// Callers below moderator cannot choose the status or curation fields.
// A *repository.DegradedWriteError is returned unchanged together with the
// unpersisted record.
func (s *ContentService[T, PT]) Create(ctx context.Context, caller Caller, body []byte) (models.Record, *repository.Report, error) {
	info := s.store.Kind()
	rec := new(T)
	if err := json.Unmarshal(body, rec); err != nil {
		return nil, nil, models.NewValidationError("invalid request body")
	}
	p := PT(rec)
	p.SetID(0)
	p.SetCreatedAt(time.Time{})

	if caller.IsModerator() {
		if status := p.GetStatus(); status != "" && !status.Valid() {
			return nil, nil, models.NewValidationError(fmt.Sprintf("unknown status %q", status))
		}
		if p.GetStatus() == models.StatusApproved {
			p.Review(models.StatusApproved, caller.ID, s.now().UTC())
		}
	} else {
		p.ResetModeration()
	}

	if err := validation.Struct(rec); err != nil {
		return nil, nil, err
	}

	report, err := s.store.Create(ctx, rec, caller.ID)
	var degraded *repository.DegradedWriteError
	switch {
	case errors.As(err, &degraded):
		s.events.Publish(ctx, events.FromRecord(events.Degraded, info.Kind, p, caller.ID))
		return p, report, err
	case errors.Is(err, repository.ErrConflict):
		return nil, report, models.NewConflictError(fmt.Sprintf("a %s with slug %q already exists", info.Singular, p.GetSlug()), err)
	case err != nil:
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, report, err
		}
		return nil, report, models.NewInternalError(err)
	}

	s.events.Publish(ctx, events.FromRecord(events.Submitted, info.Kind, p, caller.ID))
	s.sync(ctx, p, "")
	cache.Invalidate(ctx, cache.StatsKey)
	return p, report, nil
}

// Update merges the JSON body into the stored listing.
func (s *ContentService[T, PT]) Update(ctx context.Context, caller Caller, id uint, body []byte) (models.Record, error) {
	if !caller.IsModerator() {
		return nil, models.NewForbiddenError("access denied")
	}
	info := s.store.Kind()
	rec, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := PT(rec)
	oldSlug := p.GetSlug()
	createdBy, createdAt := p.GetCreatedBy(), p.GetCreatedAt()

	if err := json.Unmarshal(body, rec); err != nil {
		return nil, models.NewValidationError("invalid request body")
	}
	p.SetID(id)
	p.SetCreatedBy(createdBy)
	if !p.GetStatus().Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown status %q", p.GetStatus()))
	}
	if strings.TrimSpace(p.GetSlug()) == "" {
		p.SetSlug(oldSlug)
	}
	if err := validation.Struct(rec); err != nil {
		return nil, err
	}
	p.SetCreatedAt(createdAt)

	if _, err := s.store.Update(ctx, rec); err != nil {
		return nil, s.writeError(err, id)
	}

	s.events.Publish(ctx, events.FromRecord(events.Updated, info.Kind, p, caller.ID))
	s.sync(ctx, p, oldSlug)
	return p, nil
}

// Delete removes a listing from whichever store holds it.
func (s *ContentService[T, PT]) Delete(ctx context.Context, caller Caller, id uint) error {
	if !caller.IsModerator() {
		return models.NewForbiddenError("access denied")
	}
	info := s.store.Kind()
	rec, err := s.byID(ctx, id)
	if err != nil {
		return err
	}
	p := PT(rec)
	if _, err := s.store.Delete(ctx, id); err != nil {
		return s.writeError(err, id)
	}

	cache.InvalidateListing(ctx, string(info.Kind), p.GetSlug())
	if s.index != nil {
		if err := s.index.Remove(ctx, search.ObjectID(info.Kind, p.GetSlug())); err != nil {
			middleware.LoggerFromContext(ctx).Warn("search index remove failed", zap.String("kind", string(info.Kind)), zap.Error(err))
		}
	}
	s.events.Publish(ctx, events.FromRecord(events.Deleted, info.Kind, p, caller.ID))
	return nil
}

// Review approves or rejects a listing and records the reviewer.
func (s *ContentService[T, PT]) Review(ctx context.Context, caller Caller, id uint, status models.Status) (models.Record, error) {
	if !caller.IsModerator() {
		return nil, models.NewForbiddenError("access denied")
	}
	var evType events.Type
	switch status {
	case models.StatusApproved:
		evType = events.Approved
	case models.StatusRejected:
		evType = events.Rejected
	default:
		return nil, models.NewValidationError("status must be approved or rejected")
	}

	info := s.store.Kind()
	rec, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := PT(rec)
	p.Review(status, caller.ID, s.now().UTC())
	if _, err := s.store.Update(ctx, rec); err != nil {
		return nil, s.writeError(err, id)
	}

	s.events.Publish(ctx, events.FromRecord(evType, info.Kind, p, caller.ID))
	s.sync(ctx, p, "")
	return p, nil
}

// Pending lists listings awaiting review, newest first.
func (s *ContentService[T, PT]) Pending(ctx context.Context, limit int) ([]models.Record, error) {
	rows, _, err := s.store.List(ctx, models.Filters{Status: models.StatusPending, Limit: limit})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return records[T, PT](rows), nil
}

// Search matches approved listings by title.
func (s *ContentService[T, PT]) Search(ctx context.Context, term string, limit int) ([]models.Record, error) {
	rows, _, err := s.store.List(ctx, models.Filters{Status: models.StatusApproved, Search: term, Limit: limit})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return records[T, PT](rows), nil
}

// Titles returns the display titles of existing listings of every status.
func (s *ContentService[T, PT]) Titles(ctx context.Context, limit int) ([]string, error) {
	rows, _, err := s.store.List(ctx, models.Filters{Limit: limit})
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(rows))
	for _, row := range rows {
		if title := strings.TrimSpace(PT(row).DisplayTitle()); title != "" {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// sync refreshes the cache and search index after a write.
func (s *ContentService[T, PT]) sync(ctx context.Context, p PT, oldSlug string) {
	info := s.store.Kind()
	cache.InvalidateListing(ctx, string(info.Kind), p.GetSlug())
	if oldSlug != "" && oldSlug != p.GetSlug() {
		cache.InvalidateListing(ctx, string(info.Kind), oldSlug)
	}
	if s.index == nil {
		return
	}

	log := middleware.LoggerFromContext(ctx)
	if oldSlug != "" && oldSlug != p.GetSlug() {
		if err := s.index.Remove(ctx, search.ObjectID(info.Kind, oldSlug)); err != nil {
			log.Warn("search index remove failed", zap.String("kind", string(info.Kind)), zap.Error(err))
		}
	}

	var err error
	if p.GetStatus() == models.StatusApproved {
		err = s.index.Index(ctx, search.DocumentFor(info.Kind, p))
	} else {
		err = s.index.Remove(ctx, search.ObjectID(info.Kind, p.GetSlug()))
	}
	if err != nil {
		log.Warn("search index sync failed", zap.String("kind", string(info.Kind)), zap.String("slug", p.GetSlug()), zap.Error(err))
	}
}

func (s *ContentService[T, PT]) writeError(err error, id uint) error {
	info := s.store.Kind()
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.NewNotFoundError(info.Singular, id)
	case errors.Is(err, repository.ErrConflict):
		return models.NewConflictError(fmt.Sprintf("another %s already uses this slug", info.Singular), err)
	default:
		return models.NewInternalError(err)
	}
}

func records[T any, PT repository.RecordPtr[T]](rows []*T) []models.Record {
	out := make([]models.Record, len(rows))
	for i, row := range rows {
		out[i] = PT(row)
	}
	return out
}
