package service

import (
	"context"
	"fmt"
	"time"

	"techatlas/internal/cache"
	"techatlas/internal/events"
	"techatlas/internal/middleware"
	"techatlas/internal/models"
	"techatlas/internal/observability"
	"techatlas/internal/search"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type expiryRule struct {
	kind   models.Kind
	status models.Status
	// where selects approved rows that are past due; it takes now as its only argument.
	where string
}

var expiryRules = []expiryRule{
	{kind: models.KindEvent, status: models.StatusCompleted, where: "COALESCE(end_date, start_date) < ?"},
	{kind: models.KindJob, status: models.StatusExpired, where: "deadline IS NOT NULL AND deadline < ?"},
	{kind: models.KindGig, status: models.StatusExpired, where: "deadline IS NOT NULL AND deadline < ?"},
	{kind: models.KindOpportunity, status: models.StatusExpired, where: "deadline IS NOT NULL AND deadline < ?"},
}

// ExpiryService retires approved listings whose date has passed: events
// become completed, dated postings become expired. Retired listings are
// dropped from the search index.
type ExpiryService struct {
	db     *gorm.DB
	events events.Publisher
	index  search.Indexer
	now    func() time.Time
}

// NewExpiryService builds the service. index may be nil.
func NewExpiryService(db *gorm.DB, publisher events.Publisher, index search.Indexer) *ExpiryService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ExpiryService{db: db, events: publisher, index: index, now: time.Now}
}

// Run applies every rule once and returns the number of listings moved per kind.
func (s *ExpiryService) Run(ctx context.Context) (map[models.Kind]int, error) {
	moved := map[models.Kind]int{}
	if s.db == nil {
		return moved, nil
	}
	now := s.now().UTC()
	for _, rule := range expiryRules {
		n, err := s.apply(ctx, rule, now)
		if err != nil {
			return moved, fmt.Errorf("expire %s: %w", rule.kind, err)
		}
		moved[rule.kind] = n
	}
	return moved, nil
}

func (s *ExpiryService) apply(ctx context.Context, rule expiryRule, now time.Time) (int, error) {
	info := models.MustKind(rule.kind)
	var rows []struct {
		ID        uint
		Slug      string
		Title     string
		CreatedBy uint
	}
	err := s.db.WithContext(ctx).Table(info.Table).
		Select("id, slug, "+info.TitleColumn+" AS title, created_by").
		Where("status = ?", models.StatusApproved).
		Where(rule.where, now).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return 0, err
	}

	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	if err := s.db.WithContext(ctx).Table(info.Table).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": rule.status, "updated_at": now}).Error; err != nil {
		return 0, err
	}

	observability.ExpiredListings.WithLabelValues(string(rule.kind), string(rule.status)).Add(float64(len(rows)))
	for _, r := range rows {
		cache.InvalidateListing(ctx, string(rule.kind), r.Slug)
		if s.index != nil {
			if err := s.index.Remove(ctx, search.ObjectID(rule.kind, r.Slug)); err != nil {
				middleware.LoggerFromContext(ctx).Warn("search index remove failed",
					zap.String("kind", string(rule.kind)), zap.String("slug", r.Slug), zap.Error(err))
			}
		}
		s.events.Publish(ctx, events.ContentEvent{
			Type:      events.Expired,
			Kind:      rule.kind,
			ID:        r.ID,
			Slug:      r.Slug,
			Title:     r.Title,
			Status:    rule.status,
			CreatedBy: r.CreatedBy,
			At:        now,
		})
	}
	return len(rows), nil
}
