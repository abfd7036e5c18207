package service

import (
	"context"
	"sort"
	"time"

	"techatlas/internal/cache"
	"techatlas/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// KindCount is the number of listings of one kind per status.
type KindCount struct {
	Kind     models.Kind             `json:"kind"`
	Singular string                  `json:"singular"`
	Total    int64                   `json:"total"`
	ByStatus map[models.Status]int64 `json:"by_status"`
}

// Approved returns the number of publicly visible listings.
func (k KindCount) Approved() int64 { return k.ByStatus[models.StatusApproved] }

// DashboardStats aggregates counts for the admin dashboard.
type DashboardStats struct {
	Kinds        []KindCount `json:"kinds"`
	Pending      int64       `json:"pending"`
	Users        int64       `json:"users"`
	BlogPosts    int64       `json:"blog_posts"`
	ForumThreads int64       `json:"forum_threads"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

// PendingItem is one listing waiting for review.
type PendingItem struct {
	Kind   models.Kind   `json:"kind"`
	Record models.Record `json:"record"`
}

// ModerationService provides the admin dashboard queries.
type ModerationService struct {
	db       *gorm.DB
	registry *Registry
	now      func() time.Time
}

// NewModerationService returns a new ModerationService. db may be nil when
// the primary store is down; counts then come from the fallback chains.
func NewModerationService(db *gorm.DB, registry *Registry) *ModerationService {
	return &ModerationService{db: db, registry: registry, now: time.Now}
}

// Stats returns listing counts per kind and status, cached briefly.
func (s *ModerationService) Stats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	err := cache.Aside(ctx, cache.StatsKey, &stats, cache.StatsTTL, func() error {
		fresh, err := s.computeStats(ctx)
		if err != nil {
			return err
		}
		stats = *fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *ModerationService) computeStats(ctx context.Context) (*DashboardStats, error) {
	apis := s.registry.All()
	out := &DashboardStats{Kinds: make([]KindCount, len(apis)), GeneratedAt: s.now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	for i, api := range apis {
		info := api.Info()
		g.Go(func() error {
			byStatus, err := s.countKind(gctx, api)
			if err != nil {
				return err
			}
			kc := KindCount{Kind: info.Kind, Singular: info.Singular, ByStatus: byStatus}
			for _, n := range byStatus {
				kc.Total += n
			}
			out.Kinds[i] = kc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, models.NewInternalError(err)
	}

	for _, kc := range out.Kinds {
		out.Pending += kc.ByStatus[models.StatusPending]
	}
	if s.db != nil {
		db := s.db.WithContext(ctx)
		if err := db.Model(&models.User{}).Count(&out.Users).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		if err := db.Model(&models.BlogPost{}).Count(&out.BlogPosts).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		if err := db.Model(&models.ForumThread{}).Count(&out.ForumThreads).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return out, nil
}

func (s *ModerationService) countKind(ctx context.Context, api ContentAPI) (map[models.Status]int64, error) {
	counts := map[models.Status]int64{}
	if s.db != nil {
		var rows []struct {
			Status models.Status
			Total  int64
		}
		err := s.db.WithContext(ctx).Table(api.Info().Table).
			Select("status, COUNT(*) AS total").
			Group("status").
			Scan(&rows).Error
		if err == nil {
			for _, r := range rows {
				counts[r.Status] = r.Total
			}
			return counts, nil
		}
	}

	rows, _, err := api.List(ctx, Caller{Role: models.RoleAdmin}, map[string]string{"status": "all", "limit": "100"})
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.GetStatus()]++
	}
	return counts, nil
}

// Pending returns listings awaiting review across every kind, newest first.
func (s *ModerationService) Pending(ctx context.Context, limit int) ([]PendingItem, error) {
	var items []PendingItem
	for _, api := range s.registry.All() {
		rows, err := api.Pending(ctx, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			items = append(items, PendingItem{Kind: api.Info().Kind, Record: r})
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Record.GetCreatedAt().After(items[j].Record.GetCreatedAt())
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []PendingItem{}
	}
	return items, nil
}
