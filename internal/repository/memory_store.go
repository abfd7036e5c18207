package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"techatlas/internal/models"
)

// MemoryStore is the last-resort store. Records live for the process
// lifetime and are copied on the way in and out.
type MemoryStore[T any, PT RecordPtr[T]] struct {
	mu       sync.RWMutex
	info     models.KindInfo
	capacity int
	nextID   uint
	rows     []*T
}

// NewMemoryStore returns an empty store. capacity <= 0 means unbounded.
func NewMemoryStore[T any, PT RecordPtr[T]](info models.KindInfo, capacity int) *MemoryStore[T, PT] {
	return &MemoryStore[T, PT]{info: info, capacity: capacity, nextID: 1}
}

func (s *MemoryStore[T, PT]) Name() string { return "memory" }

func (s *MemoryStore[T, PT]) Tier() Tier { return TierMemory }

// Len returns the number of stored records.
func (s *MemoryStore[T, PT]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryStore[T, PT]) List(_ context.Context, filters models.Filters) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*T
	for _, row := range s.rows {
		ok, err := s.matches(row, filters)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		c, err := cloneRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return PT(out[i]).GetCreatedAt().After(PT(out[j]).GetCreatedAt())
	})
	if limit := clampLimit(filters.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore[T, PT]) matches(row *T, filters models.Filters) (bool, error) {
	if filters.Status != "" && PT(row).GetStatus() != filters.Status {
		return false, nil
	}
	if len(filters.Fields) == 0 && filters.Since == nil && filters.Search == "" {
		return true, nil
	}

	fields, err := recordFields(row)
	if err != nil {
		return false, err
	}
	for column, want := range filters.Fields {
		if fmt.Sprint(fields[column]) != fmt.Sprint(want) {
			return false, nil
		}
	}
	if filters.Since != nil {
		raw, _ := fields[filters.Since.Column].(string)
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil || at.Before(filters.Since.From) {
			return false, nil
		}
	}
	if term := strings.ToLower(strings.TrimSpace(filters.Search)); term != "" {
		title, _ := fields[s.info.TitleColumn].(string)
		if !strings.Contains(strings.ToLower(title), term) {
			return false, nil
		}
	}
	return true, nil
}

func (s *MemoryStore[T, PT]) GetBySlug(_ context.Context, slug string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if PT(row).GetSlug() == slug {
			return cloneRecord(row)
		}
	}
	return nil, nil
}

func (s *MemoryStore[T, PT]) GetByID(_ context.Context, id uint) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return cloneRecord(s.rows[i])
	}
	return nil, nil
}

func (s *MemoryStore[T, PT]) Create(_ context.Context, rec *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := PT(rec).GetSlug()
	for _, row := range s.rows {
		if PT(row).GetSlug() == slug {
			return ErrConflict
		}
	}
	if s.capacity > 0 && len(s.rows) >= s.capacity {
		return ErrStoreFull
	}

	if PT(rec).GetID() == 0 {
		PT(rec).SetID(s.nextID)
	}
	if id := PT(rec).GetID(); id >= s.nextID {
		s.nextID = id + 1
	}

	stored, err := cloneRecord(rec)
	if err != nil {
		return err
	}
	s.rows = append(s.rows, stored)
	return nil
}

func (s *MemoryStore[T, PT]) Update(_ context.Context, rec *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(PT(rec).GetID())
	if i < 0 {
		return ErrNotFound
	}
	for j, row := range s.rows {
		if j != i && PT(row).GetSlug() == PT(rec).GetSlug() {
			return ErrConflict
		}
	}
	stored, err := cloneRecord(rec)
	if err != nil {
		return err
	}
	s.rows[i] = stored
	return nil
}

func (s *MemoryStore[T, PT]) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	return nil
}

func (s *MemoryStore[T, PT]) indexOf(id uint) int {
	for i, row := range s.rows {
		if PT(row).GetID() == id {
			return i
		}
	}
	return -1
}
