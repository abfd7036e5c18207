// Package events fans content lifecycle events out to external sinks.
package events

import (
	"context"
	"time"

	"techatlas/internal/models"
)

// Type names a content lifecycle transition.
type Type string

const (
	Submitted Type = "submitted"
	Approved  Type = "approved"
	Rejected  Type = "rejected"
	Updated   Type = "updated"
	Deleted   Type = "deleted"
	Expired   Type = "expired"
	Degraded  Type = "degraded"
)

// ContentEvent describes one change to a directory listing.
type ContentEvent struct {
	Type      Type          `json:"type"`
	Kind      models.Kind   `json:"kind"`
	ID        uint          `json:"id"`
	Slug      string        `json:"slug"`
	Title     string        `json:"title"`
	Status    models.Status `json:"status"`
	CreatedBy uint          `json:"created_by"`
	ActorID   uint          `json:"actor_id,omitempty"`
	URL       string        `json:"url,omitempty"`
	At        time.Time     `json:"at"`
}

// FromRecord builds an event for rec.
func FromRecord(t Type, kind models.Kind, rec models.Record, actorID uint) ContentEvent {
	return ContentEvent{
		Type:      t,
		Kind:      kind,
		ID:        rec.GetID(),
		Slug:      rec.GetSlug(),
		Title:     rec.DisplayTitle(),
		Status:    rec.GetStatus(),
		CreatedBy: rec.GetCreatedBy(),
		ActorID:   actorID,
		URL:       rec.ExternalURL(),
		At:        time.Now().UTC(),
	}
}

// Key partitions events of one listing together.
func (e ContentEvent) Key() string {
	return string(e.Kind) + ":" + e.Slug
}

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ctx context.Context, ev ContentEvent)
}

// Sink delivers events to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev ContentEvent) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, ContentEvent) {}
