package models

import (
	"time"
)

// Status is the moderation lifecycle state of a listing.
type Status string

const (
	// StatusPending indicates the listing is awaiting review.
	StatusPending Status = "pending"
	// StatusApproved indicates the listing is publicly visible.
	StatusApproved Status = "approved"
	// StatusRejected indicates the listing was declined.
	StatusRejected Status = "rejected"
	// StatusExpired marks jobs and opportunities past their deadline.
	StatusExpired Status = "expired"
	// StatusCompleted marks events that have ended.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired, StatusCompleted:
		return true
	}
	return false
}

// Listing holds the columns shared by every directory entry.
type Listing struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Slug       string     `gorm:"size:160;not null;uniqueIndex" json:"slug"`
	Status     Status     `gorm:"type:varchar(20);not null;index" json:"status"`
	Featured   bool       `gorm:"not null;default:false" json:"featured"`
	CreatedBy  uint       `gorm:"not null;default:0;index" json:"created_by"`
	ApprovedBy *uint      `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (l *Listing) GetID() uint              { return l.ID }
func (l *Listing) SetID(id uint)            { l.ID = id }
func (l *Listing) GetSlug() string          { return l.Slug }
func (l *Listing) SetSlug(slug string)      { l.Slug = slug }
func (l *Listing) GetStatus() Status        { return l.Status }
func (l *Listing) SetStatus(status Status)  { l.Status = status }
func (l *Listing) GetCreatedBy() uint       { return l.CreatedBy }
func (l *Listing) SetCreatedBy(userID uint) { l.CreatedBy = userID }
func (l *Listing) GetCreatedAt() time.Time  { return l.CreatedAt }
func (l *Listing) SetCreatedAt(t time.Time) { l.CreatedAt = t }

// Touch stamps creation and update times. CreatedAt is only set once.
func (l *Listing) Touch(now time.Time) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
}

// ResetModeration clears the fields only moderators may set.
func (l *Listing) ResetModeration() {
	l.Status = ""
	l.Featured = false
	l.ApprovedBy = nil
	l.ApprovedAt = nil
}

// Review records a moderation decision.
func (l *Listing) Review(status Status, reviewerID uint, at time.Time) {
	l.Status = status
	if status == StatusApproved {
		l.ApprovedBy = &reviewerID
		l.ApprovedAt = &at
		return
	}
	l.ApprovedBy = nil
	l.ApprovedAt = nil
}

// Record is implemented by pointers to every listing type.
type Record interface {
	TableName() string
	GetID() uint
	SetID(id uint)
	GetSlug() string
	SetSlug(slug string)
	GetStatus() Status
	SetStatus(status Status)
	GetCreatedBy() uint
	SetCreatedBy(userID uint)
	GetCreatedAt() time.Time
	SetCreatedAt(t time.Time)
	Touch(now time.Time)
	Review(status Status, reviewerID uint, at time.Time)
	ResetModeration()
	// SlugSource is the human text a slug is derived from.
	SlugSource() string
	// DisplayTitle is the name shown in lists and dedupe checks.
	DisplayTitle() string
	Summary() string
	ExternalURL() string
}

// TimeBound restricts a time column to values at or after From.
type TimeBound struct {
	Column string
	From   time.Time
}

// Filters narrows a listing query. Fields maps column names to exact values.
type Filters struct {
	Status Status
	Fields map[string]any
	Since  *TimeBound
	Search string
	Limit  int
}
