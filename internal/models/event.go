package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event is a meetup, conference, hackathon or workshop.
type Event struct {
	Listing
	Title           string                      `gorm:"size:200;not null" json:"title" validate:"required,min=2,max=200"`
	Description     string                      `gorm:"type:text" json:"description" validate:"max=10000"`
	Category        string                      `gorm:"size:50;index" json:"category" validate:"omitempty,oneof=meetup conference hackathon workshop webinar networking"`
	Location        string                      `gorm:"size:200" json:"location" validate:"max=200"`
	Venue           string                      `gorm:"size:200" json:"venue" validate:"max=200"`
	IsOnline        bool                        `gorm:"not null;default:false" json:"is_online"`
	StartDate       time.Time                   `gorm:"not null;index" json:"start_date" validate:"required"`
	EndDate         *time.Time                  `json:"end_date,omitempty"`
	RegistrationURL string                      `gorm:"size:500" json:"registration_url" validate:"omitempty,url"`
	Organizer       string                      `gorm:"size:200" json:"organizer" validate:"max=200"`
	Tags            datatypes.JSONSlice[string] `json:"tags"`
}

func (Event) TableName() string { return "events" }
func (e *Event) SlugSource() string { return e.Title }
func (e *Event) DisplayTitle() string { return e.Title }
func (e *Event) Summary() string { return e.Description }
func (e *Event) ExternalURL() string { return e.RegistrationURL }

// EndsAt is the moment the event is considered over.
func (e *Event) EndsAt() time.Time {
	if e.EndDate != nil {
		return *e.EndDate
	}
	return e.StartDate
}
