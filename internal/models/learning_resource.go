package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// LearningResource is a course, tutorial, book, video or podcast.
type LearningResource struct {
	Listing
	Title       string                      `gorm:"size:200;not null" json:"title" validate:"required,min=2,max=200"`
	Description string                      `gorm:"type:text" json:"description" validate:"max=5000"`
	Type        string                      `gorm:"size:20;not null;index" json:"type" validate:"required,oneof=course tutorial book video podcast"`
	Level       string                      `gorm:"size:20;index" json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Category    string                      `gorm:"size:100;index" json:"category" validate:"max=100"`
	URL         string                      `gorm:"size:500" json:"url" validate:"omitempty,url"`
	Provider    string                      `gorm:"size:200" json:"provider" validate:"max=200"`
	IsFree      bool                        `gorm:"not null;default:false" json:"is_free"`
	Price       *decimal.Decimal            `gorm:"type:numeric(12,2)" json:"price,omitempty"`
	Currency    string                      `gorm:"size:3;default:USD" json:"currency" validate:"omitempty,len=3"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
}

func (LearningResource) TableName() string { return "learning_resources" }
func (r *LearningResource) SlugSource() string { return r.Title }
func (r *LearningResource) DisplayTitle() string { return r.Title }
func (r *LearningResource) Summary() string { return r.Provider }
func (r *LearningResource) ExternalURL() string { return r.URL }
