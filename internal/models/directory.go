package models

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Hub is a physical innovation hub, co-working space or incubator.
type Hub struct {
	Listing
	Name        string                      `gorm:"size:200;not null" json:"name" validate:"required,min=2,max=200"`
	Description string                      `gorm:"type:text" json:"description" validate:"max=5000"`
	Location    string                      `gorm:"size:200" json:"location" validate:"max=200"`
	District    string                      `gorm:"size:100;index" json:"district" validate:"max=100"`
	Website     string                      `gorm:"size:500" json:"website" validate:"omitempty,url"`
	Email       string                      `gorm:"size:255" json:"email" validate:"omitempty,email"`
	Phone       string                      `gorm:"size:50" json:"phone" validate:"max=50"`
	LogoURL     string                      `gorm:"size:500" json:"logo_url" validate:"omitempty,url"`
	Latitude    *float64                    `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64                    `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Services    datatypes.JSONSlice[string] `json:"services"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
}

func (Hub) TableName() string { return "hubs" }
func (h *Hub) SlugSource() string { return h.Name }
func (h *Hub) DisplayTitle() string { return h.Name }
func (h *Hub) Summary() string { return h.Description }
func (h *Hub) ExternalURL() string { return h.Website }

// Community is a meetup group, developer community or interest network.
type Community struct {
	Listing
	Name        string                      `gorm:"size:200;not null" json:"name" validate:"required,min=2,max=200"`
	Description string                      `gorm:"type:text" json:"description" validate:"max=5000"`
	FocusArea   string                      `gorm:"size:100;index" json:"focus_area" validate:"max=100"`
	Location    string                      `gorm:"size:200" json:"location" validate:"max=200"`
	Website     string                      `gorm:"size:500" json:"website" validate:"omitempty,url"`
	TwitterURL  string                      `gorm:"size:500" json:"twitter_url" validate:"omitempty,url"`
	LinkedInURL string                      `gorm:"size:500" json:"linkedin_url" validate:"omitempty,url"`
	MemberCount int                         `gorm:"not null;default:0" json:"member_count" validate:"gte=0"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
}

func (Community) TableName() string { return "communities" }
func (c *Community) SlugSource() string { return c.Name }
func (c *Community) DisplayTitle() string { return c.Name }
func (c *Community) Summary() string { return c.Description }
func (c *Community) ExternalURL() string { return c.Website }

// Startup is a company listed in the startup directory.
type Startup struct {
	Listing
	Name          string                      `gorm:"size:200;not null" json:"name" validate:"required,min=2,max=200"`
	Tagline       string                      `gorm:"size:300" json:"tagline" validate:"max=300"`
	Description   string                      `gorm:"type:text" json:"description" validate:"max=5000"`
	Industry      string                      `gorm:"size:100;index" json:"industry" validate:"max=100"`
	Stage         string                      `gorm:"size:50;index" json:"stage" validate:"omitempty,oneof=idea pre-seed seed series-a series-b growth"`
	FoundedYear   int                         `json:"founded_year,omitempty" validate:"omitempty,gte=1950,lte=2100"`
	Location      string                      `gorm:"size:200" json:"location" validate:"max=200"`
	Website       string                      `gorm:"size:500" json:"website" validate:"omitempty,url"`
	FundingRaised *decimal.Decimal            `gorm:"type:numeric(20,2)" json:"funding_raised,omitempty"`
	Currency      string                      `gorm:"size:3;default:UGX" json:"currency" validate:"omitempty,len=3"`
	TeamSize      int                         `json:"team_size,omitempty" validate:"gte=0"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
}

func (Startup) TableName() string { return "startups" }
func (s *Startup) SlugSource() string { return s.Name }
func (s *Startup) DisplayTitle() string { return s.Name }
func (s *Startup) Summary() string {
	if strings.TrimSpace(s.Tagline) != "" {
		return s.Tagline
	}
	return s.Description
}
func (s *Startup) ExternalURL() string { return s.Website }
