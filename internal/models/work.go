package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Job is a salaried position posted to the job board.
type Job struct {
	Listing
	Title       string                      `gorm:"size:200;not null" json:"title" validate:"required,min=2,max=200"`
	Company     string                      `gorm:"size:200;not null" json:"company" validate:"required,max=200"`
	Description string                      `gorm:"type:text" json:"description" validate:"max=10000"`
	Type        string                      `gorm:"size:20;not null;index" json:"type" validate:"required,oneof=full-time part-time contract internship"`
	Level       string                      `gorm:"size:20;index" json:"level" validate:"omitempty,oneof=entry mid senior lead"`
	Location    string                      `gorm:"size:200" json:"location" validate:"max=200"`
	Remote      bool                        `gorm:"not null;default:false" json:"remote"`
	SalaryMin   *decimal.Decimal            `gorm:"type:numeric(14,2)" json:"salary_min,omitempty"`
	SalaryMax   *decimal.Decimal            `gorm:"type:numeric(14,2)" json:"salary_max,omitempty"`
	Currency    string                      `gorm:"size:3;default:UGX" json:"currency" validate:"omitempty,len=3"`
	ApplyURL    string                      `gorm:"size:500" json:"apply_url" validate:"omitempty,url"`
	Deadline    *time.Time                  `gorm:"index" json:"deadline,omitempty"`
	Skills      datatypes.JSONSlice[string] `json:"skills"`
}

func (Job) TableName() string { return "jobs" }
func (j *Job) SlugSource() string { return j.Title + " " + j.Company }
func (j *Job) DisplayTitle() string { return j.Title }
func (j *Job) Summary() string { return j.Company }
func (j *Job) ExternalURL() string { return j.ApplyURL }

// Gig is a short freelance engagement.
type Gig struct {
	Listing
	Title        string                      `gorm:"size:200;not null" json:"title" validate:"required,min=2,max=200"`
	Description  string                      `gorm:"type:text" json:"description" validate:"max=10000"`
	Category     string                      `gorm:"size:100;index" json:"category" validate:"max=100"`
	Budget       *decimal.Decimal            `gorm:"type:numeric(14,2)" json:"budget,omitempty"`
	Currency     string                      `gorm:"size:3;default:UGX" json:"currency" validate:"omitempty,len=3"`
	Duration     string                      `gorm:"size:100" json:"duration" validate:"max=100"`
	Remote       bool                        `gorm:"not null;default:false" json:"remote"`
	ContactEmail string                      `gorm:"size:255" json:"contact_email" validate:"omitempty,email"`
	Deadline     *time.Time                  `gorm:"index" json:"deadline,omitempty"`
	Skills       datatypes.JSONSlice[string] `json:"skills"`
}

func (Gig) TableName() string { return "gigs" }
func (g *Gig) SlugSource() string { return g.Title }
func (g *Gig) DisplayTitle() string { return g.Title }
func (g *Gig) Summary() string { return g.Description }
func (g *Gig) ExternalURL() string { return "" }

// Opportunity is a grant, fellowship, scholarship, accelerator or competition.
type Opportunity struct {
	Listing
	Title        string                      `gorm:"size:200;not null" json:"title" validate:"required,min=2,max=200"`
	Description  string                      `gorm:"type:text" json:"description" validate:"max=10000"`
	Type         string                      `gorm:"size:20;not null;index" json:"type" validate:"required,oneof=grant fellowship scholarship accelerator competition"`
	Organization string                      `gorm:"size:200;index" json:"organization" validate:"max=200"`
	Amount       *decimal.Decimal            `gorm:"type:numeric(16,2)" json:"amount,omitempty"`
	Currency     string                      `gorm:"size:3;default:USD" json:"currency" validate:"omitempty,len=3"`
	Deadline     *time.Time                  `gorm:"index" json:"deadline,omitempty"`
	ApplyURL     string                      `gorm:"size:500" json:"apply_url" validate:"omitempty,url"`
	Eligibility  string                      `gorm:"type:text" json:"eligibility" validate:"max=5000"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
}

func (Opportunity) TableName() string { return "opportunities" }
func (o *Opportunity) SlugSource() string { return o.Title }
func (o *Opportunity) DisplayTitle() string { return o.Title }
func (o *Opportunity) Summary() string { return o.Organization }
func (o *Opportunity) ExternalURL() string { return o.ApplyURL }
