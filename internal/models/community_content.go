package models

import (
	"time"

	"gorm.io/datatypes"
)

// BlogPost is a long-form article written in markdown.
type BlogPost struct {
	Listing
	Title       string                      `gorm:"size:200;not null" json:"title" validate:"required,min=3,max=200"`
	Excerpt     string                      `gorm:"size:500" json:"excerpt" validate:"max=500"`
	Content     string                      `gorm:"type:text;not null" json:"content" validate:"required,min=10"`
	ContentHTML string                      `gorm:"type:text" json:"content_html"`
	CoverImage  string                      `gorm:"size:500" json:"cover_image" validate:"omitempty,url"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	PublishedAt *time.Time                  `gorm:"index" json:"published_at,omitempty"`
	Author      *User                       `gorm:"foreignKey:CreatedBy;references:ID" json:"author,omitempty"`
}

func (BlogPost) TableName() string { return "blog_posts" }
func (p *BlogPost) SlugSource() string { return p.Title }
func (p *BlogPost) DisplayTitle() string { return p.Title }
func (p *BlogPost) Summary() string { return p.Excerpt }
func (p *BlogPost) ExternalURL() string { return "" }

// ForumThread opens a discussion in one of the forum categories.
type ForumThread struct {
	Listing
	Title       string       `gorm:"size:200;not null" json:"title" validate:"required,min=3,max=200"`
	Content     string       `gorm:"type:text;not null" json:"content" validate:"required,min=1,max=20000"`
	Category    string       `gorm:"size:50;index" json:"category" validate:"omitempty,oneof=general careers startups learning events help"`
	IsPinned    bool         `gorm:"not null;default:false;index" json:"is_pinned"`
	IsLocked    bool         `gorm:"not null;default:false" json:"is_locked"`
	ReplyCount  int          `gorm:"not null;default:0" json:"reply_count"`
	LastReplyAt *time.Time   `json:"last_reply_at,omitempty"`
	Author      *User        `gorm:"foreignKey:CreatedBy;references:ID" json:"author,omitempty"`
	Replies     []ForumReply `gorm:"foreignKey:ThreadID" json:"replies,omitempty"`
}

func (ForumThread) TableName() string { return "forum_threads" }
func (t *ForumThread) SlugSource() string { return t.Title }
func (t *ForumThread) DisplayTitle() string { return t.Title }
func (t *ForumThread) Summary() string { return t.Category }
func (t *ForumThread) ExternalURL() string { return "" }

// ForumReply answers a thread.
type ForumReply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"size:200;not null;uniqueIndex" json:"slug"`
	ThreadID  uint      `gorm:"not null;index" json:"thread_id"`
	AuthorID  uint      `gorm:"not null;default:0;index" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content" validate:"required,min=1,max=10000"`
	Status    Status    `gorm:"type:varchar(20);not null;default:approved" json:"status"`
	Author    *User     `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ForumReply) TableName() string { return "forum_replies" }
