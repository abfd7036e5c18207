package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that can submit and moderate listings.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email       string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password    string         `gorm:"size:255" json:"-"`
	DisplayName string         `gorm:"size:100" json:"display_name,omitempty"`
	AvatarURL   string         `gorm:"size:500" json:"avatar_url,omitempty"`
	Role        Role           `gorm:"size:20;not null;default:'user';index" json:"role"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (User) TableName() string { return "users" }
