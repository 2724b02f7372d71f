// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account in the Agora application.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Password  string         `gorm:"not null" json:"-"`
	Profile   *UserProfile   `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Posts     []Post         `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// UserProfile holds the public-facing profile for a user. Exactly one row
// per user; writes go through an atomic upsert keyed on user_id.
type UserProfile struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Nickname  string    `gorm:"size:80;not null" json:"nickname"`
	Email     string    `gorm:"size:255" json:"email"`
	Bio       string    `gorm:"size:500" json:"bio"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name aligned with the persisted schema.
func (UserProfile) TableName() string {
	return "user_profiles"
}
