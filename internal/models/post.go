// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a discussion thread in the Agora application.
//
// ViewCount and CommentsCount are persisted denormalized counters. They are
// only ever written inside the same transaction as the backing row
// (post_view_logs / comments), so at any commit boundary each counter equals
// the number of corresponding rows.
type Post struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"not null" json:"title"`
	Body          string         `gorm:"type:text;not null" json:"body"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	User          User           `gorm:"foreignKey:UserID" json:"user"`
	ViewCount     int64          `gorm:"not null;default:0" json:"view_count"`
	CommentsCount int64          `gorm:"not null;default:0" json:"comments_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
