// Package models contains data structures for the application's domain models.
package models

import "time"

// PostViewLog is the dedup ledger for view counting. At most one row exists
// per (post, viewer key) pair, enforced by the composite unique index; rows
// are insert-only and never updated or deleted by the application.
type PostViewLog struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_viewer" json:"post_id"`
	ViewerKey string    `gorm:"size:64;not null;uniqueIndex:idx_post_viewer" json:"viewer_key"`
	ViewedAt  time.Time `gorm:"not null" json:"viewed_at"`
}

// TableName keeps the table name aligned with the persisted schema.
func (PostViewLog) TableName() string {
	return "post_view_logs"
}
