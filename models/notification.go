package models

import (
	"time"
)

// Notification is a message delivered to one user, or to everyone when
// UserID is empty (community broadcast). Writes are fire-and-forget from
// the economy's point of view: a failed insert never rolls back the
// operation that triggered it.
type Notification struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"` // empty = community broadcast
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Type      string    `gorm:"type:varchar(32);not null" json:"type"`
	Icon      string    `gorm:"size:10" json:"icon"`
	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
