package models

import (
	"time"

	"gorm.io/gorm"
)

// MoodUser is a local snapshot of user data needed by the token economy.
// Profile fields are populated via sync worker from the profile service;
// EmotionTokens is the one column this service owns outright — every
// mutation goes through the token ledger, never through the sync path.
type MoodUser struct {
	ID                string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string  `gorm:"uniqueIndex;not null" json:"external_user_id"` // the profile service's UUID
	Username          string  `gorm:"index;not null" json:"username"`
	Email             string  `json:"email,omitempty"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`

	// Token balance, owned by the ledger. Non-negative by invariant.
	EmotionTokens int64 `gorm:"not null;default:0" json:"emotion_tokens"`

	IsPremium bool `gorm:"default:false" json:"is_premium"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
