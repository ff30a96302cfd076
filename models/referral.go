package models

import "time"

// Referral tracks referrals and the one-time referral token bounty.
// BonusAwarded flips exactly once; the unique index on ReferredID means a
// user can only ever be referred by one person.
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string `gorm:"index;not null" json:"referrer_id"`       // ExternalUserID
	ReferredID string `gorm:"uniqueIndex;not null" json:"referred_id"` // ExternalUserID

	ReferralCodeUsed string     `gorm:"not null" json:"referral_code_used"`
	TokensEarned     int64      `json:"tokens_earned" gorm:"default:0"`
	BonusAwarded     bool       `json:"bonus_awarded" gorm:"default:false"`
	AwardedAt        *time.Time `json:"awarded_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
