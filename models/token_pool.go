package models

import (
	"time"
)

// PoolStatus is the round state: active → distributing → completed.
// A new row with distribution_round+1 is created when a round completes.
type PoolStatus string

const (
	PoolStatusActive       PoolStatus = "active"
	PoolStatusDistributing PoolStatus = "distributing"
	PoolStatusCompleted    PoolStatus = "completed"
)

// TokenPool is the singleton-per-round aggregate that accumulates
// burned-NFT token value toward a target. TotalTokens only increases, only
// via burn contributions, and only while the pool is active.
type TokenPool struct {
	ID                string     `gorm:"primaryKey;type:uuid" json:"id"`
	TotalTokens       int64      `gorm:"not null;default:0" json:"total_tokens"`
	TargetTokens      int64      `gorm:"not null" json:"target_tokens"`
	DistributionRound int        `gorm:"uniqueIndex;not null" json:"distribution_round"`
	Status            PoolStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`

	// CharityPercentage + TopContributorsPercentage must sum to 100,
	// validated at pool creation.
	CharityPercentage         int `gorm:"not null" json:"charity_percentage"`
	TopContributorsPercentage int `gorm:"not null" json:"top_contributors_percentage"`
	MaxTopContributors        int `gorm:"not null" json:"max_top_contributors"`

	// NextDistributionDate is the scheduled payout date, written once when
	// the pool crosses its target; the reminder job tracks its own clock in
	// LastReminderAt and never touches it.
	NextDistributionDate *time.Time `json:"next_distribution_date,omitempty"`
	LastDistributionAt   *time.Time `json:"last_distribution_at,omitempty"`
	LastReminderAt       *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PoolContribution is one immutable burn record feeding the pool. The
// unique index on NftID guarantees exactly one contribution per NFT burn.
type PoolContribution struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID           string    `gorm:"index;not null" json:"user_id"`
	NftID            string    `gorm:"uniqueIndex;not null" json:"nft_id"`
	TokenAmount      int64     `gorm:"not null" json:"token_amount"`
	PoolRound        int       `gorm:"index;not null" json:"pool_round"`
	TransactionType  string    `gorm:"type:varchar(32);not null;default:'nft_burn'" json:"transaction_type"`
	ContributionDate time.Time `gorm:"autoCreateTime;index" json:"contribution_date"`
}

// PoolDistribution is one immutable payout record: one row per rewarded
// contributor per round plus exactly one charity row (empty UserID,
// IsCharity true).
type PoolDistribution struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"index" json:"user_id"` // empty for the charity row
	PoolRound   int       `gorm:"index;not null" json:"pool_round"`
	TokenAmount int64     `gorm:"not null" json:"token_amount"`
	Rank        *int      `json:"rank,omitempty"`
	IsCharity   bool      `gorm:"default:false" json:"is_charity"`
	CharityName *string   `json:"charity_name,omitempty"`
	Status      string    `gorm:"type:varchar(16);not null;default:'paid'" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
