package models

import (
	"time"
)

// ActivityType classifies every token-affecting event. Closed set —
// values are validated at the service boundary, never trusted from callers.
type ActivityType string

const (
	ActivityJournalEntry        ActivityType = "journal_entry"
	ActivityDailyLogin          ActivityType = "daily_login"
	ActivityChallengeCompletion ActivityType = "challenge_completion"
	ActivityBadgeEarned         ActivityType = "badge_earned"
	ActivityTokenTransfer       ActivityType = "token_transfer"
	ActivityHelpOthers          ActivityType = "help_others"
	ActivityVideoPost           ActivityType = "video_post"
	ActivityMilestoneShare      ActivityType = "milestone_share"
	ActivityReferralBonus       ActivityType = "referral_bonus"
	ActivityNftMint             ActivityType = "nft_mint"
	ActivityPoolReward          ActivityType = "pool_reward"
)

var validActivityTypes = map[ActivityType]bool{
	ActivityJournalEntry:        true,
	ActivityDailyLogin:          true,
	ActivityChallengeCompletion: true,
	ActivityBadgeEarned:         true,
	ActivityTokenTransfer:       true,
	ActivityHelpOthers:          true,
	ActivityVideoPost:           true,
	ActivityMilestoneShare:      true,
	ActivityReferralBonus:       true,
	ActivityNftMint:             true,
	ActivityPoolReward:          true,
}

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	return validActivityTypes[t]
}

// RewardActivity is one immutable ledger entry. Created on every balance
// mutation, never updated or deleted. TokensEarned is signed: spends are
// negative, earns positive.
//
// ActivityDay is set only for daily-capped awards ("YYYY-MM-DD", server
// local time); the unique index on (user_id, activity_type, activity_day)
// makes the cap check-and-insert atomic. NULL days stay outside the index,
// so uncapped events can repeat freely.
type RewardActivity struct {
	ID           string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string       `gorm:"not null;index;uniqueIndex:idx_reward_daily,priority:1" json:"user_id"` // external user ID
	ActivityType ActivityType `gorm:"type:varchar(32);not null;uniqueIndex:idx_reward_daily,priority:2" json:"activity_type"`
	TokensEarned int64        `gorm:"not null" json:"tokens_earned"`
	Description  string       `gorm:"type:text" json:"description"`
	ActivityDay  *string      `gorm:"type:varchar(10);uniqueIndex:idx_reward_daily,priority:3" json:"-"`
	CreatedAt    time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}
