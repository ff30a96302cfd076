package models

import (
	"time"
)

// MintStatus is the NFT lifecycle state. Transitions are strictly forward:
// unminted → minted → burned. Burned is terminal.
type MintStatus string

const (
	MintStatusUnminted MintStatus = "unminted"
	MintStatusMinted   MintStatus = "minted"
	MintStatusBurned   MintStatus = "burned"
)

// Valid reports whether s is a known mint status.
func (s MintStatus) Valid() bool {
	return s == MintStatusUnminted || s == MintStatusMinted || s == MintStatusBurned
}

// EmotionalNft is one collectible instance, created unminted when a
// qualifying user activity is detected.
//
// UserID is the current owner and changes on gift; OriginUserID is the user
// whose activity earned the NFT and never changes — the unique index on
// (origin_user_id, activity_type, occurrence_key) keeps CreateUnminted
// idempotent per qualifying occurrence without colliding after a gift.
type EmotionalNft struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string `gorm:"index;not null" json:"user_id"`
	OriginUserID  string `gorm:"not null;uniqueIndex:idx_nft_occurrence,priority:1" json:"origin_user_id"`
	TokenID       string `gorm:"uniqueIndex;not null" json:"token_id"`
	Metadata      string `gorm:"type:text" json:"metadata"` // serialized descriptor
	Emotion       string `gorm:"type:varchar(32);not null" json:"emotion"`
	Rarity        string `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	ActivityType  ActivityType `gorm:"type:varchar(32);not null;uniqueIndex:idx_nft_occurrence,priority:2" json:"activity_type"`
	OccurrenceKey string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_nft_occurrence,priority:3" json:"occurrence_key"`

	MintStatus     MintStatus `gorm:"type:varchar(16);not null;default:'unminted';index" json:"mint_status"`
	EvolutionLevel int        `gorm:"default:1" json:"evolution_level"`
	IsDisplayed    bool       `gorm:"default:true" json:"is_displayed"`
	GiftedTo       *string    `gorm:"index" json:"gifted_to,omitempty"` // one-shot, settable only while minted

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	MintedAt  *time.Time `json:"minted_at,omitempty"`
	BurnedAt  *time.Time `json:"burned_at,omitempty"`
}
