package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mood-token-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// MintCost is the fixed token price of minting an unminted NFT.
	MintCost = 350
	// BurnValue is the fixed contribution a burned NFT adds to the pool.
	BurnValue = 350
	// distributionDelay is how far out the payout date is scheduled once a
	// pool crosses its target.
	distributionDelay = 7 * 24 * time.Hour
)

// NftService drives the emotional-NFT lifecycle: unminted → minted →
// burned, with gifting as a one-shot side transition while minted. Every
// state flip is a conditional UPDATE keyed on the expected owner and
// current state, so a lost race surfaces as ErrConflict instead of
// silently clobbering.
type NftService struct {
	DB       *gorm.DB
	Ledger   *TokenLedgerService
	Pools    *PoolService
	Notifier *NotificationService
}

func NewNftService(db *gorm.DB, ledger *TokenLedgerService, pools *PoolService, notifier *NotificationService) *NftService {
	return &NftService{DB: db, Ledger: ledger, Pools: pools, Notifier: notifier}
}

// CreateUnminted creates an unminted NFT for a qualifying activity
// occurrence. Idempotent: calling it again for the same (user, activity,
// occurrence) returns the existing instance, whatever lifecycle state it
// has reached since.
//
// occurrenceKey distinguishes repeatable qualifying events (e.g. one per
// journal-streak window); detectors that only ever fire once may leave it
// empty, in which case the activity type itself is the key.
func (s *NftService) CreateUnminted(userID, emotion, rarity string, activityType models.ActivityType, occurrenceKey string) (*models.EmotionalNft, error) {
	if !activityType.Valid() {
		return nil, ErrInvalidActivity
	}
	exists, err := s.Ledger.UserExists(userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	if rarity == "" {
		rarity = "common"
	}
	if occurrenceKey == "" {
		occurrenceKey = string(activityType)
	}

	metadata, _ := json.Marshal(map[string]string{
		"emotion":       emotion,
		"rarity":        rarity,
		"activity_type": string(activityType),
		"occurrence":    occurrenceKey,
	})

	nft := &models.EmotionalNft{
		ID:            uuid.NewString(),
		UserID:        userID,
		OriginUserID:  userID,
		TokenID:       fmt.Sprintf("%s-%s", slug.Make(emotion+" "+rarity), uuid.NewString()[:8]),
		Metadata:      string(metadata),
		Emotion:       emotion,
		Rarity:        rarity,
		ActivityType:  activityType,
		OccurrenceKey: occurrenceKey,
		MintStatus:    models.MintStatusUnminted,
	}

	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(nft)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Already earned for this occurrence — return the existing one.
		var existing models.EmotionalNft
		err := s.DB.Where("origin_user_id = ? AND activity_type = ? AND occurrence_key = ?",
			userID, activityType, occurrenceKey).First(&existing).Error
		if err != nil {
			return nil, err
		}
		return &existing, nil
	}

	log.Infof("✨ Unminted NFT created for %s (%s/%s, %s)", userID, emotion, rarity, activityType)
	s.Notifier.Notify(userID, "New NFT available!",
		fmt.Sprintf("Your %s activity earned you a %s %s NFT. Mint it for %d tokens!", activityType, rarity, emotion, MintCost),
		"nft_earned", "✨")
	return nft, nil
}

// Mint pays the fixed mint cost and moves an unminted NFT to minted.
func (s *NftService) Mint(userID, nftID string) (*models.EmotionalNft, error) {
	var minted models.EmotionalNft
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		nft, err := s.loadOwned(tx, userID, nftID)
		if err != nil {
			return err
		}
		if nft.MintStatus != models.MintStatusUnminted {
			return ErrInvalidState
		}

		if _, err := s.Ledger.DebitTx(tx, userID, MintCost, models.ActivityNftMint,
			fmt.Sprintf("Minted %s NFT %s", nft.Emotion, nft.TokenID)); err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.EmotionalNft{}).
			Where("id = ? AND user_id = ? AND mint_status = ?", nftID, userID, models.MintStatusUnminted).
			Updates(map[string]interface{}{
				"mint_status": models.MintStatusMinted,
				"minted_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Someone else flipped the state between our read and write.
			return ErrConflict
		}

		minted = *nft
		minted.MintStatus = models.MintStatusMinted
		minted.MintedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("🪙 NFT minted: %s by %s (−%d tokens)", minted.TokenID, userID, MintCost)
	return &minted, nil
}

// Burn moves a minted NFT to burned and contributes its fixed value to the
// current pool round, all in one transaction: the state flip, the
// contribution row, the pool increment, and the threshold check either all
// happen or none do.
func (s *NftService) Burn(userID, nftID string) (*models.EmotionalNft, error) {
	var burned models.EmotionalNft
	var crossedTarget bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		nft, err := s.loadOwned(tx, userID, nftID)
		if err != nil {
			return err
		}
		if nft.MintStatus != models.MintStatusMinted {
			return ErrInvalidState
		}

		pool, err := s.Pools.currentPoolTx(tx)
		if err != nil {
			return err
		}
		if pool.Status != models.PoolStatusActive {
			// The round is distributing or wrapping up; burns resume when
			// the next round opens.
			return ErrInvalidState
		}

		// Ownership rides in the predicate too: a gift committing between
		// our read and this write must leave zero rows, never a burn of the
		// recipient's NFT.
		now := time.Now()
		res := tx.Model(&models.EmotionalNft{}).
			Where("id = ? AND user_id = ? AND mint_status = ?", nftID, userID, models.MintStatusMinted).
			Updates(map[string]interface{}{
				"mint_status": models.MintStatusBurned,
				"burned_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		contribution := &models.PoolContribution{
			ID:              uuid.NewString(),
			UserID:          userID,
			NftID:           nftID,
			TokenAmount:     BurnValue,
			PoolRound:       pool.DistributionRound,
			TransactionType: "nft_burn",
		}
		if err := tx.Create(contribution).Error; err != nil {
			return err
		}

		// Increment guarded on status so a racing distribution claim can
		// never swallow a contribution that missed the round.
		inc := tx.Model(&models.TokenPool{}).
			Where("id = ? AND status = ?", pool.ID, models.PoolStatusActive).
			Update("total_tokens", gorm.Expr("total_tokens + ?", BurnValue))
		if inc.Error != nil {
			return inc.Error
		}
		if inc.RowsAffected == 0 {
			return ErrConflict
		}

		// Threshold check rides on the same guarded pattern: only one of
		// the burns racing past the target flips the pool.
		next := now.Add(distributionDelay)
		flip := tx.Model(&models.TokenPool{}).
			Where("id = ? AND status = ? AND total_tokens >= target_tokens", pool.ID, models.PoolStatusActive).
			Updates(map[string]interface{}{
				"status":                 models.PoolStatusDistributing,
				"next_distribution_date": next,
			})
		if flip.Error != nil {
			return flip.Error
		}
		crossedTarget = flip.RowsAffected > 0

		burned = *nft
		burned.MintStatus = models.MintStatusBurned
		burned.BurnedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("🔥 NFT burned: %s by %s (+%d to pool)", burned.TokenID, userID, BurnValue)
	s.Notifier.Notify(userID, "NFT burned",
		fmt.Sprintf("Your %s NFT added %d tokens to the community pool. Thank you!", burned.Emotion, BurnValue),
		"nft_burned", "🔥")
	if crossedTarget {
		log.Infof("🎯 Token pool reached its target — round now distributing")
		s.Notifier.Broadcast("Pool target reached!",
			"The community token pool hit its target. Top contributors will be rewarded and the charity donation is on its way.",
			"pool_target", "🎯")
	}
	return &burned, nil
}

// Gift transfers a minted, never-gifted NFT to another user. GiftedTo is a
// one-shot flag: an NFT can change hands at most once.
func (s *NftService) Gift(fromUserID, toUserID, nftID string) (*models.EmotionalNft, error) {
	if fromUserID == toUserID {
		return nil, ErrSelfGift
	}
	exists, err := s.Ledger.UserExists(toUserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	var gifted models.EmotionalNft
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		nft, err := s.loadOwned(tx, fromUserID, nftID)
		if err != nil {
			return err
		}
		if nft.MintStatus != models.MintStatusMinted {
			return ErrInvalidState
		}
		if nft.GiftedTo != nil {
			return ErrAlreadyDone
		}

		res := tx.Model(&models.EmotionalNft{}).
			Where("id = ? AND user_id = ? AND mint_status = ? AND gifted_to IS NULL",
				nftID, fromUserID, models.MintStatusMinted).
			Updates(map[string]interface{}{
				"user_id":   toUserID,
				"gifted_to": toUserID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		gifted = *nft
		gifted.UserID = toUserID
		gifted.GiftedTo = &toUserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("🎁 NFT gifted: %s from %s to %s", gifted.TokenID, fromUserID, toUserID)
	s.Notifier.Notify(toUserID, "You received an NFT!",
		fmt.Sprintf("A friend gifted you their %s %s NFT.", gifted.Rarity, gifted.Emotion),
		"nft_gifted", "🎁")
	return &gifted, nil
}

// SetDisplayed toggles whether the NFT shows on the owner's collection page.
func (s *NftService) SetDisplayed(userID, nftID string, displayed bool) error {
	res := s.DB.Model(&models.EmotionalNft{}).
		Where("id = ? AND user_id = ?", nftID, userID).
		Update("is_displayed", displayed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.diagnoseMissing(userID, nftID)
	}
	return nil
}

// ListFor returns a user's NFTs, optionally filtered by mint status.
func (s *NftService) ListFor(userID string, status models.MintStatus) ([]models.EmotionalNft, error) {
	query := s.DB.Where("user_id = ?", userID)
	if status != "" {
		if !status.Valid() {
			return nil, ErrInvalidState
		}
		query = query.Where("mint_status = ?", status)
	}
	var nfts []models.EmotionalNft
	err := query.Order("created_at DESC").Find(&nfts).Error
	return nfts, err
}

func (s *NftService) loadOwned(tx *gorm.DB, userID, nftID string) (*models.EmotionalNft, error) {
	var nft models.EmotionalNft
	if err := tx.Where("id = ?", nftID).First(&nft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if nft.UserID != userID {
		return nil, ErrNotOwner
	}
	return &nft, nil
}

func (s *NftService) diagnoseMissing(userID, nftID string) error {
	var nft models.EmotionalNft
	if err := s.DB.Where("id = ?", nftID).First(&nft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if nft.UserID != userID {
		return ErrNotOwner
	}
	return ErrConflict
}
