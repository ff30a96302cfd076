package services

import (
	"errors"
	"fmt"
	"time"

	"mood-token-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralBountyTokens is the one-time token bounty for a successful referral.
const ReferralBountyTokens = 200

// ReferralService records referrals and pays the referrer a one-time token
// bounty once the referred user qualifies (first qualifying activity,
// signalled by the surrounding application).
type ReferralService struct {
	DB       *gorm.DB
	Ledger   *TokenLedgerService
	Notifier *NotificationService
}

func NewReferralService(db *gorm.DB, ledger *TokenLedgerService, notifier *NotificationService) *ReferralService {
	return &ReferralService{DB: db, Ledger: ledger, Notifier: notifier}
}

// Record registers that referredID joined via referrerID's code. Idempotent:
// the unique index on referred_id means a second registration is a no-op
// that returns the existing row.
func (s *ReferralService) Record(referrerID, referredID, code string) (*models.Referral, error) {
	if referrerID == referredID {
		return nil, ErrSelfGift
	}
	for _, id := range []string{referrerID, referredID} {
		exists, err := s.Ledger.UserExists(id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
	}

	referral := &models.Referral{
		ID:               uuid.NewString(),
		ReferrerID:       referrerID,
		ReferredID:       referredID,
		ReferralCodeUsed: code,
	}
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(referral)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var existing models.Referral
		if err := s.DB.Where("referred_id = ?", referredID).First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return referral, nil
}

// Award pays the referrer's bounty for a referral, exactly once. The flag
// flip is a conditional UPDATE on bonus_awarded, so concurrent award
// signals cannot double-pay.
func (s *ReferralService) Award(referredID string) (*models.Referral, error) {
	var awarded models.Referral
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var referral models.Referral
		if err := tx.Where("referred_id = ?", referredID).First(&referral).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if referral.BonusAwarded {
			return ErrAlreadyDone
		}

		now := time.Now()
		res := tx.Model(&models.Referral{}).
			Where("id = ? AND bonus_awarded = ?", referral.ID, false).
			Updates(map[string]interface{}{
				"bonus_awarded": true,
				"tokens_earned": int64(ReferralBountyTokens),
				"awarded_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyDone
		}

		if _, err := s.Ledger.CreditTx(tx, referral.ReferrerID, ReferralBountyTokens, models.ActivityReferralBonus,
			fmt.Sprintf("Referral bounty for inviting %s", referredID)); err != nil {
			return err
		}

		awarded = referral
		awarded.BonusAwarded = true
		awarded.TokensEarned = ReferralBountyTokens
		awarded.AwardedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("🤝 Referral bounty paid: %s +%d tokens for %s", awarded.ReferrerID, ReferralBountyTokens, referredID)
	s.Notifier.Notify(awarded.ReferrerID, "Referral bounty earned!",
		fmt.Sprintf("Your invite qualified — %d tokens added to your balance.", ReferralBountyTokens),
		"referral_bonus", "🤝")
	return &awarded, nil
}
