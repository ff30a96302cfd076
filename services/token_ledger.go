package services

import (
	"errors"
	"time"

	"mood-token-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenLedgerService owns every emotion-token balance mutation. Each
// successful credit/debit appends exactly one RewardActivity row inside the
// same DB transaction, so the balance and the log can never drift apart.
type TokenLedgerService struct {
	DB *gorm.DB
}

func NewTokenLedgerService(db *gorm.DB) *TokenLedgerService {
	return &TokenLedgerService{DB: db}
}

// Balance returns the current token balance for a user.
func (s *TokenLedgerService) Balance(userID string) (int64, error) {
	var user models.MoodUser
	if err := s.DB.Select("emotion_tokens").Where("external_user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return user.EmotionTokens, nil
}

// Credit adds tokens to a user's balance and records the activity.
func (s *TokenLedgerService) Credit(userID string, amount int64, activityType models.ActivityType, description string) (*models.RewardActivity, error) {
	var activity *models.RewardActivity
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		activity, txErr = s.CreditTx(tx, userID, amount, activityType, description)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// Debit removes tokens from a user's balance and records the activity.
// Fails with ErrInsufficientFunds when the balance cannot cover the amount.
func (s *TokenLedgerService) Debit(userID string, amount int64, activityType models.ActivityType, description string) (*models.RewardActivity, error) {
	var activity *models.RewardActivity
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		activity, txErr = s.DebitTx(tx, userID, amount, activityType, description)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// CreditTx is Credit running inside an existing transaction, so callers
// like the distribution engine can make payouts atomic with their own rows.
func (s *TokenLedgerService) CreditTx(tx *gorm.DB, userID string, amount int64, activityType models.ActivityType, description string) (*models.RewardActivity, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !activityType.Valid() {
		return nil, ErrInvalidActivity
	}

	res := tx.Model(&models.MoodUser{}).
		Where("external_user_id = ?", userID).
		Update("emotion_tokens", gorm.Expr("emotion_tokens + ?", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.appendActivity(tx, userID, activityType, amount, description, nil)
}

// DebitTx is Debit running inside an existing transaction. The balance
// guard lives in the UPDATE itself (emotion_tokens >= amount), so two
// concurrent debits can never both succeed past the available balance.
func (s *TokenLedgerService) DebitTx(tx *gorm.DB, userID string, amount int64, activityType models.ActivityType, description string) (*models.RewardActivity, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !activityType.Valid() {
		return nil, ErrInvalidActivity
	}

	res := tx.Model(&models.MoodUser{}).
		Where("external_user_id = ? AND emotion_tokens >= ?", userID, amount).
		Update("emotion_tokens", gorm.Expr("emotion_tokens - ?", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.MoodUser{}).Where("external_user_id = ?", userID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientFunds
	}

	return s.appendActivity(tx, userID, activityType, -amount, description, nil)
}

// AwardDaily credits tokens at most once per (user, activity type,
// calendar day). The uniqueness constraint on the activity log does the
// arbitration: the insert either lands or hits ON CONFLICT DO NOTHING, so
// N concurrent attempts produce exactly one reward.
func (s *TokenLedgerService) AwardDaily(userID string, amount int64, activityType models.ActivityType, description string) (*models.RewardActivity, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !activityType.Valid() {
		return nil, ErrInvalidActivity
	}

	day := time.Now().Format("2006-01-02")
	activity := &models.RewardActivity{
		ID:           uuid.NewString(),
		UserID:       userID,
		ActivityType: activityType,
		TokensEarned: amount,
		Description:  description,
		ActivityDay:  &day,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(activity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyDone
		}

		upd := tx.Model(&models.MoodUser{}).
			Where("external_user_id = ?", userID).
			Update("emotion_tokens", gorm.Expr("emotion_tokens + ?", amount))
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("🪙 Daily award: %s +%d (%s)", userID, amount, activityType)
	return activity, nil
}

// ListActivities returns a user's reward activity, newest first.
func (s *TokenLedgerService) ListActivities(userID string, limit int) ([]models.RewardActivity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var activities []models.RewardActivity
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// UserExists reports whether the user mirror knows this external ID.
func (s *TokenLedgerService) UserExists(userID string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.MoodUser{}).Where("external_user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (s *TokenLedgerService) appendActivity(tx *gorm.DB, userID string, activityType models.ActivityType, signedAmount int64, description string, day *string) (*models.RewardActivity, error) {
	activity := &models.RewardActivity{
		ID:           uuid.NewString(),
		UserID:       userID,
		ActivityType: activityType,
		TokensEarned: signedAmount,
		Description:  description,
		ActivityDay:  day,
	}
	if err := tx.Create(activity).Error; err != nil {
		return nil, err
	}
	return activity, nil
}
