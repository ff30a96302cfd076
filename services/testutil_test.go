package services

import (
	"fmt"
	"strings"
	"testing"

	"mood-token-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MoodUser{},
		&models.RewardActivity{},
		&models.EmotionalNft{},
		&models.TokenPool{},
		&models.PoolContribution{},
		&models.PoolDistribution{},
		&models.Referral{},
		&models.Notification{},
	))
	return db
}

func testDefaults() PoolDefaults {
	return PoolDefaults{
		TargetTokens:              1_000_000,
		CharityPercentage:         15,
		TopContributorsPercentage: 85,
		MaxTopContributors:        50,
		CharityName:               "Mental Health America",
		TokenUSDRate:              0.001,
	}
}

// economy bundles the wired services most tests need.
type economy struct {
	db           *gorm.DB
	ledger       *TokenLedgerService
	pools        *PoolService
	nfts         *NftService
	distribution *DistributionService
	referrals    *ReferralService
	notifier     *NotificationService
}

func newEconomy(t *testing.T, defaults PoolDefaults) *economy {
	t.Helper()
	db := newTestDB(t)
	notifier := NewNotificationService(db)
	ledger := NewTokenLedgerService(db)
	pools := NewPoolService(db, defaults)
	return &economy{
		db:           db,
		ledger:       ledger,
		pools:        pools,
		nfts:         NewNftService(db, ledger, pools, notifier),
		distribution: NewDistributionService(db, ledger, pools, notifier),
		referrals:    NewReferralService(db, ledger, notifier),
		notifier:     notifier,
	}
}

func seedUser(t *testing.T, db *gorm.DB, externalID, username string, tokens int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.MoodUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       username,
		EmotionTokens:  tokens,
	}).Error)
}

func seedPool(t *testing.T, db *gorm.DB, round int, total, target int64, status models.PoolStatus, defaults PoolDefaults) *models.TokenPool {
	t.Helper()
	pool := &models.TokenPool{
		ID:                        uuid.NewString(),
		TotalTokens:               total,
		TargetTokens:              target,
		DistributionRound:         round,
		Status:                    status,
		CharityPercentage:         defaults.CharityPercentage,
		TopContributorsPercentage: defaults.TopContributorsPercentage,
		MaxTopContributors:        defaults.MaxTopContributors,
	}
	require.NoError(t, db.Create(pool).Error)
	return pool
}

func balanceOf(t *testing.T, ledger *TokenLedgerService, userID string) int64 {
	t.Helper()
	balance, err := ledger.Balance(userID)
	require.NoError(t, err)
	return balance
}
