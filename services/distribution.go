package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"mood-token-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DistributionResult summarizes one completed payout round.
type DistributionResult struct {
	PoolRound       int    `json:"pool_round"`
	TotalTokens     int64  `json:"total_tokens"`
	Winners         int    `json:"winners"`
	TokensPerWinner int64  `json:"tokens_per_winner"`
	CharityTokens   int64  `json:"charity_tokens"`
	CharityName     string `json:"charity_name"`
	CharityUSD      float64 `json:"charity_usd"`
	NewRound        int    `json:"new_round"`
}

// DistributionService pays out a distributing pool: flat per-slot shares to
// the top contributors, the charity cut as one record, then rolls the pool
// to the next round. Triggered by an admin, never by the clock.
type DistributionService struct {
	DB       *gorm.DB
	Ledger   *TokenLedgerService
	Pools    *PoolService
	Notifier *NotificationService

	mu sync.Mutex // in-process single flight; the DB-level status claim guards across processes
}

func NewDistributionService(db *gorm.DB, ledger *TokenLedgerService, pools *PoolService, notifier *NotificationService) *DistributionService {
	return &DistributionService{DB: db, Ledger: ledger, Pools: pools, Notifier: notifier}
}

// Distribute runs the payout for the pool currently in distributing state.
// Returns ErrInvalidState when no pool is distributing — including when the
// round was already completed, so invoking it twice pays out exactly once.
//
// The transaction opens by claiming the pool with a conditional UPDATE on
// status; the loser of a concurrent invocation finds zero rows and aborts
// with ErrConflict before any payout is written.
func (s *DistributionService) Distribute() (*DistributionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result DistributionResult
	var winners []ContributorRank

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var pool models.TokenPool
		err := tx.Where("status = ?", models.PoolStatusDistributing).
			Order("distribution_round DESC").
			First(&pool).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidState // nothing to distribute
		}
		if err != nil {
			return err
		}

		now := time.Now()
		claim := tx.Model(&models.TokenPool{}).
			Where("id = ? AND status = ?", pool.ID, models.PoolStatusDistributing).
			Updates(map[string]interface{}{
				"status":               models.PoolStatusCompleted,
				"last_distribution_at": now,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrConflict
		}

		topTotal := pool.TotalTokens * int64(pool.TopContributorsPercentage) / 100
		charityTotal := pool.TotalTokens * int64(pool.CharityPercentage) / 100
		perSlot := topTotal / int64(pool.MaxTopContributors)

		winners, err = topContributorsTx(tx, pool.DistributionRound, pool.MaxTopContributors)
		if err != nil {
			return err
		}

		// A round too small for its slot count floors the share to zero; the
		// round still completes (charity cut and rollover included) rather
		// than wedging in distributing forever.
		paid := 0
		if perSlot > 0 {
			paid = len(winners)
			for i := range winners {
				rank := i + 1
				if _, err := s.Ledger.CreditTx(tx, winners[i].UserID, perSlot, models.ActivityPoolReward,
					fmt.Sprintf("Pool round %d top contributor reward (rank %d)", pool.DistributionRound, rank)); err != nil {
					return err
				}
				payout := &models.PoolDistribution{
					ID:          uuid.NewString(),
					UserID:      winners[i].UserID,
					PoolRound:   pool.DistributionRound,
					TokenAmount: perSlot,
					Rank:        &rank,
				}
				if err := tx.Create(payout).Error; err != nil {
					return err
				}
			}
		} else if len(winners) > 0 {
			log.Warnf("⚠️ Pool round %d too small to pay %d slots (%d tokens available) — contributors skipped",
				pool.DistributionRound, pool.MaxTopContributors, topTotal)
		}

		charityName := s.Pools.Defaults.CharityName
		charityRow := &models.PoolDistribution{
			ID:          uuid.NewString(),
			PoolRound:   pool.DistributionRound,
			TokenAmount: charityTotal,
			IsCharity:   true,
			CharityName: &charityName,
		}
		if err := tx.Create(charityRow).Error; err != nil {
			return err
		}

		nextPool := &models.TokenPool{
			ID:                        uuid.NewString(),
			TotalTokens:               0,
			TargetTokens:              pool.TargetTokens,
			DistributionRound:         pool.DistributionRound + 1,
			Status:                    models.PoolStatusActive,
			CharityPercentage:         pool.CharityPercentage,
			TopContributorsPercentage: pool.TopContributorsPercentage,
			MaxTopContributors:        pool.MaxTopContributors,
		}
		if err := tx.Create(nextPool).Error; err != nil {
			return err
		}

		result = DistributionResult{
			PoolRound:       pool.DistributionRound,
			TotalTokens:     pool.TotalTokens,
			Winners:         paid,
			TokensPerWinner: perSlot,
			CharityTokens:   charityTotal,
			CharityName:     charityName,
			CharityUSD:      float64(charityTotal) * s.Pools.Defaults.TokenUSDRate,
			NewRound:        nextPool.DistributionRound,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Notifications go out after commit; a failed notification never undoes
	// a payout.
	if result.TokensPerWinner > 0 {
		for i := range winners {
			s.Notifier.Notify(winners[i].UserID, "Pool reward!",
				fmt.Sprintf("You ranked #%d in pool round %d and earned %d tokens.", i+1, result.PoolRound, result.TokensPerWinner),
				"pool_reward", "🏆")
		}
	}
	s.Notifier.Broadcast("Community pool distributed!",
		fmt.Sprintf("Round %d is complete: %d tokens (~$%.2f) donated to %s. Round %d is now open!",
			result.PoolRound, result.CharityTokens, result.CharityUSD, result.CharityName, result.NewRound),
		"pool_completed", "💝")

	log.Infof("💸 Distributed pool round %d: %d winners × %d tokens, %d to charity, round %d opened",
		result.PoolRound, result.Winners, result.TokensPerWinner, result.CharityTokens, result.NewRound)
	return &result, nil
}
