package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"mood-token-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PoolDefaults seed newly created pool rounds. Existing rounds keep the
// values they were created with.
type PoolDefaults struct {
	TargetTokens              int64
	CharityPercentage         int
	TopContributorsPercentage int
	MaxTopContributors        int
	CharityName               string
	TokenUSDRate              float64
}

// Validate rejects configurations that would create a broken round.
func (d PoolDefaults) Validate() error {
	if d.TargetTokens <= 0 {
		return fmt.Errorf("pool target must be positive, got %d", d.TargetTokens)
	}
	if d.MaxTopContributors <= 0 {
		return fmt.Errorf("max top contributors must be positive, got %d", d.MaxTopContributors)
	}
	if d.CharityPercentage < 0 || d.TopContributorsPercentage < 0 {
		return fmt.Errorf("percentages must be non-negative")
	}
	if d.CharityPercentage+d.TopContributorsPercentage != 100 {
		return fmt.Errorf("charity (%d%%) and top-contributor (%d%%) percentages must sum to 100",
			d.CharityPercentage, d.TopContributorsPercentage)
	}
	return nil
}

// ContributorRank is one row of the per-round contribution ranking.
// Ties on total break toward the earliest first contribution.
type ContributorRank struct {
	UserID            string    `json:"user_id"`
	Username          string    `json:"username"`
	TotalTokens       int64     `json:"total_tokens"`
	FirstContribution time.Time `json:"first_contribution"`
}

// PoolStats is the derived, read-only view over the current round. Nothing
// in here is ever persisted.
type PoolStats struct {
	DistributionRound    int               `json:"distribution_round"`
	Status               models.PoolStatus `json:"status"`
	TotalTokens          int64             `json:"total_tokens"`
	TargetTokens         int64             `json:"target_tokens"`
	ProgressPercent      float64           `json:"progress_percent"`
	TotalContributors    int               `json:"total_contributors"`
	TodayBurned          int64             `json:"today_burned"`
	TopContributor       *ContributorRank  `json:"top_contributor,omitempty"`
	CharityImpactUSD     float64           `json:"charity_impact_usd"`
	NextDistributionDate *time.Time        `json:"next_distribution_date,omitempty"`

	// Per-user figures, present only when stats are requested with a user.
	UserRank         *int   `json:"user_rank,omitempty"`
	UserTokensBurned *int64 `json:"user_tokens_burned,omitempty"`
	ProjectedRank    *int   `json:"projected_rank_if_burn_one_more,omitempty"`
}

// PoolService owns the round lifecycle and the contribution ranking.
type PoolService struct {
	DB       *gorm.DB
	Defaults PoolDefaults
}

func NewPoolService(db *gorm.DB, defaults PoolDefaults) *PoolService {
	return &PoolService{DB: db, Defaults: defaults}
}

// EnsureCurrentPool makes sure at least one pool round exists, creating
// round 1 from the defaults on first boot. Idempotent.
func (s *PoolService) EnsureCurrentPool() (*models.TokenPool, error) {
	pool, err := s.CurrentPool()
	if err == nil {
		return pool, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.Defaults.Validate(); err != nil {
		return nil, err
	}
	pool = &models.TokenPool{
		ID:                        uuid.NewString(),
		TotalTokens:               0,
		TargetTokens:              s.Defaults.TargetTokens,
		DistributionRound:         1,
		Status:                    models.PoolStatusActive,
		CharityPercentage:         s.Defaults.CharityPercentage,
		TopContributorsPercentage: s.Defaults.TopContributorsPercentage,
		MaxTopContributors:        s.Defaults.MaxTopContributors,
	}
	if err := s.DB.Create(pool).Error; err != nil {
		return nil, err
	}
	log.Infof("🏦 Opened token pool round 1 (target %d tokens)", pool.TargetTokens)
	return pool, nil
}

// CurrentPool returns the pool with the highest round number. New
// contributions only ever apply to this row, and only while it is active.
func (s *PoolService) CurrentPool() (*models.TokenPool, error) {
	return s.currentPoolTx(s.DB)
}

func (s *PoolService) currentPoolTx(tx *gorm.DB) (*models.TokenPool, error) {
	var pool models.TokenPool
	err := tx.Order("distribution_round DESC").First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// TopContributors returns the ranked contributor list for a round, with
// usernames resolved from the user mirror.
func (s *PoolService) TopContributors(round, limit int) ([]ContributorRank, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return topContributorsTx(s.DB, round, limit)
}

func topContributorsTx(tx *gorm.DB, round, limit int) ([]ContributorRank, error) {
	ranks, err := rankContributorsTx(tx, round)
	if err != nil {
		return nil, err
	}
	if limit < len(ranks) {
		ranks = ranks[:limit]
	}
	if err := fillUsernames(tx, ranks); err != nil {
		return nil, err
	}
	return ranks, nil
}

// rankContributorsTx aggregates a round's contributions per user and sorts
// them: total descending, ties broken by earliest first contribution, then
// by user ID so the order is fully deterministic.
func rankContributorsTx(tx *gorm.DB, round int) ([]ContributorRank, error) {
	var contributions []models.PoolContribution
	if err := tx.Where("pool_round = ?", round).
		Order("contribution_date ASC").
		Find(&contributions).Error; err != nil {
		return nil, err
	}

	byUser := make(map[string]*ContributorRank)
	order := make([]string, 0)
	for i := range contributions {
		c := &contributions[i]
		rank, ok := byUser[c.UserID]
		if !ok {
			rank = &ContributorRank{UserID: c.UserID, FirstContribution: c.ContributionDate}
			byUser[c.UserID] = rank
			order = append(order, c.UserID)
		}
		rank.TotalTokens += c.TokenAmount
		if c.ContributionDate.Before(rank.FirstContribution) {
			rank.FirstContribution = c.ContributionDate
		}
	}

	ranks := make([]ContributorRank, 0, len(order))
	for _, id := range order {
		ranks = append(ranks, *byUser[id])
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].TotalTokens != ranks[j].TotalTokens {
			return ranks[i].TotalTokens > ranks[j].TotalTokens
		}
		if !ranks[i].FirstContribution.Equal(ranks[j].FirstContribution) {
			return ranks[i].FirstContribution.Before(ranks[j].FirstContribution)
		}
		return ranks[i].UserID < ranks[j].UserID
	})
	return ranks, nil
}

func fillUsernames(tx *gorm.DB, ranks []ContributorRank) error {
	if len(ranks) == 0 {
		return nil
	}
	ids := make([]string, len(ranks))
	for i := range ranks {
		ids[i] = ranks[i].UserID
	}
	var users []models.MoodUser
	if err := tx.Select("external_user_id", "username").
		Where("external_user_id IN ?", ids).
		Find(&users).Error; err != nil {
		return err
	}
	names := make(map[string]string, len(users))
	for i := range users {
		names[users[i].ExternalUserID] = users[i].Username
	}
	for i := range ranks {
		ranks[i].Username = names[ranks[i].UserID]
	}
	return nil
}

// Stats computes the derived view over the current round. Pass an empty
// userID to omit the per-user figures.
func (s *PoolService) Stats(userID string) (*PoolStats, error) {
	pool, err := s.CurrentPool()
	if err != nil {
		return nil, err
	}

	stats := &PoolStats{
		DistributionRound:    pool.DistributionRound,
		Status:               pool.Status,
		TotalTokens:          pool.TotalTokens,
		TargetTokens:         pool.TargetTokens,
		NextDistributionDate: pool.NextDistributionDate,
	}
	if pool.TargetTokens > 0 {
		stats.ProgressPercent = float64(pool.TotalTokens) / float64(pool.TargetTokens) * 100
	}
	charityTokens := pool.TotalTokens * int64(pool.CharityPercentage) / 100
	stats.CharityImpactUSD = float64(charityTokens) * s.Defaults.TokenUSDRate

	ranks, err := rankContributorsTx(s.DB, pool.DistributionRound)
	if err != nil {
		return nil, err
	}
	stats.TotalContributors = len(ranks)

	if len(ranks) > 0 {
		if err := fillUsernames(s.DB, ranks[:1]); err != nil {
			return nil, err
		}
		top := ranks[0]
		stats.TopContributor = &top
	}

	year, month, day := time.Now().Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	var todayBurned *int64
	if err := s.DB.Model(&models.PoolContribution{}).
		Select("SUM(token_amount)").
		Where("pool_round = ? AND contribution_date >= ?", pool.DistributionRound, midnight).
		Scan(&todayBurned).Error; err != nil {
		return nil, err
	}
	if todayBurned != nil {
		stats.TodayBurned = *todayBurned
	}

	if userID != "" {
		fillUserStats(stats, ranks, userID)
	}
	return stats, nil
}

// fillUserStats derives the caller's rank, burned total, and the rank they
// would hold after one more burn. Equal totals outrank only when the other
// contributor's first contribution is older.
func fillUserStats(stats *PoolStats, ranks []ContributorRank, userID string) {
	var mine *ContributorRank
	for i := range ranks {
		if ranks[i].UserID == userID {
			mine = &ranks[i]
			rank := i + 1
			stats.UserRank = &rank
			stats.UserTokensBurned = &ranks[i].TotalTokens
			break
		}
	}

	projectedTotal := int64(BurnValue)
	firstAt := time.Now()
	if mine != nil {
		projectedTotal = mine.TotalTokens + BurnValue
		firstAt = mine.FirstContribution
	}
	projected := 1
	for i := range ranks {
		if ranks[i].UserID == userID {
			continue
		}
		if ranks[i].TotalTokens > projectedTotal ||
			(ranks[i].TotalTokens == projectedTotal && ranks[i].FirstContribution.Before(firstAt)) {
			projected++
		}
	}
	stats.ProjectedRank = &projected
}
