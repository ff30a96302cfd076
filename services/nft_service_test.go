package services

import (
	"testing"
	"time"

	"mood-token-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUnmintedIsIdempotent(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 0)

	first, err := eco.nfts.CreateUnminted("user-1", "joy", "rare", models.ActivityJournalEntry, "streak-7")
	require.NoError(t, err)
	assert.Equal(t, models.MintStatusUnminted, first.MintStatus)
	assert.Equal(t, "user-1", first.UserID)

	second, err := eco.nfts.CreateUnminted("user-1", "joy", "rare", models.ActivityJournalEntry, "streak-7")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, eco.db.Model(&models.EmotionalNft{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// A new occurrence of the same activity earns a fresh NFT.
	third, err := eco.nfts.CreateUnminted("user-1", "joy", "rare", models.ActivityJournalEntry, "streak-14")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)

	_, err = eco.nfts.CreateUnminted("ghost", "joy", "rare", models.ActivityJournalEntry, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = eco.nfts.CreateUnminted("user-1", "joy", "rare", models.ActivityType("made_up"), "")
	assert.ErrorIs(t, err, ErrInvalidActivity)
}

func TestMintDebitsAndTransitions(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 500)

	nft, err := eco.nfts.CreateUnminted("user-1", "calm", "common", models.ActivityDailyLogin, "")
	require.NoError(t, err)

	minted, err := eco.nfts.Mint("user-1", nft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MintStatusMinted, minted.MintStatus)
	require.NotNil(t, minted.MintedAt)
	assert.Equal(t, int64(150), balanceOf(t, eco.ledger, "user-1"))

	activities, err := eco.ledger.ListActivities("user-1", 10)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivityNftMint, activities[0].ActivityType)
	assert.Equal(t, int64(-350), activities[0].TokensEarned)

	// Minting again is an invalid state, not a second charge.
	_, err = eco.nfts.Mint("user-1", nft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(150), balanceOf(t, eco.ledger, "user-1"))
}

func TestMintRequiresOwnershipAndFunds(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 100)
	seedUser(t, eco.db, "user-2", "grace", 1000)

	nft, err := eco.nfts.CreateUnminted("user-1", "hope", "common", models.ActivityVideoPost, "")
	require.NoError(t, err)

	_, err = eco.nfts.Mint("user-2", nft.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = eco.nfts.Mint("user-1", nft.ID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(100), balanceOf(t, eco.ledger, "user-1"))

	_, err = eco.nfts.Mint("user-1", "no-such-nft")
	assert.ErrorIs(t, err, ErrNotFound)

	// A failed mint leaves the NFT unminted.
	var reloaded models.EmotionalNft
	require.NoError(t, eco.db.First(&reloaded, "id = ?", nft.ID).Error)
	assert.Equal(t, models.MintStatusUnminted, reloaded.MintStatus)
}

func TestBurnContributesToPool(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 500)
	_, err := eco.pools.EnsureCurrentPool()
	require.NoError(t, err)

	nft, err := eco.nfts.CreateUnminted("user-1", "joy", "rare", models.ActivityJournalEntry, "")
	require.NoError(t, err)
	_, err = eco.nfts.Mint("user-1", nft.ID)
	require.NoError(t, err)

	burned, err := eco.nfts.Burn("user-1", nft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MintStatusBurned, burned.MintStatus)
	require.NotNil(t, burned.BurnedAt)

	pool, err := eco.pools.CurrentPool()
	require.NoError(t, err)
	assert.Equal(t, int64(BurnValue), pool.TotalTokens)
	assert.Equal(t, models.PoolStatusActive, pool.Status)

	var contribution models.PoolContribution
	require.NoError(t, eco.db.First(&contribution, "nft_id = ?", nft.ID).Error)
	assert.Equal(t, "user-1", contribution.UserID)
	assert.Equal(t, int64(BurnValue), contribution.TokenAmount)
	assert.Equal(t, pool.DistributionRound, contribution.PoolRound)

	// Burning twice resolves to exactly one contribution.
	_, err = eco.nfts.Burn("user-1", nft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	var count int64
	require.NoError(t, eco.db.Model(&models.PoolContribution{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBurnRejectsUnminted(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 500)
	_, err := eco.pools.EnsureCurrentPool()
	require.NoError(t, err)

	nft, err := eco.nfts.CreateUnminted("user-1", "joy", "common", models.ActivityJournalEntry, "")
	require.NoError(t, err)

	_, err = eco.nfts.Burn("user-1", nft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	pool, err := eco.pools.CurrentPool()
	require.NoError(t, err)
	assert.Zero(t, pool.TotalTokens)
	var count int64
	require.NoError(t, eco.db.Model(&models.PoolContribution{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBurnCrossesTargetAndFlipsPool(t *testing.T) {
	defaults := testDefaults()
	defaults.TargetTokens = 700
	eco := newEconomy(t, defaults)
	seedUser(t, eco.db, "user-1", "ada", 1200)
	_, err := eco.pools.EnsureCurrentPool()
	require.NoError(t, err)

	mintAndBurnReady := func(occurrence string) string {
		nft, err := eco.nfts.CreateUnminted("user-1", "joy", "common", models.ActivityJournalEntry, occurrence)
		require.NoError(t, err)
		_, err = eco.nfts.Mint("user-1", nft.ID)
		require.NoError(t, err)
		return nft.ID
	}

	first := mintAndBurnReady("streak-7")
	second := mintAndBurnReady("streak-14")
	third := mintAndBurnReady("streak-21")

	_, err = eco.nfts.Burn("user-1", first)
	require.NoError(t, err)
	pool, err := eco.pools.CurrentPool()
	require.NoError(t, err)
	assert.Equal(t, models.PoolStatusActive, pool.Status)
	assert.Nil(t, pool.NextDistributionDate)

	before := time.Now()
	_, err = eco.nfts.Burn("user-1", second)
	require.NoError(t, err)

	pool, err = eco.pools.CurrentPool()
	require.NoError(t, err)
	assert.Equal(t, int64(700), pool.TotalTokens)
	assert.Equal(t, models.PoolStatusDistributing, pool.Status)
	require.NotNil(t, pool.NextDistributionDate)
	expected := before.Add(7 * 24 * time.Hour)
	assert.WithinDuration(t, expected, *pool.NextDistributionDate, time.Minute)

	// Burns wait for the next round while the pool is distributing.
	_, err = eco.nfts.Burn("user-1", third)
	assert.ErrorIs(t, err, ErrInvalidState)
	pool, err = eco.pools.CurrentPool()
	require.NoError(t, err)
	assert.Equal(t, int64(700), pool.TotalTokens)
}

func TestConservationAcrossBurns(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 1200)
	seedUser(t, eco.db, "user-2", "grace", 1200)
	_, err := eco.pools.EnsureCurrentPool()
	require.NoError(t, err)

	for _, tc := range []struct{ user, occurrence string }{
		{"user-1", "a"}, {"user-1", "b"}, {"user-2", "c"},
	} {
		nft, err := eco.nfts.CreateUnminted(tc.user, "joy", "common", models.ActivityJournalEntry, tc.occurrence)
		require.NoError(t, err)
		_, err = eco.nfts.Mint(tc.user, nft.ID)
		require.NoError(t, err)
		_, err = eco.nfts.Burn(tc.user, nft.ID)
		require.NoError(t, err)
	}

	pool, err := eco.pools.CurrentPool()
	require.NoError(t, err)

	var sum *int64
	require.NoError(t, eco.db.Model(&models.PoolContribution{}).
		Select("SUM(token_amount)").
		Where("pool_round = ?", pool.DistributionRound).
		Scan(&sum).Error)
	require.NotNil(t, sum)
	assert.Equal(t, pool.TotalTokens, *sum)
}

func TestGiftTransfersOnce(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 500)
	seedUser(t, eco.db, "user-2", "grace", 0)
	seedUser(t, eco.db, "user-3", "mary", 0)

	nft, err := eco.nfts.CreateUnminted("user-1", "love", "epic", models.ActivityHelpOthers, "")
	require.NoError(t, err)

	// Only minted NFTs can be gifted.
	_, err = eco.nfts.Gift("user-1", "user-2", nft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = eco.nfts.Mint("user-1", nft.ID)
	require.NoError(t, err)

	_, err = eco.nfts.Gift("user-1", "user-1", nft.ID)
	assert.ErrorIs(t, err, ErrSelfGift)
	_, err = eco.nfts.Gift("user-1", "ghost", nft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	gifted, err := eco.nfts.Gift("user-1", "user-2", nft.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-2", gifted.UserID)
	require.NotNil(t, gifted.GiftedTo)
	assert.Equal(t, "user-2", *gifted.GiftedTo)

	// The original owner no longer controls it, and the one-shot flag
	// blocks a second hop even by the new owner.
	_, err = eco.nfts.Gift("user-1", "user-3", nft.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = eco.nfts.Gift("user-2", "user-3", nft.ID)
	assert.ErrorIs(t, err, ErrAlreadyDone)

	// The recipient was notified.
	var notifications []models.Notification
	require.NoError(t, eco.db.Where("user_id = ?", "user-2").Find(&notifications).Error)
	require.NotEmpty(t, notifications)
	assert.Equal(t, "nft_gifted", notifications[0].Type)
}

func TestBurnStateFlipGuardsOwnership(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 500)
	seedUser(t, eco.db, "user-2", "grace", 0)
	_, err := eco.pools.EnsureCurrentPool()
	require.NoError(t, err)

	nft, err := eco.nfts.CreateUnminted("user-1", "joy", "common", models.ActivityJournalEntry, "")
	require.NoError(t, err)
	_, err = eco.nfts.Mint("user-1", nft.ID)
	require.NoError(t, err)

	// A burner reads the row, sees {owner: user-1, minted}...
	var snapshot models.EmotionalNft
	require.NoError(t, eco.db.First(&snapshot, "id = ?", nft.ID).Error)
	assert.Equal(t, "user-1", snapshot.UserID)
	assert.Equal(t, models.MintStatusMinted, snapshot.MintStatus)

	// ...then a gift commits before the burner writes.
	_, err = eco.nfts.Gift("user-1", "user-2", nft.ID)
	require.NoError(t, err)

	// The burner's guarded flip, keyed on its stale view of the owner,
	// must match nothing now that the NFT changed hands.
	res := eco.db.Model(&models.EmotionalNft{}).
		Where("id = ? AND user_id = ? AND mint_status = ?", nft.ID, "user-1", models.MintStatusMinted).
		Updates(map[string]interface{}{
			"mint_status": models.MintStatusBurned,
			"burned_at":   time.Now(),
		})
	require.NoError(t, res.Error)
	assert.Zero(t, res.RowsAffected)

	_, err = eco.nfts.Burn("user-1", nft.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	// The recipient's NFT is intact and only they can burn it.
	var reloaded models.EmotionalNft
	require.NoError(t, eco.db.First(&reloaded, "id = ?", nft.ID).Error)
	assert.Equal(t, "user-2", reloaded.UserID)
	assert.Equal(t, models.MintStatusMinted, reloaded.MintStatus)

	burned, err := eco.nfts.Burn("user-2", nft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MintStatusBurned, burned.MintStatus)

	var contribution models.PoolContribution
	require.NoError(t, eco.db.First(&contribution, "nft_id = ?", nft.ID).Error)
	assert.Equal(t, "user-2", contribution.UserID)
}

func TestGiftBurnedFails(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 500)
	seedUser(t, eco.db, "user-2", "grace", 0)
	_, err := eco.pools.EnsureCurrentPool()
	require.NoError(t, err)

	nft, err := eco.nfts.CreateUnminted("user-1", "joy", "common", models.ActivityJournalEntry, "")
	require.NoError(t, err)
	_, err = eco.nfts.Mint("user-1", nft.ID)
	require.NoError(t, err)
	_, err = eco.nfts.Burn("user-1", nft.ID)
	require.NoError(t, err)

	_, err = eco.nfts.Gift("user-1", "user-2", nft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLifecycleNeverGoesBackward(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 500)
	_, err := eco.pools.EnsureCurrentPool()
	require.NoError(t, err)

	nft, err := eco.nfts.CreateUnminted("user-1", "joy", "common", models.ActivityJournalEntry, "")
	require.NoError(t, err)
	_, err = eco.nfts.Mint("user-1", nft.ID)
	require.NoError(t, err)
	_, err = eco.nfts.Burn("user-1", nft.ID)
	require.NoError(t, err)

	// Burned is terminal: no operation moves it anywhere else.
	_, err = eco.nfts.Mint("user-1", nft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = eco.nfts.Burn("user-1", nft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	var reloaded models.EmotionalNft
	require.NoError(t, eco.db.First(&reloaded, "id = ?", nft.ID).Error)
	assert.Equal(t, models.MintStatusBurned, reloaded.MintStatus)
}

func TestListForFiltersByStatus(t *testing.T) {
	eco := newEconomy(t, testDefaults())
	seedUser(t, eco.db, "user-1", "ada", 500)

	a, err := eco.nfts.CreateUnminted("user-1", "joy", "common", models.ActivityJournalEntry, "a")
	require.NoError(t, err)
	_, err = eco.nfts.CreateUnminted("user-1", "calm", "common", models.ActivityJournalEntry, "b")
	require.NoError(t, err)
	_, err = eco.nfts.Mint("user-1", a.ID)
	require.NoError(t, err)

	all, err := eco.nfts.ListFor("user-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	minted, err := eco.nfts.ListFor("user-1", models.MintStatusMinted)
	require.NoError(t, err)
	require.Len(t, minted, 1)
	assert.Equal(t, a.ID, minted[0].ID)

	_, err = eco.nfts.ListFor("user-1", models.MintStatus("bogus"))
	assert.ErrorIs(t, err, ErrInvalidState)
}
