// handlers/pool_routes.go
package handlers

import (
	"strconv"

	"mood-token-system/middleware"
	"mood-token-system/models"
	"mood-token-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupPoolRoutes wires the token/pool query surface, the reward signal
// endpoints, and the admin distribution trigger.
func SetupPoolRoutes(app *fiber.App,
	ledger *services.TokenLedgerService,
	pools *services.PoolService,
	distribution *services.DistributionService,
	referrals *services.ReferralService,
	notifier *services.NotificationService,
) {
	userGroup := app.Group("/user", middleware.UserContextMiddleware(), middleware.RequireUser())

	userGroup.Get("/tokens", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		balance, err := ledger.Balance(userID)
		if err != nil {
			return respondError(c, err)
		}
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		activities, err := ledger.ListActivities(userID, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"emotion_tokens": balance,
			"activities":     activities,
		})
	})

	userGroup.Get("/notifications", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		notifications, err := notifier.ListFor(userID, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(notifications)
	})

	poolGroup := app.Group("/pool", middleware.UserContextMiddleware())

	poolGroup.Get("/stats", func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string) // optional: per-user figures when present
		stats, err := pools.Stats(userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(stats)
	})

	poolGroup.Get("/contributors", func(c *fiber.Ctx) error {
		pool, err := pools.CurrentPool()
		if err != nil {
			return respondError(c, err)
		}
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		contributors, err := pools.TopContributors(pool.DistributionRound, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"pool_round":   pool.DistributionRound,
			"contributors": contributors,
		})
	})

	// Reward signals from the surrounding application (journal saves, login
	// counters, badge awards). Service-token guarded; daily_cap selects the
	// once-per-calendar-day path.
	signalGroup := app.Group("/signals")

	signalGroup.Post("/reward", func(c *fiber.Ctx) error {
		var req struct {
			UserID       string              `json:"user_id"`
			ActivityType models.ActivityType `json:"activity_type"`
			Amount       int64               `json:"amount"`
			Description  string              `json:"description"`
			DailyCap     bool                `json:"daily_cap"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}

		var activity *models.RewardActivity
		var err error
		if req.DailyCap {
			activity, err = ledger.AwardDaily(req.UserID, req.Amount, req.ActivityType, req.Description)
		} else {
			activity, err = ledger.Credit(req.UserID, req.Amount, req.ActivityType, req.Description)
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(activity)
	})

	signalGroup.Post("/referral", func(c *fiber.Ctx) error {
		var req struct {
			ReferrerID string `json:"referrer_id"`
			ReferredID string `json:"referred_id"`
			Code       string `json:"code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.ReferrerID == "" || req.ReferredID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "referrer_id and referred_id are required"})
		}
		referral, err := referrals.Record(req.ReferrerID, req.ReferredID, req.Code)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(referral)
	})

	signalGroup.Post("/referral/award", func(c *fiber.Ctx) error {
		var req struct {
			ReferredID string `json:"referred_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.ReferredID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "referred_id is required"})
		}
		referral, err := referrals.Award(req.ReferredID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(referral)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireUser(), middleware.RequireAdmin())

	adminGroup.Post("/pool/distribute", func(c *fiber.Ctx) error {
		result, err := distribution.Distribute()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "Pool distributed successfully",
			"result":  result,
		})
	})
}
