// handlers/nft_routes.go
package handlers

import (
	"mood-token-system/middleware"
	"mood-token-system/models"
	"mood-token-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupNftRoutes wires the user-facing NFT lifecycle endpoints and the
// service-to-service activity signal endpoints.
func SetupNftRoutes(app *fiber.App, nftService *services.NftService) {
	userGroup := app.Group("/user", middleware.UserContextMiddleware(), middleware.RequireUser())

	userGroup.Get("/nfts", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		status := models.MintStatus(c.Query("status"))

		nfts, err := nftService.ListFor(userID, status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(nfts)
	})

	userGroup.Post("/nfts/:id/mint", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		nft, err := nftService.Mint(userID, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "NFT minted", "nft": nft})
	})

	userGroup.Post("/nfts/:id/burn", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		nft, err := nftService.Burn(userID, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "NFT burned — thank you for contributing!", "nft": nft})
	})

	userGroup.Post("/nfts/:id/gift", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			ToUserID string `json:"to_user_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.ToUserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to_user_id is required"})
		}
		nft, err := nftService.Gift(userID, req.ToUserID, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "NFT gifted", "nft": nft})
	})

	userGroup.Patch("/nfts/:id/display", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			IsDisplayed *bool `json:"is_displayed"`
		}
		if err := c.BodyParser(&req); err != nil || req.IsDisplayed == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "is_displayed is required"})
		}
		if err := nftService.SetDisplayed(userID, c.Params("id"), *req.IsDisplayed); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "OK", "is_displayed": *req.IsDisplayed})
	})

	// Signal endpoints: called by the surrounding application's activity
	// detectors (journal streaks, login counters), not by end users. They
	// ride on the gateway service token, no user context needed.
	signalGroup := app.Group("/signals")

	signalGroup.Post("/nft-earned", func(c *fiber.Ctx) error {
		var req struct {
			UserID        string              `json:"user_id"`
			Emotion       string              `json:"emotion"`
			Rarity        string              `json:"rarity"`
			ActivityType  models.ActivityType `json:"activity_type"`
			OccurrenceKey string              `json:"occurrence_key"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.UserID == "" || req.Emotion == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and emotion are required"})
		}

		nft, err := nftService.CreateUnminted(req.UserID, req.Emotion, req.Rarity, req.ActivityType, req.OccurrenceKey)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(nft)
	})
}
