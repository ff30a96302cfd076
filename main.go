package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mood-token-system/config"
	"mood-token-system/handlers"
	"mood-token-system/middleware"
	"mood-token-system/models"
	"mood-token-system/services"
	"mood-token-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: only Gateway (or internal services holding the token) get in.
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	// Trim spaces from each configured origin.
	origins := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.MoodUser{},
		&models.RewardActivity{},
		&models.EmotionalNft{},
		&models.TokenPool{},
		&models.PoolContribution{},
		&models.PoolDistribution{},
		&models.Referral{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	notifier := services.NewNotificationService(db)
	ledger := services.NewTokenLedgerService(db)
	pools := services.NewPoolService(db, services.PoolDefaults{
		TargetTokens:              cfg.PoolTargetTokens,
		CharityPercentage:         cfg.CharityPercentage,
		TopContributorsPercentage: cfg.TopContributorsPercentage,
		MaxTopContributors:        cfg.MaxTopContributors,
		CharityName:               cfg.CharityName,
		TokenUSDRate:              cfg.TokenUSDRate,
	})
	nftService := services.NewNftService(db, ledger, pools, notifier)
	distribution := services.NewDistributionService(db, ledger, pools, notifier)
	referrals := services.NewReferralService(db, ledger, notifier)

	if _, err := pools.EnsureCurrentPool(); err != nil {
		log.Fatalf("failed to open token pool: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SyncServiceURL != "" {
		syncWorker := workers.NewMoodUserSyncWorker(db, cfg.SyncServiceURL, cfg.SyncEndpointPath, cfg.ServiceToken)
		syncWorker.Start(ctx)
	} else {
		log.Warn("⚠️  SYNC_SERVICE_URL not set — mood_users mirror will not be synced")
	}

	sched, err := services.StartPoolScheduler(db, notifier)
	if err != nil {
		log.Fatalf("failed to start pool scheduler: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	handlers.SetupNftRoutes(app, nftService)
	handlers.SetupPoolRoutes(app, ledger, pools, distribution, referrals, notifier)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Errorf("Server error: %v", err)
		}
	}()

	log.Infof("✅ Server running on %s", cfg.ListenAddr)
	log.Info("✅ Pool reminder scheduler running (hourly)")
	log.Info("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Infof("✅ CORS configured for origins: %s", strings.Join(origins, ","))

	<-ctx.Done()
	log.Info("Shutting down server...")
	_ = app.Shutdown()
}
