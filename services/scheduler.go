// services/scheduler.go
package services

import (
	"time"

	"mood-token-system/models"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StartPoolScheduler runs the hourly reminder job: when a distributing pool
// has passed its scheduled payout date, it nudges the admins (distribution
// itself stays a manual, admin-triggered action).
func StartPoolScheduler(db *gorm.DB, notifier *NotificationService) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	sched.Start()

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			remindDuePools(db, notifier, time.Now())
		}),
	)
	if err != nil {
		return nil, err
	}
	return sched, nil
}

// remindDuePools broadcasts for every distributing pool past its payout
// date, at most once per day per pool. The throttle lives in
// last_reminder_at; next_distribution_date stays exactly as the burn flow
// wrote it.
func remindDuePools(db *gorm.DB, notifier *NotificationService, now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	var pools []models.TokenPool
	err := db.Where("status = ? AND next_distribution_date <= ?", models.PoolStatusDistributing, now).
		Where("last_reminder_at IS NULL OR last_reminder_at <= ?", cutoff).
		Find(&pools).Error
	if err != nil {
		log.Errorf("[Scheduler] DB error: %v", err)
		return
	}

	for _, p := range pools {
		log.Infof("⏰ Pool round %d is past its payout date (%d tokens waiting)", p.DistributionRound, p.TotalTokens)
		notifier.Broadcast("Pool payout due",
			"The community pool is ready for distribution. Rewards and the charity donation go out soon!",
			"pool_due", "⏰")
		if err := db.Model(&models.TokenPool{}).
			Where("id = ? AND status = ?", p.ID, models.PoolStatusDistributing).
			Update("last_reminder_at", now).Error; err != nil {
			log.Errorf("[Scheduler] Failed to record reminder for round %d: %v", p.DistributionRound, err)
		}
	}
}
