package services

import (
	"mood-token-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotificationService is the fire-and-forget notification sink. A failed
// write is logged and swallowed — it must never fail or roll back the
// economic operation that triggered it.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Notify delivers a notification to one user.
func (s *NotificationService) Notify(userID, title, content, notifType, icon string) {
	s.store(userID, title, content, notifType, icon)
}

// Broadcast delivers a community-wide notification (empty user ID).
func (s *NotificationService) Broadcast(title, content, notifType, icon string) {
	s.store("", title, content, notifType, icon)
}

// ListFor returns a user's notifications plus community broadcasts,
// newest first.
func (s *NotificationService) ListFor(userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var notifications []models.Notification
	err := s.DB.Where("user_id = ? OR user_id = ''", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) store(userID, title, content, notifType, icon string) {
	notification := &models.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   title,
		Content: content,
		Type:    notifType,
		Icon:    icon,
	}
	if err := s.DB.Create(notification).Error; err != nil {
		log.Warnf("⚠️ Failed to store notification for %q: %v", userID, err)
	}
}
