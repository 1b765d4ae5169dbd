package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synchq/scheduler/internal/store/model"
)

type Notification interface {
	Create(ctx context.Context, notification model.Notification) (*model.Notification, error)
	ListByUser(ctx context.Context, userID string) (model.NotificationList, error)
	InitialMigration() error
}

type NotificationStore struct {
	db *gorm.DB
}

// Make sure we conform to Notification interface
var _ Notification = (*NotificationStore)(nil)

func NewNotificationStore(db *gorm.DB) Notification {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Notification{})
}

func (s *NotificationStore) Create(ctx context.Context, notification model.Notification) (*model.Notification, error) {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&notification); result.Error != nil {
		return nil, fmt.Errorf("creating notification: %w", result.Error)
	}
	return &notification, nil
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string) (model.NotificationList, error) {
	var notifications model.NotificationList
	result := s.getDB(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&notifications)
	if result.Error != nil {
		return nil, fmt.Errorf("listing notifications: %w", result.Error)
	}
	return notifications, nil
}

func (s *NotificationStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
