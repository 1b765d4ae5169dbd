package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synchq/scheduler/internal/store/model"
)

type Integration interface {
	GetActive(ctx context.Context, userID, toolkitSlug string) (*model.Integration, error)
	Create(ctx context.Context, integration model.Integration) (*model.Integration, error)
	InitialMigration() error
}

type IntegrationStore struct {
	db *gorm.DB
}

// Make sure we conform to Integration interface
var _ Integration = (*IntegrationStore)(nil)

func NewIntegrationStore(db *gorm.DB) Integration {
	return &IntegrationStore{db: db}
}

func (s *IntegrationStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Integration{})
}

// GetActive returns the user's active connection for the given toolkit, or
// ErrRecordNotFound when none is connected.
func (s *IntegrationStore) GetActive(ctx context.Context, userID, toolkitSlug string) (*model.Integration, error) {
	var integration model.Integration
	result := s.getDB(ctx).
		Where("user_id = ? AND toolkit_slug = ? AND status = ?", userID, toolkitSlug, model.IntegrationStatusActive).
		First(&integration)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying integration: %w", result.Error)
	}
	return &integration, nil
}

func (s *IntegrationStore) Create(ctx context.Context, integration model.Integration) (*model.Integration, error) {
	if integration.ID == uuid.Nil {
		integration.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&integration); result.Error != nil {
		return nil, fmt.Errorf("creating integration: %w", result.Error)
	}
	return &integration, nil
}

func (s *IntegrationStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
