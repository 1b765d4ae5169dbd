package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synchq/scheduler/internal/store/model"
)

type CallRecord interface {
	Get(ctx context.Context, id uuid.UUID) (*model.CallRecord, error)
	Create(ctx context.Context, record model.CallRecord) (*model.CallRecord, error)
	InitialMigration() error
}

type CallRecordStore struct {
	db *gorm.DB
}

// Make sure we conform to CallRecord interface
var _ CallRecord = (*CallRecordStore)(nil)

func NewCallRecordStore(db *gorm.DB) CallRecord {
	return &CallRecordStore{db: db}
}

func (s *CallRecordStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.CallRecord{})
}

func (s *CallRecordStore) Get(ctx context.Context, id uuid.UUID) (*model.CallRecord, error) {
	var record model.CallRecord
	result := s.getDB(ctx).First(&record, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying call record: %w", result.Error)
	}
	return &record, nil
}

func (s *CallRecordStore) Create(ctx context.Context, record model.CallRecord) (*model.CallRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&record); result.Error != nil {
		return nil, fmt.Errorf("creating call record: %w", result.Error)
	}
	return &record, nil
}

func (s *CallRecordStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
