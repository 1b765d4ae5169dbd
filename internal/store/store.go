package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	CallRecord() CallRecord
	Integration() Integration
	Notification() Notification
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db           *gorm.DB
	job          Job
	callRecord   CallRecord
	integration  Integration
	notification Notification
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:           db,
		job:          NewJobStore(db),
		callRecord:   NewCallRecordStore(db),
		integration:  NewIntegrationStore(db),
		notification: NewNotificationStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) CallRecord() CallRecord {
	return s.callRecord
}

func (s *DataStore) Integration() Integration {
	return s.integration
}

func (s *DataStore) Notification() Notification {
	return s.notification
}

func (s *DataStore) InitialMigration() error {
	if err := s.job.InitialMigration(); err != nil {
		return err
	}
	if err := s.callRecord.InitialMigration(); err != nil {
		return err
	}
	if err := s.integration.InitialMigration(); err != nil {
		return err
	}
	return s.notification.InitialMigration()
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
