package model

import (
	"time"

	"github.com/google/uuid"
)

const IntegrationStatusActive = "ACTIVE"

// Integration is a user's connection to an external toolkit (e.g. the
// "googlecalendar" toolkit) through the integration provider.
type Integration struct {
	ID                 uuid.UUID `gorm:"primaryKey;"`
	UserID             string    `gorm:"not null;index:integrations_user_id_idx"`
	ToolkitSlug        string    `gorm:"not null;type:VARCHAR(100)"`
	ConnectedAccountID string    `gorm:"not null"`
	Status             string    `gorm:"not null;type:VARCHAR(50)"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}
