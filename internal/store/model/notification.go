package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const NotificationTypeScheduling = "scheduling"

// Notification is a durable user-facing message explaining a scheduling
// outcome. Writing one never changes the job status.
type Notification struct {
	ID        uuid.UUID                     `gorm:"primaryKey;"`
	UserID    string                        `gorm:"not null;index:notifications_user_id_idx"`
	Type      string                        `gorm:"not null;type:VARCHAR(50)"`
	Title     string                        `gorm:"not null"`
	Message   string                        `gorm:"not null"`
	Metadata  *JSONField[map[string]string] `gorm:"type:jsonb"`
	Read      bool                          `gorm:"not null;default:false"`
	CreatedAt time.Time                     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

type NotificationList []Notification

func (n Notification) String() string {
	val, _ := json.Marshal(n)
	return string(val)
}
