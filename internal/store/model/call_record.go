package model

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptMessage is one speaker-tagged utterance from a voice call.
// Role is "user" for the called person and "assistant" for the calling agent.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallRecord is the conversation captured by the voice webhook for one
// outbound call. The orchestrator only reads it; the webhook owns writes.
type CallRecord struct {
	ID         uuid.UUID                       `gorm:"primaryKey;"`
	CallSID    string                          `gorm:"index:call_records_call_sid_idx"`
	Transcript *JSONField[[]TranscriptMessage] `gorm:"type:jsonb"`
	CreatedAt  time.Time                       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// Messages returns the decoded transcript, empty when nothing was captured.
func (c *CallRecord) Messages() []TranscriptMessage {
	if c.Transcript == nil {
		return nil
	}
	return c.Transcript.Data
}
