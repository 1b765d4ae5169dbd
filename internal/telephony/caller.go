// Package telephony places the outbound scheduling calls. The callback
// address carries the job id and participant index so completion events are
// self-describing when the provider delivers them back.
package telephony

import (
	"context"

	"github.com/google/uuid"
)

// PlaceCallRequest describes one outbound call.
type PlaceCallRequest struct {
	To               string
	From             string
	JobID            uuid.UUID
	ParticipantIndex int
}

// CallRef correlates the placed call with the provider's later completion
// event.
type CallRef struct {
	SID string
}

// Caller is the outbound-call capability.
type Caller interface {
	PlaceCall(ctx context.Context, req PlaceCallRequest) (*CallRef, error)
}
