// Package calendar reads the organizer's free time and books the final
// meeting through an external calendar integration. Reads fail open onto a
// business-hours template; writes never fabricate a booking.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	ToolkitGoogleCalendar = "googlecalendar"

	actionListEvents  = "GOOGLECALENDAR_LIST_EVENTS"
	actionCreateEvent = "GOOGLECALENDAR_CREATE_EVENT"
)

// Result is the normalized outcome of one provider operation. Data keeps the
// provider's raw payload: response shapes vary and are unwrapped by callers.
type Result struct {
	Success bool
	Data    json.RawMessage
	Error   string
}

// Client executes a named operation against the integration provider on
// behalf of a connected account.
type Client interface {
	Execute(ctx context.Context, connectedAccountID, action string, args map[string]interface{}, entityID string) (*Result, error)
}

// ComposioClient talks to the Composio tool-execution endpoint.
type ComposioClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Make sure we conform to Client interface
var _ Client = (*ComposioClient)(nil)

func NewComposioClient(apiKey, baseURL string) *ComposioClient {
	return &ComposioClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *ComposioClient) Execute(ctx context.Context, connectedAccountID, action string, args map[string]interface{}, entityID string) (*Result, error) {
	if c.apiKey == "" {
		return &Result{Success: false, Error: "integration api key not configured"}, nil
	}

	requestBody := map[string]interface{}{
		"connected_account_id": connectedAccountID,
		"arguments":            args,
	}
	if entityID != "" {
		requestBody["entity_id"] = entityID
	}

	payload, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling tool request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v3/tools/execute/%s", c.baseURL, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building tool request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", action, err)
	}

	if resp.StatusCode >= 400 {
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(body, &errBody)
		msg := errBody.Message
		if msg == "" {
			msg = errBody.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &Result{Success: false, Error: msg}, nil
	}

	return &Result{Success: true, Data: body}, nil
}
