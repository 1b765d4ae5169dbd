package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTwilioAPIBase = "https://api.twilio.com"

// TwilioCaller places calls through the Twilio REST API. The voice webhook
// URL handles the conversation; the status callback subscribes to the call
// lifecycle events the webhook needs to track the call.
type TwilioCaller struct {
	accountSID      string
	authToken       string
	voiceWebhookURL string
	apiBase         string
	httpClient      *http.Client
}

// Make sure we conform to Caller interface
var _ Caller = (*TwilioCaller)(nil)

type TwilioOption func(*TwilioCaller)

// WithAPIBase overrides the Twilio API address. Used by tests.
func WithAPIBase(base string) TwilioOption {
	return func(c *TwilioCaller) {
		c.apiBase = base
	}
}

func WithHTTPClient(client *http.Client) TwilioOption {
	return func(c *TwilioCaller) {
		c.httpClient = client
	}
}

func NewTwilioCaller(accountSID, authToken, voiceWebhookURL string, opts ...TwilioOption) *TwilioCaller {
	caller := &TwilioCaller{
		accountSID:      accountSID,
		authToken:       authToken,
		voiceWebhookURL: voiceWebhookURL,
		apiBase:         defaultTwilioAPIBase,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(caller)
	}
	return caller
}

func (c *TwilioCaller) PlaceCall(ctx context.Context, req PlaceCallRequest) (*CallRef, error) {
	form := url.Values{
		"To":                   {req.To},
		"From":                 {req.From},
		"Url":                  {c.callbackURL(req)},
		"Method":               {http.MethodPost},
		"StatusCallback":       {c.statusCallbackURL()},
		"StatusCallbackEvent":  {"initiated ringing answered completed"},
		"StatusCallbackMethod": {http.MethodPost},
		"Timeout":              {"30"},
		"MachineDetection":     {"Enable"},
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.apiBase, c.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building call request: %w", err)
	}
	httpReq.SetBasicAuth(c.accountSID, c.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("placing call to %s: %w", req.To, err)
	}
	defer resp.Body.Close()

	var body struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding call response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := body.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("call placement rejected: %s", msg)
	}

	return &CallRef{SID: body.SID}, nil
}

// callbackURL parameterizes the voice webhook with the job and participant so
// the completion event identifies itself.
func (c *TwilioCaller) callbackURL(req PlaceCallRequest) string {
	return fmt.Sprintf("%s?action=scheduling-call&jobId=%s&participantIndex=%s",
		c.voiceWebhookURL, req.JobID, strconv.Itoa(req.ParticipantIndex))
}

func (c *TwilioCaller) statusCallbackURL() string {
	return fmt.Sprintf("%s?action=status", c.voiceWebhookURL)
}
