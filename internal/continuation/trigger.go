// Package continuation delivers the orchestrator's self-triggered "advance"
// signal. The original flow fired the request and forgot it, silently
// stalling the job on a transient failure; here delivery is retried with
// backoff and a permanent failure is surfaced in the log instead of dropped.
package continuation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Trigger requests that the orchestrator advance the given job. The request
// is asynchronous: the caller records its own result first and must not block
// on the decision that follows.
type Trigger interface {
	Advance(ctx context.Context, jobID uuid.UUID)
}

// HTTPTrigger posts the advance request back to this service's own trigger
// surface, the same way the telephony provider delivers completions.
type HTTPTrigger struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

// Make sure we conform to Trigger interface
var _ Trigger = (*HTTPTrigger)(nil)

func NewHTTPTrigger(baseURL string) *HTTPTrigger {
	return &HTTPTrigger{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: 3,
	}
}

func (t *HTTPTrigger) Advance(ctx context.Context, jobID uuid.UUID) {
	// Detach from the caller's request context: the advance outlives the
	// invocation that scheduled it.
	go t.deliver(context.WithoutCancel(ctx), jobID)
}

func (t *HTTPTrigger) deliver(ctx context.Context, jobID uuid.UUID) {
	logger := zap.S().Named("continuation")

	backoff := retry.WithMaxRetries(t.maxRetries, retry.NewExponential(time.Second))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/api/v1/scheduling/jobs/%s/advance", t.baseURL, jobID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return err
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("advance returned HTTP %d", resp.StatusCode))
		}
		return nil
	})
	if err != nil {
		logger.Errorw("advance delivery failed permanently, job may be stalled", "error", err, "job_id", jobID)
	}
}
