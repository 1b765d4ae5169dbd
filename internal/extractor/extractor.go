// Package extractor turns a scheduling-call transcript into structured
// availability windows using a chat-completion model. Anything the model
// returns that cannot be parsed is treated as "no availability stated",
// never as a failure of the job.
package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/synchq/scheduler/internal/interval"
)

// Utterance is one speaker-tagged line of a call transcript. Role is "user"
// for the called person and "assistant" for the calling agent.
type Utterance struct {
	Role    string
	Content string
}

// Extractor is the availability-extraction capability.
type Extractor interface {
	Extract(ctx context.Context, transcript []Utterance, rangeStart, rangeEnd time.Time) ([]interval.Window, error)
}

// Options configure the completion request. Temperature stays low on purpose:
// the task is structured extraction, not generation.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

type ModelExtractor struct {
	client *openai.Client
	opts   Options
}

// Make sure we conform to Extractor interface
var _ Extractor = (*ModelExtractor)(nil)

func NewModelExtractor(client *openai.Client, optFns ...func(o *Options)) *ModelExtractor {
	opts := Options{
		Model:       openai.ChatModelGPT4oMini,
		Temperature: 0.1,
		MaxTokens:   500,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelExtractor{client: client, opts: opts}
}

func (e *ModelExtractor) Extract(ctx context.Context, transcript []Utterance, rangeStart, rangeEnd time.Time) ([]interval.Window, error) {
	if len(transcript) == 0 {
		return nil, nil
	}

	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(buildPrompt(transcript, rangeStart, rangeEnd, time.Now())),
		},
		Model:               e.opts.Model,
		Temperature:         openai.Float(e.opts.Temperature),
		MaxCompletionTokens: openai.Int(e.opts.MaxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("availability extraction: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, nil
	}

	return parseWindows(completion.Choices[0].Message.Content), nil
}

func buildPrompt(transcript []Utterance, rangeStart, rangeEnd, today time.Time) string {
	var b strings.Builder
	for i, m := range transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		speaker := "Agent"
		if m.Role == "user" {
			speaker = "Person"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}

	return fmt.Sprintf(`Extract the availability time slots mentioned by "Person" in this phone conversation.
The meeting should be scheduled between %s and %s.
Today's date is %s.

TRANSCRIPT:
%s

INSTRUCTIONS:
- Extract ONLY what the Person said they are available (NOT the Agent)
- Convert natural language times to specific ISO 8601 timestamps
- For vague times like "Tuesday afternoon", use 13:00-17:00
- For "morning", use 9:00-12:00
- For "after 2pm", use 14:00-17:00
- If they say they're NOT available, don't include those times
- If they say they're available "all day", use 9:00-17:00
- Use the correct date based on the day of week mentioned and the date range

Return ONLY valid JSON array of objects with "start" and "end" in ISO 8601 format.
Example: [{"start": "2026-02-20T14:00:00.000Z", "end": "2026-02-20T17:00:00.000Z"}]
If no availability was mentioned, return: []`,
		rangeStart.Format("2006-01-02"),
		rangeEnd.Format("2006-01-02"),
		today.Format("2006-01-02"),
		b.String(),
	)
}
