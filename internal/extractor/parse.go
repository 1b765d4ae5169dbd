package extractor

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/synchq/scheduler/internal/interval"
)

var (
	codeFenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	jsonArrayRe = regexp.MustCompile(`\[[\s\S]*\]`)
)

type rawWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// parseWindows isolates the structured window list from whatever text the
// model wrapped it in. Malformed entries are skipped and any parse failure
// yields an empty result.
func parseWindows(content string) []interval.Window {
	candidate := content

	if m := codeFenceRe.FindStringSubmatch(candidate); len(m) > 1 {
		candidate = m[1]
	}
	if m := jsonArrayRe.FindString(candidate); m != "" {
		candidate = m
	}

	var raw []rawWindow
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil
	}

	var windows []interval.Window
	for _, r := range raw {
		start, err := time.Parse(time.RFC3339, r.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, r.End)
		if err != nil {
			continue
		}
		if !start.Before(end) {
			continue
		}
		windows = append(windows, interval.Window{Start: start, End: end})
	}
	return windows
}
