package source

import (
	"encoding/json"
	"strings"

	"duende/internal/event"
)

// DecodeCandidates turns the text a generation backend produced into a list
// of raw candidates. The channel is unreliable: replies arrive as bare JSON
// arrays, single objects, markdown-fenced blocks, or plain prose. Anything
// that does not decode to structured output yields (nil, false) — never an
// error, so a chatty model can't crash a run.
func DecodeCandidates(text string) ([]event.Candidate, bool) {
	s := stripFences(strings.TrimSpace(text))
	if !strings.HasPrefix(s, "[") && !strings.HasPrefix(s, "{") {
		return nil, false
	}

	var list []event.Candidate
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		return list, true
	}

	// Some replies wrap the array or return a lone object.
	if strings.HasPrefix(s, "{") {
		var wrapped struct {
			Events []event.Candidate `json:"events"`
		}
		if err := json.Unmarshal([]byte(s), &wrapped); err == nil && wrapped.Events != nil {
			return wrapped.Events, true
		}
		var single event.Candidate
		if err := json.Unmarshal([]byte(s), &single); err == nil && len(single) > 0 {
			return []event.Candidate{single}, true
		}
	}
	return nil, false
}

// stripFences removes a leading ```json (or bare ```) fence and its closing
// fence if present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
