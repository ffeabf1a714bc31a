package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"duende/internal/config"
	"duende/internal/event"
)

// instructionTemplate asks the backend for future flamenco events for one
// artist as a JSON array in the Record field shape. %s is the query.
const instructionTemplate = `Search for concerts, recitals or notable performances by the flamenco artist %q over the next 12 months in Europe. Return the result as a JSON array, prioritizing theatres, auditoriums and major festivals. If you find no future events, return exactly []. Each event must be an object of the form: {"id": "unique-descriptive-slug", "name": "...", "artist": %q, "description": "...", "date": "YYYY-MM-DD", "time": "HH:MM", "venue": "...", "city": "...", "country": "...", "verified": boolean}. Return only JSON.`

// Generative queries a chat-completion style text-generation backend and
// decodes whatever comes back into candidates. Non-conforming replies count
// as zero candidates; only transport and HTTP failures surface as errors.
type Generative struct {
	baseURL   string
	model     string
	apiKey    string
	userAgent string
	client    *http.Client
}

func NewGenerative(cfg config.GenerativeConfig) *Generative {
	return &Generative{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout.Std()},
	}
}

func (g *Generative) Name() string { return "generative" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Fetch sends the instruction for one query and returns the decoded
// candidates. Prose and schema-violating payloads return an empty slice.
func (g *Generative) Fetch(ctx context.Context, query string) ([]event.Candidate, error) {
	payload, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(instructionTemplate, query, query)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", g.userAgent)
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil || len(cr.Choices) == 0 {
		// Not the envelope we expect. Treat as no structured output.
		return []event.Candidate{}, nil
	}

	msg := cr.Choices[0].Message

	// A function-style call carries the array in its arguments.
	for _, tc := range msg.ToolCalls {
		if cands, ok := DecodeCandidates(tc.Function.Arguments); ok {
			return cands, nil
		}
	}

	if cands, ok := DecodeCandidates(msg.Content); ok {
		return cands, nil
	}
	return []event.Candidate{}, nil
}

var _ Adapter = (*Generative)(nil)
