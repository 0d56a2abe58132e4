// Package assist turns free-form text such as "lawn care at the Millers
// every other Tuesday at 8" into an appointment draft using the Anthropic
// Messages API.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/recurrence"
)

const (
	anthropicAPI = "https://api.anthropic.com/v1/messages"
	DefaultModel = "claude-sonnet-4-20250514"
)

var ErrNotConfigured = errors.New("assistant not configured: missing API key")

// Draft is a proposed appointment. Nothing is stored until the user
// confirms it.
type Draft struct {
	Subject       string `json:"subject"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time,omitempty"`
	Kind          string `json:"kind"`
	Location      string `json:"location,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Recurrence    string `json:"recurrence,omitempty"`
	RecurrenceEnd string `json:"recurrence_end,omitempty"`
}

type Parser struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

type Option func(*Parser)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Parser) { p.httpClient = c }
}

func WithAPIURL(url string) Option {
	return func(p *Parser) { p.apiURL = url }
}

func New(apiKey, model string, opts ...Option) *Parser {
	if model == "" {
		model = DefaultModel
	}
	p := &Parser{
		apiKey:     apiKey,
		model:      model,
		apiURL:     anthropicAPI,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) Configured() bool {
	return p.apiKey != ""
}

// Parse asks the model to extract an appointment from text. today anchors
// relative dates like "next Friday".
func (p *Parser) Parse(ctx context.Context, text string, today time.Time) (*Draft, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("nothing to parse")
	}

	resp, err := p.callAPI(ctx, buildPrompt(text, today))
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	return parseResponse(resp)
}

func buildPrompt(text string, today time.Time) string {
	var sb strings.Builder

	sb.WriteString("Extract a single calendar appointment for a self-employed contractor. Return JSON only.\n\n")
	fmt.Fprintf(&sb, "Today is %s (%s).\n\n", today.Format(model.DateLayout), today.Weekday())
	sb.WriteString("Request:\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(`Return a JSON object with this structure:
{
  "subject": "short title",
  "date": "YYYY-MM-DD",
  "start_time": "HH:MM",
  "end_time": "HH:MM or empty",
  "kind": "job | personal | billing | education",
  "location": "",
  "notes": "",
  "recurrence": "daily | weekly | biweekly | monthly or empty",
  "recurrence_end": "YYYY-MM-DD or empty"
}

Rules:
- Use 24-hour times
- Resolve relative dates against today
- Leave recurrence empty unless the request clearly repeats
- Use kind "job" for paid work

Return ONLY the JSON, no other text.`)

	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Parser) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     p.model,
		MaxTokens: 512,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return apiResp.Content[0].Text, nil
}

func parseResponse(resp string) (*Draft, error) {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var d Draft
	if err := json.Unmarshal([]byte(resp), &d); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	if !model.ValidKind(d.Kind) {
		d.Kind = model.KindJob
	}
	if d.Recurrence != "" {
		rule, err := recurrence.Parse(d.Recurrence)
		if err != nil {
			d.Recurrence = ""
			d.RecurrenceEnd = ""
		} else {
			d.Recurrence = rule.String()
		}
	}
	if _, err := time.Parse(model.DateLayout, d.Date); err != nil {
		return nil, fmt.Errorf("draft has no usable date: %q", d.Date)
	}
	if _, err := time.Parse(model.TimeLayout, d.StartTime); err != nil {
		return nil, fmt.Errorf("draft has no usable start time: %q", d.StartTime)
	}
	return &d, nil
}
