// Package gemini adapts the Gemini API client to the model generator port.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultAPIVersion = "v1beta"
	DefaultModel      = "gemini-2.0-flash-001"
	DefaultTimeout    = 60 * time.Second

	DefaultTemperature     = 0.1
	DefaultMaxOutputTokens = 2048
)

var (
	// ErrNotConfigured is returned when no API key was provided.
	ErrNotConfigured = errors.New("gemini: api key not configured")
	// ErrEmptyResponse is returned when the API produced no text candidate.
	ErrEmptyResponse = errors.New("gemini: response contained no text")
)

// Config configures a Client. An empty BaseURL selects the public endpoint.
type Config struct {
	APIKey          string
	BaseURL         string
	APIVersion      string
	Model           string
	Timeout         time.Duration
	Temperature     float32
	MaxOutputTokens int32
}

// Client generates text for a single prompt.
type Client struct {
	models     *genai.Models
	model      string
	generation *genai.GenerateContentConfig
}

// New creates a client. An empty API key yields a client whose calls fail
// with ErrNotConfigured.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	c := &Client{
		model: cfg.Model,
		generation: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(cfg.Temperature),
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	}
	if cfg.APIKey == "" {
		return c, nil
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.models = gc.Models
	return c, nil
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.models != nil
}

// Generate sends prompt to model and returns the first candidate's text.
// An empty model selects the client default.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	if c.models == nil {
		return "", ErrNotConfigured
	}
	if model == "" {
		model = c.model
	}

	resp, err := c.models.GenerateContent(ctx, model, genai.Text(prompt), c.generation)
	if err != nil {
		return "", apiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// apiError lifts a genai API error into APIError so callers can classify it
// without importing genai.
func apiError(err error) error {
	var ge genai.APIError
	if errors.As(err, &ge) {
		return &APIError{StatusCode: ge.Code, Status: ge.Status, Message: ge.Message, Err: err}
	}
	var gp *genai.APIError
	if errors.As(err, &gp) && gp != nil {
		return &APIError{StatusCode: gp.Code, Status: gp.Status, Message: gp.Message, Err: err}
	}
	return fmt.Errorf("gemini request: %w", err)
}

// APIError is an error response from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini API error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// RateLimited reports whether the API rejected the call for quota reasons.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}
