package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"certidocs-backend/internal/common"
)

// Config for the Gemini client.
type Config struct {
	APIKey  string        // if empty, requests are sent without a key (stub backends)
	BaseURL string        // default https://generativelanguage.googleapis.com/v1beta
	Models  []string      // ordered fallback list, first is preferred
	Timeout time.Duration // http client timeout
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[string]
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if len(cfg.Models) == 0 {
		cfg.Models = []string{"gemini-2.0-flash", "gemini-1.5-flash"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		breakers:   make(map[string]*gobreaker.CircuitBreaker[string]),
	}
}

// Generate sends the prompt through the ordered model list and returns the
// first non-empty completion. The cursor over the list is request-scoped;
// concurrent calls never share retry state. When every model fails the
// returned error wraps common.ErrEngineUnavailable.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, model := range c.cfg.Models {
		start := time.Now()
		breaker := c.breakerFor(model)

		text, err := breaker.Execute(func() (string, error) {
			return c.generateContent(ctx, model, prompt)
		})
		if err == nil {
			c.logger.Info("gemini.generate.ok",
				"model", model,
				"prompt_len", len(prompt),
				"response_len", len(text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return text, nil
		}

		lastErr = err
		c.logger.Warn("gemini.generate.model_failed",
			"model", model,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: all models failed: %w", common.ErrEngineUnavailable, lastErr)
}

func (c *Client) generateContent(ctx context.Context, model, prompt string) (string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("gemini response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, truncate(string(raw), 300))
	}

	var gr struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}
	text := strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("empty text in gemini response")
	}
	return text, nil
}

// breakerFor returns the per-model circuit breaker, creating it on first
// use. A tripped breaker fails fast so the model cursor can advance without
// waiting out the HTTP timeout.
func (c *Client) breakerFor(model string) *gobreaker.CircuitBreaker[string] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.breakers[model]; ok {
		return b
	}
	settings := gobreaker.Settings{
		Name:    "gemini:" + model,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("gemini.breaker.state_change", "model", name, "from", from.String(), "to", to.String())
		},
	}
	b := gobreaker.NewCircuitBreaker[string](settings)
	c.breakers[model] = b
	return b
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
