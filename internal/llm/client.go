package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.deepseek.com"

// HTTPClient implementa Gateway contra una API compatible con OpenAI/DeepSeek.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.client = c
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(h *HTTPClient) { h.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(h *HTTPClient) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHTTPClient construye el cliente. timeout acota cada llamada; no hay reintentos.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Complete(ctx context.Context, in CompletionRequest) (Completion, error) {
	reqBody := chatRequest{
		Model:       in.Model,
		Messages:    in.Messages,
		Stream:      false,
		Temperature: clampTemperature(in.Temperature),
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Completion{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	out := Completion{Started: c.now()}
	finish := func(outcome string) {
		out.Finished = c.now()
		out.Duration = out.Finished.Sub(out.Started)
		c.metrics.observe(in.Model, outcome, out.Duration)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		finish(OutcomeTransport)
		c.logger.Warn("llm request failed", zap.String("model", in.Model), zap.Error(err))
		return out, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		finish(OutcomeTransport)
		return out, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		finish(OutcomeEndpoint)
		c.logger.Warn("llm endpoint error",
			zap.Int("status", resp.StatusCode),
			zap.String("model", in.Model),
			zap.ByteString("body", truncate(respBody, 512)),
		)
		return out, &EndpointError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil || len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		finish(OutcomeDegraded)
		c.logger.Warn("llm response without content", zap.String("model", in.Model), zap.Error(err))
		out.Content = NoResponseText
		out.Degraded = true
		out.Model = in.Model
		return out, nil
	}

	finish(OutcomeOK)
	out.Content = cr.Choices[0].Message.Content
	out.Model = cr.Model
	if out.Model == "" {
		out.Model = in.Model
	}
	if cr.Usage != nil && cr.Usage.TotalTokens != nil {
		n := *cr.Usage.TotalTokens
		out.TotalTokens = &n
	}
	return out, nil
}

// errorMessage toma "message" o "error.message" del body; si no hay, "Unknown error".
func errorMessage(body []byte) string {
	var e errorBody
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != nil && e.Error.Message != "" {
			return e.Error.Message
		}
	}
	return "Unknown error"
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens *int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var _ Gateway = (*HTTPClient)(nil)
