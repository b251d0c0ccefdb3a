package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/logging"
	"github.com/rfqworks/rfqd/internal/rfq"
)

// Rate limiter defaults: 50 requests per minute with small bursts.
const (
	defaultRateLimit   = 50.0 / 60.0
	defaultBurst       = 5
	defaultBaseBackoff = 1 * time.Second
)

// MistralClient implements Oracle against a Mistral-shaped chat-completions
// API.
type MistralClient struct {
	baseURL       string
	apiKey        config.Secret
	model         string
	verifierModel string
	maxRetries    int
	timeout       time.Duration
	verifyTimeout time.Duration
	httpClient    *http.Client
	limiter       *rate.Limiter
	logger        *logging.Logger
}

// NewMistralClient creates an oracle client from config.
func NewMistralClient(cfg config.OracleConfig, logger *logging.Logger) (*MistralClient, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("oracle API key required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &MistralClient{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		verifierModel: cfg.VerifierModel,
		maxRetries:    cfg.MaxRetries,
		timeout:       cfg.Timeout.Duration(),
		verifyTimeout: cfg.VerifyTimeout.Duration(),
		httpClient:    &http.Client{},
		limiter:       rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		logger:        logger.Named("oracle"),
	}, nil
}

// Available reports whether the client is configured with credentials.
func (m *MistralClient) Available() bool {
	return m.apiKey.IsSet()
}

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat responseFmt   `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFmt struct {
	Type string `json:"type"`
}

// chatResponse is the chat-completions response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Message string `json:"message"`
}

// Extract runs the primary extraction pass.
func (m *MistralClient) Extract(ctx context.Context, req ExtractRequest) (*Extraction, error) {
	content, err := m.complete(ctx, m.model, extractSystemPrompt, buildExtractPrompt(req), 0.1, m.timeout)
	if err != nil {
		return nil, err
	}

	items, diags, err := rfq.DecodeItems([]byte(stripFences(content)))
	if err != nil {
		return nil, &MalformedResponseError{Reason: "extraction payload", Err: err}
	}
	for _, d := range diags {
		m.logger.Warn("oracle item dropped", zap.String("diagnostic", d))
	}
	return &Extraction{Items: items, Diagnostics: diags}, nil
}

// Verify runs one secondary verification pass for a single item.
func (m *MistralClient) Verify(ctx context.Context, req VerifyRequest) (*Verdict, error) {
	content, err := m.complete(ctx, m.verifierModel, verifySystemPrompt, buildVerifyPrompt(req), 0.0, m.verifyTimeout)
	if err != nil {
		return nil, err
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(stripFences(content)), &verdict); err != nil {
		return nil, &MalformedResponseError{Reason: "verifier payload", Err: err}
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("verifier confidence %.2f out of range", verdict.Confidence)}
	}
	return &verdict, nil
}

// complete performs one chat-completions call with rate limiting and a
// bounded number of retries on retryable failures.
func (m *MistralClient) complete(ctx context.Context, model, system, user string, temperature float64, timeout time.Duration) (string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    temperature,
		ResponseFormat: responseFmt{Type: "json_object"},
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			m.logger.Warn("retrying oracle call",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}

		content, err := m.doRequest(ctx, req, timeout)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// doRequest performs the HTTP request against the chat-completions endpoint.
func (m *MistralClient) doRequest(ctx context.Context, req chatRequest, timeout time.Duration) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey.Value())

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", &retryableError{err: fmt.Errorf("oracle request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("server error (%d)", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
			return "", fmt.Errorf("oracle API error (%d): %s", resp.StatusCode, errResp.Message)
		}
		return "", fmt.Errorf("oracle API error (%d)", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", &MalformedResponseError{Reason: "completion envelope", Err: err}
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return "", &MalformedResponseError{Reason: "empty completion"}
	}
	return chat.Choices[0].Message.Content, nil
}

var _ Oracle = (*MistralClient)(nil)
