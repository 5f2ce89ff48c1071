package generate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fitcoach/kotae/internal/metrics"
)

// Config holds the generation provider settings. BaseURL points at any
// OpenAI-compatible endpoint; the default deployment uses Groq.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
	Policy      Policy
	Logger      *zap.Logger
}

// Client calls an OpenAI-compatible chat completion API with a per-attempt
// timeout and the configured retry policy.
type Client struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	temperature float32
	maxTokens   int
	policy      Policy
	logger      *zap.Logger
}

// NewClient creates a generation client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		policy:      cfg.Policy,
		logger:      logger,
	}
}

// Generate invokes the model. Transient failures (timeout, rate limit, 5xx)
// are retried per the policy and surface as ErrTimeout once the budget is
// exhausted; anything else surfaces immediately as ErrGeneration.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	var resp Response
	attempts := 0

	err := c.policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			metrics.GenerationRetriesTotal.Inc()
		}
		attemptCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		completion, err := c.client.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: req.System},
				{Role: openai.ChatMessageRoleUser, Content: req.User},
			},
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		})
		if err != nil {
			return err
		}
		if len(completion.Choices) == 0 {
			return fmt.Errorf("no completion choices returned")
		}
		resp = Response{
			Text:       completion.Choices[0].Message.Content,
			TokensUsed: completion.Usage.TotalTokens,
			Model:      completion.Model,
		}
		return nil
	}, isTransient)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Response{}, err
		}
		metrics.GenerationRequestsTotal.WithLabelValues(c.model, "error").Inc()
		if isTransient(err) {
			c.logger.Warn("generation exhausted retry budget",
				zap.Int("attempts", attempts), zap.Error(err))
			return Response{}, fmt.Errorf("%w after %d attempts: %v", ErrTimeout, attempts, err)
		}
		return Response{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	metrics.GenerationRequestsTotal.WithLabelValues(c.model, "success").Inc()
	return resp, nil
}

// isTransient reports whether err is worth retrying: deadline/network
// timeouts, rate limits, and provider 5xx responses.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return false
}
