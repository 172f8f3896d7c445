package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const secretKeyPath = "/run/secrets/openai_api_key"

// Spans are no-ops unless a run installed a real provider.
var tracer = otel.Tracer("diyrepair.llm")

// ClientConfig tunes the OpenAI-backed oracle gateway. The zero value
// gets sensible defaults from NewOpenAIClient.
type ClientConfig struct {
	// Model is the chat completion model. Default: gpt-4o-mini.
	Model string

	// RequestTimeout bounds each individual API call.
	// Default: 60s.
	RequestTimeout time.Duration

	// MinRequestInterval paces calls so batch loops stay inside
	// API rate limits. Zero disables pacing.
	MinRequestInterval time.Duration

	// Retry controls backoff for transient failures.
	Retry RetryPolicy

	// BaseURL overrides the API endpoint; tests point it at a local
	// httptest server.
	BaseURL string
}

type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	retry   RetryPolicy
}

// NewOpenAIClient builds the gateway. The API key comes from the
// OPENAI_API_KEY environment variable, falling back to the container
// secret file.
func NewOpenAIClient(cfg ClientConfig) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKeyBytes, err := os.ReadFile(secretKeyPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API key from container secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretKeyPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
		slog.Warn("model not set, defaulting to gpt-4o-mini")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinRequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinRequestInterval), 1)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	slog.Info("Initializing OpenAI client", "model", cfg.Model)
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.RequestTimeout,
		limiter: limiter,
		retry:   cfg.Retry,
	}, nil
}

// Model returns the configured chat model name.
func (o *OpenAIClient) Model() string {
	return o.model
}

// Generate implements the LLMClient interface. Each call waits for
// the pacing limiter, runs under its own timeout, and retries
// transient failures with exponential backoff before giving up with
// a TransientError.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (_ string, err error) {
	ctx, span := tracer.Start(ctx, "llm.Generate",
		trace.WithAttributes(attribute.String("llm.model", o.model)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	slog.Debug("Generating text via OpenAI", "model", o.model)
	systemRoleContent := params.SystemPrompt
	if systemRoleContent == "" {
		systemRoleContent = "You are a helpful assistant."
	}
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemRoleContent},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	var lastErr error
	for attempt := 1; attempt <= o.retry.MaxAttempts; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
		resp, err := o.client.CreateChatCompletion(attemptCtx, req)
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				slog.Warn("OpenAI returned no choices or empty content")
				return "", &MalformedOutputError{Err: fmt.Errorf("OpenAI returned no choices")}
			}
			slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
			return resp.Choices[0].Message.Content, nil
		}

		// Parent cancellation wins over retry classification.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if !isRetryable(err) {
			slog.Error("OpenAI API call failed", "error", err)
			return "", fmt.Errorf("OpenAI API call failed: %w", err)
		}

		lastErr = err
		if attempt < o.retry.MaxAttempts {
			delay := o.retry.Delay(attempt)
			slog.Warn("retrying OpenAI call",
				"attempt", attempt,
				"max_attempts", o.retry.MaxAttempts,
				"delay", delay.String(),
				"error", err.Error(),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	slog.Error("OpenAI API call exhausted retries", "attempts", o.retry.MaxAttempts, "error", lastErr)
	return "", &TransientError{Op: "chat completion", Attempts: o.retry.MaxAttempts, Err: lastErr}
}

var _ LLMClient = (*OpenAIClient)(nil)
