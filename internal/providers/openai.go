package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dshills/issuelens/internal/retry"
)

const defaultTimeout = 30 * time.Second

// OpenAI implements Completer for any OpenAI-compatible endpoint.
type OpenAI struct {
	name    string
	model   string
	timeout time.Duration
	client  *openai.Client
}

// NewOpenAI creates a client for cfg.BaseURL.
func NewOpenAI(cfg Config) *OpenAI {
	return newOpenAI(cfg, nil)
}

func newOpenAI(cfg Config, httpCli *http.Client) *OpenAI {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpCli != nil {
		oc.HTTPClient = httpCli
	}
	return &OpenAI{
		name:    cfg.Provider,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  openai.NewClientWithConfig(oc),
	}
}

func (o *OpenAI) Name() string  { return o.name }
func (o *OpenAI) Model() string { return o.model }

// Complete sends one chat completion under the configured per-call timeout.
func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	resp, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return CompletionResponse{}, classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, retry.New(retry.KindAPIError, fmt.Errorf("%s: empty choices in response", o.name))
	}
	return CompletionResponse{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// classify maps a go-openai error onto a retry kind. Cancellation of the
// parent context is returned untouched.
func classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return retry.New(retry.KindTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return retry.New(retry.KindTimeout, err)
		}
		return retry.New(retry.KindAPIError, err)
	}
	return retry.New(retry.KindUnknown, err)
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return retry.RateLimited(err, time.Time{})
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return retry.New(retry.KindAuth, err)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return retry.New(retry.KindTimeout, err)
	default:
		return retry.New(retry.KindAPIError, err)
	}
}
