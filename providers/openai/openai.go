// Package openai adapts OpenAI-compatible chat completion APIs to the
// router's provider interface. With a custom base URL it also fronts Groq,
// Together, Ollama, vLLM, and other compatible servers.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	routererrors "github.com/Sherin-SEF-AI/llm-router/pkg/errors"
	"github.com/Sherin-SEF-AI/llm-router/pkg/provider"
	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider implements provider.Provider against an OpenAI-compatible API.
type Provider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	headers map[string]string
}

// Option configures the provider.
type Option func(*Provider)

// WithName overrides the provider's registered name, so several instances
// of this adapter can coexist in one router.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(p *Provider) { p.apiKey = key }
}

// WithBaseURL points the adapter at a compatible non-OpenAI endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(p *Provider) { p.headers[key] = value }
}

// New creates an OpenAI-compatible provider adapter.
func New(opts ...Option) *Provider {
	p := &Provider{
		name:    "openai",
		baseURL: DefaultBaseURL,
		client:  &http.Client{},
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return p.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	Stop          []string       `json:"stop,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage wireUsage `json:"usage"`
}

func (p *Provider) buildBody(req *types.Request, stream bool) chatRequest {
	body := chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      stream,
	}
	if len(req.Messages) > 0 {
		body.Messages = make([]chatMessage, len(req.Messages))
		for i, m := range req.Messages {
			body.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
		}
	} else {
		body.Messages = []chatMessage{{Role: "user", Content: req.Prompt}}
	}
	if stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return body
}

func (p *Provider) newRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// Complete performs a single chat completion call.
func (p *Provider) Complete(ctx context.Context, req *types.Request) (*types.Completion, error) {
	httpReq, err := p.newRequest(ctx, "/chat/completions", p.buildBody(req, false))
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.transportError(req.Model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, p.mapError(resp.StatusCode, req.Model, body)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, routererrors.NewInternalError(p.name, req.Model, "response has no choices")
	}

	return &types.Completion{
		Content:  chatResp.Choices[0].Message.Content,
		Provider: p.name,
		Model:    chatResp.Model,
		Usage: types.Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

// Stream performs a streamed chat completion call.
func (p *Provider) Stream(ctx context.Context, req *types.Request) (provider.ChunkStream, error) {
	httpReq, err := p.newRequest(ctx, "/chat/completions", p.buildBody(req, true))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.transportError(req.Model, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, p.mapError(resp.StatusCode, req.Model, body)
	}

	return &sseStream{
		body:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
	}, nil
}

// Probe lists models as a lightweight connectivity check.
func (p *Provider) Probe(ctx context.Context) (time.Duration, error) {
	url := strings.TrimSuffix(p.baseURL, "/") + "/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return 0, p.transportError("", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return 0, p.mapError(resp.StatusCode, "", body)
	}
	return time.Since(start), nil
}

func (p *Provider) transportError(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return routererrors.NewTimeoutError(p.name, model, err.Error())
	}
	return fmt.Errorf("%s request: %w", p.name, err)
}

func (p *Provider) mapError(statusCode int, model string, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := http.StatusText(statusCode)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return routererrors.NewAuthenticationError(p.name, model, message)
	case http.StatusTooManyRequests:
		return routererrors.NewRateLimitError(p.name, model, message)
	case http.StatusBadRequest, http.StatusNotFound:
		return routererrors.NewInvalidRequestError(p.name, model, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return routererrors.NewTimeoutError(p.name, model, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return routererrors.NewServiceUnavailableError(p.name, model, message)
	default:
		return routererrors.NewInternalError(p.name, model, message)
	}
}
