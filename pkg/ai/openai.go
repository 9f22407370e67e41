package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "class",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of language model completion requests",
	}, []string{"provider", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of failed language model completions",
	}, []string{"provider", "model"})
)

// ErrEmptyCompletion is returned when the provider answers without any choices.
var ErrEmptyCompletion = errors.New("no choices returned from model")

// Providers understood by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config defines how to reach a chat completion endpoint.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// Client implements Completer against an OpenAI-compatible chat completion API.
type Client struct {
	client   *openai.Client
	cfg      Config
	jsonMode bool
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// New builds a completer for the configured provider.
func New(cfg Config) (*Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAIClient(cfg)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// NewOpenAIClient builds a client for the OpenAI API.
func NewOpenAIClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	cfg.Provider = ProviderOpenAI
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return newClient(cfg, true), nil
}

func newClient(cfg Config, jsonMode bool) *Client {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		client:   openai.NewClientWithConfig(config),
		cfg:      cfg,
		jsonMode: jsonMode,
		tracer:   otel.Tracer("github.com/jamditis/class/pkg/ai"),
		logger:   logger.With().Str("component", "ai").Str("provider", cfg.Provider).Logger(),
	}
}

// Model reports the model identifier sent with each request.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends a single system+user exchange and returns the first choice.
func (c *Client) Complete(parent context.Context, prompt Prompt) (Completion, error) {
	ctx, span := c.tracer.Start(parent, "ai.complete", trace.WithAttributes(
		attribute.String("provider", c.cfg.Provider),
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
		Messages:    messages,
	}
	if prompt.JSON && c.jsonMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(c.cfg.Provider, c.cfg.Model).Observe(time.Since(start).Seconds())
	if err == nil && len(resp.Choices) == 0 {
		err = ErrEmptyCompletion
	}
	if err != nil {
		aiFailures.WithLabelValues(c.cfg.Provider, c.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn().Err(err).Msg("completion failed")
		return Completion{}, fmt.Errorf("%s completion: %w", c.cfg.Provider, err)
	}

	model := resp.Model
	if model == "" {
		model = c.cfg.Model
	}

	return Completion{
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
