package reasoning

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config holds settings for the OpenAI-compatible service.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	VisionModel     string
	Temperature     float32
	MaxTokens       int
	VisionMaxTokens int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Model:           "gpt-4o-mini",
		VisionModel:     "gpt-4o",
		Temperature:     0.7,
		MaxTokens:       150,
		VisionMaxTokens: 300,
	}
}

var tracer = otel.Tracer("reasoning")

// OpenAIClient implements Reasoner on top of the chat completions API.
type OpenAIClient struct {
	client *openai.Client
	config Config
	logger *zap.Logger
}

// NewOpenAIClient creates a client. An empty BaseURL uses the public API.
func NewOpenAIClient(cfg Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	defaults := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = defaults.VisionModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.VisionMaxTokens <= 0 {
		cfg.VisionMaxTokens = defaults.VisionMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		logger: logger,
	}, nil
}

// ClassifyQuestion asks the service whether question needs the camera and
// which categories it concerns. One request, no retries.
func (c *OpenAIClient) ClassifyQuestion(ctx context.Context, question string) (Classification, error) {
	ctx, span := tracer.Start(ctx, "ClassifyQuestion", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ClassifierRole},
			{Role: openai.ChatMessageRoleUser, Content: InitialPrompt(question)},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		span.RecordError(err)
		return Classification{}, fmt.Errorf("classify question: %w", err)
	}

	result, err := ParseClassification(content)
	if err != nil {
		c.logger.Warn("unparseable classification", zap.String("content", content), zap.Error(err))
		span.RecordError(err)
		return Classification{}, fmt.Errorf("classify question: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("needs_visual", result.NeedsVisual),
		attribute.StringSlice("categories", result.Categories),
	)
	return result, nil
}

// DescribeFrames sends all images in one request together with the
// collective-frames prompt.
func (c *OpenAIClient) DescribeFrames(ctx context.Context, question string, images [][]byte, categories []string) (string, error) {
	ctx, span := tracer.Start(ctx, "DescribeFrames", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("images", len(images)))

	if len(images) == 0 {
		return "", errors.New("describe frames: no images")
	}

	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: CollectivePrompt(question, categories),
	})
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    JPEGDataURL(img),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.config.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: AssistantRole},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.VisionMaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("describe frames: %w", err)
	}
	return content, nil
}

// DirectAnswer answers question without visual context.
func (c *OpenAIClient) DirectAnswer(ctx context.Context, question string) (string, error) {
	ctx, span := tracer.Start(ctx, "DirectAnswer", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: AssistantRole},
			{Role: openai.ChatMessageRoleUser, Content: DirectAnswerPrompt(question)},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("direct answer: %w", err)
	}
	return content, nil
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("completion received",
		zap.String("model", req.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return content, nil
}

// JPEGDataURL wraps JPEG bytes in a base64 data URL.
func JPEGDataURL(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}
