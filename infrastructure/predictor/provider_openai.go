package predictor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is the judge used when none is configured.
const OpenAIDefaultModel = "gpt-4o"

func init() {
	RegisterBackendFactory("openai", newOpenAIBackend)
}

type openAIBackend struct {
	client     *openai.Client
	model      string
	classifier *ErrorClassifier
}

func newOpenAIBackend(cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	model := cfg.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := ValidateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = u
	}
	if t := ValidateTimeout(cfg.Timeout); t > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: t}
	}

	return &openAIBackend{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		classifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

func (b *openAIBackend) Model() string { return b.model }

func (b *openAIBackend) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := b.client.CreateChatCompletion(ctx, b.buildRequest(req))
	if err != nil {
		return Response{}, b.handleError(err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, NewProviderError("openai", ErrorTypeUnknown, 0, "", ErrNoResponseChoice)
	}

	text := resp.Choices[0].Message.Content
	return Response{
		Text:      text,
		TokensIn:  tokenCount(resp.Usage.PromptTokens, req.System+req.Prompt),
		TokensOut: tokenCount(resp.Usage.CompletionTokens, text),
	}, nil
}

func (b *openAIBackend) buildRequest(req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	s := req.Settings
	out := openai.ChatCompletionRequest{
		Model:     b.model,
		Messages:  messages,
		MaxTokens: maxTokens(s.MaxTokens),
	}
	if s.Temperature != nil {
		out.Temperature = float32(ClampFloat64(*s.Temperature, MinTemperature, MaxTemperature))
	}
	if s.TopP != nil {
		out.TopP = float32(ClampFloat64(*s.TopP, MinTopP, MaxTopP))
	}
	if s.Seed != nil {
		seed := int(*s.Seed)
		out.Seed = &seed
	}
	if v, ok := extraFloat(s.Extra, "frequency_penalty"); ok {
		out.FrequencyPenalty = float32(ClampFloat64(v, MinPenalty, MaxPenalty))
	}
	if v, ok := extraFloat(s.Extra, "presence_penalty"); ok {
		out.PresencePenalty = float32(ClampFloat64(v, MinPenalty, MaxPenalty))
	}
	return out
}

func (b *openAIBackend) handleError(err error) error {
	if isContextError(err) {
		return b.classifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = "unknown error"
		}
		return b.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, msg, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return b.classifier.ClassifyHTTPError(reqErr.HTTPStatusCode, "request failed", err)
	}

	return NewProviderError("openai", ErrorTypeNetwork, 0, "request failed", err)
}
