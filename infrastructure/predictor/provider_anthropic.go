package predictor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicDefaultModel is the judge used when none is configured.
const AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

func init() {
	RegisterBackendFactory("anthropic", newAnthropicBackend)
}

type anthropicBackend struct {
	client     anthropic.Client
	model      string
	classifier *ErrorClassifier
}

func newAnthropicBackend(cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	model := cfg.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		u, err := ValidateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		opts = append(opts, option.WithBaseURL(u))
	}
	if t := ValidateTimeout(cfg.Timeout); t > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: t}))
	}
	// Retries belong to the middleware chain.
	opts = append(opts, option.WithMaxRetries(0))

	return &anthropicBackend{
		client:     anthropic.NewClient(opts...),
		model:      model,
		classifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

func (b *anthropicBackend) Model() string { return b.model }

func (b *anthropicBackend) Generate(ctx context.Context, req Request) (Response, error) {
	msg, err := b.client.Messages.New(ctx, b.buildParams(req))
	if err != nil {
		return Response{}, b.handleError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return Response{}, NewProviderError("anthropic", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	out := text.String()
	return Response{
		Text:      out,
		TokensIn:  tokenCount(int(msg.Usage.InputTokens), req.System+req.Prompt),
		TokensOut: tokenCount(int(msg.Usage.OutputTokens), out),
	}, nil
}

func (b *anthropicBackend) buildParams(req Request) anthropic.MessageNewParams {
	s := req.Settings
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(maxTokens(s.MaxTokens)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	// Anthropic caps temperature at 1.
	if s.Temperature != nil {
		params.Temperature = anthropic.Float(ClampFloat64(*s.Temperature, MinTemperature, 1))
	}
	if s.TopP != nil {
		params.TopP = anthropic.Float(ClampFloat64(*s.TopP, MinTopP, MaxTopP))
	}
	return params
}

func (b *anthropicBackend) handleError(err error) error {
	if isContextError(err) {
		return b.classifier.ClassifyContextError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		perr := b.classifier.ClassifyHTTPError(apiErr.StatusCode, http.StatusText(apiErr.StatusCode), err)
		if apiErr.Response != nil {
			perr.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return perr
	}

	return NewProviderError("anthropic", ErrorTypeNetwork, 0, "request failed", err)
}

// parseRetryAfter reads the delay-seconds form of a Retry-After header.
func parseRetryAfter(v string) *time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}
