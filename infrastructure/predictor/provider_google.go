package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is the judge used when none is configured.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterBackendFactory("google", newGoogleBackend)
}

type googleBackend struct {
	client     *genai.Client
	model      string
	classifier *ErrorClassifier
}

func newGoogleBackend(cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if looksLikeFilePath(cfg.APIKey) {
		return nil, fmt.Errorf("service account credentials are not supported, use a Gemini API key")
	}
	model := cfg.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		u, err := ValidateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		cc.HTTPOptions.BaseURL = u
	}
	if t := ValidateTimeout(cfg.Timeout); t > 0 {
		cc.HTTPClient = &http.Client{Timeout: t}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	return &googleBackend{
		client:     client,
		model:      model,
		classifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

func (b *googleBackend) Model() string { return b.model }

func (b *googleBackend) Generate(ctx context.Context, req Request) (Response, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, b.buildConfig(req))
	if err != nil {
		return Response{}, b.handleError(err)
	}

	text := resp.Text()
	if text == "" {
		return Response{}, NewProviderError("google", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	var in, out int
	if u := resp.UsageMetadata; u != nil {
		in, out = int(u.PromptTokenCount), int(u.CandidatesTokenCount)
	}
	return Response{
		Text:      text,
		TokensIn:  tokenCount(in, req.System+req.Prompt),
		TokensOut: tokenCount(out, text),
	}, nil
}

func (b *googleBackend) buildConfig(req Request) *genai.GenerateContentConfig {
	s := req.Settings
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	n := maxTokens(s.MaxTokens)
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	cfg.MaxOutputTokens = int32(n)

	if s.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(ClampFloat64(*s.Temperature, MinTemperature, MaxTemperature)))
	}
	if s.TopP != nil {
		cfg.TopP = genai.Ptr(float32(ClampFloat64(*s.TopP, MinTopP, MaxTopP)))
	}
	if s.Seed != nil {
		cfg.Seed = genai.Ptr(int32(*s.Seed))
	}
	if v, ok := extraFloat(s.Extra, "top_k"); ok {
		cfg.TopK = genai.Ptr(float32(ClampFloat64(v, 1, 40)))
	}
	return cfg
}

func (b *googleBackend) handleError(err error) error {
	if isContextError(err) {
		return b.classifier.ClassifyContextError(err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if isSafetyBlock(apiErr.Message, apiErr.Status) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code, "request blocked by safety filters", err)
		}
		return b.classifier.ClassifyHTTPError(apiErr.Code, apiErr.Message, err)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		msg := gErr.Message
		if msg == "" && len(gErr.Errors) > 0 {
			msg = gErr.Errors[0].Message
		}
		reason := ""
		if len(gErr.Errors) > 0 {
			reason = gErr.Errors[0].Reason
		}
		if isSafetyBlock(msg, reason) {
			return NewProviderError("google", ErrorTypeContentPolicy, gErr.Code, "request blocked by safety filters", err)
		}
		return b.classifier.ClassifyHTTPError(gErr.Code, msg, err)
	}

	return NewProviderError("google", ErrorTypeNetwork, 0, "request failed", err)
}

func isSafetyBlock(message, reason string) bool {
	if reason == "SAFETY" || reason == "BLOCKED" {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "safety") || strings.Contains(lower, "blocked")
}

func looksLikeFilePath(s string) bool {
	if filepath.IsAbs(s) || strings.ContainsAny(s, `/\`) {
		return true
	}
	lower := strings.ToLower(s)
	return strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".pem") || strings.HasSuffix(lower, ".p12")
}
