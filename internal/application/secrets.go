package application

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Secrets are the provider credentials, read from the environment only.
type Secrets struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`
}

// LoadSecrets reads the provider keys from the process environment.
func LoadSecrets(ctx context.Context) (Secrets, error) {
	return loadSecrets(ctx, envconfig.OsLookuper())
}

func loadSecrets(ctx context.Context, lookuper envconfig.Lookuper) (Secrets, error) {
	var s Secrets
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &s,
		Lookuper: lookuper,
	}); err != nil {
		return Secrets{}, fmt.Errorf("reading provider credentials: %w", err)
	}
	return s, nil
}

// APIKey returns the key for provider, empty when it needs none.
func (s Secrets) APIKey(provider string) string {
	switch provider {
	case "openai":
		return s.OpenAIAPIKey
	case "anthropic":
		return s.AnthropicAPIKey
	case "google":
		return s.GoogleAPIKey
	default:
		return ""
	}
}
