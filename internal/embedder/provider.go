package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider turns a batch of texts into vectors through a remote embedding
// API. Implementations return one vector per input text, in input order,
// plus the token count the provider billed for the call (0 if unknown).
type Provider interface {
	Name() string
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, int, error)
}

type ProviderFactory func(args interface{}) (Provider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode provider config: %w", err)
	}
	return nil
}

// estimateTokens is a rough fallback for providers that do not report
// usage: about 4 characters per token for English text.
func estimateTokens(texts []string) int {
	total := 0
	for _, t := range texts {
		total += len(t) / 4
	}
	return total
}
