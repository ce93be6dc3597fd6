// AngelaMos | 2026
// provider.go

package provider

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/angelamos/scribe/internal/config"
)

var ErrProviderFailure = errors.New("provider failure")

var tracer = otel.Tracer("github.com/angelamos/scribe/internal/provider")

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role
	Content string
}

type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Result struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Provider turns an ordered message list into generated text. Any
// failure is returned wrapped in ErrProviderFailure.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Result, error)
}

func New(ctx context.Context, cfg config.GenerationConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	case "gemini":
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProviderFailure, fmt.Sprintf(format, args...))
}
