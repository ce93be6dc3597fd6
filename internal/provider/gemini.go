// AngelaMos | 2026
// gemini.go

package provider

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/angelamos/scribe/internal/config"
)

const defaultGeminiModel = "gemini-2.0-flash"

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg config.GenerationConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string {
	return "gemini:" + g.model
}

// Complete sends system messages as the system instruction and the rest
// as user turns, preserving their order.
func (g *Gemini) Complete(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "provider.gemini.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("provider.model", g.model),
		attribute.Int("provider.max_tokens", req.MaxTokens),
	)

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	temperature := float32(req.Temperature)
	genCfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens) //nolint:gosec // bounded by config validation
	}
	if len(system) > 0 {
		genCfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrProviderFailure, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return nil, err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		err := failure("gemini returned no content")
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty completion")
		return nil, err
	}

	result := &Result{Text: text}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	span.SetAttributes(
		attribute.Int("provider.prompt_tokens", result.PromptTokens),
		attribute.Int("provider.completion_tokens", result.CompletionTokens),
	)
	return result, nil
}
