package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"
)

// ProviderType the vendor behind a model name
type ProviderType string

const (
	ProviderClaude ProviderType = "claude"
	ProviderGemini ProviderType = "gemini"
)

// ErrNoProvider returned when no provider is registered for a model.
var ErrNoProvider = errors.New("no llm provider for model")

// Request one text generation call.
type Request struct {
	Model  string
	System string
	Prompt string
}

// Provider generates free text for a prompt.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GenerationSettings shared by every provider.
type GenerationSettings struct {
	MaxTokens   int
	Temperature float64
	// HTTPClient transport for outbound calls; nil uses the SDK default.
	HTTPClient *http.Client
}

// AnthropicProvider Claude models via the Messages API.
type AnthropicProvider struct {
	client   anthropic.Client
	settings GenerationSettings
}

func NewAnthropicProvider(apiKey string, settings GenerationSettings) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if settings.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(settings.HTTPClient))
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...), settings: settings}
}

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := p.settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if p.settings.Temperature > 0 {
		params.Temperature = anthropic.Float(p.settings.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("claude returned no text")
	}
	return out.String(), nil
}

// GeminiProvider Gemini models via the GenAI SDK.
type GeminiProvider struct {
	client   *genai.Client
	settings GenerationSettings
}

func NewGeminiProvider(ctx context.Context, apiKey string, settings GenerationSettings) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: settings.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, settings: settings}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(p.settings.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if p.settings.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.settings.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini call failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

// Router dispatches a request to the provider owning its model.
type Router struct {
	providers map[ProviderType]Provider
}

func NewRouter() *Router {
	return &Router{providers: map[ProviderType]Provider{}}
}

func (r *Router) Register(kind ProviderType, p Provider) {
	r.providers[kind] = p
}

func (r *Router) Empty() bool {
	return len(r.providers) == 0
}

// DetectProvider by explicit "claude/" style prefix or model name pattern.
func DetectProvider(model string) ProviderType {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude/"), strings.HasPrefix(m, "anthropic/"), strings.HasPrefix(m, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(m, "gemini/"), strings.HasPrefix(m, "google/"), strings.HasPrefix(m, "gemini-"):
		return ProviderGemini
	}
	return ""
}

// NormalizeModel strips a provider prefix.
func NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

func (r *Router) Generate(ctx context.Context, req Request) (string, error) {
	p, ok := r.providers[DetectProvider(req.Model)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoProvider, req.Model)
	}
	req.Model = NormalizeModel(req.Model)
	return p.Generate(ctx, req)
}
