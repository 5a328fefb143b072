package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error)
}

// NewGenerator creates the generator for provider.
func NewGenerator(ctx context.Context, provider Provider, apiKey string) (*GeminiGenerator, error) {
	switch provider {
	case ProviderGemini, "":
		return NewGeminiGenerator(ctx, apiKey)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", provider)
	}
}

// GeminiGenerator implements Generator for Google Gemini.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator creates a Gemini client authenticated with apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{client: client}, nil
}

// Generate sends prompt to the configured model and returns its text reply.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}

	model := g.client.GenerativeModel(name)
	model.SetTemperature(float32(cfg.Temperature))
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}
	if cfg.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", Classify(ProviderGemini, fmt.Errorf("failed to generate content: %w", err))
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", &Error{Kind: ErrEmptyResponse, Provider: ProviderGemini, Err: err}
	}
	if cfg.JSON {
		text = CleanJSONBlock(text)
	}
	return text, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response (finish reason %s)", candidate.FinishReason)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
