package llm

import (
	"context"
	"fmt"
	"strings"

	"ai-plant-care/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Options enumerates the recognized per-client generation settings. They are
// threaded explicitly through construction rather than read from ambient state.
type Options struct {
	// Model names the Gemini model to use, e.g. "gemini-1.5-flash".
	Model string
	// APIKeyOverride, when non-empty, replaces the configured API key for
	// this client. Used when the user supplies their own key in settings.
	APIKeyOverride string
}

// geminiClient is a client for the Google Gemini API. All agents in this
// application expect structured JSON output, so the model is pinned to the
// JSON response MIME type.
type geminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey string, opts Options) (*geminiClient, error) {
	key := apiKey
	if opts.APIKeyOverride != "" {
		key = opts.APIKeyOverride
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(opts.Model)
	model.ResponseMIMEType = "application/json"

	return &geminiClient{client: client, model: model, modelName: opts.Model}, nil
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (c *geminiClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}
	return c.toContentResponse(resp)
}

// GenerateFromImage sends a prompt together with an inline image to the model.
func (c *geminiClient) GenerateFromImage(ctx context.Context, prompt, mimeType string, image []byte) (ContentResponse, error) {
	format := strings.TrimPrefix(mimeType, "image/")
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(format, image))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content from image: %w", err)
	}
	return c.toContentResponse(resp)
}

func (c *geminiClient) toContentResponse(resp *genai.GenerateContentResponse) (ContentResponse, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return ContentResponse{}, fmt.Errorf("generated content is not text")
	}

	usage := shared.TokenUsage{Model: c.modelName}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return ContentResponse{Content: string(text), Usage: usage}, nil
}

// Close closes the underlying Gemini client.
func (c *geminiClient) Close() error {
	return c.client.Close()
}
