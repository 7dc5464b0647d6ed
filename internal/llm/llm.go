package llm

import (
	"context"

	"ai-plant-care/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// VisionGenerator is an interface for generating text from a prompt plus an image.
type VisionGenerator interface {
	GenerateFromImage(ctx context.Context, prompt, mimeType string, image []byte) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
