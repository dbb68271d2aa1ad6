package ports

import (
	"context"

	"github.com/randomtoy/mysticorb/internal/audio"
)

// Image is a generated raster image.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator renders a card illustration from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (Image, error)
}

// SpeechSynthesizer turns narration text into a decoded audio clip.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (audio.Clip, error)
}
