package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/randomtoy/mysticorb/internal/audio"
	"github.com/randomtoy/mysticorb/internal/ports"
)

const narrationPrefix = "Read the following text in an authentic, calm, and natural-sounding New Orleans accent: "

// MediaClient implements ports.SpeechSynthesizer and ports.ImageGenerator
// through the audio and image response modalities.
type MediaClient struct {
	client      *genai.Client
	speechModel string
	voice       string
	imageModel  string
	logger      *slog.Logger
}

// MediaConfig names the models used by MediaClient.
type MediaConfig struct {
	SpeechModel string
	Voice       string
	ImageModel  string
}

func NewMediaClient(client *genai.Client, cfg MediaConfig, logger *slog.Logger) *MediaClient {
	return &MediaClient{
		client:      client,
		speechModel: cfg.SpeechModel,
		voice:       cfg.Voice,
		imageModel:  cfg.ImageModel,
		logger:      logger,
	}
}

// Synthesize narrates text and decodes the returned PCM payload.
func (c *MediaClient) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	blob, err := c.generate(ctx, c.speechModel, narrationPrefix+text, &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.voice},
			},
		},
	})
	if err != nil {
		return audio.Clip{}, err
	}

	clip, err := audio.DecodePCM16(blob.Data, sampleRate(blob.MIMEType), audio.DefaultChannels)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("decode pcm: %w", err)
	}
	c.logger.DebugContext(ctx, "speech synthesized", "model", c.speechModel, "duration", clip.Duration())
	return clip, nil
}

// GenerateImage renders prompt and returns the first inline image.
func (c *MediaClient) GenerateImage(ctx context.Context, prompt string) (ports.Image, error) {
	blob, err := c.generate(ctx, c.imageModel, prompt, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		return ports.Image{}, err
	}

	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return ports.Image{Data: blob.Data, MIMEType: mimeType}, nil
}

func (c *MediaClient) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.Blob, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	parts, err := firstParts(resp)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData, nil
		}
	}
	return nil, fmt.Errorf("no inline data in response")
}

// sampleRate reads the rate parameter of an "audio/L16;codec=pcm;rate=24000" MIME type.
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && k == "rate" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return audio.DefaultSampleRate
}
