package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/randomtoy/mysticorb/internal/ports"
)

// Interpreter implements ports.Interpreter with schema-constrained JSON output.
type Interpreter struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewInterpreter(client *genai.Client, model string, logger *slog.Logger) *Interpreter {
	return &Interpreter{client: client, model: model, logger: logger}
}

// Interpret returns the model's JSON text without interpreting it.
func (i *Interpreter) Interpret(ctx context.Context, in ports.InterpretInput) (string, error) {
	resp, err := i.client.Models.GenerateContent(ctx, i.model, genai.Text(in.Prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toSchema(in.Schema),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	i.logger.DebugContext(ctx, "interpretation received", "model", i.model, "mode", in.Mode, "bytes", len(text))
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	parts, err := firstParts(resp)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}
	return text, nil
}

func toSchema(s *ports.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toType(s.Type),
		Description: s.Description,
		Items:       toSchema(s.Items),
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	return out
}

func toType(t ports.SchemaType) genai.Type {
	switch t {
	case ports.TypeObject:
		return genai.TypeObject
	case ports.TypeArray:
		return genai.TypeArray
	case ports.TypeString:
		return genai.TypeString
	default:
		return genai.TypeUnspecified
	}
}
