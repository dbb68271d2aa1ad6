package ports

import "context"

// ReadingMode selects the response shape the interpreter is asked for.
type ReadingMode string

const (
	ModeSpread ReadingMode = "spread"
	ModeYesNo  ReadingMode = "yes_no"
)

// SchemaType is a JSON schema primitive.
type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeArray  SchemaType = "array"
	TypeString SchemaType = "string"
)

// Schema is a provider-neutral description of the expected JSON response.
type Schema struct {
	Type        SchemaType
	Description string
	Items       *Schema
	Properties  map[string]*Schema
	Required    []string
}

// DrawnCardInput is one drawn card as presented to the interpreter.
type DrawnCardInput struct {
	Position string
	Name     string
}

// InterpretInput holds everything the interpreter needs.
type InterpretInput struct {
	Mode       ReadingMode
	Question   string
	SpreadName string
	Cards      []DrawnCardInput
	Prompt     string
	Schema     *Schema
}

// Interpreter returns the raw JSON text produced for in. Callers must
// validate it; implementations never retry.
type Interpreter interface {
	Interpret(ctx context.Context, in InterpretInput) (string, error)
}
