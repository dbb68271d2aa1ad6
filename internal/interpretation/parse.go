package interpretation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/randomtoy/mysticorb/internal/domain"
	"github.com/randomtoy/mysticorb/internal/errors"
	"github.com/randomtoy/mysticorb/internal/ports"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseSpread decodes and validates a spread response against the request it answers.
// Any defect rejects the whole response.
func ParseSpread(raw string, in ports.InterpretInput) ([]domain.CardInterpretation, error) {
	var records []domain.CardInterpretation
	if err := json.Unmarshal([]byte(stripFences(raw)), &records); err != nil {
		return nil, errors.InterpretationParse("response is not a JSON array of interpretations", err)
	}
	if len(records) != len(in.Cards) {
		return nil, errors.InterpretationParse(
			fmt.Sprintf("expected %d interpretations, got %d", len(in.Cards), len(records)), nil)
	}
	for i, rec := range records {
		if err := check(rec, in.Cards[i]); err != nil {
			return nil, err
		}
		if !sameText(rec.Position, in.Cards[i].Position) {
			return nil, errors.InterpretationParse(
				fmt.Sprintf("interpretation %d has position %q, want %q", i, rec.Position, in.Cards[i].Position), nil)
		}
		records[i].Position = in.Cards[i].Position
	}
	return records, nil
}

// ParseYesNo decodes and validates a single-object yes/no response.
func ParseYesNo(raw string, in ports.InterpretInput) (domain.CardInterpretation, error) {
	var rec domain.CardInterpretation
	if err := json.Unmarshal([]byte(stripFences(raw)), &rec); err != nil {
		return domain.CardInterpretation{}, errors.InterpretationParse("response is not a JSON interpretation object", err)
	}
	if len(in.Cards) != 1 {
		return domain.CardInterpretation{}, errors.InterpretationParse("yes/no request must carry exactly one card", nil)
	}
	if err := check(rec, in.Cards[0]); err != nil {
		return domain.CardInterpretation{}, err
	}
	rec.Position = ""
	return rec, nil
}

func check(rec domain.CardInterpretation, drawn ports.DrawnCardInput) error {
	if err := validate.Struct(rec); err != nil {
		return errors.InterpretationParse("interpretation is missing required fields", err)
	}
	for _, kw := range rec.Keywords {
		if strings.TrimSpace(kw) == "" {
			return errors.InterpretationParse("interpretation has a blank keyword", nil)
		}
	}
	if strings.TrimSpace(rec.Interpretation) == "" {
		return errors.InterpretationParse("interpretation text is blank", nil)
	}
	if !sameText(rec.CardName, drawn.Name) {
		return errors.InterpretationParse(
			fmt.Sprintf("interpretation names %q, drawn card is %q", rec.CardName, drawn.Name), nil)
	}
	return nil
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}

// stripFences removes a surrounding markdown code fence some models add
// even when asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
