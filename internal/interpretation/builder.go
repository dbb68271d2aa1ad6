// Package interpretation builds interpretation requests and validates the
// structured responses before they reach a reading.
package interpretation

import (
	"fmt"
	"strings"

	"github.com/randomtoy/mysticorb/internal/domain"
	"github.com/randomtoy/mysticorb/internal/errors"
	"github.com/randomtoy/mysticorb/internal/ports"
)

const persona = "You are an authentic tarot reader from New Orleans. You have a genuine, non-theatrical New Orleans accent. " +
	"Your readings are direct, insightful, and grounded in years of experience. You avoid cliches and speak plainly, with a natural warmth and wisdom."

var keywordsSchema = &ports.Schema{
	Type:        ports.TypeArray,
	Description: "An array of 3-4 short, punchy keywords or phrases.",
	Items:       &ports.Schema{Type: ports.TypeString},
}

// BuildSpread prepares the request for a multi-position reading. cards must
// line up with spread.Positions.
func BuildSpread(question string, cards []domain.Card, spread domain.Spread) (ports.InterpretInput, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ports.InterpretInput{}, errors.Validation("please enter a question")
	}
	if len(cards) != spread.CardCount || len(spread.Positions) != spread.CardCount {
		return ports.InterpretInput{}, errors.Validation(fmt.Sprintf(
			"spread %q needs %d cards, got %d", spread.Name, spread.CardCount, len(cards)))
	}

	drawn := make([]ports.DrawnCardInput, len(cards))
	lines := make([]string, len(cards))
	for i, c := range cards {
		drawn[i] = ports.DrawnCardInput{Position: spread.Positions[i], Name: c.Name}
		lines[i] = fmt.Sprintf("- %s: %s", spread.Positions[i], c.Name)
	}

	prompt := fmt.Sprintf(`%s
The user's question is: "%s".
The spread is "%s".
The cards drawn are:
%s

For each card, provide a direct and insightful interpretation based on its position, limited to two or three powerful sentences. Also, provide 3-4 short, relevant keywords. Your tone is authentic and down-to-earth. Return the entire reading as a JSON array.`,
		persona, question, spread.Name, strings.Join(lines, "\n"))

	return ports.InterpretInput{
		Mode:       ports.ModeSpread,
		Question:   question,
		SpreadName: spread.Name,
		Cards:      drawn,
		Prompt:     prompt,
		Schema: &ports.Schema{
			Type: ports.TypeArray,
			Items: &ports.Schema{
				Type: ports.TypeObject,
				Properties: map[string]*ports.Schema{
					"position": {Type: ports.TypeString, Description: "The position of the card in the spread (e.g., Past, Present, Future)."},
					"cardName": {Type: ports.TypeString, Description: "The name of the tarot card."},
					"keywords": keywordsSchema,
					"interpretation": {
						Type:        ports.TypeString,
						Description: "A direct and insightful interpretation of the card in its position.",
					},
				},
				Required: []string{"position", "cardName", "keywords", "interpretation"},
			},
		},
	}, nil
}

// BuildYesNo prepares the request for a single-card yes/no reading.
func BuildYesNo(question string, card domain.Card) (ports.InterpretInput, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ports.InterpretInput{}, errors.Validation("please enter a question")
	}

	prompt := fmt.Sprintf(`%s
The user asks: "%s".
The card drawn is: %s.
Based on the card's meaning, give a direct interpretation. Your interpretation should implicitly suggest a "Yes", "No", or "Maybe" without necessarily starting with the word. Provide 3-4 relevant keywords. Respond with a JSON object.`,
		persona, question, card.Name)

	return ports.InterpretInput{
		Mode:     ports.ModeYesNo,
		Question: question,
		Cards:    []ports.DrawnCardInput{{Name: card.Name}},
		Prompt:   prompt,
		Schema: &ports.Schema{
			Type: ports.TypeObject,
			Properties: map[string]*ports.Schema{
				"cardName": {Type: ports.TypeString, Description: "The name of the tarot card."},
				"keywords": keywordsSchema,
				"interpretation": {
					Type:        ports.TypeString,
					Description: "A direct and insightful interpretation that answers the user's question.",
				},
			},
			Required: []string{"cardName", "keywords", "interpretation"},
		},
	}, nil
}
