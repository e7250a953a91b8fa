package refine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/iller5/content-cli/pkg/anthropic"
)

// Compile-time interface check.
var _ anthropic.Client = (*StubClient)(nil)

// StubClient implements anthropic.Client with a canned refinement, for
// offline runs. When the prompt carries a category hint the stub echoes
// it back as the category, so routing still gets exercised.
type StubClient struct{}

// CreateMessage implements anthropic.Client.
func (s *StubClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	category := "Kardiologi"
	for _, m := range req.Messages {
		for _, line := range strings.Split(m.Content, "\n") {
			if hint := strings.TrimPrefix(line, "Category Hint: "); hint != line && strings.TrimSpace(hint) != "" {
				category = strings.TrimSpace(hint)
			}
		}
	}

	payload := map[string]any{
		"category": category,
		"data": map[string]any{
			"type":     "multiple_choice",
			"tags":     []string{"Hjärtsvikt", "Farmakologi"},
			"question": "Vilket läkemedel är förstahandsval vid akut hjärtsvikt med lungödem?",
			"image":    nil,
			"options": []map[string]any{
				{"text": "Furosemid i.v.", "correct": true, "feedback": "Loopdiuretika avlastar snabbt lungcirkulationen vid övervätskning."},
				{"text": "Metoprolol i.v.", "correct": false, "feedback": "Betablockad sänker hjärtats pumpförmåga och förvärrar akut svikt."},
				{"text": "Digoxin p.o.", "correct": false, "feedback": "Digitalis har ingen plats i det akuta skedet av lungödem."},
			},
			"explanation": "Vid akut hjärtsvikt med lungödem är snabb avlastning av vänster kammare avgörande. Furosemid intravenöst ger både venodilatation och diures.",
		},
	}
	text, _ := json.Marshal(payload)

	return &anthropic.MessageResponse{
		ID:         "stub-msg-001",
		Model:      req.Model,
		Content:    []anthropic.ContentBlock{{Type: "text", Text: string(text)}},
		StopReason: "end_turn",
		Usage: anthropic.TokenUsage{
			InputTokens:  150,
			OutputTokens: 50,
		},
	}, nil
}
