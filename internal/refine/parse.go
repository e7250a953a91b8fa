package refine

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/iller5/content-cli/internal/model"
	"github.com/iller5/content-cli/pkg/anthropic"
)

// refinement mirrors the JSON object the system prompt asks for.
type refinement struct {
	Category string `json:"category"`
	Data     struct {
		Type        string         `json:"type"`
		Tags        []string       `json:"tags"`
		Question    string         `json:"question"`
		Image       *string        `json:"image"`
		Options     []model.Option `json:"options"`
		Explanation string         `json:"explanation"`
	} `json:"data"`
}

// parseRefinement decodes and validates a model response. Unknown fields
// are rejected so drift in the response shape surfaces as an error
// instead of silently dropping content.
func parseRefinement(text string) (*Result, error) {
	dec := json.NewDecoder(strings.NewReader(cleanJSON(text)))
	dec.DisallowUnknownFields()

	var ref refinement
	if err := dec.Decode(&ref); err != nil {
		return nil, eris.Wrap(err, "decode json")
	}

	if ref.Category == "" {
		return nil, eris.New("missing category")
	}
	if ref.Data.Type != model.TypeMultipleChoice {
		return nil, eris.Errorf("unexpected question type %q", ref.Data.Type)
	}
	if ref.Data.Question == "" {
		return nil, eris.New("missing question text")
	}
	if n := len(ref.Data.Tags); n < 1 || n > 3 {
		return nil, eris.Errorf("got %d tags, want 1-3", n)
	}
	if n := len(ref.Data.Options); n < 2 || n > 6 {
		return nil, eris.Errorf("got %d options, want 2-6", n)
	}

	return &Result{
		Category: ref.Category,
		Question: model.Question{
			Type:        ref.Data.Type,
			Tags:        ref.Data.Tags,
			Question:    ref.Data.Question,
			Image:       ref.Data.Image,
			Options:     ref.Data.Options,
			Explanation: ref.Data.Explanation,
		},
	}, nil
}

// extractText concatenates all text content blocks from a message response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
