package refine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iller5/content-cli/pkg/anthropic"
)

func TestParseRefinement_Valid(t *testing.T) {
	t.Parallel()

	result, err := parseRefinement(sampleRefinementJSON)
	require.NoError(t, err)

	assert.Equal(t, "Kardiologi", result.Category)
	assert.Equal(t, []string{"EKG", "Elektrolytrubbning"}, result.Question.Tags)
	assert.Len(t, result.Question.Options, 3)
	assert.NotEmpty(t, result.Question.Explanation)
}

func TestParseRefinement_CodeFence(t *testing.T) {
	t.Parallel()

	fenced := "```json\n" + sampleRefinementJSON + "\n```"
	result, err := parseRefinement(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Kardiologi", result.Category)
}

func TestParseRefinement_SurroundingProse(t *testing.T) {
	t.Parallel()

	wrapped := "Här är den förfinade frågan:\n" + sampleRefinementJSON + "\nSäg till om något ska ändras."
	result, err := parseRefinement(wrapped)
	require.NoError(t, err)
	assert.Equal(t, "Kardiologi", result.Category)
}

func TestParseRefinement_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := parseRefinement(`{"category": "Kardiologi", "difficulty": 5, "data": {}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode json")
}

func refinementWith(t *testing.T, qType string, tags, options int) string {
	t.Helper()

	tagList := make([]string, tags)
	for i := range tagList {
		tagList[i] = fmt.Sprintf(`"Tagg%d"`, i+1)
	}
	optList := make([]string, options)
	for i := range optList {
		optList[i] = fmt.Sprintf(`{"text": "Alt %d", "correct": %t, "feedback": "Motivering."}`, i+1, i == 0)
	}

	return fmt.Sprintf(`{
		"category": "Kardiologi",
		"data": {
			"type": %q,
			"tags": [%s],
			"question": "Fråga?",
			"image": null,
			"options": [%s],
			"explanation": "Förklaring."
		}
	}`, qType, strings.Join(tagList, ", "), strings.Join(optList, ", "))
}

func TestParseRefinement_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"wrong type", refinementWith(t, "free_text", 2, 3), "unexpected question type"},
		{"no tags", refinementWith(t, "multiple_choice", 0, 3), "tags"},
		{"too many tags", refinementWith(t, "multiple_choice", 4, 3), "tags"},
		{"one option", refinementWith(t, "multiple_choice", 2, 1), "options"},
		{"seven options", refinementWith(t, "multiple_choice", 2, 7), "options"},
		{"missing category", `{"category": "", "data": {"type": "multiple_choice"}}`, "missing category"},
		{"not json", "inget JSON här", "decode json"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := parseRefinement(tc.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseRefinement_MissingQuestionText(t *testing.T) {
	t.Parallel()

	input := strings.Replace(refinementWith(t, "multiple_choice", 2, 3), `"question": "Fråga?"`, `"question": ""`, 1)
	_, err := parseRefinement(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing question text")
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", extractText(nil))

	resp := &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{
			{Type: "text", Text: "första"},
			{Type: "text", Text: ""},
			{Type: "text", Text: "andra"},
		},
	}
	assert.Equal(t, "första\nandra", extractText(resp))
}

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"leading prose", "Svar: {\"a\": 1} klart", `{"a": 1}`},
		{"no braces", "bara text", "bara text"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, cleanJSON(tc.input))
		})
	}
}
