// Package refine turns raw exam rows into complete quiz questions.
//
// Each raw row is sent to the model together with a cached system prompt.
// The model identifies the correct answer, writes per-option feedback in
// Swedish, tags the question and classifies it into a medical category.
// The category is returned alongside the question so the caller can route
// it to the right bank file.
package refine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/iller5/content-cli/internal/config"
	"github.com/iller5/content-cli/internal/model"
	"github.com/iller5/content-cli/pkg/anthropic"
)

const refineSystemPrompt = `You are an expert Swedish medical tutor refactoring exam questions.
You will be given a raw question and a list of options. The raw data likely lacks the correct answer indication.
Your task is to:
1. Identify the correct answer based on medical knowledge.
2. Refine the question text if needed (fix typos, make concise).
3. Generate concise feedback for EACH option (one sentence, why it is right/wrong). Do NOT start feedback with "Rätt" or "Fel".
4. Generate 1-3 short medical tags. Do not reveal the answer in a tag.
5. Provide a short general explanation (2-3 sentences).
6. Classify the question into one of the following categories:
   [Neurologi, Internmedicin, Allmänmedicin, Psykiatri, Ortopedi, Kirurgi, Akutmedicin, Diabetologi, Endokrinologi, Gastroenterologi, Hepatologi, Hematologi, Kardiologi, Lungmedicin, Njurmedicin, Klinisk Farmakologi, Öron-Näsa-Hals]

Respond with a single valid JSON object and nothing else:
{"category": "<category>", "data": {"type": "multiple_choice", "tags": ["<tag>"], "question": "<refined question>", "image": null, "options": [{"text": "<option>", "correct": <bool>, "feedback": "<one sentence>"}], "explanation": "<2-3 sentences>"}}

Language: Swedish.`

// Result is one refined question plus the category the model assigned.
// The question ID is left empty; the importer assigns it.
type Result struct {
	Category string
	Question model.Question
}

// Refiner sends raw questions to the model one at a time.
type Refiner struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	system    []anthropic.SystemBlock
}

// NewRefiner builds a Refiner on the given client.
func NewRefiner(client anthropic.Client, cfg config.AnthropicConfig) *Refiner {
	return &Refiner{
		client:    client,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		system:    anthropic.BuildCachedSystemBlocks(refineSystemPrompt),
	}
}

// Model returns the model name requests are sent to.
func (r *Refiner) Model() string { return r.model }

// Prime sends one sequential request to warm the prompt cache before the
// workers fan out. The refined result is discarded; only usage is kept.
func (r *Refiner) Prime(ctx context.Context, row model.RawQuestion) (anthropic.TokenUsage, error) {
	resp, err := anthropic.PrimerRequest(ctx, r.client, r.request(row))
	if err != nil {
		return anthropic.TokenUsage{}, err
	}
	return resp.Usage, nil
}

// Refine asks the model to refine and classify one raw question.
func (r *Refiner) Refine(ctx context.Context, row model.RawQuestion) (*Result, anthropic.TokenUsage, error) {
	resp, err := r.client.CreateMessage(ctx, r.request(row))
	if err != nil {
		return nil, anthropic.TokenUsage{}, eris.Wrapf(err, "refine: enrich %s", row.SourceID)
	}

	result, err := parseRefinement(extractText(resp))
	if err != nil {
		return nil, resp.Usage, eris.Wrapf(err, "refine: parse response for %s", row.SourceID)
	}
	return result, resp.Usage, nil
}

func (r *Refiner) request(row model.RawQuestion) anthropic.MessageRequest {
	return anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		System:    r.system,
		Messages: []anthropic.Message{
			{Role: "user", Content: userContent(row)},
		},
	}
}

func userContent(row model.RawQuestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\nOptions:\n", row.Text)
	for i, opt := range row.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	if row.Hint != "" {
		fmt.Fprintf(&b, "Category Hint: %s\n", row.Hint)
	}
	if row.Notes != "" {
		fmt.Fprintf(&b, "More Info: %s\n", row.Notes)
	}
	return b.String()
}
