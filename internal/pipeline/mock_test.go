package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/iller5/content-cli/internal/model"
	"github.com/iller5/content-cli/internal/refine"
	"github.com/iller5/content-cli/pkg/anthropic"
)

// scriptedRefiner fakes enrichment with per-row outcomes.
type scriptedRefiner struct {
	mu       sync.Mutex
	calls    int
	inFlight int
	peak     int

	fail     map[string]bool   // source ids whose enrichment fails
	category map[string]string // source id -> category, default Kardiologi
	onCall   func(row model.RawQuestion)
}

func (s *scriptedRefiner) Refine(_ context.Context, row model.RawQuestion) (*refine.Result, anthropic.TokenUsage, error) {
	s.mu.Lock()
	s.calls++
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	onCall := s.onCall
	s.mu.Unlock()

	if onCall != nil {
		onCall(row)
	}
	time.Sleep(2 * time.Millisecond) // let workers overlap

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	usage := anthropic.TokenUsage{InputTokens: 100, OutputTokens: 40}

	if s.fail[row.SourceID] {
		return nil, usage, eris.Errorf("refine: enrich %s", row.SourceID)
	}

	category := s.category[row.SourceID]
	if category == "" {
		category = "Kardiologi"
	}

	return &refine.Result{
		Category: category,
		Question: model.Question{
			Type:     model.TypeMultipleChoice,
			Tags:     []string{"Kardiologi"},
			Question: "Förfinad fråga för " + row.SourceID + "?",
			Options: []model.Option{
				{Text: "Ja", Correct: true, Feedback: "Stämmer med gällande riktlinjer."},
				{Text: "Nej", Correct: false, Feedback: "Motsägs av gällande riktlinjer."},
			},
			Explanation: "Kort förklaring av det rätta svaret.",
		},
	}, usage, nil
}

func (s *scriptedRefiner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedRefiner) peakInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
