package scoring

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/leadgate/leadgate/internal/core"
)

const (
	minScore = 1
	maxScore = 5
)

// InvalidScoreError marks a completion reply that did not parse to an
// integer in the accepted range.
type InvalidScoreError struct {
	Reply string
}

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("invalid score returned: %q", e.Reply)
}

// Completer is the slice of the completion client the scorer needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Scorer turns a lead field bag into a 1..5 intent score via a single
// completion call.
type Scorer struct {
	Completer Completer
}

// NewScorer returns a scorer over the given completion client.
func NewScorer(completer Completer) *Scorer {
	return &Scorer{Completer: completer}
}

// Score builds the lead prompt, asks the model once, and bounds-checks
// the reply. Out-of-range or non-numeric replies come back as
// *InvalidScoreError; upstream failures pass through unchanged.
func (s *Scorer) Score(ctx context.Context, lead *core.Lead) (int, error) {
	if s == nil || s.Completer == nil {
		return 0, fmt.Errorf("scorer not configured")
	}

	reply, err := s.Completer.Complete(ctx, systemInstruction, BuildPrompt(lead))
	if err != nil {
		return 0, err
	}

	score, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil || score < minScore || score > maxScore {
		return 0, &InvalidScoreError{Reply: strings.TrimSpace(reply)}
	}

	return score, nil
}
