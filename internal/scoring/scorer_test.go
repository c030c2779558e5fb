package scoring

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadgate/leadgate/internal/core"
)

type stubCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.system = system
	s.user = user
	return s.reply, s.err
}

func TestScoreAcceptsDigitInRange(t *testing.T) {
	stub := &stubCompleter{reply: "4"}
	scorer := NewScorer(stub)

	score, err := scorer.Score(context.Background(), &core.Lead{Status: "Meeting Booked"})
	require.NoError(t, err)
	require.Equal(t, 4, score)
}

func TestScoreTrimsWhitespaceFromReply(t *testing.T) {
	scorer := NewScorer(&stubCompleter{reply: " 5\n"})

	score, err := scorer.Score(context.Background(), &core.Lead{})
	require.NoError(t, err)
	require.Equal(t, 5, score)
}

func TestScoreRejectsOutOfRangeReply(t *testing.T) {
	scorer := NewScorer(&stubCompleter{reply: "7"})

	_, err := scorer.Score(context.Background(), &core.Lead{})
	require.Error(t, err)

	var invalid *InvalidScoreError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "7", invalid.Reply)
}

func TestScoreRejectsNonNumericReply(t *testing.T) {
	scorer := NewScorer(&stubCompleter{reply: "The lead scores a 3 out of 5."})

	_, err := scorer.Score(context.Background(), &core.Lead{})
	require.Error(t, err)

	var invalid *InvalidScoreError
	require.ErrorAs(t, err, &invalid)
}

func TestScorePropagatesUpstreamError(t *testing.T) {
	scorer := NewScorer(&stubCompleter{err: fmt.Errorf("request failed: connection refused")})

	_, err := scorer.Score(context.Background(), &core.Lead{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
}

func TestScoreSendsRubricAndLeadFields(t *testing.T) {
	stub := &stubCompleter{reply: "2"}
	scorer := NewScorer(stub)

	lead := &core.Lead{
		Status:      "New Lead",
		CallSummary: "Asked about pricing tiers",
		Attempts:    3,
		ClientNotes: "Budget approved after demo",
	}

	_, err := scorer.Score(context.Background(), lead)
	require.NoError(t, err)
	require.Contains(t, stub.system, "1 to 5")
	require.Contains(t, stub.user, "Status: New Lead")
	require.Contains(t, stub.user, "Call Summary: Asked about pricing tiers")
	require.Contains(t, stub.user, "Attempts: 3")
	require.Contains(t, stub.user, "Client Notes: Budget approved after demo")
}

func TestBuildPromptFieldOrderIsStable(t *testing.T) {
	prompt := BuildPrompt(&core.Lead{Status: "New Lead", ClientNotes: "notes"})

	lines := strings.Split(prompt, "\n")
	require.Len(t, lines, 9)
	require.True(t, strings.HasPrefix(lines[0], "Status:"))
	require.True(t, strings.HasPrefix(lines[8], "Client Notes:"))
}
