package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/botornot/internal/ai"
	"github.com/kiliankoe/botornot/internal/broadcast"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	hub := broadcast.NewHub()
	t.Cleanup(hub.Close)
	s := NewSession(Config{WritingSeconds: 60, VotingSeconds: 30, MaxAnswerLength: 200}, hub)

	// deterministic, strictly monotonic clock so creation order is stable
	base := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

// startCollectingRound drives a fresh session to a round that accepts
// answers and returns the round id.
func startCollectingRound(t *testing.T, s *Session) string {
	t.Helper()
	prompt, err := s.AddPrompt("Why do cats purr?", "", PromptHost, "")
	require.NoError(t, err)
	_, err = s.Transition(PhasePromptSelection)
	require.NoError(t, err)
	round, err := s.StartRound()
	require.NoError(t, err)
	require.NoError(t, s.SelectPrompt(prompt.ID))
	_, err = s.Transition(PhaseWriting)
	require.NoError(t, err)
	return round.ID
}

// openVoting takes a collecting round with submissions through Reveal
// into Voting.
func openVoting(t *testing.T, s *Session) {
	t.Helper()
	_, err := s.Transition(PhaseReveal)
	require.NoError(t, err)
	_, err = s.Transition(PhaseVoting)
	require.NoError(t, err)
}

func submitFor(t *testing.T, s *Session, roundID string, p Player, text string) Submission {
	t.Helper()
	sub, err := s.SubmitAnswer(roundID, p.ID, text)
	require.NoError(t, err)
	return sub
}

func submitAI(t *testing.T, s *Session, roundID, text string) Submission {
	t.Helper()
	sub, err := s.SubmitAnswer(roundID, "", text)
	require.NoError(t, err)
	require.NoError(t, s.SetAISubmission(sub.ID))
	return sub
}

func registeredPlayer(t *testing.T, s *Session, name string) Player {
	t.Helper()
	slot := s.CreatePlayer()
	p, err := s.RegisterPlayer(slot.Token, name)
	require.NoError(t, err)
	return p
}

// stubProvider returns a canned completion, or fails.
type stubProvider struct {
	text string
	err  error
}

func (p stubProvider) Complete(_ context.Context, _, _, _ string) (ai.Completion, error) {
	if p.err != nil {
		return ai.Completion{}, p.err
	}
	return ai.Completion{Text: p.text, Latency: 42 * time.Millisecond}, nil
}
