package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionRejectsSkippingPhases(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Transition(PhaseWriting)
	require.Error(t, err)
	assert.Equal(t, "invalid_transition", CodeOf(err))
	assert.Equal(t, PhaseLobby, s.Game().Phase)

	_, err = s.Transition(PhaseVoting)
	require.Error(t, err)
	assert.Equal(t, "invalid_transition", CodeOf(err))
}

func TestTransitionWritingRequiresSelectedPrompt(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Transition(PhasePromptSelection)
	require.NoError(t, err)

	// no round at all
	_, err = s.Transition(PhaseWriting)
	require.ErrorIs(t, err, ErrNoActiveRound)

	// round exists but no prompt selected yet
	_, err = s.StartRound()
	require.NoError(t, err)
	_, err = s.Transition(PhaseWriting)
	require.Error(t, err)
	assert.Equal(t, "no_selected_prompt", CodeOf(err))
}

func TestTransitionRevealRequiresSubmissions(t *testing.T) {
	s := newTestSession(t)
	startCollectingRound(t, s)

	_, err := s.Transition(PhaseReveal)
	require.Error(t, err)
	assert.Equal(t, "no_submissions", CodeOf(err))
	assert.Equal(t, PhaseWriting, s.Game().Phase)
}

func TestTransitionResultsRequiresAISubmission(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	p := registeredPlayer(t, s, "Alice")
	submitFor(t, s, roundID, p, "because they can")
	openVoting(t, s)

	_, err := s.Transition(PhaseResults)
	require.Error(t, err)
	assert.Equal(t, "no_ai_submission", CodeOf(err))
	assert.Equal(t, PhaseVoting, s.Game().Phase)
}

func TestIntermissionReachableAndResumable(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	p := registeredPlayer(t, s, "Alice")
	submitFor(t, s, roundID, p, "an answer")

	_, err := s.Transition(PhaseIntermission)
	require.NoError(t, err)

	// intermission resumes into any phase
	change, err := s.Transition(PhaseReveal)
	require.NoError(t, err)
	assert.Equal(t, PhaseIntermission, change.From)
	assert.Equal(t, PhaseReveal, change.To)
}

func TestVotingOpensRoundWhenRevealSkipped(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	p := registeredPlayer(t, s, "Alice")
	mine := submitFor(t, s, roundID, p, "human answer")
	aiSub := submitAI(t, s, roundID, "machine answer")

	// resume from intermission straight into voting, never revealing
	_, err := s.Transition(PhaseIntermission)
	require.NoError(t, err)
	_, err = s.Transition(PhaseVoting)
	require.NoError(t, err)

	round, _ := s.CurrentRound()
	assert.Equal(t, RoundOpenForVotes, round.State)

	outcome, err := s.SubmitVote("voter-1", aiSub.ID, mine.ID, "m1")
	require.NoError(t, err)
	assert.Equal(t, VoteRecorded, outcome)
}

func TestWritingAndVotingGetDeadlines(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)

	g := s.Game()
	require.NotNil(t, g.PhaseDeadline)

	p := registeredPlayer(t, s, "Alice")
	submitFor(t, s, roundID, p, "an answer")
	_, err := s.Transition(PhaseReveal)
	require.NoError(t, err)
	assert.Nil(t, s.Game().PhaseDeadline, "reveal has no timer")

	change, err := s.Transition(PhaseVoting)
	require.NoError(t, err)
	require.NotNil(t, change.Deadline)
}

func TestRevealAutoPopulatesOrder(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	a := registeredPlayer(t, s, "Alice")
	b := registeredPlayer(t, s, "Bob")
	first := submitFor(t, s, roundID, a, "first answer")
	second := submitFor(t, s, roundID, b, "second answer")

	_, err := s.Transition(PhaseReveal)
	require.NoError(t, err)

	round, ok := s.CurrentRound()
	require.True(t, ok)
	assert.Equal(t, []string{first.ID, second.ID}, round.RevealOrder)
	assert.Equal(t, 0, round.RevealIndex)
	assert.Equal(t, RoundRevealing, round.State)
}

func TestScoringIsAtMostOnce(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	p := registeredPlayer(t, s, "Alice")
	mine := submitFor(t, s, roundID, p, "human answer")
	aiSub := submitAI(t, s, roundID, "machine answer")
	openVoting(t, s)

	_, err := s.SubmitVote("voter-1", aiSub.ID, mine.ID, "msg-1")
	require.NoError(t, err)

	_, err = s.Transition(PhaseResults)
	require.NoError(t, err)
	firstPass := s.RoundScores(roundID)
	require.NotEmpty(t, firstPass)

	round, _ := s.CurrentRound()
	require.NotNil(t, round.ScoredAt)
	assert.Equal(t, RoundClosed, round.State)

	// bouncing through intermission back into results must not double score
	_, err = s.Transition(PhaseIntermission)
	require.NoError(t, err)
	_, err = s.Transition(PhaseResults)
	require.NoError(t, err)

	secondPass := s.RoundScores(roundID)
	assert.Equal(t, firstPass, secondPass)
	again, _ := s.CurrentRound()
	assert.Equal(t, round.ScoredAt, again.ScoredAt)
}

func TestStartRoundGuards(t *testing.T) {
	s := newTestSession(t)
	_, err := s.StartRound()
	require.NoError(t, err, "rounds may start from the lobby")

	_, err = s.StartRound()
	require.Error(t, err)
	assert.Equal(t, "round_active", CodeOf(err))

	_, err = s.Transition(PhaseIntermission)
	require.NoError(t, err)
	_, err = s.StartRound()
	require.Error(t, err)
	assert.Equal(t, "wrong_phase", CodeOf(err))
}

func TestSelectPromptOnlyOnce(t *testing.T) {
	s := newTestSession(t)
	prompt, err := s.AddPrompt("Best pizza topping?", "", PromptHost, "")
	require.NoError(t, err)
	other, err := s.AddPrompt("Worst pizza topping?", "", PromptHost, "")
	require.NoError(t, err)
	_, err = s.Transition(PhasePromptSelection)
	require.NoError(t, err)
	_, err = s.StartRound()
	require.NoError(t, err)

	require.NoError(t, s.SelectPrompt(prompt.ID))
	err = s.SelectPrompt(other.ID)
	require.Error(t, err)
	assert.Equal(t, "prompt_already_selected", CodeOf(err))

	round, _ := s.CurrentRound()
	assert.Equal(t, prompt.ID, round.PromptID)
	assert.Equal(t, RoundCollecting, round.State)
}

func TestValidNext(t *testing.T) {
	assert.Equal(t, []Phase{PhasePromptSelection, PhaseIntermission, PhaseEnded}, ValidNext(PhaseLobby))
	assert.Equal(t, []Phase{PhaseIntermission, PhaseEnded}, ValidNext(PhasePodium))
	assert.Contains(t, ValidNext(PhaseIntermission), PhasePodium)
	assert.NotContains(t, ValidNext(PhaseIntermission), PhaseIntermission)
}
