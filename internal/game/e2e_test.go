package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFullShowFlow walks one complete round the way a real show runs:
// lobby, prompt selection, writing, reveal carousel, voting, results,
// podium. Assertions check the externally observable state after each
// step.
func TestFullShowFlow(t *testing.T) {
	s := newTestSession(t)

	// lobby: the host mints two slots, both players claim them
	slots := s.CreatePlayers(2)
	require.Len(t, slots, 2)
	alice, err := s.RegisterPlayer(slots[0].Token, "Alice")
	require.NoError(t, err)
	bob, err := s.RegisterPlayer(slots[1].Token, "Bob")
	require.NoError(t, err)

	// prompt selection: the pool fills, the host picks one
	_, err = s.Transition(PhasePromptSelection)
	require.NoError(t, err)
	prompt, err := s.AddPrompt("Why do cats purr?", "", PromptHost, "")
	require.NoError(t, err)

	round, err := s.StartRound()
	require.NoError(t, err)
	assert.Equal(t, 1, round.Seq)
	require.NoError(t, s.SelectPrompt(prompt.ID))

	// writing: both players answer, the host types the AI answer in
	_, err = s.Transition(PhaseWriting)
	require.NoError(t, err)
	require.NotNil(t, s.Game().PhaseDeadline)

	subAlice, err := s.SubmitAnswer(round.ID, alice.ID, "Tiny engines. Every cat has one.")
	require.NoError(t, err)
	subBob, err := s.SubmitAnswer(round.ID, bob.ID, "It is how they charge their batteries.")
	require.NoError(t, err)
	subAI, err := s.SubmitAnswer(round.ID, "", "Cats purr to communicate contentment.")
	require.NoError(t, err)
	assert.Equal(t, AuthorAI, subAI.Author)

	require.NoError(t, s.SetRevealOrder(round.ID, []string{subAlice.ID, subBob.ID, subAI.ID}))

	// reveal: one step forward, one step back
	_, err = s.Transition(PhaseReveal)
	require.NoError(t, err)
	assert.Nil(t, s.PublicSubmissions(), "answers stay hidden during the reveal")

	ix, err := s.RevealNext(round.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ix)
	ix, err = s.RevealPrev(round.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, ix)

	// voting: one voter spots the AI, the other falls for Bob, both
	// find Alice the funniest
	change, err := s.Transition(PhaseVoting)
	require.NoError(t, err)
	require.NotNil(t, change.Deadline)
	require.Len(t, s.PublicSubmissions(), 3, "voting opens the anonymous list")

	outcome, err := s.SubmitVote("voter-1", subAI.ID, subAlice.ID, "m1")
	require.NoError(t, err)
	assert.Equal(t, VoteRecorded, outcome)
	outcome, err = s.SubmitVote("voter-2", subBob.ID, subAlice.ID, "m2")
	require.NoError(t, err)
	assert.Equal(t, VoteRecorded, outcome)

	// a delivery retry changes nothing
	outcome, err = s.SubmitVote("voter-1", subBob.ID, subBob.ID, "m1")
	require.NoError(t, err)
	assert.Equal(t, VoteDuplicate, outcome)
	assert.Equal(t, 2, s.VoteCount())

	// results: the host designates the AI answer, scoring runs once
	require.NoError(t, s.SetAISubmission(subAI.ID))
	_, err = s.Transition(PhaseResults)
	require.NoError(t, err)

	scores := s.RoundScores(round.ID)
	require.Len(t, scores, 4, "two player entries and two audience entries")
	byRef := make(map[string]Score, len(scores))
	for _, sc := range scores {
		byRef[sc.RefID] = sc
	}
	assert.Equal(t, 2, byRef[alice.ID].FunnyPoints, "both voters picked Alice as funniest")
	assert.Equal(t, 0, byRef[alice.ID].AIDetectPoints)
	assert.Equal(t, 1, byRef[bob.ID].AIDetectPoints, "one voter mistook Bob for the AI")
	assert.Equal(t, 1, byRef["voter-1"].AIDetectPoints, "voter-1 spotted the AI")
	assert.Equal(t, 0, byRef["voter-2"].AIDetectPoints)

	// podium: alice leads, bob and voter-1 tie at one point
	_, err = s.Transition(PhasePodium)
	require.NoError(t, err)
	board := s.Leaderboard()
	require.Len(t, board, 4)
	assert.Equal(t, alice.ID, board[0].RefID)
	assert.Equal(t, 2, board[0].Total)
	assert.Equal(t, bob.ID, board[1].RefID, "ties keep first-appearance order")
	assert.Equal(t, "voter-1", board[2].RefID)
	assert.Equal(t, "voter-2", board[3].RefID)

	// the next round starts clean after an intermission
	_, err = s.Transition(PhaseIntermission)
	require.NoError(t, err)
	_, err = s.Transition(PhasePromptSelection)
	require.NoError(t, err)
	next, err := s.StartRound()
	require.NoError(t, err)
	assert.Equal(t, 2, next.Seq)
	assert.Equal(t, 0, s.SubmissionCount())
}
