package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitVoteRequiresOpenRound(t *testing.T) {
	s := newTestSession(t)
	_, err := s.SubmitVote("voter-1", "x", "y", "msg-1")
	require.ErrorIs(t, err, ErrNoActiveRound)

	roundID := startCollectingRound(t, s)
	p := registeredPlayer(t, s, "Alice")
	sub := submitFor(t, s, roundID, p, "an answer")

	_, err = s.SubmitVote("voter-1", sub.ID, sub.ID, "msg-1")
	require.Error(t, err)
	assert.Equal(t, "voting_closed", CodeOf(err))
}

func TestSubmitVoteIdempotentPerMsgID(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	p := registeredPlayer(t, s, "Alice")
	mine := submitFor(t, s, roundID, p, "human answer")
	aiSub := submitAI(t, s, roundID, "machine answer")
	openVoting(t, s)

	outcome, err := s.SubmitVote("voter-1", aiSub.ID, mine.ID, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, VoteRecorded, outcome)

	// the retry is acknowledged without touching state
	outcome, err = s.SubmitVote("voter-1", mine.ID, aiSub.ID, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, VoteDuplicate, outcome)
	assert.Equal(t, 1, s.VoteCount())

	vote, ok := s.Store().VoteByVoter(roundID, "voter-1")
	require.True(t, ok)
	assert.Equal(t, aiSub.ID, vote.AIPick, "the replayed picks were ignored")

	// a fresh msgID replaces the earlier vote
	outcome, err = s.SubmitVote("voter-1", mine.ID, aiSub.ID, "msg-2")
	require.NoError(t, err)
	assert.Equal(t, VoteRecorded, outcome)
	assert.Equal(t, 1, s.VoteCount())
	vote, _ = s.Store().VoteByVoter(roundID, "voter-1")
	assert.Equal(t, mine.ID, vote.AIPick)
}

func TestSubmitVoteValidatesPicks(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	p := registeredPlayer(t, s, "Alice")
	mine := submitFor(t, s, roundID, p, "human answer")
	submitAI(t, s, roundID, "machine answer")
	openVoting(t, s)

	_, err := s.SubmitVote("voter-1", "not-a-submission", mine.ID, "msg-1")
	require.Error(t, err)
	assert.Equal(t, "invalid_pick", CodeOf(err))
	assert.Equal(t, 0, s.VoteCount())
}

func TestPanicModeBlocksVotes(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	p := registeredPlayer(t, s, "Alice")
	mine := submitFor(t, s, roundID, p, "human answer")
	aiSub := submitAI(t, s, roundID, "machine answer")
	openVoting(t, s)

	s.SetPanicMode(true)
	_, err := s.SubmitVote("voter-1", aiSub.ID, mine.ID, "msg-1")
	require.ErrorIs(t, err, ErrPanicMode)

	s.SetPanicMode(false)
	_, err = s.SubmitVote("voter-1", aiSub.ID, mine.ID, "msg-1")
	require.NoError(t, err)
}

func TestAggregateVotes(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	a := registeredPlayer(t, s, "Alice")
	b := registeredPlayer(t, s, "Bob")
	subA := submitFor(t, s, roundID, a, "answer a")
	subB := submitFor(t, s, roundID, b, "answer b")
	aiSub := submitAI(t, s, roundID, "machine answer")
	openVoting(t, s)

	_, err := s.SubmitVote("voter-1", aiSub.ID, subA.ID, "m1")
	require.NoError(t, err)
	_, err = s.SubmitVote("voter-2", subA.ID, subA.ID, "m2")
	require.NoError(t, err)
	_, err = s.SubmitVote("voter-3", aiSub.ID, subB.ID, "m3")
	require.NoError(t, err)

	aiCounts, funnyCounts := s.AggregateVotes(roundID)
	assert.Equal(t, map[string]int{aiSub.ID: 2, subA.ID: 1}, aiCounts)
	assert.Equal(t, map[string]int{subA.ID: 2, subB.ID: 1}, funnyCounts)
}

func TestScoringAwardsDetectAndFunnyPoints(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	a := registeredPlayer(t, s, "Alice")
	b := registeredPlayer(t, s, "Bob")
	subA := submitFor(t, s, roundID, a, "answer a")
	subB := submitFor(t, s, roundID, b, "answer b")
	aiSub := submitAI(t, s, roundID, "machine answer")
	openVoting(t, s)

	// voter-1 spots the AI and finds Alice funny, voter-2 falls for Alice
	_, err := s.SubmitVote("voter-1", aiSub.ID, subA.ID, "m1")
	require.NoError(t, err)
	_, err = s.SubmitVote("voter-2", subA.ID, subB.ID, "m2")
	require.NoError(t, err)

	_, err = s.Transition(PhaseResults)
	require.NoError(t, err)

	scores := s.RoundScores(roundID)
	byRef := make(map[string]Score)
	for _, sc := range scores {
		byRef[sc.RefID] = sc
	}
	require.Len(t, scores, 4, "one per player plus one per voter")

	assert.Equal(t, 1, byRef[a.ID].AIDetectPoints, "one voter thought Alice was the AI")
	assert.Equal(t, 1, byRef[a.ID].FunnyPoints)
	assert.Equal(t, 2, byRef[a.ID].Total)
	assert.Equal(t, 1, byRef[b.ID].Total)
	assert.Equal(t, 1, byRef["voter-1"].AIDetectPoints)
	assert.Equal(t, 0, byRef["voter-2"].AIDetectPoints)
}

func TestLeaderboardTiesKeepFirstAppearanceOrder(t *testing.T) {
	s := newTestSession(t)
	s.store.AppendScores(
		&Score{ID: "s1", RoundID: "r1", Kind: ScorePlayer, RefID: "alice", Total: 2},
		&Score{ID: "s2", RoundID: "r1", Kind: ScorePlayer, RefID: "bob", Total: 2},
		&Score{ID: "s3", RoundID: "r1", Kind: ScoreAudience, RefID: "carol", AIDetectPoints: 3, Total: 3},
		&Score{ID: "s4", RoundID: "r2", Kind: ScorePlayer, RefID: "bob", Total: 1},
	)

	board := s.Leaderboard()
	require.Len(t, board, 3)
	assert.Equal(t, "bob", board[0].RefID)
	assert.Equal(t, 3, board[0].Total)
	// carol ties with bob at 3 but appeared later in the log
	assert.Equal(t, "carol", board[1].RefID)
	assert.Equal(t, "alice", board[2].RefID)
}
