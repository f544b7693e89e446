package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlayersMintsUniqueTokens(t *testing.T) {
	s := newTestSession(t)
	players := s.CreatePlayers(20)
	require.Len(t, players, 20)

	seen := make(map[string]struct{})
	for _, p := range players {
		require.Len(t, p.Token, 5)
		_, dup := seen[p.Token]
		require.False(t, dup, "token %s minted twice", p.Token)
		seen[p.Token] = struct{}{}
	}
}

func TestRegisterPlayer(t *testing.T) {
	s := newTestSession(t)
	slot := s.CreatePlayer()

	_, err := s.RegisterPlayer("WRONG", "Alice")
	require.Error(t, err)
	assert.Equal(t, "player_not_found", CodeOf(err))

	_, err = s.RegisterPlayer(slot.Token, "  ")
	require.Error(t, err)
	assert.Equal(t, "empty_name", CodeOf(err))

	p, err := s.RegisterPlayer(slot.Token, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)

	// re-registering the same token renames
	p, err = s.RegisterPlayer(slot.Token, "Alicia")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", p.Name)
	require.Len(t, s.Store().Players(), 1)
}

func TestPublicPlayersOmitTokens(t *testing.T) {
	s := newTestSession(t)
	registeredPlayer(t, s, "Alice")
	registeredPlayer(t, s, "Bob")

	views := s.PublicPlayers()
	require.Len(t, views, 2)
	assert.Equal(t, "Alice", views[0].Name)
	assert.Equal(t, "Bob", views[1].Name)
}

func TestRemovePlayerCascades(t *testing.T) {
	s := newTestSession(t)
	roundID := startCollectingRound(t, s)
	a := registeredPlayer(t, s, "Alice")
	b := registeredPlayer(t, s, "Bob")
	subA := submitFor(t, s, roundID, a, "answer a")
	subB := submitFor(t, s, roundID, b, "answer b")
	aiSub := submitAI(t, s, roundID, "machine answer")
	openVoting(t, s)

	// voter-1's funny pick is about to disappear, voter-2 is unaffected
	_, err := s.SubmitVote("voter-1", aiSub.ID, subA.ID, "m1")
	require.NoError(t, err)
	_, err = s.SubmitVote("voter-2", aiSub.ID, subB.ID, "m2")
	require.NoError(t, err)

	require.NoError(t, s.RemovePlayer(a.ID))

	_, exists := s.Store().Player(a.ID)
	assert.False(t, exists)
	_, exists = s.Store().Submission(subA.ID)
	assert.False(t, exists)

	round, _ := s.CurrentRound()
	assert.NotContains(t, round.RevealOrder, subA.ID)

	assert.Equal(t, 1, s.VoteCount(), "only the vote naming the removed submission is gone")
	_, ok := s.Store().VoteByVoter(roundID, "voter-1")
	assert.False(t, ok)

	// the orphaned voter may vote again with the same msgID
	outcome, err := s.SubmitVote("voter-1", aiSub.ID, subB.ID, "m1")
	require.NoError(t, err)
	assert.Equal(t, VoteRecorded, outcome)
}

func TestRemovePlayerUnknown(t *testing.T) {
	s := newTestSession(t)
	err := s.RemovePlayer("nobody")
	require.Error(t, err)
	assert.Equal(t, "player_not_found", CodeOf(err))
}
