package game

import (
	"strings"

	"github.com/google/uuid"
	"github.com/kiliankoe/botornot/internal/broadcast"
)

// CreatePlayer mints a player slot with a unique short join code. The
// display name is set later via RegisterPlayer.
func (s *Session) CreatePlayer() Player {
	token := randomCode(5)
	for {
		if _, taken := s.store.PlayerByToken(token); !taken {
			break
		}
		token = randomCode(5)
	}
	p := &Player{
		ID:       uuid.NewString(),
		Token:    token,
		JoinedAt: s.now(),
	}
	s.store.PutPlayer(p)
	s.store.BumpVersion()
	s.publishPlayers()
	return *p
}

// CreatePlayers mints n player slots at once, for the host lobby UI.
func (s *Session) CreatePlayers(n int) []Player {
	out := make([]Player, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.CreatePlayer())
	}
	return out
}

// RegisterPlayer claims a join token and sets the display name. A
// registered player may re-register to change their name.
func (s *Session) RegisterPlayer(token, name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, validationErr("empty_name", "display name must not be empty")
	}
	p, ok := s.store.PlayerByToken(token)
	if !ok {
		return Player{}, notFoundErr("player_not_found", "no player with that join code")
	}
	s.store.MutatePlayer(p.ID, func(p *Player) { p.Name = name })
	s.store.BumpVersion()
	p.Name = name
	s.log.Info().Str("player", p.ID).Str("name", name).Msg("player registered")
	s.publishPlayers()
	return p, nil
}

// PlayerByToken resolves a join code to its player.
func (s *Session) PlayerByToken(token string) (Player, bool) {
	return s.store.PlayerByToken(token)
}

// RemovePlayer deletes a player and everything that hangs off them in
// the current round: their submissions, those submissions' reveal-order
// slots, votes that picked those submissions (whose voters get their
// processed markers cleared so they may vote again), and the player's
// submitted-status entry. Only the player lookup can fail; all
// downstream cleanup is best-effort over whatever state exists.
func (s *Session) RemovePlayer(playerID string) error {
	if !s.store.DeletePlayer(playerID) {
		return notFoundErr("player_not_found", "player %s not found", playerID)
	}

	g := s.store.Game()
	if g.CurrentRoundID != "" {
		var ownIDs []string
		for _, sub := range s.store.SubmissionsByRound(g.CurrentRoundID) {
			if sub.Author == AuthorPlayer && sub.PlayerID == playerID {
				ownIDs = append(ownIDs, sub.ID)
			}
		}
		if len(ownIDs) > 0 {
			s.removeFromRound(g.CurrentRoundID, ownIDs, false)
		}
	}
	s.store.SetSubmitted(playerID, false)
	s.store.BumpVersion()
	s.log.Info().Str("player", playerID).Msg("player removed")
	s.publishPlayers()
	s.publishSubmissions()
	s.publishHostRound()
	return nil
}

// PublicPlayers lists players without their join tokens. Tokens only
// ever go to the host, who hands the codes out.
func (s *Session) PublicPlayers() []PlayerView {
	players := s.store.Players()
	out := make([]PlayerView, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerView{ID: p.ID, Name: p.Name})
	}
	return out
}

func (s *Session) publishPlayers() {
	s.hub.Publish(broadcast.ScopeAll, broadcast.Message{
		Event: "players",
		Payload: map[string]any{
			"players": s.PublicPlayers(),
			"version": s.store.Version(),
		},
	})
	s.hub.Publish(broadcast.ScopeHost, broadcast.Message{
		Event: "players:host",
		Payload: map[string]any{
			"players": s.store.Players(),
			"version": s.store.Version(),
		},
	})
}
