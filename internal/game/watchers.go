package game

import (
	"context"
	"time"

	"github.com/kiliankoe/botornot/internal/broadcast"
)

// RunDeadlineWatcher polls the phase deadline and auto-advances the
// phase once the wall clock passes it, through the same transition
// logic a host command uses. It runs until ctx is cancelled.
func (s *Session) RunDeadlineWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkDeadline()
		}
	}
}

func (s *Session) checkDeadline() {
	g := s.store.Game()
	if g.PhaseDeadline == nil || s.now().Before(*g.PhaseDeadline) {
		return
	}
	var target Phase
	switch g.Phase {
	case PhaseWriting:
		target = PhaseReveal
	case PhaseVoting:
		target = PhaseResults
	default:
		// stale deadline on a phase without a timer, drop it
		s.store.MutateGame(func(g *Game) { g.PhaseDeadline = nil })
		return
	}
	if _, err := s.Transition(target); err != nil {
		// the guard cannot be satisfied automatically (e.g. no
		// submissions yet); hand the decision back to the host
		s.log.Warn().Err(err).Str("target", string(target)).Msg("deadline expired but auto-advance failed")
		s.store.MutateGame(func(g *Game) { g.PhaseDeadline = nil })
		return
	}
	s.log.Info().Str("target", string(target)).Msg("deadline expired, phase auto-advanced")
}

// RunTallyWatcher periodically rebroadcasts derived tallies to the
// beamer while the game is in a phase where they move: vote counts
// during Voting, prompt pool counts during PromptSelection. The
// broadcasts are self-correcting snapshots, not diffs, so missing one
// tick is harmless.
func (s *Session) RunTallyWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcastTally()
		}
	}
}

func (s *Session) broadcastTally() {
	g := s.store.Game()
	switch g.Phase {
	case PhaseVoting:
		s.hub.Publish(broadcast.ScopeBeamer, broadcast.Message{
			Event: "tally",
			Payload: map[string]any{
				"votes":   s.VoteCount(),
				"version": s.store.Version(),
			},
		})
	case PhasePromptSelection:
		prompts, submissions := s.PromptTally()
		s.hub.Publish(broadcast.ScopeBeamer, broadcast.Message{
			Event: "tally",
			Payload: map[string]any{
				"prompts":           prompts,
				"promptSubmissions": submissions,
				"version":           s.store.Version(),
			},
		})
	}
}

// RunStatsWatcher pushes connection counts by role to the host once
// per interval. counts is supplied by the transport layer.
func (s *Session) RunStatsWatcher(ctx context.Context, interval time.Duration, counts func() map[string]int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.Publish(broadcast.ScopeHost, broadcast.Message{
				Event: "stats",
				Payload: map[string]any{
					"connections": counts(),
				},
			})
		}
	}
}
