package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiliankoe/botornot/internal/broadcast"
)

// PhaseChange describes one executed phase transition.
type PhaseChange struct {
	From     Phase      `json:"from"`
	To       Phase      `json:"to"`
	Deadline *time.Time `json:"deadline,omitempty"`
	Next     []Phase    `json:"next"`
}

// phaseSuccessors is the forward edge of the phase graph. Intermission
// and Ended are reachable from everywhere, and Intermission can resume
// into any phase; those edges are handled in validTransition.
var phaseSuccessors = map[Phase][]Phase{
	PhaseLobby:           {PhasePromptSelection},
	PhasePromptSelection: {PhaseWriting},
	PhaseWriting:         {PhaseReveal},
	PhaseReveal:          {PhaseVoting},
	PhaseVoting:          {PhaseResults},
	PhaseResults:         {PhasePodium},
	PhasePodium:          {},
	PhaseIntermission:    {},
	PhaseEnded:           {},
}

var allPhases = []Phase{
	PhaseLobby, PhasePromptSelection, PhaseWriting, PhaseReveal,
	PhaseVoting, PhaseResults, PhasePodium, PhaseIntermission, PhaseEnded,
}

func validTransition(from, to Phase) bool {
	if to == PhaseIntermission || to == PhaseEnded {
		return true
	}
	if from == PhaseIntermission {
		return true
	}
	for _, next := range phaseSuccessors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidNext lists the phases reachable from p, for the host UI.
func ValidNext(p Phase) []Phase {
	if p == PhaseIntermission {
		out := make([]Phase, 0, len(allPhases)-1)
		for _, t := range allPhases {
			if t != PhaseIntermission {
				out = append(out, t)
			}
		}
		return out
	}
	out := append([]Phase(nil), phaseSuccessors[p]...)
	out = append(out, PhaseIntermission, PhaseEnded)
	return out
}

// Transition validates and executes a phase change, applying its side
// effects: deadline assignment, reveal-order auto-population, round
// state advancement and at-most-once scoring. Each successful
// transition bumps the game version and broadcasts a phase notice.
func (s *Session) Transition(target Phase) (PhaseChange, error) {
	g := s.store.Game()
	from := g.Phase
	if !validTransition(from, target) {
		return PhaseChange{}, preconditionErr("invalid_transition", "invalid phase transition %s -> %s", from, target)
	}

	var deadline *time.Time
	switch target {
	case PhaseWriting:
		round, ok := s.currentRoundCopy(g)
		if !ok {
			return PhaseChange{}, ErrNoActiveRound
		}
		if round.PromptID == "" {
			return PhaseChange{}, preconditionErr("no_selected_prompt", "cannot enter Writing: round has no selected prompt")
		}
		d := s.now().Add(time.Duration(g.Config.WritingSeconds) * time.Second)
		deadline = &d

	case PhaseReveal:
		round, ok := s.currentRoundCopy(g)
		if !ok {
			return PhaseChange{}, ErrNoActiveRound
		}
		subs := s.store.SubmissionsByRound(round.ID)
		if len(subs) == 0 {
			return PhaseChange{}, preconditionErr("no_submissions", "cannot enter Reveal: round has no submissions")
		}
		s.store.MutateRound(round.ID, func(r *Round) {
			if len(r.RevealOrder) == 0 {
				order := make([]string, 0, len(subs))
				for _, sub := range subs {
					order = append(order, sub.ID)
				}
				r.RevealOrder = order
				r.RevealIndex = 0
			}
			if r.State == RoundCollecting {
				r.State = RoundRevealing
			}
		})

	case PhaseVoting:
		round, ok := s.currentRoundCopy(g)
		if !ok {
			return PhaseChange{}, ErrNoActiveRound
		}
		s.store.MutateRound(round.ID, func(r *Round) {
			// the host may resume from Intermission straight into
			// Voting, so any pre-vote state opens here, not just a
			// completed reveal
			switch r.State {
			case RoundSetup, RoundCollecting, RoundRevealing:
				r.State = RoundOpenForVotes
			}
		})
		d := s.now().Add(time.Duration(g.Config.VotingSeconds) * time.Second)
		deadline = &d

	case PhaseResults:
		round, ok := s.currentRoundCopy(g)
		if !ok {
			return PhaseChange{}, ErrNoActiveRound
		}
		if round.ScoredAt == nil {
			if round.AISubmissionID == "" {
				return PhaseChange{}, preconditionErr("no_ai_submission", "cannot enter Results: round has no AI submission set")
			}
			s.store.MutateRound(round.ID, func(r *Round) {
				if r.State == RoundOpenForVotes {
					r.State = RoundScoring
				}
			})
			s.computeScores(round)
			s.store.MutateRound(round.ID, func(r *Round) { r.State = RoundClosed })
		}
	}

	s.store.MutateGame(func(g *Game) {
		g.Phase = target
		g.PhaseDeadline = deadline
	})

	change := PhaseChange{From: from, To: target, Deadline: deadline, Next: ValidNext(target)}
	s.log.Info().Str("from", string(from)).Str("to", string(target)).Msg("phase transition")
	s.hub.Publish(broadcast.ScopeAll, broadcast.Message{
		Event: "phase",
		Payload: map[string]any{
			"from":     change.From,
			"to":       change.To,
			"deadline": change.Deadline,
			"next":     change.Next,
			"version":  s.store.Version(),
		},
	})
	// entering or leaving the voting window changes what the public may see
	s.publishSubmissions()
	if target == PhaseResults || target == PhasePodium {
		s.publishScores()
	}
	return change, nil
}

func (s *Session) currentRoundCopy(g Game) (Round, bool) {
	if g.CurrentRoundID == "" {
		return Round{}, false
	}
	return s.store.Round(g.CurrentRoundID)
}

// StartRound opens a fresh round. The previous round, if any, must be
// closed, and rounds may only start from the lobby or prompt selection.
func (s *Session) StartRound() (Round, error) {
	g := s.store.Game()
	if g.Phase != PhaseLobby && g.Phase != PhasePromptSelection {
		return Round{}, preconditionErr("wrong_phase", "cannot start a round during %s", g.Phase)
	}
	if g.CurrentRoundID != "" {
		prev, ok := s.store.Round(g.CurrentRoundID)
		if ok && prev.State != RoundClosed {
			return Round{}, conflictErr("round_active", "round %d is still %s", prev.Seq, prev.State)
		}
	}
	round := &Round{
		ID:          uuid.NewString(),
		GameID:      g.ID,
		Seq:         g.RoundNo + 1,
		State:       RoundSetup,
		RevealOrder: []string{},
	}
	s.store.PutRound(round)
	s.store.ClearSubmittedStatus()
	s.store.MutateGame(func(g *Game) {
		g.RoundNo++
		g.CurrentRoundID = round.ID
	})
	s.log.Info().Int("seq", round.Seq).Msg("round started")
	s.publishHostRound()
	return copyRound(round), nil
}

// SelectPrompt binds a prompt to the current round and moves it to
// Collecting. Only valid while the round is still in Setup.
func (s *Session) SelectPrompt(promptID string) error {
	g := s.store.Game()
	if g.CurrentRoundID == "" {
		return ErrNoActiveRound
	}
	round, _ := s.store.Round(g.CurrentRoundID)
	if round.State != RoundSetup {
		return conflictErr("prompt_already_selected", "round %d already has a selected prompt", round.Seq)
	}
	prompt, ok := s.store.Prompt(promptID)
	if !ok {
		return notFoundErr("prompt_not_found", "prompt %s not found", promptID)
	}
	s.store.MutateRound(round.ID, func(r *Round) {
		r.PromptID = prompt.ID
		r.State = RoundCollecting
	})
	s.store.BumpVersion()
	s.log.Info().Str("prompt", prompt.ID).Int("seq", round.Seq).Msg("prompt selected")
	s.publishHostRound()
	return nil
}
