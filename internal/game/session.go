package game

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiliankoe/botornot/internal/ai"
	"github.com/kiliankoe/botornot/internal/broadcast"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session is the one live game aggregate. It owns the entity store and
// publishes derived state to the hub after every mutation. A single
// Session is constructed at startup and shared by every connection
// handler and background watcher.
type Session struct {
	store       *Store
	hub         *broadcast.Hub
	provider    ai.Provider
	model       string
	sysPrompt   string
	resultsFile string
	log         zerolog.Logger

	now func() time.Time
}

func NewSession(cfg Config, hub *broadcast.Hub) *Session {
	s := &Session{
		store: NewStore(),
		hub:   hub,
		log:   log.With().Str("component", "game").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	s.store.SetGame(&Game{
		ID:     uuid.NewString(),
		Phase:  PhaseLobby,
		Config: cfg,
	})
	return s
}

// SetProvider wires the text-generation collaborator.
func (s *Session) SetProvider(p ai.Provider, model, systemPrompt string) {
	s.provider = p
	s.model = model
	s.sysPrompt = systemPrompt
}

// SetResultsFile enables the text export appended after every scored
// round. Empty disables it.
func (s *Session) SetResultsFile(path string) {
	s.resultsFile = path
}

func (s *Session) Store() *Store { return s.store }

func (s *Session) Game() Game { return s.store.Game() }

func (s *Session) Version() uint64 { return s.store.Version() }

// CurrentRound returns the active round, if one exists.
func (s *Session) CurrentRound() (Round, bool) {
	g := s.store.Game()
	if g.CurrentRoundID == "" {
		return Round{}, false
	}
	return s.store.Round(g.CurrentRoundID)
}

// SetPanicMode toggles the audience-interaction override.
func (s *Session) SetPanicMode(active bool) {
	s.store.MutateGame(func(g *Game) { g.PanicMode = active })
	s.log.Info().Bool("active", active).Msg("panic mode toggled")
	s.hub.Publish(broadcast.ScopeAll, broadcast.Message{
		Event:   "panic",
		Payload: map[string]any{"active": active, "version": s.store.Version()},
	})
}

// SetManualWinners lets the host bypass vote-driven winner selection
// while panic mode is active. Either id may be empty to leave it unset.
func (s *Session) SetManualWinners(aiWinner, funnyWinner string) error {
	g := s.store.Game()
	if g.CurrentRoundID == "" {
		return ErrNoActiveRound
	}
	for _, id := range []string{aiWinner, funnyWinner} {
		if id == "" {
			continue
		}
		sub, ok := s.store.Submission(id)
		if !ok || sub.RoundID != g.CurrentRoundID {
			return notFoundErr("submission_not_found", "submission %s not found in current round", id)
		}
	}
	s.store.MutateRound(g.CurrentRoundID, func(r *Round) {
		if aiWinner != "" {
			r.ManualAIWinner = aiWinner
		}
		if funnyWinner != "" {
			r.ManualFunnyWinner = funnyWinner
		}
	})
	s.store.BumpVersion()
	s.publishHostRound()
	return nil
}

// SetAISubmission designates which submission in the current round is
// the AI-authored one.
func (s *Session) SetAISubmission(submissionID string) error {
	g := s.store.Game()
	if g.CurrentRoundID == "" {
		return ErrNoActiveRound
	}
	sub, ok := s.store.Submission(submissionID)
	if !ok || sub.RoundID != g.CurrentRoundID {
		return notFoundErr("submission_not_found", "submission %s not found in current round", submissionID)
	}
	s.store.MutateRound(g.CurrentRoundID, func(r *Round) { r.AISubmissionID = submissionID })
	s.store.BumpVersion()
	s.publishHostRound()
	return nil
}

// GenerateAIAnswer asks the provider for an answer to the current
// round's prompt and inserts it as the AI submission. Failures are
// recoverable: the host falls back to entering a manual answer.
func (s *Session) GenerateAIAnswer(ctx context.Context) (Submission, error) {
	if s.provider == nil {
		return Submission{}, ErrAIUnavailable
	}
	g := s.store.Game()
	if g.CurrentRoundID == "" {
		return Submission{}, ErrNoActiveRound
	}
	round, ok := s.store.Round(g.CurrentRoundID)
	if !ok || round.PromptID == "" {
		return Submission{}, preconditionErr("no_selected_prompt", "round has no selected prompt")
	}
	prompt, ok := s.store.Prompt(round.PromptID)
	if !ok {
		return Submission{}, notFoundErr("prompt_not_found", "prompt %s not found", round.PromptID)
	}
	completion, err := s.provider.Complete(ctx, s.model, s.sysPrompt, prompt.Text)
	if err != nil {
		s.log.Warn().Err(err).Msg("ai completion failed, host must enter answer manually")
		return Submission{}, ErrAIUnavailable
	}
	s.log.Info().
		Dur("latency", completion.Latency).
		Int("tokens", completion.CompletionTokens).
		Msg("ai answer generated")
	sub, err := s.SubmitAnswer(g.CurrentRoundID, "", completion.Text)
	if err != nil {
		return Submission{}, err
	}
	s.store.MutateRound(g.CurrentRoundID, func(r *Round) { r.AISubmissionID = sub.ID })
	s.publishHostRound()
	return sub, nil
}

const typoCheckPrompt = "Correct spelling and obvious typos in the following text. Reply with the corrected text only, nothing else. Keep the language of the input."

// TypoCheck runs a draft answer through the provider for a quick
// spell-check. With no provider the input is echoed back unchanged.
func (s *Session) TypoCheck(ctx context.Context, text string) (string, bool) {
	if s.provider == nil {
		return text, false
	}
	completion, err := s.provider.Complete(ctx, s.model, typoCheckPrompt, text)
	if err != nil {
		s.log.Warn().Err(err).Msg("typo check failed")
		return text, false
	}
	corrected := strings.TrimSpace(completion.Text)
	if corrected == "" {
		return text, false
	}
	return corrected, corrected != text
}

// Reset wipes rounds, submissions, votes, scores and auxiliary
// tracking, returning the game to the lobby. Players and the prompt
// pool survive a reset.
func (s *Session) Reset() {
	s.store.ReplaceRounds(nil)
	s.store.ReplaceSubmissions(nil)
	s.store.ReplaceVotes(nil)
	s.store.ReplaceScores(nil)
	s.store.ClearSubmittedStatus()
	s.store.ReplaceProcessedMsgs(nil)
	s.store.MutateGame(func(g *Game) {
		g.Phase = PhaseLobby
		g.RoundNo = 0
		g.CurrentRoundID = ""
		g.PhaseDeadline = nil
		g.PanicMode = false
	})
	s.log.Info().Msg("game reset")
	s.publishState()
}

// WelcomeState assembles the authoritative snapshot a connection
// receives on connect. Submission visibility is role-scoped.
func (s *Session) WelcomeState(isHost bool) map[string]any {
	g := s.store.Game()
	state := map[string]any{
		"game":        g,
		"players":     s.PublicPlayers(),
		"leaderboard": s.Leaderboard(),
	}
	if round, ok := s.CurrentRound(); ok {
		state["round"] = round
	}
	if isHost {
		state["players"] = s.store.Players()
		state["submissions"] = s.HostSubmissions()
		state["prompts"] = s.HostPrompts()
	} else if subs := s.PublicSubmissions(); subs != nil {
		state["submissions"] = subs
	} else {
		state["submissionCount"] = s.SubmissionCount()
	}
	return state
}

// publishState pushes a full refresh to everyone, used after import
// and reset where incremental messages would be misleading.
func (s *Session) publishState() {
	s.hub.Publish(broadcast.ScopeAll, broadcast.Message{
		Event:   "state",
		Payload: s.WelcomeState(false),
	})
	s.hub.Publish(broadcast.ScopeHost, broadcast.Message{
		Event:   "state",
		Payload: s.WelcomeState(true),
	})
}

// publishSubmissions applies the visibility policy from the round
// lifecycle: the full anonymous list goes to everyone only once voting
// has begun, the beamer sees a count before that, the host always sees
// everything including authors.
func (s *Session) publishSubmissions() {
	if subs := s.PublicSubmissions(); subs != nil {
		s.hub.Publish(broadcast.ScopeAll, broadcast.Message{
			Event:   "submissions",
			Payload: map[string]any{"submissions": subs, "version": s.store.Version()},
		})
	} else {
		s.hub.Publish(broadcast.ScopeBeamer, broadcast.Message{
			Event:   "submissions",
			Payload: map[string]any{"count": s.SubmissionCount(), "version": s.store.Version()},
		})
	}
	s.hub.Publish(broadcast.ScopeHost, broadcast.Message{
		Event: "submissions:host",
		Payload: map[string]any{
			"submissions": s.HostSubmissions(),
			"status":      s.store.SubmittedStatus(),
			"version":     s.store.Version(),
		},
	})
}

func (s *Session) publishHostRound() {
	round, ok := s.CurrentRound()
	if !ok {
		return
	}
	s.hub.Publish(broadcast.ScopeHost, broadcast.Message{
		Event:   "round",
		Payload: map[string]any{"round": round, "version": s.store.Version()},
	})
}

// randomCode generates a short join code, skipping ambiguous letters.
func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// normalizeText is the canonical form used for exact-duplicate
// detection and prompt dedup: trimmed and case-folded.
func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
