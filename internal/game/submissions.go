package game

import (
	"github.com/google/uuid"
	"github.com/kiliankoe/botornot/internal/broadcast"
)

// SubmitAnswer records an answer for the round. An empty playerID
// marks the submission as AI-authored. A player resubmitting replaces
// their earlier answer; an exact duplicate of anyone else's answer is
// rejected without inserting anything.
func (s *Session) SubmitAnswer(roundID, playerID, text string) (Submission, error) {
	g := s.store.Game()
	round, ok := s.store.Round(roundID)
	if !ok {
		return Submission{}, notFoundErr("round_not_found", "round %s not found", roundID)
	}
	if round.State != RoundSetup && round.State != RoundCollecting {
		return Submission{}, preconditionErr("not_collecting", "round %d is no longer collecting answers", round.Seq)
	}
	trimmed := normalizeText(text)
	if trimmed == "" {
		return Submission{}, validationErr("empty_answer", "answer must not be empty")
	}
	if max := g.Config.MaxAnswerLength; max > 0 && len([]rune(text)) > max {
		return Submission{}, validationErr("answer_too_long", "answer exceeds %d characters", max)
	}
	if playerID != "" {
		if _, ok := s.store.Player(playerID); !ok {
			return Submission{}, notFoundErr("player_not_found", "player %s not found", playerID)
		}
	}

	var previousID string
	for _, existing := range s.store.SubmissionsByRound(roundID) {
		if playerID != "" && existing.Author == AuthorPlayer && existing.PlayerID == playerID {
			previousID = existing.ID
			continue
		}
		if normalizeText(existing.OriginalText) == trimmed {
			return Submission{}, ErrDuplicateExact
		}
	}
	if previousID != "" {
		s.removeFromRound(roundID, []string{previousID}, false)
	}

	sub := &Submission{
		ID:           uuid.NewString(),
		RoundID:      roundID,
		Author:       AuthorPlayer,
		PlayerID:     playerID,
		OriginalText: text,
		DisplayText:  text,
		CreatedAt:    s.now(),
	}
	if playerID == "" {
		sub.Author = AuthorAI
	}
	s.store.PutSubmission(sub)
	if playerID != "" {
		s.store.SetSubmitted(playerID, true)
	}
	s.store.BumpVersion()
	s.publishSubmissions()
	return *sub, nil
}

// EditSubmission lets the host adjust the displayed text, leaving the
// original (and duplicate semantics) untouched.
func (s *Session) EditSubmission(submissionID, newText string) error {
	if normalizeText(newText) == "" {
		return validationErr("empty_answer", "display text must not be empty")
	}
	ok := s.store.MutateSubmission(submissionID, func(sub *Submission) {
		sub.DisplayText = newText
		sub.EditedByHost = true
	})
	if !ok {
		return notFoundErr("submission_not_found", "submission %s not found", submissionID)
	}
	s.store.BumpVersion()
	s.publishSubmissions()
	return nil
}

// SetAudioRef attaches a synthesized-audio reference to a submission.
func (s *Session) SetAudioRef(submissionID, audioRef string) error {
	ok := s.store.MutateSubmission(submissionID, func(sub *Submission) {
		sub.AudioRef = audioRef
	})
	if !ok {
		return notFoundErr("submission_not_found", "submission %s not found", submissionID)
	}
	s.store.BumpVersion()
	return nil
}

// RemoveSubmissions deletes submissions at the host's request. Host
// removal is only allowed early in the round lifecycle, never once a
// vote exists, and never for the last remaining submission mid-reveal.
func (s *Session) RemoveSubmissions(roundID string, ids ...string) error {
	round, ok := s.store.Round(roundID)
	if !ok {
		return notFoundErr("round_not_found", "round %s not found", roundID)
	}
	switch round.State {
	case RoundSetup, RoundCollecting, RoundRevealing:
	default:
		return preconditionErr("removal_closed", "submissions cannot be removed while round is %s", round.State)
	}
	if len(s.store.VotesByRound(roundID)) > 0 {
		return conflictErr("votes_exist", "submissions cannot be removed once votes exist")
	}
	if round.State == RoundRevealing {
		subs := s.store.SubmissionsByRound(roundID)
		inRound := make(map[string]struct{}, len(subs))
		for _, sub := range subs {
			inRound[sub.ID] = struct{}{}
		}
		removing := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, ok := inRound[id]; ok {
				removing[id] = struct{}{}
			}
		}
		if len(subs)-len(removing) < 1 {
			return preconditionErr("last_submission", "cannot remove the last submission while revealing")
		}
	}
	s.removeFromRound(roundID, ids, true)
	s.store.BumpVersion()
	s.publishSubmissions()
	s.publishHostRound()
	return nil
}

// MarkDuplicates removes submissions the host flagged as duplicates.
// Unlike RemoveSubmissions this is allowed at any point in the round.
func (s *Session) MarkDuplicates(roundID string, ids ...string) error {
	if _, ok := s.store.Round(roundID); !ok {
		return notFoundErr("round_not_found", "round %s not found", roundID)
	}
	s.removeFromRound(roundID, ids, true)
	s.store.BumpVersion()
	s.publishSubmissions()
	s.publishHostRound()
	return nil
}

// removeFromRound deletes the given submissions and repairs everything
// that referenced them: the reveal order and its index, the round's AI
// and manual winner markers, votes naming a removed submission (their
// voters' processed markers are cleared so they can vote again), and
// the authors' submitted-status entries.
func (s *Session) removeFromRound(roundID string, ids []string, clearStatus bool) {
	removed := make(map[string]struct{}, len(ids))
	valid := make([]string, 0, len(ids))
	var authors []string
	for _, id := range ids {
		sub, ok := s.store.Submission(id)
		if !ok || sub.RoundID != roundID {
			continue
		}
		if _, dup := removed[id]; dup {
			continue
		}
		removed[id] = struct{}{}
		valid = append(valid, id)
		if sub.Author == AuthorPlayer && sub.PlayerID != "" {
			authors = append(authors, sub.PlayerID)
		}
	}
	if len(removed) == 0 {
		return
	}
	// only ids verified against this round get deleted; stale ids from
	// other rounds must not slip through and leave dangling references
	s.store.DeleteSubmissions(valid...)

	s.store.MutateRound(roundID, func(r *Round) {
		kept := r.RevealOrder[:0]
		for _, id := range r.RevealOrder {
			if _, gone := removed[id]; !gone {
				kept = append(kept, id)
			}
		}
		r.RevealOrder = kept
		r.RevealIndex = clampIndex(r.RevealIndex, len(r.RevealOrder))
		if _, gone := removed[r.AISubmissionID]; gone {
			r.AISubmissionID = ""
		}
		if _, gone := removed[r.ManualAIWinner]; gone {
			r.ManualAIWinner = ""
		}
		if _, gone := removed[r.ManualFunnyWinner]; gone {
			r.ManualFunnyWinner = ""
		}
	})

	var staleVotes []string
	for _, v := range s.store.VotesByRound(roundID) {
		_, aiGone := removed[v.AIPick]
		_, funnyGone := removed[v.FunnyPick]
		if aiGone || funnyGone {
			staleVotes = append(staleVotes, v.ID)
			s.store.ClearProcessedMsg(v.VoterID)
		}
	}
	if len(staleVotes) > 0 {
		s.store.DeleteVotes(staleVotes...)
	}

	if clearStatus {
		for _, playerID := range authors {
			s.store.SetSubmitted(playerID, false)
		}
	}
}

func clampIndex(ix, length int) int {
	if length == 0 {
		return 0
	}
	if ix >= length {
		return length - 1
	}
	if ix < 0 {
		return 0
	}
	return ix
}

// SetRevealOrder replaces the host-controlled carousel order. Every id
// must belong to the round.
func (s *Session) SetRevealOrder(roundID string, order []string) error {
	round, ok := s.store.Round(roundID)
	if !ok {
		return notFoundErr("round_not_found", "round %s not found", roundID)
	}
	for _, id := range order {
		sub, ok := s.store.Submission(id)
		if !ok || sub.RoundID != roundID {
			return validationErr("unknown_submission", "submission %s is not part of round %d", id, round.Seq)
		}
	}
	s.store.MutateRound(roundID, func(r *Round) {
		r.RevealOrder = append([]string(nil), order...)
		r.RevealIndex = clampIndex(r.RevealIndex, len(r.RevealOrder))
	})
	s.store.BumpVersion()
	s.publishReveal(roundID)
	return nil
}

// RevealNext advances the carousel. At the final item it reports
// ErrNoFurtherItem and leaves the index unchanged.
func (s *Session) RevealNext(roundID string) (int, error) {
	return s.moveReveal(roundID, 1)
}

// RevealPrev steps the carousel back, clamped at the first item.
func (s *Session) RevealPrev(roundID string) (int, error) {
	return s.moveReveal(roundID, -1)
}

func (s *Session) moveReveal(roundID string, delta int) (int, error) {
	var (
		ix      int
		blocked bool
	)
	ok := s.store.MutateRound(roundID, func(r *Round) {
		next := r.RevealIndex + delta
		if next < 0 || next >= len(r.RevealOrder) {
			blocked = true
			ix = r.RevealIndex
			return
		}
		r.RevealIndex = next
		ix = next
	})
	if !ok {
		return 0, notFoundErr("round_not_found", "round %s not found", roundID)
	}
	if blocked {
		return ix, ErrNoFurtherItem
	}
	s.store.BumpVersion()
	s.publishReveal(roundID)
	return ix, nil
}

func (s *Session) publishReveal(roundID string) {
	round, ok := s.store.Round(roundID)
	if !ok {
		return
	}
	var current *SubmissionView
	if len(round.RevealOrder) > 0 {
		if sub, ok := s.store.Submission(round.RevealOrder[round.RevealIndex]); ok {
			current = &SubmissionView{ID: sub.ID, Text: sub.DisplayText}
		}
	}
	s.hub.Publish(broadcast.ScopeAll, broadcast.Message{
		Event: "reveal",
		Payload: map[string]any{
			"index":   round.RevealIndex,
			"total":   len(round.RevealOrder),
			"current": current,
			"version": s.store.Version(),
		},
	})
}

// PublicSubmissions returns the anonymous submission list in reveal
// order, or nil outside the Voting/Results/Podium window.
func (s *Session) PublicSubmissions() []SubmissionView {
	g := s.store.Game()
	switch g.Phase {
	case PhaseVoting, PhaseResults, PhasePodium:
	default:
		return nil
	}
	round, ok := s.currentRoundCopy(g)
	if !ok {
		return nil
	}
	subs := s.store.SubmissionsByRound(round.ID)
	byID := make(map[string]Submission, len(subs))
	for _, sub := range subs {
		byID[sub.ID] = sub
	}
	out := make([]SubmissionView, 0, len(subs))
	seen := make(map[string]struct{}, len(subs))
	for _, id := range round.RevealOrder {
		if sub, ok := byID[id]; ok {
			out = append(out, SubmissionView{ID: sub.ID, Text: sub.DisplayText})
			seen[id] = struct{}{}
		}
	}
	// submissions not in the reveal order still get listed, after it
	for _, sub := range subs {
		if _, done := seen[sub.ID]; !done {
			out = append(out, SubmissionView{ID: sub.ID, Text: sub.DisplayText})
		}
	}
	return out
}

// HostSubmissions is the unrestricted host view including authorship.
func (s *Session) HostSubmissions() []Submission {
	g := s.store.Game()
	if g.CurrentRoundID == "" {
		return []Submission{}
	}
	return s.store.SubmissionsByRound(g.CurrentRoundID)
}

// SubmissionCount is what the beamer sees before voting opens.
func (s *Session) SubmissionCount() int {
	g := s.store.Game()
	if g.CurrentRoundID == "" {
		return 0
	}
	return len(s.store.SubmissionsByRound(g.CurrentRoundID))
}
