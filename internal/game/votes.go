package game

import (
	"sort"

	"github.com/google/uuid"
	"github.com/kiliankoe/botornot/internal/broadcast"
)

// SubmitVote records an audience vote for the current round. The same
// msgID from the same voter is acknowledged without reprocessing, so
// at-least-once delivery cannot double count. A fresh msgID from a
// voter who already voted replaces their earlier vote.
func (s *Session) SubmitVote(voterID, aiPick, funnyPick, msgID string) (VoteOutcome, error) {
	g := s.store.Game()
	if g.PanicMode {
		return "", ErrPanicMode
	}
	if g.CurrentRoundID == "" {
		return "", ErrNoActiveRound
	}
	round, ok := s.store.Round(g.CurrentRoundID)
	if !ok {
		return "", ErrNoActiveRound
	}
	if round.State != RoundOpenForVotes {
		return "", preconditionErr("voting_closed", "round %d is not open for votes", round.Seq)
	}
	if processed, ok := s.store.ProcessedMsg(voterID); ok && processed == msgID {
		return VoteDuplicate, nil
	}
	for _, pick := range []string{aiPick, funnyPick} {
		sub, ok := s.store.Submission(pick)
		if !ok || sub.RoundID != round.ID {
			return "", validationErr("invalid_pick", "submission %s is not a valid choice for this round", pick)
		}
	}

	if prev, ok := s.store.VoteByVoter(round.ID, voterID); ok {
		s.store.DeleteVotes(prev.ID)
	}
	vote := &Vote{
		ID:        uuid.NewString(),
		RoundID:   round.ID,
		VoterID:   voterID,
		AIPick:    aiPick,
		FunnyPick: funnyPick,
		CastAt:    s.now(),
	}
	s.store.PutVote(vote)
	s.store.SetProcessedMsg(voterID, msgID)
	s.store.BumpVersion()
	return VoteRecorded, nil
}

// AggregateVotes tallies, per submission, how often it was picked as
// the AI answer and how often as the funniest. One pass over the
// round's votes.
func (s *Session) AggregateVotes(roundID string) (aiCounts, funnyCounts map[string]int) {
	aiCounts = make(map[string]int)
	funnyCounts = make(map[string]int)
	for _, v := range s.store.VotesByRound(roundID) {
		aiCounts[v.AIPick]++
		funnyCounts[v.FunnyPick]++
	}
	return aiCounts, funnyCounts
}

// computeScores appends one score record per player-authored
// submission and one per voter, then stamps the round as scored.
// Callers guard on ScoredAt, making scoring at-most-once.
func (s *Session) computeScores(round Round) {
	aiCounts, funnyCounts := s.AggregateVotes(round.ID)

	var entries []*Score
	for _, sub := range s.store.SubmissionsByRound(round.ID) {
		if sub.Author != AuthorPlayer || sub.PlayerID == "" {
			continue
		}
		aiPoints := aiCounts[sub.ID]
		funnyPoints := funnyCounts[sub.ID]
		entries = append(entries, &Score{
			ID:             uuid.NewString(),
			RoundID:        round.ID,
			Kind:           ScorePlayer,
			RefID:          sub.PlayerID,
			AIDetectPoints: aiPoints,
			FunnyPoints:    funnyPoints,
			Total:          aiPoints + funnyPoints,
		})
	}
	for _, v := range s.store.VotesByRound(round.ID) {
		detect := 0
		if v.AIPick == round.AISubmissionID {
			detect = 1
		}
		entries = append(entries, &Score{
			ID:             uuid.NewString(),
			RoundID:        round.ID,
			Kind:           ScoreAudience,
			RefID:          v.VoterID,
			AIDetectPoints: detect,
			Total:          detect,
		})
	}
	s.store.AppendScores(entries...)
	scoredAt := s.now()
	s.store.MutateRound(round.ID, func(r *Round) { r.ScoredAt = &scoredAt })
	s.log.Info().Int("entries", len(entries)).Int("seq", round.Seq).Msg("round scored")

	if s.resultsFile != "" {
		if err := s.WriteResultsText(s.resultsFile); err != nil {
			s.log.Warn().Err(err).Str("file", s.resultsFile).Msg("results export failed")
		}
	}
}

// RoundScores returns the score records appended for one round.
func (s *Session) RoundScores(roundID string) []Score {
	var out []Score
	for _, sc := range s.store.Scores() {
		if sc.RoundID == roundID {
			out = append(out, sc)
		}
	}
	return out
}

// Leaderboard aggregates the whole score log by (kind, ref) and sorts
// by total, descending. Ties keep the order in which a scorer first
// appeared in the log, which is stable because the log is append-only.
func (s *Session) Leaderboard() []LeaderboardEntry {
	type key struct {
		kind ScoreKind
		ref  string
	}
	totals := make(map[key]*LeaderboardEntry)
	var order []key
	for _, sc := range s.store.Scores() {
		k := key{sc.Kind, sc.RefID}
		entry, ok := totals[k]
		if !ok {
			entry = &LeaderboardEntry{Kind: sc.Kind, RefID: sc.RefID}
			totals[k] = entry
			order = append(order, k)
		}
		entry.AIDetectPoints += sc.AIDetectPoints
		entry.FunnyPoints += sc.FunnyPoints
		entry.Total += sc.Total
	}
	out := make([]LeaderboardEntry, 0, len(order))
	for _, k := range order {
		out = append(out, *totals[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

func (s *Session) publishScores() {
	g := s.store.Game()
	payload := map[string]any{
		"leaderboard": s.Leaderboard(),
		"version":     s.store.Version(),
	}
	if g.CurrentRoundID != "" {
		payload["roundScores"] = s.RoundScores(g.CurrentRoundID)
	}
	s.hub.Publish(broadcast.ScopeAll, broadcast.Message{Event: "scores", Payload: payload})
}

// VoteCount reports how many votes the current round has received.
func (s *Session) VoteCount() int {
	g := s.store.Game()
	if g.CurrentRoundID == "" {
		return 0
	}
	return len(s.store.VotesByRound(g.CurrentRoundID))
}
