package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SnapshotVersion is the schema version written to exports. Imports
// reject snapshots newer than this.
const SnapshotVersion = 1

// Snapshot is a fully self-describing dump of every collection. Each
// collection is cloned under its own lock in sequence, so a snapshot
// taken during concurrent mutation may mix before/after state across
// collections. Good enough for the operator backup tool it serves.
type Snapshot struct {
	SchemaVersion int       `json:"schemaVersion"`
	ExportedAt    time.Time `json:"exportedAt"`

	Game         Game              `json:"game"`
	Rounds       []Round           `json:"rounds"`
	Submissions  []Submission      `json:"submissions"`
	Votes        []Vote            `json:"votes"`
	Players      []Player          `json:"players"`
	Scores       []Score           `json:"scores"`
	Prompts      []Prompt          `json:"prompts"`
	Submitted    map[string]bool   `json:"submitted"`
	Processed    map[string]string `json:"processedVotes"`
	Shadowbanned []string          `json:"shadowbanned"`
}

// Export clones the full session state.
func (s *Session) Export() *Snapshot {
	return &Snapshot{
		SchemaVersion: SnapshotVersion,
		ExportedAt:    s.now(),
		Game:          s.store.Game(),
		Rounds:        s.store.Rounds(),
		Submissions:   s.store.Submissions(),
		Votes:         s.store.Votes(),
		Players:       s.store.Players(),
		Scores:        s.store.Scores(),
		Prompts:       s.store.Prompts(),
		Submitted:     s.store.SubmittedStatus(),
		Processed:     s.store.ProcessedMsgs(),
		Shadowbanned:  s.store.Shadowbanned(),
	}
}

// Import validates a snapshot and replaces all in-memory state with
// it, then broadcasts a full refresh. Validation covers the schema
// version and referential sanity: the game's current round and every
// round referenced by a submission or vote must exist in the snapshot.
func (s *Session) Import(snap *Snapshot) error {
	if snap == nil {
		return validationErr("empty_snapshot", "snapshot is empty")
	}
	if snap.SchemaVersion > SnapshotVersion {
		return validationErr("unsupported_schema", "snapshot schema version %d is newer than supported version %d", snap.SchemaVersion, SnapshotVersion)
	}
	roundIDs := make(map[string]struct{}, len(snap.Rounds))
	for _, r := range snap.Rounds {
		roundIDs[r.ID] = struct{}{}
	}
	if snap.Game.CurrentRoundID != "" {
		if _, ok := roundIDs[snap.Game.CurrentRoundID]; !ok {
			return validationErr("dangling_round", "game references round %s which is not in the snapshot", snap.Game.CurrentRoundID)
		}
	}
	for _, sub := range snap.Submissions {
		if _, ok := roundIDs[sub.RoundID]; !ok {
			return validationErr("dangling_round", "submission %s references round %s which is not in the snapshot", sub.ID, sub.RoundID)
		}
	}
	for _, v := range snap.Votes {
		if _, ok := roundIDs[v.RoundID]; !ok {
			return validationErr("dangling_round", "vote %s references round %s which is not in the snapshot", v.ID, v.RoundID)
		}
	}

	rounds := make([]*Round, 0, len(snap.Rounds))
	for i := range snap.Rounds {
		rounds = append(rounds, &snap.Rounds[i])
	}
	subs := make([]*Submission, 0, len(snap.Submissions))
	for i := range snap.Submissions {
		subs = append(subs, &snap.Submissions[i])
	}
	votes := make([]*Vote, 0, len(snap.Votes))
	for i := range snap.Votes {
		votes = append(votes, &snap.Votes[i])
	}
	players := make([]*Player, 0, len(snap.Players))
	for i := range snap.Players {
		players = append(players, &snap.Players[i])
	}
	scores := make([]*Score, 0, len(snap.Scores))
	for i := range snap.Scores {
		scores = append(scores, &snap.Scores[i])
	}
	prompts := make([]*Prompt, 0, len(snap.Prompts))
	for i := range snap.Prompts {
		prompts = append(prompts, &snap.Prompts[i])
	}

	s.store.ReplaceRounds(rounds)
	s.store.ReplaceSubmissions(subs)
	s.store.ReplaceVotes(votes)
	s.store.ReplacePlayers(players)
	s.store.ReplaceScores(scores)
	s.store.ReplacePrompts(prompts)
	s.store.ReplaceSubmittedStatus(snap.Submitted)
	s.store.ReplaceProcessedMsgs(snap.Processed)
	s.store.ReplaceShadowbanned(snap.Shadowbanned)
	imported := snap.Game
	s.store.SetGame(&imported)
	s.store.BumpVersion()

	s.log.Info().Time("exportedAt", snap.ExportedAt).Msg("state imported")
	s.publishState()
	return nil
}

// WriteResultsText appends a human-readable summary of the current
// round to a text file, for the host to keep after the show.
func (s *Session) WriteResultsText(filename string) error {
	g := s.store.Game()
	if g.CurrentRoundID == "" {
		return ErrNoActiveRound
	}
	round, ok := s.store.Round(g.CurrentRoundID)
	if !ok {
		return ErrNoActiveRound
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	playerName := func(id string) string {
		if p, ok := s.store.Player(id); ok && p.Name != "" {
			return p.Name
		}
		return id
	}

	var sb strings.Builder
	if round.Seq == 1 {
		sb.WriteString(fmt.Sprintf("botornot results - game %s\n", g.ID))
		sb.WriteString(fmt.Sprintf("Started: %s\n", s.now().Format("2006-01-02 15:04:05")))
		sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	}

	promptText := ""
	if p, ok := s.store.Prompt(round.PromptID); ok {
		promptText = p.Text
	}
	sb.WriteString(fmt.Sprintf("Round %d: %q\n", round.Seq, promptText))
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	for _, sub := range s.store.SubmissionsByRound(round.ID) {
		if sub.Author == AuthorAI {
			sb.WriteString(fmt.Sprintf("- AI: %q\n", sub.DisplayText))
		} else {
			sb.WriteString(fmt.Sprintf("- %s: %q\n", playerName(sub.PlayerID), sub.DisplayText))
		}
	}

	aiCounts, funnyCounts := s.AggregateVotes(round.ID)
	if len(aiCounts) > 0 || len(funnyCounts) > 0 {
		sb.WriteString("\nVotes:\n")
		for _, sub := range s.store.SubmissionsByRound(round.ID) {
			sb.WriteString(fmt.Sprintf("- %q: %d AI pick(s), %d funny pick(s)\n",
				sub.DisplayText, aiCounts[sub.ID], funnyCounts[sub.ID]))
		}
		var spotted []string
		for _, v := range s.store.VotesByRound(round.ID) {
			if v.AIPick == round.AISubmissionID {
				spotted = append(spotted, v.VoterID)
			}
		}
		sort.Strings(spotted)
		if len(spotted) > 0 {
			sb.WriteString(fmt.Sprintf("\nSpotted the AI: %s\n", strings.Join(spotted, ", ")))
		}
	}

	if board := s.Leaderboard(); len(board) > 0 {
		sb.WriteString("\nStandings:\n")
		for _, entry := range board {
			name := entry.RefID
			if entry.Kind == ScorePlayer {
				name = playerName(entry.RefID)
			}
			sb.WriteString(fmt.Sprintf("- %s (%s): %d points\n", name, entry.Kind, entry.Total))
		}
	}
	sb.WriteString("\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
