package game

import (
	"sort"
	"sync"
)

// Store owns every entity collection. Each collection has its own
// RWMutex; operations spanning collections take the locks in sequence,
// never nested, so unrelated read traffic is not serialized behind a
// global lock. Read accessors return copies.
type Store struct {
	gameMu sync.RWMutex
	game   *Game

	roundsMu sync.RWMutex
	rounds   map[string]*Round

	subsMu      sync.RWMutex
	submissions map[string]*Submission

	votesMu sync.RWMutex
	votes   map[string]*Vote

	playersMu sync.RWMutex
	players   map[string]*Player

	scoresMu sync.RWMutex
	scores   []*Score

	promptsMu sync.RWMutex
	prompts   map[string]*Prompt

	statusMu  sync.RWMutex
	submitted map[string]bool // playerID -> has a live submission in the current round

	processedMu sync.RWMutex
	processed   map[string]string // voterID -> last processed vote msg id

	shadowMu     sync.RWMutex
	shadowbanned map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		rounds:       make(map[string]*Round),
		submissions:  make(map[string]*Submission),
		votes:        make(map[string]*Vote),
		players:      make(map[string]*Player),
		prompts:      make(map[string]*Prompt),
		submitted:    make(map[string]bool),
		processed:    make(map[string]string),
		shadowbanned: make(map[string]struct{}),
	}
}

// --- game ---

func (st *Store) SetGame(g *Game) {
	st.gameMu.Lock()
	st.game = g
	st.gameMu.Unlock()
}

// Game returns a copy of the live game record.
func (st *Store) Game() Game {
	st.gameMu.RLock()
	defer st.gameMu.RUnlock()
	g := *st.game
	if st.game.PhaseDeadline != nil {
		d := *st.game.PhaseDeadline
		g.PhaseDeadline = &d
	}
	return g
}

// MutateGame applies fn to the game record under the game lock and
// bumps the version counter.
func (st *Store) MutateGame(fn func(g *Game)) {
	st.gameMu.Lock()
	fn(st.game)
	st.game.Version++
	st.gameMu.Unlock()
}

// BumpVersion increments the version counter for mutations that only
// touch non-game collections.
func (st *Store) BumpVersion() {
	st.gameMu.Lock()
	st.game.Version++
	st.gameMu.Unlock()
}

func (st *Store) Version() uint64 {
	st.gameMu.RLock()
	defer st.gameMu.RUnlock()
	return st.game.Version
}

// --- rounds ---

func (st *Store) PutRound(r *Round) {
	st.roundsMu.Lock()
	st.rounds[r.ID] = r
	st.roundsMu.Unlock()
}

func (st *Store) Round(id string) (Round, bool) {
	st.roundsMu.RLock()
	defer st.roundsMu.RUnlock()
	r, ok := st.rounds[id]
	if !ok {
		return Round{}, false
	}
	return copyRound(r), true
}

// MutateRound applies fn to the round under the rounds lock.
func (st *Store) MutateRound(id string, fn func(r *Round)) bool {
	st.roundsMu.Lock()
	defer st.roundsMu.Unlock()
	r, ok := st.rounds[id]
	if !ok {
		return false
	}
	fn(r)
	return true
}

func (st *Store) Rounds() []Round {
	st.roundsMu.RLock()
	defer st.roundsMu.RUnlock()
	out := make([]Round, 0, len(st.rounds))
	for _, r := range st.rounds {
		out = append(out, copyRound(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (st *Store) ReplaceRounds(rounds []*Round) {
	st.roundsMu.Lock()
	st.rounds = make(map[string]*Round, len(rounds))
	for _, r := range rounds {
		cp := copyRound(r)
		st.rounds[r.ID] = &cp
	}
	st.roundsMu.Unlock()
}

func copyRound(r *Round) Round {
	cp := *r
	cp.RevealOrder = append([]string(nil), r.RevealOrder...)
	if r.ScoredAt != nil {
		t := *r.ScoredAt
		cp.ScoredAt = &t
	}
	return cp
}

// --- submissions ---

func (st *Store) PutSubmission(s *Submission) {
	st.subsMu.Lock()
	st.submissions[s.ID] = s
	st.subsMu.Unlock()
}

func (st *Store) Submission(id string) (Submission, bool) {
	st.subsMu.RLock()
	defer st.subsMu.RUnlock()
	s, ok := st.submissions[id]
	if !ok {
		return Submission{}, false
	}
	return *s, true
}

func (st *Store) MutateSubmission(id string, fn func(s *Submission)) bool {
	st.subsMu.Lock()
	defer st.subsMu.Unlock()
	s, ok := st.submissions[id]
	if !ok {
		return false
	}
	fn(s)
	return true
}

func (st *Store) DeleteSubmissions(ids ...string) {
	st.subsMu.Lock()
	for _, id := range ids {
		delete(st.submissions, id)
	}
	st.subsMu.Unlock()
}

// SubmissionsByRound returns the round's submissions in creation order.
func (st *Store) SubmissionsByRound(roundID string) []Submission {
	st.subsMu.RLock()
	out := make([]Submission, 0, len(st.submissions))
	for _, s := range st.submissions {
		if s.RoundID == roundID {
			out = append(out, *s)
		}
	}
	st.subsMu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (st *Store) Submissions() []Submission {
	st.subsMu.RLock()
	defer st.subsMu.RUnlock()
	out := make([]Submission, 0, len(st.submissions))
	for _, s := range st.submissions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (st *Store) ReplaceSubmissions(subs []*Submission) {
	st.subsMu.Lock()
	st.submissions = make(map[string]*Submission, len(subs))
	for _, s := range subs {
		cp := *s
		st.submissions[s.ID] = &cp
	}
	st.subsMu.Unlock()
}

// --- votes ---

func (st *Store) PutVote(v *Vote) {
	st.votesMu.Lock()
	st.votes[v.ID] = v
	st.votesMu.Unlock()
}

func (st *Store) DeleteVotes(ids ...string) {
	st.votesMu.Lock()
	for _, id := range ids {
		delete(st.votes, id)
	}
	st.votesMu.Unlock()
}

func (st *Store) VotesByRound(roundID string) []Vote {
	st.votesMu.RLock()
	defer st.votesMu.RUnlock()
	out := make([]Vote, 0, len(st.votes))
	for _, v := range st.votes {
		if v.RoundID == roundID {
			out = append(out, *v)
		}
	}
	return out
}

// VoteByVoter finds the voter's live vote for a round, if any.
func (st *Store) VoteByVoter(roundID, voterID string) (Vote, bool) {
	st.votesMu.RLock()
	defer st.votesMu.RUnlock()
	for _, v := range st.votes {
		if v.RoundID == roundID && v.VoterID == voterID {
			return *v, true
		}
	}
	return Vote{}, false
}

func (st *Store) Votes() []Vote {
	st.votesMu.RLock()
	defer st.votesMu.RUnlock()
	out := make([]Vote, 0, len(st.votes))
	for _, v := range st.votes {
		out = append(out, *v)
	}
	return out
}

func (st *Store) ReplaceVotes(votes []*Vote) {
	st.votesMu.Lock()
	st.votes = make(map[string]*Vote, len(votes))
	for _, v := range votes {
		cp := *v
		st.votes[v.ID] = &cp
	}
	st.votesMu.Unlock()
}

// --- players ---

func (st *Store) PutPlayer(p *Player) {
	st.playersMu.Lock()
	st.players[p.ID] = p
	st.playersMu.Unlock()
}

func (st *Store) Player(id string) (Player, bool) {
	st.playersMu.RLock()
	defer st.playersMu.RUnlock()
	p, ok := st.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (st *Store) PlayerByToken(token string) (Player, bool) {
	st.playersMu.RLock()
	defer st.playersMu.RUnlock()
	for _, p := range st.players {
		if p.Token == token {
			return *p, true
		}
	}
	return Player{}, false
}

func (st *Store) MutatePlayer(id string, fn func(p *Player)) bool {
	st.playersMu.Lock()
	defer st.playersMu.Unlock()
	p, ok := st.players[id]
	if !ok {
		return false
	}
	fn(p)
	return true
}

func (st *Store) DeletePlayer(id string) bool {
	st.playersMu.Lock()
	defer st.playersMu.Unlock()
	if _, ok := st.players[id]; !ok {
		return false
	}
	delete(st.players, id)
	return true
}

func (st *Store) Players() []Player {
	st.playersMu.RLock()
	defer st.playersMu.RUnlock()
	out := make([]Player, 0, len(st.players))
	for _, p := range st.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

func (st *Store) ReplacePlayers(players []*Player) {
	st.playersMu.Lock()
	st.players = make(map[string]*Player, len(players))
	for _, p := range players {
		cp := *p
		st.players[p.ID] = &cp
	}
	st.playersMu.Unlock()
}

// --- scores ---

// AppendScores adds entries to the append-only score log.
func (st *Store) AppendScores(scores ...*Score) {
	st.scoresMu.Lock()
	st.scores = append(st.scores, scores...)
	st.scoresMu.Unlock()
}

func (st *Store) Scores() []Score {
	st.scoresMu.RLock()
	defer st.scoresMu.RUnlock()
	out := make([]Score, 0, len(st.scores))
	for _, s := range st.scores {
		out = append(out, *s)
	}
	return out
}

func (st *Store) ReplaceScores(scores []*Score) {
	st.scoresMu.Lock()
	st.scores = make([]*Score, 0, len(scores))
	for _, s := range scores {
		cp := *s
		st.scores = append(st.scores, &cp)
	}
	st.scoresMu.Unlock()
}

// --- prompts ---

func (st *Store) PutPrompt(p *Prompt) {
	st.promptsMu.Lock()
	st.prompts[p.ID] = p
	st.promptsMu.Unlock()
}

func (st *Store) Prompt(id string) (Prompt, bool) {
	st.promptsMu.RLock()
	defer st.promptsMu.RUnlock()
	p, ok := st.prompts[id]
	if !ok {
		return Prompt{}, false
	}
	return copyPrompt(p), true
}

func (st *Store) MutatePrompt(id string, fn func(p *Prompt)) bool {
	st.promptsMu.Lock()
	defer st.promptsMu.Unlock()
	p, ok := st.prompts[id]
	if !ok {
		return false
	}
	fn(p)
	return true
}

func (st *Store) Prompts() []Prompt {
	st.promptsMu.RLock()
	defer st.promptsMu.RUnlock()
	out := make([]Prompt, 0, len(st.prompts))
	for _, p := range st.prompts {
		out = append(out, copyPrompt(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (st *Store) ReplacePrompts(prompts []*Prompt) {
	st.promptsMu.Lock()
	st.prompts = make(map[string]*Prompt, len(prompts))
	for _, p := range prompts {
		cp := copyPrompt(p)
		st.prompts[p.ID] = &cp
	}
	st.promptsMu.Unlock()
}

func copyPrompt(p *Prompt) Prompt {
	cp := *p
	cp.SubmitterIDs = append([]string(nil), p.SubmitterIDs...)
	return cp
}

// --- submission status ---

func (st *Store) SetSubmitted(playerID string, done bool) {
	st.statusMu.Lock()
	if done {
		st.submitted[playerID] = true
	} else {
		delete(st.submitted, playerID)
	}
	st.statusMu.Unlock()
}

func (st *Store) SubmittedStatus() map[string]bool {
	st.statusMu.RLock()
	defer st.statusMu.RUnlock()
	out := make(map[string]bool, len(st.submitted))
	for k, v := range st.submitted {
		out[k] = v
	}
	return out
}

func (st *Store) ClearSubmittedStatus() {
	st.statusMu.Lock()
	st.submitted = make(map[string]bool)
	st.statusMu.Unlock()
}

func (st *Store) ReplaceSubmittedStatus(m map[string]bool) {
	st.statusMu.Lock()
	st.submitted = make(map[string]bool, len(m))
	for k, v := range m {
		st.submitted[k] = v
	}
	st.statusMu.Unlock()
}

// --- processed vote markers ---

func (st *Store) ProcessedMsg(voterID string) (string, bool) {
	st.processedMu.RLock()
	defer st.processedMu.RUnlock()
	id, ok := st.processed[voterID]
	return id, ok
}

func (st *Store) SetProcessedMsg(voterID, msgID string) {
	st.processedMu.Lock()
	st.processed[voterID] = msgID
	st.processedMu.Unlock()
}

func (st *Store) ClearProcessedMsg(voterID string) {
	st.processedMu.Lock()
	delete(st.processed, voterID)
	st.processedMu.Unlock()
}

func (st *Store) ProcessedMsgs() map[string]string {
	st.processedMu.RLock()
	defer st.processedMu.RUnlock()
	out := make(map[string]string, len(st.processed))
	for k, v := range st.processed {
		out[k] = v
	}
	return out
}

func (st *Store) ReplaceProcessedMsgs(m map[string]string) {
	st.processedMu.Lock()
	st.processed = make(map[string]string, len(m))
	for k, v := range m {
		st.processed[k] = v
	}
	st.processedMu.Unlock()
}

// --- shadowban ---

func (st *Store) Shadowban(voterID string) {
	st.shadowMu.Lock()
	st.shadowbanned[voterID] = struct{}{}
	st.shadowMu.Unlock()
}

func (st *Store) Unshadowban(voterID string) {
	st.shadowMu.Lock()
	delete(st.shadowbanned, voterID)
	st.shadowMu.Unlock()
}

func (st *Store) IsShadowbanned(voterID string) bool {
	st.shadowMu.RLock()
	defer st.shadowMu.RUnlock()
	_, ok := st.shadowbanned[voterID]
	return ok
}

func (st *Store) Shadowbanned() []string {
	st.shadowMu.RLock()
	defer st.shadowMu.RUnlock()
	out := make([]string, 0, len(st.shadowbanned))
	for id := range st.shadowbanned {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (st *Store) ReplaceShadowbanned(ids []string) {
	st.shadowMu.Lock()
	st.shadowbanned = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		st.shadowbanned[id] = struct{}{}
	}
	st.shadowMu.Unlock()
}
