package game

import (
	"time"
)

type Phase string

const (
	PhaseLobby           Phase = "Lobby"
	PhasePromptSelection Phase = "PromptSelection"
	PhaseWriting         Phase = "Writing"
	PhaseReveal          Phase = "Reveal"
	PhaseVoting          Phase = "Voting"
	PhaseResults         Phase = "Results"
	PhasePodium          Phase = "Podium"
	PhaseIntermission    Phase = "Intermission"
	PhaseEnded           Phase = "Ended"
)

type RoundState string

const (
	RoundSetup        RoundState = "Setup"
	RoundCollecting   RoundState = "Collecting"
	RoundRevealing    RoundState = "Revealing"
	RoundOpenForVotes RoundState = "OpenForVotes"
	RoundScoring      RoundState = "Scoring"
	RoundClosed       RoundState = "Closed"
)

// Config holds the per-session gameplay parameters.
type Config struct {
	WritingSeconds  int `json:"writingSeconds"`
	VotingSeconds   int `json:"votingSeconds"`
	MaxAnswerLength int `json:"maxAnswerLength"`
}

// Game is the single live session. Version increments on every
// mutation so clients can discard stale broadcasts.
type Game struct {
	ID             string     `json:"id"`
	Version        uint64     `json:"version"`
	Phase          Phase      `json:"phase"`
	RoundNo        int        `json:"roundNo"`
	Config         Config     `json:"config"`
	CurrentRoundID string     `json:"currentRoundId"`
	PhaseDeadline  *time.Time `json:"phaseDeadline,omitempty"`
	PanicMode      bool       `json:"panicMode"`
}

type Round struct {
	ID                string     `json:"id"`
	GameID            string     `json:"gameId"`
	Seq               int        `json:"seq"`
	State             RoundState `json:"state"`
	PromptID          string     `json:"promptId"`
	RevealOrder       []string   `json:"revealOrder"`
	RevealIndex       int        `json:"revealIndex"`
	AISubmissionID    string     `json:"aiSubmissionId"`
	ScoredAt          *time.Time `json:"scoredAt,omitempty"`
	ManualAIWinner    string     `json:"manualAiWinner,omitempty"`
	ManualFunnyWinner string     `json:"manualFunnyWinner,omitempty"`
}

type AuthorKind string

const (
	AuthorPlayer AuthorKind = "player"
	AuthorAI     AuthorKind = "ai"
)

type Submission struct {
	ID           string     `json:"id"`
	RoundID      string     `json:"roundId"`
	Author       AuthorKind `json:"author"`
	PlayerID     string     `json:"playerId,omitempty"`
	OriginalText string     `json:"originalText"`
	DisplayText  string     `json:"displayText"`
	EditedByHost bool       `json:"editedByHost"`
	AudioRef     string     `json:"audioRef,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Vote struct {
	ID        string    `json:"id"`
	RoundID   string    `json:"roundId"`
	VoterID   string    `json:"voterId"`
	AIPick    string    `json:"aiPick"`
	FunnyPick string    `json:"funnyPick"`
	CastAt    time.Time `json:"castAt"`
}

type Player struct {
	ID       string    `json:"id"`
	Token    string    `json:"token"`
	Name     string    `json:"name,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ScoreKind string

const (
	ScorePlayer   ScoreKind = "player"
	ScoreAudience ScoreKind = "audience"
)

// Score is one appended ledger entry. Entries are never mutated;
// the leaderboard is derived by aggregating the log.
type Score struct {
	ID             string    `json:"id"`
	RoundID        string    `json:"roundId"`
	Kind           ScoreKind `json:"kind"`
	RefID          string    `json:"refId"`
	AIDetectPoints int       `json:"aiDetectPoints"`
	FunnyPoints    int       `json:"funnyPoints"`
	Total          int       `json:"total"`
}

type PromptSource string

const (
	PromptHost     PromptSource = "host"
	PromptAudience PromptSource = "audience"
)

type Prompt struct {
	ID              string       `json:"id"`
	Text            string       `json:"text"`
	ImageRef        string       `json:"imageRef,omitempty"`
	Source          PromptSource `json:"source"`
	SubmitterIDs    []string     `json:"submitterIds"`
	SubmissionCount int          `json:"submissionCount"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// LeaderboardEntry is the cumulative standing of one scorer.
type LeaderboardEntry struct {
	Kind           ScoreKind `json:"kind"`
	RefID          string    `json:"refId"`
	AIDetectPoints int       `json:"aiDetectPoints"`
	FunnyPoints    int       `json:"funnyPoints"`
	Total          int       `json:"total"`
}

// PlayerView is the public shape of a player, join token omitted.
type PlayerView struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// SubmissionView is the public shape of a submission, author omitted.
type SubmissionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// VoteOutcome reports how SubmitVote handled a message.
type VoteOutcome string

const (
	VoteRecorded  VoteOutcome = "recorded"
	VoteDuplicate VoteOutcome = "duplicate"
)
