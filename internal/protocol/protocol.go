// Package protocol defines the role-tagged command set clients send
// and the event names the server emits. Authorization is a pure
// function of (role, command kind) and is checked before any command
// reaches the game core.
package protocol

import "github.com/kiliankoe/botornot/internal/game"

// Role identifies what a connection is allowed to do.
type Role string

const (
	RoleHost     Role = "host"
	RoleBeamer   Role = "beamer"
	RolePlayer   Role = "player"
	RoleAudience Role = "audience"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleHost, RoleBeamer, RolePlayer, RoleAudience:
		return true
	}
	return false
}

// CommandKind discriminates inbound commands.
type CommandKind string

const (
	// open to any role
	CmdRegisterPlayer CommandKind = "player:register"
	CmdSubmitAnswer   CommandKind = "answer:submit"
	CmdSubmitPrompt   CommandKind = "prompt:submit"
	CmdCastVote       CommandKind = "vote:cast"
	CmdTypoCheck      CommandKind = "answer:typocheck"

	// host only
	CmdTransition       CommandKind = "host:transition"
	CmdStartRound       CommandKind = "host:startRound"
	CmdSelectPrompt     CommandKind = "host:selectPrompt"
	CmdEditSubmission   CommandKind = "host:editSubmission"
	CmdRemoveSubmission CommandKind = "host:removeSubmission"
	CmdMarkDuplicate    CommandKind = "host:markDuplicate"
	CmdSetRevealOrder   CommandKind = "host:setRevealOrder"
	CmdSetAISubmission  CommandKind = "host:setAiSubmission"
	CmdRevealNext       CommandKind = "host:revealNext"
	CmdRevealPrev       CommandKind = "host:revealPrev"
	CmdSetPanicMode     CommandKind = "host:setPanicMode"
	CmdSetManualWinner  CommandKind = "host:setManualWinner"
	CmdShadowban        CommandKind = "host:shadowban"
	CmdCreatePlayers    CommandKind = "host:createPlayers"
	CmdRemovePlayer     CommandKind = "host:removePlayer"
	CmdResetGame        CommandKind = "host:resetGame"
	CmdRequestAIAnswer  CommandKind = "host:requestAiAnswer"
)

var hostOnly = map[CommandKind]struct{}{
	CmdTransition:       {},
	CmdStartRound:       {},
	CmdSelectPrompt:     {},
	CmdEditSubmission:   {},
	CmdRemoveSubmission: {},
	CmdMarkDuplicate:    {},
	CmdSetRevealOrder:   {},
	CmdSetAISubmission:  {},
	CmdRevealNext:       {},
	CmdRevealPrev:       {},
	CmdSetPanicMode:     {},
	CmdSetManualWinner:  {},
	CmdShadowban:        {},
	CmdCreatePlayers:    {},
	CmdRemovePlayer:     {},
	CmdResetGame:        {},
	CmdRequestAIAnswer:  {},
}

// Allowed reports whether role may issue kind.
func Allowed(role Role, kind CommandKind) bool {
	if _, restricted := hostOnly[kind]; restricted {
		return role == RoleHost
	}
	return true
}

// Authorize returns the structured rejection for a disallowed command,
// nil otherwise.
func Authorize(role Role, kind CommandKind) error {
	if Allowed(role, kind) {
		return nil
	}
	return game.AuthorizationError(string(kind))
}

// Command is the single inbound envelope; only the fields relevant to
// Kind are populated.
type Command struct {
	Kind CommandKind `json:"kind"`

	// identity
	Token string `json:"token,omitempty"` // player join code
	MsgID string `json:"msgId,omitempty"` // client-side dedup id for votes

	// payload
	Name          string   `json:"name,omitempty"`
	Text          string   `json:"text,omitempty"`
	ImageRef      string   `json:"imageRef,omitempty"`
	Phase         string   `json:"phase,omitempty"`
	RoundID       string   `json:"roundId,omitempty"`
	PromptID      string   `json:"promptId,omitempty"`
	SubmissionID  string   `json:"submissionId,omitempty"`
	SubmissionIDs []string `json:"submissionIds,omitempty"`
	AIPick        string   `json:"aiPick,omitempty"`
	FunnyPick     string   `json:"funnyPick,omitempty"`
	PlayerID      string   `json:"playerId,omitempty"`
	VoterID       string   `json:"voterId,omitempty"`
	Count         int      `json:"count,omitempty"`
	Active        bool     `json:"active,omitempty"`
	Banned        bool     `json:"banned,omitempty"`
}

// Server event names, matching the hub messages the game core emits.
const (
	EvtWelcome     = "welcome"
	EvtState       = "state"
	EvtPhase       = "phase"
	EvtSubmissions = "submissions"
	EvtReveal      = "reveal"
	EvtScores      = "scores"
	EvtTally       = "tally"
	EvtStats       = "stats"
	EvtPlayers     = "players"
	EvtPrompts     = "prompts"
	EvtError       = "error"
)

// ErrorPayload is the structured error surfaced to clients.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FromError converts any engine error into the wire shape.
func FromError(err error) ErrorPayload {
	return ErrorPayload{Code: game.CodeOf(err), Message: err.Error()}
}
