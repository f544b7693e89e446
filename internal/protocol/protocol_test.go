package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/botornot/internal/game"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		role Role
		kind CommandKind
		want bool
	}{
		{RoleAudience, CmdCastVote, true},
		{RoleAudience, CmdSubmitPrompt, true},
		{RoleAudience, CmdTypoCheck, true},
		{RolePlayer, CmdSubmitAnswer, true},
		{RolePlayer, CmdRegisterPlayer, true},
		{RoleBeamer, CmdCastVote, true},
		{RoleHost, CmdTransition, true},
		{RoleHost, CmdCastVote, true},

		{RoleAudience, CmdTransition, false},
		{RoleAudience, CmdSetPanicMode, false},
		{RoleAudience, CmdShadowban, false},
		{RolePlayer, CmdRemoveSubmission, false},
		{RolePlayer, CmdRevealNext, false},
		{RoleBeamer, CmdResetGame, false},
		{RoleBeamer, CmdRequestAIAnswer, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Allowed(tc.role, tc.kind), "%s issuing %s", tc.role, tc.kind)
	}
}

func TestAuthorizeReturnsStructuredError(t *testing.T) {
	require.NoError(t, Authorize(RoleHost, CmdResetGame))

	err := Authorize(RolePlayer, CmdResetGame)
	require.Error(t, err)
	assert.Equal(t, "host_only", game.CodeOf(err))
	assert.Equal(t, game.KindAuthorization, game.KindOf(err))
	assert.Contains(t, err.Error(), string(CmdResetGame))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleHost))
	assert.True(t, ValidRole(RoleAudience))
	assert.False(t, ValidRole(Role("admin")))
	assert.False(t, ValidRole(Role("")))
}

func TestFromError(t *testing.T) {
	payload := FromError(game.ErrPanicMode)
	assert.Equal(t, "panic_mode_active", payload.Code)
	assert.NotEmpty(t, payload.Message)
}
