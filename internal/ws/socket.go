// Package ws adapts the socket.io transport to the game core. It owns
// nothing but connection identity: every command is authorized against
// the connection's role and dispatched into the session, and every hub
// message is pumped back out to the matching subscribers.
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/kiliankoe/botornot/internal/broadcast"
	"github.com/kiliankoe/botornot/internal/game"
	"github.com/kiliankoe/botornot/internal/protocol"
)

// ConnCtx is the per-connection state: role plus identity. Entities
// live in the store, never on the connection.
type ConnCtx struct {
	Role     protocol.Role
	PlayerID string
	VoterID  string

	sub     *broadcast.Subscription
	limiter *rate.Limiter
}

type Server struct {
	session *game.Session
	hub     *broadcast.Hub
	hostKey string

	mu     sync.Mutex
	counts map[string]int
}

func New(session *game.Session, hub *broadcast.Hub, hostKey string) *Server {
	return &Server{
		session: session,
		hub:     hub,
		hostKey: hostKey,
		counts:  make(map[string]int),
	}
}

// Counts reports live connections by role, for the stats watcher.
func (srv *Server) Counts() map[string]int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	out := make(map[string]int, len(srv.counts))
	for k, v := range srv.counts {
		out[k] = v
	}
	return out
}

func (srv *Server) track(role protocol.Role, delta int) {
	srv.mu.Lock()
	srv.counts[string(role)] += delta
	if srv.counts[string(role)] <= 0 {
		delete(srv.counts, string(role))
	}
	srv.mu.Unlock()
}

// Mount attaches the socket.io server with its handlers to gin.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{
			Role:    protocol.RoleAudience,
			VoterID: uuid.NewString(),
			limiter: rate.NewLimiter(rate.Limit(5), 10),
		})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// session:hello binds the connection to a role and delivers the
	// authoritative snapshot.
	io.OnEvent("/", "session:hello", func(s socketio.Conn, payload struct {
		Role    string `json:"role"`
		HostKey string `json:"hostKey,omitempty"`
		Token   string `json:"token,omitempty"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		role := protocol.Role(payload.Role)
		if !protocol.ValidRole(role) {
			return srv.emitErr(s, "unknown_role", "unknown role "+payload.Role)
		}
		switch role {
		case protocol.RoleHost:
			if srv.hostKey == "" || payload.HostKey != srv.hostKey {
				return srv.emitError(s, game.AuthorizationError("session:hello"))
			}
		case protocol.RolePlayer:
			p, ok := srv.session.PlayerByToken(payload.Token)
			if !ok {
				return srv.emitError(s, &game.Error{Kind: game.KindNotFound, Code: "player_not_found", Message: "no player with that join code"})
			}
			ctx.PlayerID = p.ID
		}
		if ctx.sub != nil {
			srv.track(ctx.Role, -1)
			ctx.sub.Close()
		}
		ctx.Role = role
		ctx.sub = srv.hub.Subscribe(role == protocol.RoleHost, role == protocol.RoleBeamer)
		srv.track(role, 1)
		go pump(s, ctx.sub)

		you := map[string]any{"role": role, "voterId": ctx.VoterID}
		if ctx.PlayerID != "" {
			you["playerId"] = ctx.PlayerID
		}
		s.Emit(protocol.EvtWelcome, map[string]any{
			"state": srv.session.WelcomeState(role == protocol.RoleHost),
			"you":   you,
			"next":  game.ValidNext(srv.session.Game().Phase),
		})
		log.Info().Str("sid", s.ID()).Str("role", string(role)).Msg("session:hello")
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "command", func(s socketio.Conn, cmd protocol.Command) map[string]any {
		ctx := s.Context().(*ConnCtx)
		if ctx.Role != protocol.RoleHost && !ctx.limiter.Allow() {
			return srv.emitErr(s, "rate_limited", "too many requests")
		}
		if err := protocol.Authorize(ctx.Role, cmd.Kind); err != nil {
			return srv.emitError(s, err)
		}
		result, err := srv.dispatch(s, ctx, cmd)
		if err != nil {
			return srv.emitError(s, err)
		}
		if result == nil {
			result = map[string]any{"ok": true}
		}
		return result
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.sub != nil {
			srv.track(ctx.Role, -1)
			ctx.sub.Close()
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// pump forwards hub messages to the connection until the subscription
// closes. Slow connections drop messages at the hub, not here.
func pump(s socketio.Conn, sub *broadcast.Subscription) {
	for msg := range sub.C() {
		s.Emit(msg.Event, msg.Payload)
	}
}

func (srv *Server) dispatch(s socketio.Conn, ctx *ConnCtx, cmd protocol.Command) (map[string]any, error) {
	sess := srv.session
	switch cmd.Kind {
	case protocol.CmdRegisterPlayer:
		p, err := sess.RegisterPlayer(cmd.Token, cmd.Name)
		if err != nil {
			return nil, err
		}
		ctx.PlayerID = p.ID
		if ctx.Role == protocol.RoleAudience {
			ctx.Role = protocol.RolePlayer
		}
		return map[string]any{"playerId": p.ID}, nil

	case protocol.CmdSubmitAnswer:
		if ctx.PlayerID == "" {
			return nil, &game.Error{Kind: game.KindAuthorization, Code: "not_registered", Message: "register before submitting an answer"}
		}
		sub, err := sess.SubmitAnswer(sess.Game().CurrentRoundID, ctx.PlayerID, cmd.Text)
		if err != nil {
			return nil, err
		}
		return map[string]any{"submissionId": sub.ID}, nil

	case protocol.CmdSubmitPrompt:
		source := game.PromptAudience
		submitter := ctx.VoterID
		if ctx.Role == protocol.RoleHost {
			source = game.PromptHost
			submitter = ""
		}
		p, err := sess.AddPrompt(cmd.Text, cmd.ImageRef, source, submitter)
		if err != nil {
			return nil, err
		}
		return map[string]any{"promptId": p.ID}, nil

	case protocol.CmdCastVote:
		outcome, err := sess.SubmitVote(ctx.VoterID, cmd.AIPick, cmd.FunnyPick, cmd.MsgID)
		if err != nil {
			return nil, err
		}
		s.Emit("vote:ack", map[string]any{"outcome": outcome, "msgId": cmd.MsgID})
		return map[string]any{"outcome": outcome}, nil

	case protocol.CmdTypoCheck:
		corrected, changed := sess.TypoCheck(context.Background(), cmd.Text)
		return map[string]any{"text": corrected, "changed": changed}, nil

	case protocol.CmdTransition:
		change, err := sess.Transition(game.Phase(cmd.Phase))
		if err != nil {
			return nil, err
		}
		return map[string]any{"from": change.From, "to": change.To, "next": change.Next}, nil

	case protocol.CmdStartRound:
		round, err := sess.StartRound()
		if err != nil {
			return nil, err
		}
		return map[string]any{"roundId": round.ID, "seq": round.Seq}, nil

	case protocol.CmdSelectPrompt:
		return nil, sess.SelectPrompt(cmd.PromptID)

	case protocol.CmdEditSubmission:
		return nil, sess.EditSubmission(cmd.SubmissionID, cmd.Text)

	case protocol.CmdRemoveSubmission:
		return nil, sess.RemoveSubmissions(sess.Game().CurrentRoundID, submissionIDs(cmd)...)

	case protocol.CmdMarkDuplicate:
		return nil, sess.MarkDuplicates(sess.Game().CurrentRoundID, submissionIDs(cmd)...)

	case protocol.CmdSetRevealOrder:
		return nil, sess.SetRevealOrder(sess.Game().CurrentRoundID, cmd.SubmissionIDs)

	case protocol.CmdSetAISubmission:
		return nil, sess.SetAISubmission(cmd.SubmissionID)

	case protocol.CmdRevealNext:
		ix, err := sess.RevealNext(sess.Game().CurrentRoundID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"index": ix}, nil

	case protocol.CmdRevealPrev:
		ix, err := sess.RevealPrev(sess.Game().CurrentRoundID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"index": ix}, nil

	case protocol.CmdSetPanicMode:
		sess.SetPanicMode(cmd.Active)
		return nil, nil

	case protocol.CmdSetManualWinner:
		return nil, sess.SetManualWinners(cmd.AIPick, cmd.FunnyPick)

	case protocol.CmdShadowban:
		sess.ShadowbanVoter(cmd.VoterID, cmd.Banned)
		return nil, nil

	case protocol.CmdCreatePlayers:
		n := cmd.Count
		if n <= 0 {
			n = 1
		}
		players := sess.CreatePlayers(n)
		return map[string]any{"players": players}, nil

	case protocol.CmdRemovePlayer:
		return nil, sess.RemovePlayer(cmd.PlayerID)

	case protocol.CmdResetGame:
		sess.Reset()
		return nil, nil

	case protocol.CmdRequestAIAnswer:
		// best-effort in the background; the host is notified either way
		go func() {
			sub, err := sess.GenerateAIAnswer(context.Background())
			if err != nil {
				s.Emit("ai:answer", map[string]any{"error": protocol.FromError(err)})
				return
			}
			s.Emit("ai:answer", map[string]any{"submissionId": sub.ID, "text": sub.DisplayText})
		}()
		return nil, nil
	}
	return nil, &game.Error{Kind: game.KindValidation, Code: "unknown_command", Message: "unknown command kind " + string(cmd.Kind)}
}

func submissionIDs(cmd protocol.Command) []string {
	if len(cmd.SubmissionIDs) > 0 {
		return cmd.SubmissionIDs
	}
	if cmd.SubmissionID != "" {
		return []string{cmd.SubmissionID}
	}
	return nil
}

func (srv *Server) emitError(s socketio.Conn, err error) map[string]any {
	payload := protocol.FromError(err)
	s.Emit(protocol.EvtError, payload)
	return map[string]any{"error": payload}
}

func (srv *Server) emitErr(s socketio.Conn, code, message string) map[string]any {
	payload := protocol.ErrorPayload{Code: code, Message: message}
	s.Emit(protocol.EvtError, payload)
	return map[string]any{"error": payload}
}
