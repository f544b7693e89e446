package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/kiliankoe/botornot/internal/ai"
	"github.com/kiliankoe/botornot/internal/ai/ollama"
	"github.com/kiliankoe/botornot/internal/ai/openai"
	"github.com/kiliankoe/botornot/internal/broadcast"
	"github.com/kiliankoe/botornot/internal/config"
	"github.com/kiliankoe/botornot/internal/game"
	"github.com/kiliankoe/botornot/internal/ws"
	staticserver "github.com/kiliankoe/botornot/static"
)

var version = "dev" // set at build time via -ldflags

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	cmd := &cobra.Command{
		Use:           "botornot",
		Short:         "Live party game server: spot the AI answer among the human ones.",
		Args:          cobra.ExactArgs(0),
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.Register(cmd, cfg)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("botornot v{{.Version}}\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	hub := broadcast.NewHub()
	defer hub.Close()

	sess := game.NewSession(game.Config{
		WritingSeconds:  cfg.WritingSeconds,
		VotingSeconds:   cfg.VotingSeconds,
		MaxAnswerLength: cfg.MaxAnswerLength,
	}, hub)
	sess.SetProvider(newProvider(cfg), cfg.Model, cfg.SystemPrompt)
	sess.SetResultsFile(cfg.ExportFile)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		log.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "version": version, "time": time.Now().UTC()})
	})

	r.GET("/join/qr.png", func(c *gin.Context) {
		base := cfg.PublicURL
		if base == "" {
			base = "http://" + c.Request.Host
		}
		target := strings.TrimRight(base, "/") + "/join"
		if token := c.Query("token"); token != "" {
			target += "?token=" + token
		}
		png, err := qrcode.Encode(target, qrcode.Medium, 512)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	sock := ws.New(sess, hub, cfg.HostKey)
	io := sock.Mount(r)
	defer io.Close()

	if cfg.GMUser != "" && cfg.GMPass != "" {
		auth := gin.BasicAuth(gin.Accounts{cfg.GMUser: cfg.GMPass})
		gm := r.Group("/api/gm", auth)
		gm.GET("/snapshot", func(c *gin.Context) {
			c.JSON(http.StatusOK, sess.Export())
		})
		gm.POST("/snapshot", func(c *gin.Context) {
			var snap game.Snapshot
			if err := c.BindJSON(&snap); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_snapshot"})
				return
			}
			if err := sess.Import(&snap); err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": game.CodeOf(err), "message": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
		gm.POST("/export-results", func(c *gin.Context) {
			if cfg.ExportFile == "" {
				c.JSON(http.StatusConflict, gin.H{"error": "export_disabled"})
				return
			}
			if err := sess.WriteResultsText(cfg.ExportFile); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true, "file": cfg.ExportFile})
		})
	}

	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	go sess.RunDeadlineWatcher(ctx, cfg.DeadlineInterval)
	go sess.RunTallyWatcher(ctx, cfg.TallyInterval)
	go sess.RunStatsWatcher(ctx, cfg.StatsInterval, sock.Counts)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newProvider(cfg *config.Config) ai.Provider {
	if cfg.Provider == "ollama" {
		return ollama.New(cfg.OllamaHost)
	}
	return openai.New(cfg.OpenAIKey, cfg.OpenAIBase)
}
