// Package config holds the server configuration. Every flag can also
// be set through the environment with the BOTORNOT_ prefix, flag
// dashes replaced by underscores (e.g. --host-key -> BOTORNOT_HOST_KEY).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Bind      string
	Port      int
	PublicURL string

	HostKey string
	GMUser  string
	GMPass  string

	WritingSeconds  int
	VotingSeconds   int
	MaxAnswerLength int

	Provider     string // "openai" or "ollama"
	Model        string
	SystemPrompt string
	OpenAIKey    string
	OpenAIBase   string
	OllamaHost   string

	DeadlineInterval time.Duration
	TallyInterval    time.Duration
	StatsInterval    time.Duration

	ExportFile string
	Verbose    bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.HostKey == "" {
		return errors.New("a host key is required, set --host-key or BOTORNOT_HOST_KEY")
	}
	switch c.Provider {
	case "openai", "ollama", "":
	default:
		return fmt.Errorf("unknown provider %q (want openai or ollama)", c.Provider)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// Register wires the flags onto cmd and binds each one to its
// environment counterpart.
func Register(cmd *cobra.Command, cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("BOTORNOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: BOTORNOT_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: BOTORNOT_PORT)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "externally reachable base URL, used for join QR codes (env: BOTORNOT_PUBLIC_URL)")

	fs.StringVar(&cfg.HostKey, "host-key", "", "shared secret the host console authenticates with (env: BOTORNOT_HOST_KEY)")
	fs.StringVar(&cfg.GMUser, "gm-user", "gm", "basic auth user for the snapshot endpoints (env: BOTORNOT_GM_USER)")
	fs.StringVar(&cfg.GMPass, "gm-pass", "", "basic auth password for the snapshot endpoints, empty disables them (env: BOTORNOT_GM_PASS)")

	fs.IntVar(&cfg.WritingSeconds, "writing-seconds", 120, "writing phase duration (env: BOTORNOT_WRITING_SECONDS)")
	fs.IntVar(&cfg.VotingSeconds, "voting-seconds", 90, "voting phase duration (env: BOTORNOT_VOTING_SECONDS)")
	fs.IntVar(&cfg.MaxAnswerLength, "max-answer-length", 280, "maximum answer length in characters (env: BOTORNOT_MAX_ANSWER_LENGTH)")

	fs.StringVar(&cfg.Provider, "provider", "openai", "text generation backend, openai or ollama (env: BOTORNOT_PROVIDER)")
	fs.StringVar(&cfg.Model, "model", "gpt-4o-mini", "model to request answers from (env: BOTORNOT_MODEL)")
	fs.StringVar(&cfg.SystemPrompt, "system-prompt", "", "system prompt override for answer generation (env: BOTORNOT_SYSTEM_PROMPT)")
	fs.StringVar(&cfg.OpenAIKey, "openai-key", "", "OpenAI API key (env: BOTORNOT_OPENAI_KEY)")
	fs.StringVar(&cfg.OpenAIBase, "openai-base", "", "OpenAI-compatible base URL (env: BOTORNOT_OPENAI_BASE)")
	fs.StringVar(&cfg.OllamaHost, "ollama-host", "", "ollama host, defaults to localhost:11434 (env: BOTORNOT_OLLAMA_HOST)")

	fs.DurationVar(&cfg.DeadlineInterval, "deadline-interval", time.Second, "how often phase deadlines are checked (env: BOTORNOT_DEADLINE_INTERVAL)")
	fs.DurationVar(&cfg.TallyInterval, "tally-interval", 500*time.Millisecond, "how often live tallies go out to the beamer (env: BOTORNOT_TALLY_INTERVAL)")
	fs.DurationVar(&cfg.StatsInterval, "stats-interval", time.Second, "how often connection stats go out to the host (env: BOTORNOT_STATS_INTERVAL)")

	fs.StringVar(&cfg.ExportFile, "export-file", "", "append a text summary of each scored round to this file (env: BOTORNOT_EXPORT_FILE)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug level logging (env: BOTORNOT_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
