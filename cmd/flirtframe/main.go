package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/theimaginaryfoundation/flirtframe/opener/analytics"
	"github.com/theimaginaryfoundation/flirtframe/opener/fileutils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}

// app carries state shared by every subcommand once the root pre-run has
// resolved configuration.
type app struct {
	cfg    Config
	logger *zap.Logger
	sink   analytics.Sink
	out    io.Writer
	getenv func(string) string

	configPath string
	envFile    string
	flags      Config
}

func newRootCmd(out io.Writer, getenv func(string) string) *cobra.Command {
	a := &app{out: out, getenv: getenv, flags: defaultConfig()}

	root := &cobra.Command{
		Use:   "flirtframe",
		Short: "Photo-aware conversation opener generator",
		Long: `flirtframe analyzes a photo, optionally reads a public profile, and asks a
text-generation service for conversation openers. Every candidate passes a
safety filter; shortfalls are topped up one opener at a time.

Session history (past analyses, openers and ratings) is persisted between
runs in memory, SQLite or Redis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (.yaml, .yml or .toml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment (missing is fine)")
	pf.StringVar(&a.flags.Session, "session", a.flags.Session, "Session id")
	pf.StringVar(&a.flags.Store, "store", a.flags.Store, "Session store: memory, sqlite or redis")
	pf.StringVar(&a.flags.DBPath, "db", a.flags.DBPath, "SQLite database path")
	pf.StringVar(&a.flags.RedisAddr, "redis-addr", a.flags.RedisAddr, "Redis address")
	pf.StringVar(&a.flags.SessionTTL, "session-ttl", a.flags.SessionTTL, "Redis session TTL")
	pf.StringVar(&a.flags.Provider, "provider", a.flags.Provider, "Text provider: openai, anthropic or gemini")
	pf.StringVar(&a.flags.Model, "model", a.flags.Model, "Model name (empty uses the provider default)")
	pf.StringVar(&a.flags.APIKey, "api-key", "", "API key for the selected provider")
	pf.StringVar(&a.flags.BaseURL, "base-url", "", "Override the provider API base URL")
	pf.IntVar(&a.flags.HistoryLimit, "history-limit", a.flags.HistoryLimit, "Max session records kept")
	pf.BoolVar(&a.flags.Pretty, "pretty", a.flags.Pretty, "Pretty-print JSON output")
	pf.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newAnalyzeCmd(a),
		newGenerateCmd(a),
		newRateCmd(a),
		newStatsCmd(a),
		newProfileCmd(a),
	)
	return root
}

// init resolves configuration (defaults, file, env, flags in that order) and
// builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg := defaultConfig()
	if a.configPath != "" {
		if err := loadConfigFile(a.configPath, &cfg); err != nil {
			return err
		}
	}
	if a.envFile != "" && fileutils.FileExists(a.envFile) {
		if err := godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	applyEnv(&cfg, a.getenv)
	a.applyFlags(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	zcfg := zap.NewProductionConfig()
	if cfg.Verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger.With(zap.String("session_id", cfg.Session))
	a.sink = analytics.NewLogSink(a.logger)
	return nil
}

// applyFlags copies only the flags the user actually set, so file and env
// values survive unset flags.
func (a *app) applyFlags(cmd *cobra.Command, cfg *Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	str := map[string]struct{ dst, src *string }{
		"session":      {&cfg.Session, &a.flags.Session},
		"store":        {&cfg.Store, &a.flags.Store},
		"db":           {&cfg.DBPath, &a.flags.DBPath},
		"redis-addr":   {&cfg.RedisAddr, &a.flags.RedisAddr},
		"session-ttl":  {&cfg.SessionTTL, &a.flags.SessionTTL},
		"provider":     {&cfg.Provider, &a.flags.Provider},
		"model":        {&cfg.Model, &a.flags.Model},
		"vision-model": {&cfg.VisionModel, &a.flags.VisionModel},
		"api-key":      {&cfg.APIKey, &a.flags.APIKey},
		"base-url":     {&cfg.BaseURL, &a.flags.BaseURL},
		"style":        {&cfg.Style, &a.flags.Style},
		"profiles":     {&cfg.ProfilesDir, &a.flags.ProfilesDir},
		"autosave":     {&cfg.Autosave, &a.flags.Autosave},
	}
	for name, p := range str {
		if changed(name) {
			*p.dst = *p.src
		}
	}
	ints := map[string]struct{ dst, src *int }{
		"history-limit": {&cfg.HistoryLimit, &a.flags.HistoryLimit},
		"count":         {&cfg.Count, &a.flags.Count},
		"concurrency":   {&cfg.Concurrency, &a.flags.Concurrency},
	}
	for name, p := range ints {
		if changed(name) {
			*p.dst = *p.src
		}
	}
	if changed("pretty") {
		cfg.Pretty = a.flags.Pretty
	}
	if changed("verbose") {
		cfg.Verbose = a.flags.Verbose
	}
}
