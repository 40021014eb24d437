// Package main provides the CLI entrypoint for clickspeed.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/revoirb612/pedamint-hcoding/internal/config"
	"github.com/revoirb612/pedamint-hcoding/internal/game"
	"github.com/revoirb612/pedamint-hcoding/internal/logging"
	"github.com/revoirb612/pedamint-hcoding/internal/model"
	"github.com/revoirb612/pedamint-hcoding/internal/remote"
	"github.com/revoirb612/pedamint-hcoding/internal/store"
	"github.com/revoirb612/pedamint-hcoding/internal/timer"
	"github.com/revoirb612/pedamint-hcoding/internal/tui"
)

const (
	defaultDuration      = 10
	defaultSubmitPath    = "/api/ranking"
	defaultListPath      = "/api/ranking"
	defaultProgramKey    = "click-speed"
	defaultRemoteTimeout = 10 * time.Second
	defaultLogLevel      = "info"
	dotEnvPath           = ".env"
)

var defaultDurations = []int{5, 10, 15, 30, 60}

var (
	logLevel   string
	offline    bool
	remoteURL  string
	programKey string

	playDuration int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clickspeed",
		Short:         "Terminal click-speed game",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "disable the online ranking")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote-url", "", "online ranking service base URL")
	rootCmd.PersistentFlags().StringVar(&programKey, "program-key", defaultProgramKey, "online ranking program key")
	rootCmd.Flags().IntVar(&playDuration, "duration", defaultDuration, "session length in seconds")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newRankCmd())
	rootCmd.AddCommand(newNameCmd())
	rootCmd.AddCommand(newTopCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newMealCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	cfg, err := resolveGameConfig(cmd, fileCfg)
	if err != nil {
		return err
	}
	level, err := resolveLogLevel(cmd, fileCfg)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so logs go to a file.
	log, closeLog, err := logging.OpenFile(config.DefaultLogPath(), level)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			// Best-effort log close.
			_ = cerr
		}
	}()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st, log)

	clock := clockwork.NewRealClock()
	deps := game.Deps{
		Clock:   clock,
		Ticks:   timer.NewCountdown(clock),
		Store:   st,
		History: st,
		Log:     log,
	}
	if client := newRemoteClient(cfg, log); client != nil {
		deps.Remote = client
	}
	g := game.New(deps)
	defer g.Reset()

	program := tea.NewProgram(tui.NewModel(commandContext(cmd), g, cfg, log), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// loadFileConfig reads .env, the TOML file and environment overrides, in
// increasing priority. Flags are applied later by each command.
func loadFileConfig() (config.FileConfig, error) {
	if err := config.LoadDotEnv(dotEnvPath); err != nil {
		return config.FileConfig{}, err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(&fileCfg)
	return fileCfg, nil
}

func resolveGameConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.Config, error) {
	applyIntConfig(cmd, "duration", &playDuration, fileCfg.Game.Duration)
	applyStringConfig(cmd, "remote-url", &remoteURL, fileCfg.Remote.BaseURL)
	applyStringConfig(cmd, "program-key", &programKey, fileCfg.Remote.ProgramKey)

	cfg := model.Config{
		Duration:   playDuration,
		Durations:  append([]int(nil), defaultDurations...),
		Offline:    offline,
		RemoteURL:  strings.TrimSpace(remoteURL),
		SubmitPath: defaultSubmitPath,
		ListPath:   defaultListPath,
		ProgramKey: strings.TrimSpace(programKey),
		Timeout:    defaultRemoteTimeout,
	}
	if len(fileCfg.Game.Durations) > 0 {
		cfg.Durations = append([]int(nil), fileCfg.Game.Durations...)
	}
	if fileCfg.Remote.Enabled != nil && !*fileCfg.Remote.Enabled && !cmd.Flags().Changed("offline") {
		cfg.Offline = true
	}
	if v := fileCfg.Remote.SubmitPath; v != nil {
		cfg.SubmitPath = *v
	}
	if v := fileCfg.Remote.ListPath; v != nil {
		cfg.ListPath = *v
	}
	if v := fileCfg.Remote.Timeout; v != nil {
		timeout, err := time.ParseDuration(*v)
		if err != nil {
			return model.Config{}, fmt.Errorf("invalid remote timeout %q: %w", *v, err)
		}
		cfg.Timeout = timeout
	}

	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	cfg.Durations = normalizeDurations(cfg.Durations, cfg.Duration)
	return cfg, nil
}

func resolveLogLevel(cmd *cobra.Command, fileCfg config.FileConfig) (zerolog.Level, error) {
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	return logging.ParseLevel(logLevel)
}

func commandLogger(cmd *cobra.Command, fileCfg config.FileConfig) (zerolog.Logger, error) {
	level, err := resolveLogLevel(cmd, fileCfg)
	if err != nil {
		return zerolog.Nop(), err
	}
	return logging.NewConsole(cmd.ErrOrStderr(), level), nil
}

func newRemoteClient(cfg model.Config, log zerolog.Logger) *remote.Client {
	if cfg.Offline || cfg.RemoteURL == "" {
		return nil
	}
	return remote.New(remote.Config{
		BaseURL:    cfg.RemoteURL,
		SubmitPath: cfg.SubmitPath,
		ListPath:   cfg.ListPath,
		ProgramKey: cfg.ProgramKey,
		Timeout:    cfg.Timeout,
	}, nil, log)
}

func openStore(log zerolog.Logger) (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	log.Debug().Str("path", config.DefaultDBPath()).Msg("opened db")
	return st, nil
}

func closeStore(st *store.Store, log zerolog.Logger) {
	if cerr := st.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("failed to close db")
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# clickspeed configuration
# Uncomment a value to enable it. Environment variables override the file,
# CLI flags override both.

[game]
# duration = %d            # Session length in seconds
# durations = [5, 10, 15, 30, 60]  # Lengths selectable with keys 1-9

[remote]
# enabled = true
# base-url = ""            # Online ranking service (env %s)
# submit-path = %q
# list-path = %q
# program-key = %q   # (env %s)
# timeout = "10s"

[meal]
# base-url = "https://open.neis.go.kr/hub/mealServiceDietInfo"
# api-key = ""             # NEIS open API key (env %s)
# fallback-delay = "1s"    # Wait before showing the sample menu

[server]
# addr = ":8080"
# dsn = ""                 # postgres://... or a SQLite path (env %s)
# allowed-origins = ["*"]
# limit = 10

[log]
# level = %q
`,
		defaultDuration,
		config.EnvRemoteURL,
		defaultSubmitPath,
		defaultListPath,
		defaultProgramKey,
		config.EnvProgramKey,
		config.EnvNEISKey,
		config.EnvServerDSN,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if len(cfg.Durations) > 9 {
		return fmt.Errorf("at most 9 durations can be configured")
	}
	for _, d := range cfg.Durations {
		if d <= 0 {
			return fmt.Errorf("durations must be > 0, got %d", d)
		}
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("remote timeout must be > 0")
	}
	if cfg.RemoteURL != "" && cfg.ProgramKey == "" {
		return fmt.Errorf("--program-key must not be empty")
	}
	return nil
}

// normalizeDurations sorts and dedupes durations and makes sure the active
// duration is selectable with a single digit key.
func normalizeDurations(durations []int, active int) []int {
	seen := map[int]struct{}{active: {}}
	out := []int{active}
	for _, d := range durations {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	if len(out) > 9 {
		out = out[:9]
	}
	sort.Ints(out)
	return out
}
