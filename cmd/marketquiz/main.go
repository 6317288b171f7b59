// Package main provides the CLI entrypoint for marketquiz.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/marketquiz/internal/catalog"
	"github.com/verte-zerg/marketquiz/internal/chart"
	"github.com/verte-zerg/marketquiz/internal/config"
	"github.com/verte-zerg/marketquiz/internal/logging"
	"github.com/verte-zerg/marketquiz/internal/market"
	"github.com/verte-zerg/marketquiz/internal/model"
	"github.com/verte-zerg/marketquiz/internal/quiz"
	"github.com/verte-zerg/marketquiz/internal/stats"
	"github.com/verte-zerg/marketquiz/internal/tui"
)

const (
	defaultLoadDelay   = 500 * time.Millisecond
	defaultChartHeight = 12
	defaultTimeout     = 10 * time.Second
	defaultCacheTTL    = 15 * time.Minute
	defaultCurveWindow = 3
	curveHeight        = 8
)

var (
	configPath  string
	catalogPath string
	offline     bool
	logLevel    string

	playDifficulty  string
	playEvent       string
	playLoadDelay   time.Duration
	playChartHeight int

	eventsDifficulty string

	// stderr receives logErrf output.
	stderr io.Writer = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "marketquiz",
		Short:         "Guess where the stock went after the news",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "event catalog YAML file (default: built-in)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "never call the market data API")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")

	rootCmd.Flags().StringVar(&playDifficulty, "difficulty", "", "only play events of this difficulty (easy, medium, hard)")
	rootCmd.Flags().StringVar(&playEvent, "event", "", "start with the event with this id")
	rootCmd.Flags().DurationVar(&playLoadDelay, "load-delay", defaultLoadDelay, "pause before each question")
	rootCmd.Flags().IntVar(&playChartHeight, "chart-height", defaultChartHeight, "chart height in rows")

	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newQuoteCmd())
	rootCmd.AddCommand(newOverviewCmd())
	rootCmd.AddCommand(newChartCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newLookupCmd())
	rootCmd.AddCommand(newMarketCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// settings is the merged result of defaults, config file and flags.
type settings struct {
	quiz     model.QuizConfig
	market   model.MarketConfig
	logLevel string
	logFile  string
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}

	applyStringConfig(cmd, "difficulty", &playDifficulty, fileCfg.Quiz.Difficulty)
	applyIntConfig(cmd, "chart-height", &playChartHeight, fileCfg.Quiz.ChartHeight)
	applyStringConfig(cmd, "catalog", &catalogPath, fileCfg.Quiz.Catalog)
	applyBoolConfig(cmd, "offline", &offline, fileCfg.Market.Offline)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	if err := applyDurationConfig(cmd, "load-delay", &playLoadDelay, fileCfg.Quiz.LoadDelay); err != nil {
		return settings{}, err
	}

	s := settings{
		quiz: model.QuizConfig{
			Difficulty:  playDifficulty,
			EventID:     playEvent,
			LoadDelay:   playLoadDelay,
			ChartHeight: playChartHeight,
			CatalogPath: catalogPath,
		},
		market: model.MarketConfig{
			Timeout:  defaultTimeout,
			Offline:  offline,
			Cache:    true,
			CacheTTL: defaultCacheTTL,
		},
		logLevel: logLevel,
		logFile:  config.DefaultLogPath(),
	}
	if v := fileCfg.Market.APIKey; v != nil {
		s.market.APIKey = *v
	}
	if v := fileCfg.Market.BaseURL; v != nil {
		s.market.BaseURL = *v
	}
	if v := fileCfg.Market.Cache; v != nil {
		s.market.Cache = *v
	}
	if err := parseDurationValue("market.timeout", fileCfg.Market.Timeout, &s.market.Timeout); err != nil {
		return settings{}, err
	}
	if err := parseDurationValue("market.cache-ttl", fileCfg.Market.CacheTTL, &s.market.CacheTTL); err != nil {
		return settings{}, err
	}
	if v := fileCfg.Log.File; v != nil {
		s.logFile = *v
	}
	return s, nil
}

// newLogger always writes to the log file. Console output is for commands that do not own the screen.
func newLogger(s settings, console bool) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:   s.logLevel,
		File:    s.logFile,
		Console: console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := validateQuizConfig(s.quiz); err != nil {
		return err
	}
	logger, err := newLogger(s, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cat, err := loadCatalog(s.quiz.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	var opts []tui.Option
	if s.quiz.EventID != "" {
		ev, ok := cat.FindByID(s.quiz.EventID)
		if !ok {
			return fmt.Errorf("unknown event %q (see: marketquiz events)", s.quiz.EventID)
		}
		opts = append(opts, tui.WithEvent(ev))
	}
	if s.quiz.Difficulty != "" {
		level, err := model.ParseDifficulty(s.quiz.Difficulty)
		if err != nil {
			return err
		}
		if cat, err = cat.WithDifficulty(level); err != nil {
			return err
		}
	}

	session := quiz.NewSession(cat, quiz.WithLogger(logger))
	logger.Info("session started",
		zap.String("session", session.ID),
		zap.Int("events", cat.Len()),
		zap.String("difficulty", s.quiz.Difficulty))

	opts = append(opts, tui.WithLogger(logger))
	program := tea.NewProgram(tui.NewModel(session, s.quiz, opts...), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return printSessionReport(cmd, session.Results())
}

func printSessionReport(cmd *cobra.Command, results []model.RoundResult) error {
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, stats.Summarize(results)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := stats.RenderRounds(out, results); err != nil {
		return fmt.Errorf("failed to write rounds: %w", err)
	}
	if err := stats.RenderAccuracyCurve(out, results, defaultCurveWindow, chart.TerminalWidth(), curveHeight, chart.ColorEnabled()); err != nil {
		return fmt.Errorf("failed to write accuracy curve: %w", err)
	}
	return nil
}

func validateQuizConfig(cfg model.QuizConfig) error {
	if cfg.LoadDelay < 0 {
		return fmt.Errorf("--load-delay must be >= 0")
	}
	if cfg.ChartHeight < 4 {
		return fmt.Errorf("--chart-height must be >= 4")
	}
	if cfg.Difficulty != "" {
		if _, err := model.ParseDifficulty(cfg.Difficulty); err != nil {
			return fmt.Errorf("--difficulty: %w", err)
		}
	}
	return nil
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List quiz events",
		Args:  cobra.NoArgs,
		RunE:  runEventsCmd,
	}
	cmd.Flags().StringVar(&eventsDifficulty, "difficulty", "", "only list events of this difficulty")
	return cmd
}

func runEventsCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(s.quiz.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	events := cat.All()
	if eventsDifficulty != "" {
		level, err := model.ParseDifficulty(eventsDifficulty)
		if err != nil {
			return fmt.Errorf("--difficulty: %w", err)
		}
		events = cat.FilterByDifficulty(level)
	}
	if err := stats.RenderEvents(cmd.OutOrStdout(), events); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600); err != nil {
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

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil || flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *string) error {
	if value == nil || flagChanged(cmd, name) {
		return nil
	}
	return parseDurationValue("quiz."+name, value, target)
}

// flagChanged reports whether the flag was set on the command line. Flags the command does not define count as unset.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func parseDurationValue(key string, value *string, target *time.Duration) error {
	if value == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*value))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, *value, err)
	}
	*target = d
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# marketquiz configuration
# Uncomment a value to enable it. CLI flags override config values.

[quiz]
# difficulty = "medium"     # Only play easy, medium or hard events
# load-delay = %q        # Pause before each question
# chart-height = %d         # Chart height in rows
# catalog = "events.yaml"   # Custom event catalog

[market]
# api-key = "demo"          # Alpha Vantage key (env %s takes precedence)
# base-url = %q
# timeout = %q
# offline = false           # Never call the API, always use generated data
# cache = true              # Keep API responses in %s
# cache-ttl = %q

[log]
# level = %q
# file = %q
`,
		defaultLoadDelay.String(),
		defaultChartHeight,
		config.APIKeyEnv,
		market.DefaultBaseURL,
		defaultTimeout.String(),
		config.DefaultCacheDBPath(),
		defaultCacheTTL.String(),
		logging.DefaultLevel,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	_, _ = fmt.Fprintf(stderr, format, args...)
}
