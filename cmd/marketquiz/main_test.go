package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/marketquiz/internal/catalog"
	"github.com/verte-zerg/marketquiz/internal/config"
	"github.com/verte-zerg/marketquiz/internal/model"
	"github.com/verte-zerg/marketquiz/internal/store"
)

// isolate points every XDG path at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv(config.APIKeyEnv, "")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEventsCommandFiltersByDifficulty(t *testing.T) {
	isolate(t)
	c, err := catalog.Default()
	require.NoError(t, err)
	want := len(c.FilterByDifficulty(model.DifficultyEasy))

	out, err := runCLI(t, "events", "--difficulty", "easy")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, want+1)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
}

func TestEventsCommandRejectsUnknownDifficulty(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "events", "--difficulty", "extreme")

	require.ErrorContains(t, err, "unknown difficulty")
}

func TestQuoteOffline(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "quote", "--offline", "aapl")

	require.NoError(t, err)
	require.Contains(t, out, "AAPL")
	require.Contains(t, out, "Source: synthetic (request_failed)")
}

func TestQuoteOfflineJSON(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "quote", "--offline", "--json", "MSFT")

	require.NoError(t, err)
	var got struct {
		Source string      `json:"source"`
		Data   model.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "synthetic", got.Source)
	require.Equal(t, "MSFT", got.Data.Symbol)
	require.InDelta(t, 420, got.Data.Price, 10)
}

func TestSearchOffline(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "search", "--offline", "corporation")

	require.NoError(t, err)
	require.Contains(t, out, "MSFT")
	require.Contains(t, out, "NVDA")
	require.NotContains(t, out, "AAPL")
}

func TestChartOffline(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "chart", "--offline", "--interval", "weekly", "--height", "6", "GOOGL")

	require.NoError(t, err)
	require.Contains(t, out, "weekly closes")
	require.Contains(t, out, "30 points")
}

func TestChartRejectsUnknownInterval(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "chart", "--offline", "--interval", "hourly", "GOOGL")

	require.ErrorContains(t, err, "--interval")
}

func TestConfigFileFillsUnsetFlags(t *testing.T) {
	// Arrange
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	content := `
[quiz]
load-delay = "2s"
chart-height = 20

[market]
offline = true
timeout = "3s"
cache-ttl = "1h"
base-url = "http://localhost:9"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--config", path, "--load-delay", "1s"}))

	// Act
	s, err := loadSettings(root)

	// Assert
	require.NoError(t, err)
	require.Equal(t, time.Second, s.quiz.LoadDelay, "flag should win over config")
	require.Equal(t, 20, s.quiz.ChartHeight)
	require.True(t, s.market.Offline)
	require.Equal(t, 3*time.Second, s.market.Timeout)
	require.Equal(t, time.Hour, s.market.CacheTTL)
	require.Equal(t, "http://localhost:9", s.market.BaseURL)
}

func TestConfigRejectsBadDuration(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[market]\ncache-ttl = \"soon\"\n"), 0o600))
	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--config", path}))

	_, err := loadSettings(root)

	require.ErrorContains(t, err, "market.cache-ttl")
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv(config.APIKeyEnv, "secret")
	root := newRootCmd()
	require.NoError(t, root.ParseFlags(nil))

	s, err := loadSettings(root)

	require.NoError(t, err)
	require.Equal(t, "secret", s.market.APIKey)
}

func TestValidateQuizConfig(t *testing.T) {
	require.NoError(t, validateQuizConfig(model.QuizConfig{ChartHeight: 12}))
	require.Error(t, validateQuizConfig(model.QuizConfig{ChartHeight: 3}))
	require.Error(t, validateQuizConfig(model.QuizConfig{ChartHeight: 12, LoadDelay: -time.Second}))
	require.Error(t, validateQuizConfig(model.QuizConfig{ChartHeight: 12, Difficulty: "extreme"}))
}

func TestCacheCommands(t *testing.T) {
	// Arrange: one cached response.
	isolate(t)
	st, err := store.Open(config.DefaultCacheDBPath())
	require.NoError(t, err)
	require.NoError(t, st.Put(context.Background(), "GLOBAL_QUOTE|IBM", []byte(`{"symbol":"IBM"}`)))
	require.NoError(t, st.Close())

	// Act + Assert
	out, err := runCLI(t, "cache", "list")
	require.NoError(t, err)
	require.Contains(t, out, "GLOBAL_QUOTE|IBM")

	out, err = runCLI(t, "cache", "prune")
	require.NoError(t, err)
	require.Contains(t, out, "Removed 0 expired responses.")

	out, err = runCLI(t, "cache", "clear")
	require.NoError(t, err)
	require.Contains(t, out, "Removed 1 cached responses.")

	out, err = runCLI(t, "cache", "list")
	require.NoError(t, err)
	require.Contains(t, out, "Cache is empty.")
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600))

	_, err := config.LoadConfig(path)

	require.NoError(t, err)
	require.Contains(t, defaultConfigTemplate(), config.APIKeyEnv)
}

func TestFormatSigned(t *testing.T) {
	require.Equal(t, "+2.50", formatSigned(2.5))
	require.Equal(t, "-0.10", formatSigned(-0.1))
	require.Equal(t, "$420.00", formatPrice(420))
}

func TestLogErrfWritesToStderr(t *testing.T) {
	var buf bytes.Buffer
	prev := stderr
	stderr = &buf
	t.Cleanup(func() { stderr = prev })

	logErrf("failed to close cache: %v\n", io.ErrClosedPipe)

	require.Equal(t, "failed to close cache: io: read/write on closed pipe\n", buf.String())
}
