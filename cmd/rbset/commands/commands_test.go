package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbset/cmd/rbset/commands"
	"github.com/Sumatoshi-tech/rbset/pkg/bench"
)

// run executes the root command with an empty config file so host settings
// never leak into results.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), ".rbset.yaml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o600))

	var stdout, stderr bytes.Buffer

	root := commands.NewRootCommand()
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()

	names := make([]string, 0, len(root.Commands()))
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{"bench", "verify", "soak", "trace", "mcp", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "verbose", "quiet", "log-json"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "rbset "), out)
	assert.Contains(t, out, "commit:")
}

func TestBenchCommand_JSON(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "bench", "--keys", "300", "--pattern", "sawtooth", "--cache", "32", "--format", "json", "-q")
	require.NoError(t, err)

	var report bench.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, 300, report.Config.Keys)
	assert.Equal(t, "sawtooth", string(report.Config.Pattern))
	assert.Equal(t, 32, report.Config.CacheCapacity)
	assert.Equal(t, 900, report.Outcomes.Total())
	assert.Zero(t, report.FinalLen)
	assert.Positive(t, report.Allocator.Reuses)
}

func TestBenchCommand_TableAndChart(t *testing.T) {
	t.Parallel()

	chart := filepath.Join(t.TempDir(), "depth.html")

	out, _, err := run(t, "bench", "--keys", "200", "--chart", chart, "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "drain")

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Nodes per depth")
}

func TestBenchCommand_InvalidFlags(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, "bench", "--pattern", "spiral")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bench pattern")

	_, _, err = run(t, "bench", "--mix", "1:2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bench mix")
}

func TestBenchCommand_ConfigFile(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("bench:\n  keys: 50\n  format: yaml\n"), 0o600))

	var stdout bytes.Buffer

	root := commands.NewRootCommand()
	root.SetArgs([]string{"--config", cfgPath, "bench", "-q"})
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "keys: 50")
	assert.Contains(t, stdout.String(), "depth_profile: [")
}

func TestTraceCommands_GenShowReplay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "w.rbtr")

	out, _, err := run(t, "trace", "gen", "--keys", "100", "--pattern", "descending", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 300 ops")

	out, _, err = run(t, "trace", "show", path, "--head", "3")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(out), "total")
	assert.Contains(t, out, "300")
	assert.Contains(t, out, "insert")

	out, _, err = run(t, "bench", "--trace", path, "--format", "json", "-q")
	require.NoError(t, err)

	var report bench.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 300, report.Outcomes.Total())
	assert.Equal(t, 100, report.PeakLen)

	_, _, err = run(t, "trace", "show", filepath.Join(t.TempDir(), "missing.rbtr"))
	require.Error(t, err)
}

func TestVerifyCommand(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "verify", "--keys", "500", "--patterns", "ascending,random", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "all 16 checks passed")
	assert.Contains(t, out, "node reuse")

	_, _, err = run(t, "verify", "--patterns", "zigzag")
	require.Error(t, err)
}

func TestSoakCommand(t *testing.T) {
	t.Parallel()

	out, logs, err := run(t, "soak",
		"--duration", "100ms",
		"--keys", "64",
		"--cache", "16",
		"--metrics-addr", "127.0.0.1:0",
		"--report-interval", "0",
		"--log-json",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "ops=")
	assert.Contains(t, logs, `"msg":"soak started"`)
}

func TestMCPCommand_Flags(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()

	cmd, _, err := root.Find([]string{"mcp"})
	require.NoError(t, err)
	assert.Equal(t, "mcp", cmd.Name())
	assert.NotEmpty(t, cmd.Long)

	debug := cmd.Flags().Lookup("debug")
	require.NotNil(t, debug)
	assert.Equal(t, "false", debug.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("cache"))
}
