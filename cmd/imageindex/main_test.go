package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/storage/badger"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"imageindex"}, args...))
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	content := fmt.Sprintf("index:\n  backend: bleve\n  name: images\n  path: %s\n", filepath.Join(dir, "index"))
	path := filepath.Join(dir, "imageindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	for _, level := range []string{"debug", "info", "WARN", "error", ""} {
		assert.NoError(t, setupLogger(&bytes.Buffer{}, level), level)
	}

	err := setupLogger(&bytes.Buffer{}, "verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInvalidLogLevelFlag(t *testing.T) {
	_, err := runApp(t, "--log-level", "loud", "split", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestSplitCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "images.jsonl")
	var lines []string
	for i := range 25 {
		lines = append(lines, fmt.Sprintf(`{"imageUrl":"https://example.com/%d.png"}`, i))
	}
	require.NoError(t, os.WriteFile(input, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	chunks := filepath.Join(dir, "chunks")
	out, err := runApp(t, "split", "--temp-dir", chunks, "--lines-per-chunk", "10", input)
	require.NoError(t, err)

	paths := strings.Fields(out)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(chunks, "images_chunk_0.txt"), paths[0])
	assert.Equal(t, filepath.Join(chunks, "images_chunk_2.txt"), paths[2])
}

func TestSplitCommand_RequiresInput(t *testing.T) {
	_, err := runApp(t, "split")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file")
}

func TestEnsureIndexAndValidate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := runApp(t, "--config", cfgPath, "ensure-index")
	require.NoError(t, err)

	out, err := runApp(t, "--config", cfgPath, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "index images: 0 documents")

	_, err = runApp(t, "--config", cfgPath, "validate", "--expect", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected at least 1")
}

func TestIngest_RequiresEndpoints(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	input := filepath.Join(dir, "images.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(`{"imageUrl":"https://example.com/a.png"}`), 0o644))

	_, err := runApp(t, "--config", cfgPath, "ingest", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestFailuresAndRunsCommands(t *testing.T) {
	ledgerPath := filepath.Join(t.TempDir(), "ledger")
	ctx := context.Background()

	ledger, err := badger.OpenLedger(ledgerPath, nil)
	require.NoError(t, err)
	start := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.SaveRun(ctx, &core.RunReport{RunID: "old", StartedAt: start}))
	require.NoError(t, ledger.SaveRun(ctx, &core.RunReport{RunID: "new", StartedAt: start.Add(time.Hour), FailedFiles: 1}))
	require.NoError(t, ledger.AddFailures(ctx, "new", "a.txt",
		core.RecordFailure{RecordID: "r1", Source: "a.txt:1", Cause: "record r1: caption: throttled"}))
	require.NoError(t, ledger.Close())

	out, err := runApp(t, "failures", "--ledger", ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run new: 1 failed records")
	assert.Contains(t, out, "r1\ta.txt:1\trecord r1: caption: throttled")

	out, err = runApp(t, "failures", "--ledger", ledgerPath, "--run", "old")
	require.NoError(t, err)
	assert.Contains(t, out, "run old: 0 failed records")

	out, err = runApp(t, "runs", "--ledger", ledgerPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "new"))
	assert.Contains(t, lines[0], "failed")
	assert.Contains(t, lines[1], "ok")
}

func TestFailures_MissingLedger(t *testing.T) {
	_, err := runApp(t, "failures")
	require.Error(t, err)

	_, err = runApp(t, "failures", "--ledger", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &core.RunReport{
		RunID:          "r",
		Files:          3,
		FailedFiles:    1,
		Records:        250,
		FailedRecords:  100,
		Documents:      150,
		Uploaded:       150,
		ZeroYieldFiles: []string{"b_chunk_1.txt"},
	})
	out := buf.String()
	assert.Contains(t, out, "files:           3 (0 skipped, 1 failed)")
	assert.Contains(t, out, "records:         250 (100 failed)")
	assert.Contains(t, out, "no documents:    b_chunk_1.txt")
}
