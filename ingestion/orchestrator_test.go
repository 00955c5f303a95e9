package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(name+"\n"), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.txt", "a.txt", "b.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	paths, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "c.txt"),
	}, paths)
}

func TestListFiles_NotADirectory(t *testing.T) {
	paths := writeFiles(t, t.TempDir(), "a.txt")

	_, err := ListFiles(paths[0])
	assert.ErrorIs(t, err, ErrNotADirectory)

	_, err = ListFiles(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessFiles_RunsEveryFileWithinWorkerBound(t *testing.T) {
	paths := writeFiles(t, t.TempDir(), "1", "2", "3", "4", "5", "6", "7")

	var (
		running, peak atomic.Int32
		mu            sync.Mutex
		seen          []string
	)
	task := func(ctx context.Context, path string) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)

		mu.Lock()
		seen = append(seen, path)
		mu.Unlock()
		return nil
	}

	require.NoError(t, ProcessFiles(context.Background(), paths, 2, task))

	slices.Sort(seen)
	assert.Equal(t, paths, seen)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestProcessFiles_JoinsEveryError(t *testing.T) {
	paths := writeFiles(t, t.TempDir(), "a", "b", "c")
	boom := errors.New("boom")

	err := ProcessFiles(context.Background(), paths, 3, func(ctx context.Context, path string) error {
		if filepath.Base(path) == "b" {
			return nil
		}
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var joined interface{ Unwrap() []error }
	require.ErrorAs(t, err, &joined)
	errs := joined.Unwrap()
	require.Len(t, errs, 2)

	var fe *FileError
	require.ErrorAs(t, errs[0], &fe)
	assert.Equal(t, paths[0], fe.File)
	require.ErrorAs(t, errs[1], &fe)
	assert.Equal(t, paths[2], fe.File)
}

func TestProcessFiles_CanceledStopsSubmissions(t *testing.T) {
	paths := writeFiles(t, t.TempDir(), "a", "b", "c", "d")
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	err := ProcessFiles(ctx, paths, 1, func(ctx context.Context, path string) error {
		calls.Add(1)
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls.Load(), int32(len(paths)))
}

func TestProcessFiles_Edges(t *testing.T) {
	assert.ErrorIs(t, ProcessFiles(context.Background(), []string{"a"}, 1, nil), ErrTaskRequired)
	assert.NoError(t, ProcessFiles(context.Background(), nil, 1, func(context.Context, string) error {
		return errors.New("never called")
	}))
}

func TestProcessAll(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a", "b")

	var calls atomic.Int32
	err := ProcessAll(context.Background(), dir, 0, func(ctx context.Context, path string) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
