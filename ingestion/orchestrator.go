package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Task processes one file.
type Task func(ctx context.Context, path string) error

// ListFiles returns the regular files directly inside dir, sorted by name.
func ListFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// ProcessAll runs task over every regular file in dir. See ProcessFiles.
func ProcessAll(ctx context.Context, dir string, maxWorkers int, task Task) error {
	paths, err := ListFiles(dir)
	if err != nil {
		return err
	}
	return ProcessFiles(ctx, paths, maxWorkers, task)
}

// ProcessFiles runs task once per path on at most maxWorkers goroutines and waits
// for all of them. maxWorkers <= 0 means runtime.NumCPU().
//
// Every task error is wrapped in a *FileError and the result joins them all, in
// path order. Once ctx is canceled no further paths are submitted and the context
// error is joined to the result; tasks already running are left to finish.
func ProcessFiles(ctx context.Context, paths []string, maxWorkers int, task Task) error {
	if task == nil {
		return ErrTaskRequired
	}
	if len(paths) == 0 {
		return nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool, err := ants.NewPool(min(maxWorkers, len(paths)))
	if err != nil {
		return err
	}
	defer pool.Release()

	errs := make([]error, len(paths)+1)
	var wg sync.WaitGroup

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			errs[len(paths)] = err
			break
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := task(ctx, path); err != nil {
				errs[i] = &FileError{File: path, Err: err}
			}
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = &FileError{File: path, Err: submitErr}
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}
