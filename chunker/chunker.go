package chunker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultLinesPerChunk is used when a non-positive chunk size is requested.
const DefaultLinesPerChunk = 100

// ErrIO marks failures reading the source file or writing chunk files.
var ErrIO = errors.New("chunker i/o error")

// IOError describes a failed file operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error names the operation and path once; the path carried by a wrapped
// *fs.PathError is not repeated.
func (e *IOError) Error() string {
	cause := e.Err
	var pathErr *fs.PathError
	if errors.As(cause, &pathErr) {
		cause = pathErr.Err
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, cause)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// ChunkName returns the file name of chunk n for a source base name.
func ChunkName(base string, n int) string {
	return fmt.Sprintf("%s_chunk_%d.txt", base, n)
}

// Split streams filePath line by line into files of linesPerChunk lines each,
// written to outputDir and named with ChunkName. A trailing partial buffer becomes
// the last chunk. Line bytes are copied unchanged, including a missing final newline.
// Paths are returned in creation order.
func Split(ctx context.Context, filePath, outputDir string, linesPerChunk int) ([]string, error) {
	if linesPerChunk <= 0 {
		linesPerChunk = DefaultLinesPerChunk
	}

	src, err := os.Open(filePath)
	if err != nil {
		return nil, &IOError{Op: "open", Path: filePath, Err: err}
	}
	defer src.Close()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: outputDir, Err: err}
	}

	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	reader := bufio.NewReader(src)

	var (
		paths []string
		buf   strings.Builder
		lines int
	)

	flush := func() error {
		path := filepath.Join(outputDir, ChunkName(base, len(paths)))
		if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
			return &IOError{Op: "write", Path: path, Err: err}
		}
		paths = append(paths, path)
		buf.Reset()
		lines = 0
		return nil
	}

	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return paths, &IOError{Op: "read", Path: filePath, Err: readErr}
		}

		if line != "" {
			buf.WriteString(line)
			lines++
			if lines == linesPerChunk {
				if err := ctx.Err(); err != nil {
					return paths, err
				}
				if err := flush(); err != nil {
					return paths, err
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	if lines > 0 {
		if err := flush(); err != nil {
			return paths, err
		}
	}

	slog.Debug("split file into chunks", "file", filePath, "chunks", len(paths), "linesPerChunk", linesPerChunk)
	return paths, nil
}

// Cleanup removes the given chunk files. Missing files are ignored; other
// failures are joined.
func Cleanup(paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, &IOError{Op: "remove", Path: p, Err: err})
		}
	}
	return errors.Join(errs...)
}
