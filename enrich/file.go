package enrich

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/poiesic/imageindex/chunker"
	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/metrics"
)

// maxLineSize bounds a single record line.
const maxLineSize = 16 << 20

// item is one non-blank input line: a decoded record or the reason it could not be decoded.
type item struct {
	record core.Record
	err    error
}

// slot receives the outcome of one item. Slots keep results in input order.
type slot struct {
	doc     *core.Document
	failure *core.RecordFailure
}

// EnrichFile reads one JSON record per line from path and enriches every record.
// Blank lines are skipped. Lines that do not decode become failures identified
// by "file:line". Every non-blank line ends up in exactly one of the result's
// Documents or Failures, in input order.
//
// Document ids are unique within the result: a record whose id was already
// taken by an earlier line fails with core.ErrDuplicateID and is not enriched.
//
// Records not yet started when ctx is canceled fail with the context error.
// Records already started run to completion.
func (e *Enricher) EnrichFile(ctx context.Context, path string) (*core.EnrichmentResult, error) {
	items, err := readItems(path)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, path, items), nil
}

// EnrichRecords enriches records in memory under the same rules as EnrichFile.
func (e *Enricher) EnrichRecords(ctx context.Context, name string, records []core.Record) *core.EnrichmentResult {
	items := make([]item, len(records))
	for i, r := range records {
		items[i] = item{record: r}
	}
	return e.run(ctx, name, items)
}

func (e *Enricher) run(ctx context.Context, name string, items []item) *core.EnrichmentResult {
	slots := make([]slot, len(items))
	seen := make(map[string]struct{}, len(items))
	var wg sync.WaitGroup

	for i, it := range items {
		rec := it.record
		if it.err != nil {
			slots[i].failure = failure(rec, StepDecode, it.err)
			continue
		}
		core.NormalizeRecord(&rec)
		if rec.ID != "" {
			if _, dup := seen[rec.ID]; dup {
				e.logger.Warn("duplicate document id", "file", name, "source", rec.Source.String(), "id", rec.ID)
				slots[i].failure = failure(rec, StepDedupe, core.ErrDuplicateID)
				continue
			}
			seen[rec.ID] = struct{}{}
		}
		if err := ctx.Err(); err != nil {
			slots[i].failure = failure(rec, StepCanceled, err)
			continue
		}

		wg.Add(1)
		submitErr := e.workers.Submit(func() {
			defer wg.Done()
			// Started records are not interrupted by cancellation.
			doc, err := e.Enrich(context.WithoutCancel(ctx), rec)
			if err != nil {
				slots[i].failure = failure(rec, "", err)
				return
			}
			slots[i].doc = doc
		})
		if submitErr != nil {
			wg.Done()
			slots[i].failure = failure(rec, StepCanceled, submitErr)
		}
	}
	wg.Wait()

	result := &core.EnrichmentResult{File: name, TotalRecords: len(items)}
	for _, s := range slots {
		if s.doc != nil {
			result.Documents = append(result.Documents, s.doc)
			e.metrics.RecordOutcome(metrics.OutcomeDocument)
			continue
		}
		result.Failures = append(result.Failures, *s.failure)
		e.metrics.RecordOutcome(metrics.OutcomeFailed)
	}

	e.logger.Info("enriched records", "file", name,
		"records", result.TotalRecords, "documents", len(result.Documents), "failures", len(result.Failures))
	return result
}

func failure(rec core.Record, step string, err error) *core.RecordFailure {
	var recErr *core.RecordError
	if step != "" && !errors.As(err, &recErr) {
		err = &core.RecordError{RecordID: rec.Key(), Step: step, Err: err}
	}
	return &core.RecordFailure{
		RecordID: rec.Key(),
		Source:   rec.Source.String(),
		Cause:    err.Error(),
	}
}

func readItems(path string) ([]item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &chunker.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var items []item
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		src := core.SourceRef{File: path, Line: line}
		var rec core.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			items = append(items, item{
				record: core.Record{Source: src},
				err:    fmt.Errorf("%w: %w", core.ErrInvalidRecord, err),
			})
			continue
		}
		rec.Source = src
		items = append(items, item{record: rec})
	}
	if err := scanner.Err(); err != nil {
		return nil, &chunker.IOError{Op: "read", Path: path, Err: err}
	}
	return items, nil
}
