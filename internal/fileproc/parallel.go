// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
	order  []int
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.add(-1, path, err)
}

func (e *ProcessingErrors) add(index int, path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.order = append(e.order, index)
	e.mu.Unlock()
}

// sortByInput orders errors by the position of their file in the input list.
func (e *ProcessingErrors) sortByInput() {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := make([]int, len(e.Errors))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return e.order[idx[a]] < e.order[idx[b]] })
	sorted := make([]ProcessingError, len(idx))
	order := make([]int, len(idx))
	for i, j := range idx {
		sorted[i] = e.Errors[j]
		order[i] = e.order[j]
	}
	e.Errors, e.order = sorted, order
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *ProcessingErrors) Unwrap() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe
	}
	return errs
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed, whether it failed or not.
type ProgressFunc func()

// Workers resolves a configured worker count, defaulting to 2x NumCPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU() * DefaultWorkerMultiplier
	}
	return n
}

// ForEachFile processes files in parallel with up to maxWorkers goroutines.
//
// Results are returned in input order with failed files left out. Every
// failure, including cancellation, is reported in the returned
// ProcessingErrors, which is nil when all files succeeded.
func ForEachFile[T any](
	ctx context.Context,
	files []string,
	maxWorkers int,
	fn func(context.Context, string) (T, error),
	onProgress ProgressFunc,
) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	slots := make([]T, len(files))
	ok := make([]bool, len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(Workers(maxWorkers)).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			if onProgress != nil {
				defer onProgress()
			}

			select {
			case <-ctx.Done():
				errs.add(i, path, ctx.Err())
				return nil
			default:
			}

			result, err := fn(ctx, path)
			if err != nil {
				errs.add(i, path, err)
				return nil // one bad file does not stop the others
			}

			// Each goroutine owns its slot.
			slots[i] = result
			ok[i] = true
			return nil
		})
	}
	_ = p.Wait()

	results := make([]T, 0, len(files))
	for i, r := range slots {
		if ok[i] {
			results = append(results, r)
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	errs.sortByInput()
	return results, errs
}
