// Package loader reads istanbul coverage JSON files from disk and merges
// them into a single coverage map.
package loader

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/zeebo/blake3"

	"github.com/panbanda/covreport/internal/fileproc"
	"github.com/panbanda/covreport/internal/schema"
	"github.com/panbanda/covreport/pkg/config"
	"github.com/panbanda/covreport/pkg/coverage"
)

// ErrNoInput is returned when Load is called without any files.
var ErrNoInput = errors.New("no coverage files given")

// Options controls how coverage files are read.
type Options struct {
	Workers  int  // 0 means 2x NumCPU
	Validate bool // check each document against the istanbul schema
	Dedupe   bool // skip inputs whose bytes match an earlier input

	// Exclude drops covered files from the merged map when it returns true.
	Exclude func(path string) bool

	// OnProgress is called once per input file.
	OnProgress func()
}

// OptionsFromConfig builds loader options from the input and exclude sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:  cfg.Input.Workers,
		Validate: cfg.Input.Validate,
		Dedupe:   cfg.Input.Dedupe,
		Exclude:  cfg.ShouldExclude,
	}
}

// Result is the outcome of loading a set of coverage files.
type Result struct {
	Map        *coverage.Map
	Loaded     []string // inputs merged into Map, in input order
	Duplicates []string // inputs skipped because an earlier input had the same digest
	Excluded   int      // covered files dropped by Options.Exclude
}

type parsed struct {
	path   string
	digest string
	m      *coverage.Map
}

// Load parses every file and merges the results in input order.
//
// Files that fail to read, validate or parse are reported in the returned
// error, which unwraps to *fileproc.ProcessingErrors. The Result still holds
// everything that loaded successfully so callers may choose to continue.
func Load(ctx context.Context, files []string, opts Options) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrNoInput
	}

	var validator *schema.Validator
	if opts.Validate {
		v, err := schema.NewValidator()
		if err != nil {
			return nil, err
		}
		validator = v
	}

	read := func(ctx context.Context, path string) (parsed, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return parsed{}, err
		}
		if validator != nil {
			if errs := validator.ValidateBytes(data); len(errs) > 0 {
				return parsed{}, &schema.Error{Errors: errs}
			}
		}
		m, err := coverage.Parse(data)
		if err != nil {
			return parsed{}, err
		}
		return parsed{path: path, digest: Digest(data), m: m}, nil
	}

	results, procErrs := fileproc.ForEachFile(ctx, files, opts.Workers, read, opts.OnProgress)

	res := &Result{Map: coverage.NewMap()}
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if opts.Dedupe {
			if seen[r.digest] {
				res.Duplicates = append(res.Duplicates, r.path)
				continue
			}
			seen[r.digest] = true
		}
		res.Map.Merge(r.m)
		res.Loaded = append(res.Loaded, r.path)
	}

	if opts.Exclude != nil {
		before := res.Map.Len()
		res.Map.Filter(func(path string) bool { return !opts.Exclude(path) })
		res.Excluded = before - res.Map.Len()
	}

	if procErrs != nil {
		return res, fmt.Errorf("load coverage: %w", procErrs)
	}
	return res, nil
}

// Digest returns the hex BLAKE3 digest of a coverage document.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
