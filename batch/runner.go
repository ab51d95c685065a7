// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/spatial"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/time/rate"
)

// DefaultConcurrency is the number of cells in flight when Options leaves
// it unset.
const DefaultConcurrency = 4

// Options tunes a batch run.
type Options struct {
	Concurrency  int     // Cells resolved in parallel
	Rate         float64 // Requests per second, zero for unlimited
	H3Resolution int     // Zero for spatial.DefaultH3Resolution, negative disables
	Progress     bool    // Show a progress bar when stderr is a terminal
	Logger       *zap.Logger
}

// Result is the outcome for one Record.
type Result struct {
	Line        int               `json:"line"`
	Cell        string            `json:"cell"`
	Location    *locator.Location `json:"location,omitempty"`
	H3          string            `json:"h3,omitempty"`
	ErrorMeters *float64          `json:"error_m,omitempty"`
	Kind        string            `json:"kind,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Run resolves every record through engine and returns the results in
// input order. Per-cell failures are reported in the results; the error is
// only set when the run itself was interrupted.
func Run(ctx context.Context, engine *locator.Engine, records []Record, opts Options) ([]Result, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	res := opts.H3Resolution
	if res == 0 {
		res = spatial.DefaultH3Resolution
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var bar *progressbar.ProgressBar
	if opts.Progress && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription("Locating via "+engine.Name()),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	system := engine.Options().System
	results := make([]Result, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, rec := range records {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			results[i] = locate(gctx, engine, system, rec, res)

			if bar == nil {
				logger.Debug("located", zap.Int("line", rec.Line), zap.Stringer("cell", rec.Cell), zap.String("kind", results[i].Kind))
			} else {
				_ = bar.Add(1)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("locating cells: %w", err)
	}

	return results, nil
}

func locate(ctx context.Context, engine *locator.Engine, system spatial.System, rec Record, res int) Result {
	r := Result{Line: rec.Line, Cell: rec.Cell.String()}

	loc, err := engine.Locate(ctx, rec.Cell)
	if err != nil {
		r.Kind = locator.KindOf(err).String()
		r.Error = err.Error()

		return r
	}

	r.Location = loc

	// H3 and distances are only meaningful in WGS84.
	wgs := spatial.ToWGS84(loc.Point(), system)

	if res > 0 {
		if cell, err := spatial.H3Cell(wgs, res); err == nil {
			r.H3 = cell
		}
	}

	if rec.Truth != nil {
		d := wgs.HaversineDistance(rec.Truth)
		r.ErrorMeters = &d
	}

	return r
}

// Summary aggregates a batch run.
type Summary struct {
	Total    int
	Located  int
	Failures map[string]int // by error kind

	Measured    int // located cells with ground truth
	MeanError   float64
	MedianError float64
	MaxError    float64
	WithinRange int // measured cells whose error is within the reported accuracy
}

// Summarize computes the Summary of results.
func Summarize(results []Result) *Summary {
	s := &Summary{Total: len(results), Failures: make(map[string]int)}

	var errs []float64

	for _, r := range results {
		if r.Location == nil {
			s.Failures[r.Kind]++

			continue
		}

		s.Located++

		if r.ErrorMeters == nil {
			continue
		}

		e := *r.ErrorMeters
		errs = append(errs, e)

		s.MeanError += e
		s.MaxError = max(s.MaxError, e)

		if e <= r.Location.Accuracy {
			s.WithinRange++
		}
	}

	if s.Measured = len(errs); s.Measured > 0 {
		s.MeanError /= float64(s.Measured)

		slices.Sort(errs)

		mid := len(errs) / 2
		if len(errs)%2 == 1 {
			s.MedianError = errs[mid]
		} else {
			s.MedianError = (errs[mid-1] + errs[mid]) / 2
		}
	}

	return s
}

// Print writes a human readable report, with numbers formatted for tag.
func (s *Summary) Print(w io.Writer, tag language.Tag) {
	p := message.NewPrinter(tag)

	located := 0.0
	if s.Total > 0 {
		located = 100 * float64(s.Located) / float64(s.Total)
	}

	p.Fprintf(w, "%d cells, %d located (%.1f%%)\n", s.Total, s.Located, located)

	for _, kind := range slices.Sorted(maps.Keys(s.Failures)) {
		p.Fprintf(w, "  %-20s %d\n", kind, s.Failures[kind])
	}

	if s.Measured > 0 {
		p.Fprintf(w, "error vs ground truth over %d cells: mean %.0f m, median %.0f m, max %.0f m, %d within reported accuracy\n",
			s.Measured, s.MeanError, s.MedianError, s.MaxError, s.WithinRange)
	}
}
