// Package tally reads a session log, reconciles it and reports per-user
// session counts and durations.
package tally

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/SoarinFerret/SessionTally/internal/logline"
	"github.com/SoarinFerret/SessionTally/internal/metrics"
	"github.com/SoarinFerret/SessionTally/internal/session"
)

const maxLineSize = 1024 * 1024

// Options control a tally run.
type Options struct {
	// Source labels the per-source metrics. Empty leaves them untouched.
	Source  string
	Parser  logline.Parser
	Workers int
	Logger  zerolog.Logger
}

// Result is the outcome of a tally run.
type Result struct {
	Report  session.Report
	Bounds  *session.Bounds
	Lines   int
	Parsed  int
	Skipped int
}

// Empty reports whether no valid entries were found.
func (r Result) Empty() bool {
	return r.Bounds == nil
}

// ProcessFile tallies the log at path. opts.Source defaults to path.
func ProcessFile(ctx context.Context, path string, opts Options) (Result, error) {
	if opts.Source == "" {
		opts.Source = path
	}
	file, err := os.Open(path)
	if err != nil {
		opts.Logger.Error().Err(err).Str("path", path).Msgf("Error: File %s not found.", path)
		metrics.TallyRunsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	return Process(ctx, file, opts)
}

// Process tallies every line read from r. The bounds are final before any
// user is reconciled.
func Process(ctx context.Context, r io.Reader, opts Options) (Result, error) {
	logger := opts.Logger
	res := Result{Report: session.Report{}}
	c := session.NewCollector()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res.Lines++

		ev, err := opts.Parser.ParseErr(scanner.Text())
		if err != nil {
			res.Skipped++
			logger.Debug().Err(err).Int("line", res.Lines).Msg("skipping unparseable line")
			continue
		}
		res.Parsed++
		c.Add(ev)
	}
	if err := scanner.Err(); err != nil {
		metrics.TallyRunsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("read log: %w", err)
	}

	if opts.Source != "" {
		metrics.SourceLines.WithLabelValues(opts.Source, "parsed").Set(float64(res.Parsed))
		metrics.SourceLines.WithLabelValues(opts.Source, "skipped").Set(float64(res.Skipped))
	}

	bounds, ok := c.Bounds()
	if !ok {
		logger.Error().Int("lines", res.Lines).Msg("No valid log entries found.")
		metrics.TallyRunsTotal.WithLabelValues("empty").Inc()
		return res, nil
	}
	res.Bounds = &bounds

	report, err := session.ReconcileConcurrent(ctx, c.Grouped(), bounds, opts.Workers)
	if err != nil {
		return Result{}, err
	}
	res.Report = report

	if opts.Source != "" {
		var matched, starts, ends int
		for _, s := range report {
			matched += s.Matched
			starts += s.DanglingStarts
			ends += s.DanglingEnds
		}
		metrics.SourceSessions.WithLabelValues(opts.Source, "matched").Set(float64(matched))
		metrics.SourceSessions.WithLabelValues(opts.Source, "dangling_start").Set(float64(starts))
		metrics.SourceSessions.WithLabelValues(opts.Source, "dangling_end").Set(float64(ends))
	}
	metrics.TallyRunsTotal.WithLabelValues("ok").Inc()

	logger.Debug().
		Int("lines", res.Lines).
		Int("skipped", res.Skipped).
		Int("users", len(report)).
		Time("earliest", bounds.Earliest).
		Time("latest", bounds.Latest).
		Msg("tally complete")

	return res, nil
}
