package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/services"
)

// Pipeline is the shape shared by the concrete jobs: fetch candidate rows,
// keep the eligible ones, apply one effect per row. The effect is expected to
// persist the marker that keeps the row out of the next fetch. Rows are
// independent; a failing row never stops the ones after it.
type Pipeline[T any] struct {
	Name   string
	Fetch  func(ctx context.Context) ([]T, error)
	Filter func(T) bool // optional
	Effect func(ctx context.Context, row T) error
	Key    func(T) string // row identity for logs

	// Fatal reports row errors that make every later row pointless. It
	// defaults to missing or refused credentials and an open circuit breaker.
	Fatal func(error) bool
}

// Run executes the pipeline. A failed fetch, a cancelled context or a Fatal
// row error is returned as an error; other row failures are only counted.
func (p Pipeline[T]) Run(ctx context.Context) (*Result, error) {
	log := logger.WithContext(ctx, p.Name)
	start := time.Now()

	rows, err := p.Fetch(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: fetch failed", p.Name)
	}

	res := &Result{}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrapf(err, "%s: stopped after %d rows", p.Name, res.Processed)
		}
		if p.Filter != nil && !p.Filter(row) {
			continue
		}

		res.Processed++
		if err := p.Effect(ctx, row); err != nil {
			res.Failed++
			if p.fatal(err) {
				return res, errors.Wrapf(err, "%s: aborted at row %s", p.Name, p.key(row))
			}
			log.Warn().
				Err(err).
				Str("action", "row_failed").
				Str("row", p.key(row)).
				Msg("Row failed, continuing")
			continue
		}
		res.Succeeded++
	}

	log.Info().
		Str("action", "pipeline_complete").
		Int("fetched", len(rows)).
		Int("processed", res.Processed).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Dur("duration", time.Since(start)).
		Msg("Pipeline finished")
	return res, nil
}

func (p Pipeline[T]) fatal(err error) bool {
	if p.Fatal != nil {
		return p.Fatal(err)
	}
	return services.IsConfigError(err) || services.IsAuthError(err) ||
		errors.Is(err, services.ErrCircuitOpen)
}

func (p Pipeline[T]) key(row T) string {
	if p.Key == nil {
		return ""
	}
	return p.Key(row)
}
