package jobs

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/store"
)

// DefaultBatchSize caps rows per run when batch_size is not configured
const DefaultBatchSize = 50

// Params reads job-specific settings from the parameters map of a job's
// config row. Missing or malformed values fall back to the given default.
type Params map[string]any

// LoadParams reads the parameters of name. A missing row yields empty
// params so a job can run manually before it is seeded.
func LoadParams(ctx context.Context, s store.ConfigStore, name string) (Params, error) {
	if s == nil {
		return Params{}, nil
	}
	cfg, err := s.GetConfig(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Params{}, nil
		}
		return nil, errors.Wrapf(err, "failed to load parameters of %s", name)
	}
	if cfg.Parameters == nil {
		return Params{}, nil
	}
	return Params(cfg.Parameters), nil
}

func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Strings accepts a list or a comma separated string
func (p Params) Strings(key string) []string {
	var raw []string
	switch v := p[key].(type) {
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BatchSize returns batch_size, never below 1
func (p Params) BatchSize() int {
	n := p.Int("batch_size", DefaultBatchSize)
	if n < 1 {
		return DefaultBatchSize
	}
	return n
}
