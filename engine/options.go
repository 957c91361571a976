package engine

import (
	"time"

	"github.com/rs/zerolog"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/pipeline"
)

// Options configures the engine.
type Options struct {
	log     zerolog.Logger
	metrics *plausibus.Metrics
	now     func() time.Time
	extra   []ExtraRule
}

// ExtraRule registers an additional rule set beyond the built-in catalog.
type ExtraRule struct {
	Validator pipeline.Validator
	Priority  pipeline.Priority
}

// Option mutates the engine options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		log:     zerolog.Nop(),
		metrics: plausibus.NewMetrics(),
	}
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Options) { o.log = log }
}

// WithMetrics shares a metrics instance with the caller.
func WithMetrics(m *plausibus.Metrics) Option {
	return func(o *Options) { o.metrics = m }
}

// WithClock overrides the wall clock used by temporal rules, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.now = now }
}

// WithRule registers an additional rule set.
func WithRule(v pipeline.Validator, prio pipeline.Priority) Option {
	return func(o *Options) { o.extra = append(o.extra, ExtraRule{Validator: v, Priority: prio}) }
}
