// Package engine wires the rule sets into a validation pipeline and offers
// the single entry point for validating one billing document.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/abda"
	"github.com/megadur/plausibus/fhir"
	"github.com/megadur/plausibus/pipeline"
	"github.com/megadur/plausibus/refdata"
	"github.com/megadur/plausibus/rules"
)

// Engine validates dispensing and prescription documents. It is safe for
// concurrent use; all per-document state lives in the pipeline context.
type Engine struct {
	options *Options
	pipe    *pipeline.Pipeline
	metrics *plausibus.Metrics
	log     zerolog.Logger
}

// New creates an engine. An article master and a reference-data service
// are required; everything else has defaults.
func New(articles abda.Provider, codes refdata.Service, opts ...Option) (*Engine, error) {
	if articles == nil {
		return nil, fmt.Errorf("engine: article master is required")
	}
	if codes == nil {
		return nil, fmt.Errorf("engine: reference data service is required")
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	e := &Engine{
		options: options,
		metrics: options.metrics,
		log:     options.log,
	}
	e.buildPipeline(articles, codes)
	return e, nil
}

// buildPipeline registers the rule sets in dependency order: detection
// first, then the rule sets that read the detection flags.
func (e *Engine) buildPipeline(articles abda.Provider, codes refdata.Service) {
	p := pipeline.NewPipeline().WithMetrics(e.metrics)

	p.Register(rules.NewDetector(articles), pipeline.PriorityDetection)

	format := rules.NewFormatValidator()
	if e.options.now != nil {
		format.WithClock(e.options.now)
	}
	p.Register(format, pipeline.PriorityFormat)

	general := rules.NewGeneralValidator(codes)
	if e.options.now != nil {
		general.WithClock(e.options.now)
	}
	p.RegisterIf(general, pipeline.PriorityGeneral,
		func(pctx *pipeline.Context) bool { return pctx.Kind == fhir.KindDispensing })

	narcotics := rules.NewNarcoticsValidator()
	p.RegisterIf(narcotics, pipeline.PriorityNarcotics, narcotics.Applies)

	cannabis := rules.NewCannabisValidator()
	p.RegisterIf(cannabis, pipeline.PriorityCannabis, cannabis.Applies)

	p.RegisterIf(rules.NewCalculationValidator(codes), pipeline.PriorityCalculation,
		func(pctx *pipeline.Context) bool { return pctx.Kind == fhir.KindDispensing })

	for _, extra := range e.options.extra {
		p.Register(extra.Validator, extra.Priority)
	}

	e.pipe = p
}

// Validate parses raw document bytes and runs the rule catalog.
func (e *Engine) Validate(ctx context.Context, data []byte) (*plausibus.Report, error) {
	bundle, err := fhir.ParseBundle(data)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return e.ValidateBundle(ctx, bundle)
}

// ValidateBundle runs the rule catalog against an already-parsed bundle.
func (e *Engine) ValidateBundle(ctx context.Context, bundle *fhir.Bundle) (*plausibus.Report, error) {
	start := time.Now()

	id := uuid.NewString()
	log := e.log.With().Str("validation_id", id).Logger()
	pctx := pipeline.BuildContext(bundle, log)

	report := &plausibus.Report{
		ID:       id,
		Document: pctx.Kind.String(),
		Valid:    true,
	}
	for _, res := range e.pipe.Run(ctx, pctx) {
		report.AddResult(res)
	}
	report.Duration = time.Since(start)

	if e.metrics != nil {
		e.metrics.RecordValidation(report.Duration, report.Valid)
		for _, issue := range report.AllIssues() {
			e.metrics.RecordIssue(issue.Severity)
		}
	}

	log.Info().
		Str("document", report.Document).
		Bool("valid", report.Valid).
		Int("errors", report.ErrorCount()).
		Int("warnings", report.WarningCount()).
		Dur("duration", report.Duration).
		Msg("document validated")

	return report, nil
}

// Metrics exposes the engine metrics.
func (e *Engine) Metrics() *plausibus.Metrics { return e.metrics }
