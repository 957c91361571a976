package pipeline

import (
	"context"

	plausibus "github.com/megadur/plausibus"
)

// Validator is one rule set in the pipeline.
//
// Validators should be:
// - Stateless: all per-document state lives in the Context
// - Thread-safe: one instance serves concurrent documents
// - Fast-failing: return early when ctx is cancelled
type Validator interface {
	// Name returns the rule set identifier used in results.
	Name() string

	// Validate inspects the document and returns its findings.
	Validate(ctx context.Context, pctx *Context) []plausibus.Issue
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc struct {
	name string
	fn   func(ctx context.Context, pctx *Context) []plausibus.Issue
}

// NewValidatorFunc creates a Validator from a function.
func NewValidatorFunc(name string, fn func(ctx context.Context, pctx *Context) []plausibus.Issue) Validator {
	return &ValidatorFunc{name: name, fn: fn}
}

// Name returns the rule set identifier.
func (v *ValidatorFunc) Name() string { return v.name }

// Validate invokes the wrapped function.
func (v *ValidatorFunc) Validate(ctx context.Context, pctx *Context) []plausibus.Issue {
	return v.fn(ctx, pctx)
}

// Priority orders rule sets. Lower values run first. Detection must run
// before the rule sets that read the detection flags.
type Priority int

const (
	PriorityDetection   Priority = 100
	PriorityFormat      Priority = 200
	PriorityGeneral     Priority = 300
	PriorityNarcotics   Priority = 400
	PriorityCannabis    Priority = 500
	PriorityCalculation Priority = 600
)

// Condition decides whether a rule set applies to a document.
type Condition func(pctx *Context) bool

// registration binds a validator to its priority and optional condition.
type registration struct {
	validator Validator
	priority  Priority
	condition Condition
}
