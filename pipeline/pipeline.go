package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	plausibus "github.com/megadur/plausibus"
)

// CodeInternalError marks a rule set that failed to run. The synthetic
// result carries it so callers can tell a crashed check from a passed one.
const CodeInternalError = "SYS-001-E"

// Pipeline executes registered rule sets against a document context in
// priority order. A panicking rule set never takes the run down; it yields
// a synthetic error result and the remaining rule sets still run.
type Pipeline struct {
	regs    []registration
	metrics *plausibus.Metrics

	mu     sync.RWMutex
	sorted bool
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{regs: make([]registration, 0, 8)}
}

// WithMetrics attaches engine metrics for per-rule-set timing.
func (p *Pipeline) WithMetrics(m *plausibus.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// Register adds a rule set at the given priority.
func (p *Pipeline) Register(v Validator, prio Priority) {
	p.RegisterIf(v, prio, nil)
}

// RegisterIf adds a rule set that only runs when cond holds for the
// document. A nil cond always runs.
func (p *Pipeline) RegisterIf(v Validator, prio Priority, cond Condition) {
	p.mu.Lock()
	p.regs = append(p.regs, registration{validator: v, priority: prio, condition: cond})
	p.sorted = false
	p.mu.Unlock()
}

// Run executes all applicable rule sets in priority order and returns one
// result per executed rule set. Registration order breaks priority ties,
// so repeated runs of the same document produce results in the same order.
func (p *Pipeline) Run(ctx context.Context, pctx *Context) []*plausibus.Result {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.regs, func(i, j int) bool {
			return p.regs[i].priority < p.regs[j].priority
		})
		p.sorted = true
	}
	regs := p.regs
	p.mu.Unlock()

	results := make([]*plausibus.Result, 0, len(regs))
	for _, reg := range regs {
		if err := ctx.Err(); err != nil {
			pctx.Log.Warn().Err(err).Str("rule", reg.validator.Name()).
				Msg("validation cancelled before rule set")
			break
		}
		if reg.condition != nil && !reg.condition(pctx) {
			continue
		}
		results = append(results, p.runOne(ctx, reg.validator, pctx))
	}
	return results
}

// runOne executes a single rule set with fault isolation. Results come
// from the shared pool; the report owner returns them via Report.Release.
func (p *Pipeline) runOne(ctx context.Context, v Validator, pctx *Context) (res *plausibus.Result) {
	name := v.Name()
	res = plausibus.AcquireResult(name)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			pctx.Log.Error().Str("rule", name).Interface("panic", r).
				Msg("rule set panicked")
			res.AddIssue(plausibus.Error(CodeInternalError).
				Message(fmt.Sprintf("rule set %s failed: %v", name, r)).
				Rule(name).
				Build())
		}
		if p.metrics != nil {
			p.metrics.RecordRule(name, time.Since(start), len(res.Issues))
		}
	}()

	res.AddIssues(v.Validate(ctx, pctx))
	return res
}

// RuleCount returns the number of registered rule sets.
func (p *Pipeline) RuleCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.regs)
}
