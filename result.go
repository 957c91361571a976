package plausibus

import (
	"sync"
	"time"
)

// Result contains the outcome of a single rule set run against a document.
// Use Release() to return it to the pool when done.
type Result struct {
	// Rule is the name of the rule set that produced this result.
	Rule string `json:"rule"`

	// Valid is true if the rule set found no errors (warnings are allowed).
	Valid bool `json:"valid"`

	// Issues contains all findings of the rule set.
	Issues []Issue `json:"issues,omitempty"`

	// mu protects concurrent access to Issues
	mu sync.Mutex
}

// resultPool holds reusable Result instances.
var resultPool = sync.Pool{
	New: func() any {
		return &Result{
			Issues: make([]Issue, 0, 16),
		}
	},
}

// AcquireResult gets a Result from the pool.
// The result starts as valid with no issues.
func AcquireResult(rule string) *Result {
	r := resultPool.Get().(*Result)
	r.Reset()
	r.Rule = rule
	return r
}

// Release returns the Result to the pool.
// After calling Release, the Result must not be used.
func (r *Result) Release() {
	if r == nil {
		return
	}
	// Don't return results with oversized issue slices
	if cap(r.Issues) <= 512 {
		resultPool.Put(r)
	}
}

// Reset clears the result for reuse.
func (r *Result) Reset() {
	r.Rule = ""
	r.Valid = true
	r.Issues = r.Issues[:0]
}

// AddIssue adds a finding to the result. Thread-safe.
func (r *Result) AddIssue(issue Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if issue.Rule == "" {
		issue.Rule = r.Rule
	}
	r.Issues = append(r.Issues, issue)
	if issue.IsError() {
		r.Valid = false
	}
}

// AddIssues adds multiple findings to the result. Thread-safe.
func (r *Result) AddIssues(issues []Issue) {
	if len(issues) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, issue := range issues {
		if issue.Rule == "" {
			issue.Rule = r.Rule
		}
		r.Issues = append(r.Issues, issue)
		if issue.IsError() {
			r.Valid = false
		}
	}
}

// HasErrors returns true if there are any error findings.
func (r *Result) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, issue := range r.Issues {
		if issue.IsError() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error findings.
func (r *Result) ErrorCount() int {
	return r.countBy(Issue.IsError)
}

// WarningCount returns the number of warning findings.
func (r *Result) WarningCount() int {
	return r.countBy(Issue.IsWarning)
}

// InfoCount returns the number of informational findings.
func (r *Result) InfoCount() int {
	return r.countBy(func(i Issue) bool { return i.Severity == SeverityInformation })
}

func (r *Result) countBy(pred func(Issue) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, issue := range r.Issues {
		if pred(issue) {
			count++
		}
	}
	return count
}

// Errors returns all error findings.
func (r *Result) Errors() []Issue {
	return r.filterBy(Issue.IsError)
}

// Warnings returns all warning findings.
func (r *Result) Warnings() []Issue {
	return r.filterBy(Issue.IsWarning)
}

func (r *Result) filterBy(pred func(Issue) bool) []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Issue
	for _, issue := range r.Issues {
		if pred(issue) {
			out = append(out, issue)
		}
	}
	return out
}

// Merge combines another result's findings into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}

	other.mu.Lock()
	issues := make([]Issue, len(other.Issues))
	copy(issues, other.Issues)
	other.mu.Unlock()

	r.AddIssues(issues)
}

// Clone creates a copy of the result (not pooled).
func (r *Result) Clone() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := &Result{
		Rule:   r.Rule,
		Valid:  r.Valid,
		Issues: make([]Issue, len(r.Issues)),
	}
	copy(clone.Issues, r.Issues)
	return clone
}

// NewResult creates a new (non-pooled) result.
func NewResult(rule string) *Result {
	return &Result{
		Rule:   rule,
		Valid:  true,
		Issues: make([]Issue, 0, 8),
	}
}

// Report is the aggregated outcome of validating one document: one Result
// per rule set, in pipeline order, plus overall status.
type Report struct {
	// ID correlates the report with logs and API responses.
	ID string `json:"id,omitempty"`

	// Document is the detected document kind ("prescription",
	// "dispensing" or "unknown").
	Document string `json:"document"`

	// Valid is true when no rule set reported an error.
	Valid bool `json:"valid"`

	// Results holds the per-rule-set outcomes in execution order.
	Results []*Result `json:"results"`

	// Duration is the wall-clock validation time.
	Duration time.Duration `json:"duration"`
}

// AddResult appends a rule set result and updates overall validity.
func (rep *Report) AddResult(r *Result) {
	if r == nil {
		return
	}
	rep.Results = append(rep.Results, r)
	if !r.Valid {
		rep.Valid = false
	}
}

// ErrorCount returns the total number of error findings across rule sets.
func (rep *Report) ErrorCount() int {
	n := 0
	for _, r := range rep.Results {
		n += r.ErrorCount()
	}
	return n
}

// WarningCount returns the total number of warning findings.
func (rep *Report) WarningCount() int {
	n := 0
	for _, r := range rep.Results {
		n += r.WarningCount()
	}
	return n
}

// InfoCount returns the total number of informational findings.
func (rep *Report) InfoCount() int {
	n := 0
	for _, r := range rep.Results {
		n += r.InfoCount()
	}
	return n
}

// Release returns all rule set results to the pool and detaches them
// from the report. After calling Release, the report's results must not
// be used.
func (rep *Report) Release() {
	for _, r := range rep.Results {
		r.Release()
	}
	rep.Results = nil
}

// AllIssues returns every finding across rule sets, in execution order.
func (rep *Report) AllIssues() []Issue {
	var out []Issue
	for _, r := range rep.Results {
		out = append(out, r.Issues...)
	}
	return out
}
