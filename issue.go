package plausibus

import "strings"

// Severity ranks a validation finding.
type Severity string

const (
	// SeverityError marks a finding that fails the document.
	SeverityError Severity = "error"
	// SeverityWarning marks a finding that should be reviewed but does not
	// fail the document.
	SeverityWarning Severity = "warning"
	// SeverityInformation marks neutral feedback, e.g. detection notices.
	SeverityInformation Severity = "information"
)

// Issue is a single validation finding.
//
// Code follows the <CATEGORY>-<NNN>-<E|W|I> convention used by the rule
// catalog, e.g. "FMT-001-E" or "BTM-003-W".
type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`

	// Message contains human-readable details about the finding.
	Message string `json:"message"`

	// Expression points at the offending element(s), FHIRPath-style.
	Expression []string `json:"expression,omitempty"`

	// PZN is the product identifier the finding relates to, if any.
	PZN string `json:"pzn,omitempty"`

	// Rule is the rule set that produced the finding.
	Rule string `json:"rule,omitempty"`

	// Details carries structured context, e.g. expected vs. actual values.
	Details map[string]string `json:"details,omitempty"`
}

// IsError reports whether the issue fails the document.
func (i Issue) IsError() bool { return i.Severity == SeverityError }

// IsWarning reports whether the issue is a warning.
func (i Issue) IsWarning() bool { return i.Severity == SeverityWarning }

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	b.WriteString(" [")
	b.WriteString(i.Code)
	b.WriteString("] ")
	b.WriteString(i.Message)
	if len(i.Expression) > 0 {
		b.WriteString(" at ")
		b.WriteString(i.Expression[0])
	}
	if i.PZN != "" {
		b.WriteString(" (PZN ")
		b.WriteString(i.PZN)
		b.WriteString(")")
	}
	return b.String()
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity Severity, code string) *IssueBuilder {
	return &IssueBuilder{issue: Issue{Severity: severity, Code: code}}
}

// Error creates an error issue builder.
func Error(code string) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue builder.
func Warning(code string) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Info creates an informational issue builder.
func Info(code string) *IssueBuilder {
	return NewIssue(SeverityInformation, code)
}

// Message sets the human-readable message.
func (b *IssueBuilder) Message(msg string) *IssueBuilder {
	b.issue.Message = msg
	return b
}

// At sets the expression path.
func (b *IssueBuilder) At(path string) *IssueBuilder {
	b.issue.Expression = []string{path}
	return b
}

// AtPaths sets multiple expression paths.
func (b *IssueBuilder) AtPaths(paths ...string) *IssueBuilder {
	b.issue.Expression = paths
	return b
}

// PZN attaches the product identifier the finding relates to.
func (b *IssueBuilder) PZN(pzn string) *IssueBuilder {
	b.issue.PZN = pzn
	return b
}

// Rule sets the rule set that produced the finding.
func (b *IssueBuilder) Rule(name string) *IssueBuilder {
	b.issue.Rule = name
	return b
}

// Detail adds a structured key/value detail.
func (b *IssueBuilder) Detail(key, value string) *IssueBuilder {
	if b.issue.Details == nil {
		b.issue.Details = make(map[string]string, 4)
	}
	b.issue.Details[key] = value
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
