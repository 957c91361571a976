package worker

import (
	"time"

	plausibus "github.com/megadur/plausibus"
)

// Job is one document to validate.
type Job struct {
	// ID correlates the job with its result. Callers choose the scheme;
	// bulk input uses the line number.
	ID string

	// Document is the raw document JSON.
	Document []byte
}

// JobResult is the outcome of one job.
type JobResult struct {
	// ID matches the Job that produced this result.
	ID string

	// Report is the validation report; nil when Err is set.
	Report *plausibus.Report

	// Err is set when the document could not be validated at all, e.g.
	// on unparseable input. Rule findings are never errors here.
	Err error

	// Duration is the time taken to validate.
	Duration time.Duration
}
