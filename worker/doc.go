// Package worker provides a goroutine pool for validating many documents
// in parallel, used by bulk validation over NDJSON input and by batch
// submissions. One pool wraps one engine; jobs are independent.
package worker
