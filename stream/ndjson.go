// Package stream validates newline-delimited JSON input: one document per
// line, fanned out over a worker pool, with results emitted in input order.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/worker"
)

// maxLineBytes bounds a single NDJSON line. Dispensing documents are a few
// hundred KB at most; 16 MB leaves room for pathological attachments.
const maxLineBytes = 16 * 1024 * 1024

// Result is the outcome for one input line.
type Result struct {
	// Line is the 1-based input line number.
	Line int

	// Report is the validation report; nil when Err is set.
	Report *plausibus.Report

	// Err is set when the line could not be validated at all.
	Err error
}

// Processor streams NDJSON input through a validator.
type Processor struct {
	validator worker.Validator
	workers   int
	buffer    int
}

// NewProcessor creates a streaming processor.
func NewProcessor(v worker.Validator) *Processor {
	return &Processor{validator: v, workers: 4, buffer: 64}
}

// WithWorkers sets the parallelism.
func (p *Processor) WithWorkers(n int) *Processor {
	if n > 0 {
		p.workers = n
	}
	return p
}

// WithBuffer sets the result channel buffer.
func (p *Processor) WithBuffer(n int) *Processor {
	if n > 0 {
		p.buffer = n
	}
	return p
}

// Process validates every non-blank line of r. The returned channel emits
// one Result per line in input order and closes when the input is
// exhausted. A read failure surfaces as a final Result with Err set and
// Line pointing past the last processed line.
func (p *Processor) Process(ctx context.Context, r io.Reader) <-chan *Result {
	out := make(chan *Result, p.buffer)

	// Each line gets a single-use slot; workers fill slots through the
	// router, the emitter drains them in input order.
	type pending struct {
		line int
		slot chan *Result
	}
	queue := make(chan pending, p.workers*2)

	pool := worker.NewPool(p.validator, p.workers)

	var mu sync.Mutex
	slots := make(map[string]chan *Result)

	routerDone := make(chan struct{})
	go func() {
		defer close(routerDone)
		for res := range pool.Results() {
			mu.Lock()
			slot := slots[res.ID]
			delete(slots, res.ID)
			mu.Unlock()
			if slot == nil {
				continue
			}
			line, _ := strconv.Atoi(res.ID)
			slot <- &Result{Line: line, Report: res.Report, Err: res.Err}
		}
	}()

	go func() {
		defer close(out)
		for pend := range queue {
			out <- <-pend.slot
		}
	}()

	go func() {
		defer close(queue)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

		line := 0
		for scanner.Scan() {
			line++
			raw := bytes.TrimSpace(scanner.Bytes())
			if len(raw) == 0 {
				continue
			}
			doc := make([]byte, len(raw))
			copy(doc, raw)

			id := strconv.Itoa(line)
			slot := make(chan *Result, 1)
			mu.Lock()
			slots[id] = slot
			mu.Unlock()
			queue <- pending{line: line, slot: slot}

			if err := pool.Submit(ctx, worker.Job{ID: id, Document: doc}); err != nil {
				mu.Lock()
				delete(slots, id)
				mu.Unlock()
				slot <- &Result{Line: line, Err: err}
			}
		}
		if err := scanner.Err(); err != nil {
			slot := make(chan *Result, 1)
			slot <- &Result{Line: line + 1, Err: err}
			queue <- pending{line: line + 1, slot: slot}
		}

		pool.Close()
		<-routerDone
	}()

	return out
}
