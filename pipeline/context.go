// Package pipeline runs ordered rule sets against one parsed dispensing or
// prescription document. The per-document Context carries the extracted
// collections and the detection flags the later rule sets depend on.
package pipeline

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/megadur/plausibus/fhir"
	"github.com/megadur/plausibus/pzn"
)

// Context is the per-document validation state. It is built once from the
// bundle and discarded after the report is assembled. Rule sets read it;
// only the detection step writes to it, by filling Flags before the
// dependent rule sets run.
type Context struct {
	Bundle *fhir.Bundle
	Kind   fhir.DocumentKind

	Requests   []*fhir.MedicationRequest
	Dispenses  []*fhir.MedicationDispense
	Invoices   []*fhir.Invoice
	Conditions []*fhir.Condition

	// medications is keyed by resource id, "Medication/{id}" and entry
	// fullUrl, covering the reference styles that occur in documents.
	medications map[string]*fhir.Medication

	// DispensedAt is the first dispensing timestamp of the document;
	// HasDispensedAt is false when no dispense record carries one.
	DispensedAt    time.Time
	HasDispensedAt bool

	// PZNs holds the distinct product identifiers of the document in
	// first-seen order.
	PZNs []pzn.PZN

	// Flags is populated by the detection step.
	Flags DetectedFlags

	Log zerolog.Logger
}

// BuildContext extracts the validation state from a parsed bundle.
func BuildContext(b *fhir.Bundle, log zerolog.Logger) *Context {
	c := &Context{
		Bundle:      b,
		Kind:        b.Kind(),
		Requests:    b.MedicationRequests(),
		Dispenses:   b.MedicationDispenses(),
		Invoices:    b.Invoices(),
		Conditions:  b.Conditions(),
		medications: make(map[string]*fhir.Medication),
		Log:         log,
	}

	for _, me := range b.Medications() {
		med := me.Medication
		if med.ID != "" {
			c.medications[med.ID] = med
			c.medications["Medication/"+med.ID] = med
		}
		if me.FullURL != "" {
			c.medications[me.FullURL] = med
		}
	}

	for _, d := range c.Dispenses {
		if t, ok := d.HandedOverTime(); ok {
			c.DispensedAt = t
			c.HasDispensedAt = true
			break
		}
	}

	seen := make(map[pzn.PZN]struct{})
	collect := func(raw string) {
		if raw == "" {
			return
		}
		id, err := pzn.Parse(raw)
		if err != nil {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		c.PZNs = append(c.PZNs, id)
	}

	for _, me := range b.Medications() {
		collect(me.Medication.PZN())
	}
	for _, inv := range c.Invoices {
		for i := range inv.LineItem {
			collect(inv.LineItem[i].PZN())
		}
	}

	return c
}

// Medication resolves a medication reference ("Medication/{id}", a bare id
// or a fullUrl). Returns nil when the document does not contain it.
func (c *Context) Medication(ref string) *fhir.Medication {
	if ref == "" {
		return nil
	}
	return c.medications[ref]
}

// MedicationForRequest resolves the medication a request points at, or nil.
func (c *Context) MedicationForRequest(r *fhir.MedicationRequest) *fhir.Medication {
	return c.Medication(r.MedicationRef())
}

// Line pairs one invoice line item with its location path, so findings can
// point at the exact element.
type Line struct {
	Invoice *fhir.Invoice
	Item    *fhir.InvoiceLineItem
	Path    string
}

// Lines returns every invoice line item of the document.
func (c *Context) Lines() []Line {
	var out []Line
	for _, inv := range c.Invoices {
		for i := range inv.LineItem {
			out = append(out, Line{
				Invoice: inv,
				Item:    &inv.LineItem[i],
				Path:    "Invoice/" + inv.ID + ".lineItem[" + strconv.Itoa(i) + "]",
			})
		}
	}
	return out
}

// Medication resolves the medication a line item belongs to, by matching
// the line's product identifier against the document's medications.
func (l Line) Medication(c *Context) *fhir.Medication {
	raw := l.Item.PZN()
	if raw == "" {
		return nil
	}
	id, err := pzn.Parse(raw)
	if err != nil {
		return nil
	}
	for _, me := range c.Bundle.Medications() {
		mp, perr := pzn.Parse(me.Medication.PZN())
		if perr == nil && mp == id {
			return me.Medication
		}
	}
	return nil
}
