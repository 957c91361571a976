package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotABundle is returned when the document is not a FHIR Bundle.
var ErrNotABundle = errors.New("fhir: document is not a Bundle")

// ParseBundle decodes a bundle document and its entry resources. Entries
// with resource types the engine does not handle are kept but left
// undecoded.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("fhir: decode bundle: %w", err)
	}
	if b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("%w: resourceType %q", ErrNotABundle, b.ResourceType)
	}

	for i := range b.Entry {
		if err := b.Entry[i].decode(); err != nil {
			return nil, fmt.Errorf("fhir: decode entry %d: %w", i, err)
		}
	}
	return &b, nil
}

type typeProbe struct {
	ResourceType string `json:"resourceType"`
}

func (e *Entry) decode() error {
	if len(e.Raw) == 0 {
		return nil
	}

	var probe typeProbe
	if err := json.Unmarshal(e.Raw, &probe); err != nil {
		return err
	}

	switch probe.ResourceType {
	case "MedicationRequest":
		e.resource = new(MedicationRequest)
	case "Medication":
		e.resource = new(Medication)
	case "MedicationDispense":
		e.resource = new(MedicationDispense)
	case "Invoice":
		e.resource = new(Invoice)
	case "Condition":
		e.resource = new(Condition)
	default:
		// Patient, Practitioner, Organization etc. are irrelevant here.
		return nil
	}
	return json.Unmarshal(e.Raw, e.resource)
}

// MedicationRequests returns all MedicationRequest resources in entry order.
func (b *Bundle) MedicationRequests() []*MedicationRequest {
	var out []*MedicationRequest
	for i := range b.Entry {
		if r, ok := b.Entry[i].resource.(*MedicationRequest); ok {
			out = append(out, r)
		}
	}
	return out
}

// Medications returns all Medication resources with their entry fullUrl.
func (b *Bundle) Medications() []MedicationEntry {
	var out []MedicationEntry
	for i := range b.Entry {
		if r, ok := b.Entry[i].resource.(*Medication); ok {
			out = append(out, MedicationEntry{FullURL: b.Entry[i].FullURL, Medication: r})
		}
	}
	return out
}

// MedicationEntry pairs a Medication with the fullUrl it is addressable by.
type MedicationEntry struct {
	FullURL    string
	Medication *Medication
}

// MedicationDispenses returns all MedicationDispense resources.
func (b *Bundle) MedicationDispenses() []*MedicationDispense {
	var out []*MedicationDispense
	for i := range b.Entry {
		if r, ok := b.Entry[i].resource.(*MedicationDispense); ok {
			out = append(out, r)
		}
	}
	return out
}

// Invoices returns all Invoice resources.
func (b *Bundle) Invoices() []*Invoice {
	var out []*Invoice
	for i := range b.Entry {
		if r, ok := b.Entry[i].resource.(*Invoice); ok {
			out = append(out, r)
		}
	}
	return out
}

// Conditions returns all Condition resources.
func (b *Bundle) Conditions() []*Condition {
	var out []*Condition
	for i := range b.Entry {
		if r, ok := b.Entry[i].resource.(*Condition); ok {
			out = append(out, r)
		}
	}
	return out
}

// timeLayouts are the date formats that occur in billing documents, most
// specific first.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime reads a FHIR instant, dateTime or date value.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("fhir: empty time value")
	}
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("fhir: parse time %q: %w", s, lastErr)
}
