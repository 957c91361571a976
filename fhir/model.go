// Package fhir holds a hand-written model of the FHIR resources that occur
// in e-prescription and dispensing/billing bundles, together with the
// extraction helpers the validation rules rely on.
//
// The model deliberately covers only the elements this engine reads; it is
// not a general R4 implementation.
package fhir

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Common data types.

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

type Quantity struct {
	Value     *decimal.Decimal `json:"value,omitempty"`
	Unit      string           `json:"unit,omitempty"`
	System    string           `json:"system,omitempty"`
	Code      string           `json:"code,omitempty"`
	Extension []Extension      `json:"extension,omitempty"`
}

type Ratio struct {
	Numerator   *Quantity `json:"numerator,omitempty"`
	Denominator *Quantity `json:"denominator,omitempty"`
}

type Money struct {
	Value    *decimal.Decimal `json:"value,omitempty"`
	Currency string           `json:"currency,omitempty"`
}

// Extension carries the value[x] variants the billing profiles use.
type Extension struct {
	URL             string           `json:"url"`
	ValueString     *string          `json:"valueString,omitempty"`
	ValueCode       *string          `json:"valueCode,omitempty"`
	ValueBoolean    *bool            `json:"valueBoolean,omitempty"`
	ValueDecimal    *decimal.Decimal `json:"valueDecimal,omitempty"`
	ValueDateTime   *string          `json:"valueDateTime,omitempty"`
	ValueQuantity   *Quantity        `json:"valueQuantity,omitempty"`
	ValueIdentifier *Identifier      `json:"valueIdentifier,omitempty"`
	Extension       []Extension      `json:"extension,omitempty"`
}

type Meta struct {
	Profile []string `json:"profile,omitempty"`
}

// Bundle is the document envelope.
type Bundle struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id,omitempty"`
	Meta         *Meta       `json:"meta,omitempty"`
	Identifier   *Identifier `json:"identifier,omitempty"`
	Type         string      `json:"type,omitempty"`
	Timestamp    string      `json:"timestamp,omitempty"`
	Entry        []Entry     `json:"entry,omitempty"`
}

// Entry wraps one bundle entry. Raw holds the undecoded resource; the
// typed form is populated during ParseBundle and reachable through the
// accessor methods on Bundle.
type Entry struct {
	FullURL string          `json:"fullUrl,omitempty"`
	Raw     json.RawMessage `json:"resource,omitempty"`

	resource any
}

// Resource returns the decoded resource, or nil for unknown types.
func (e *Entry) Resource() any { return e.resource }

// Clinical and billing resources.

type MedicationRequest struct {
	ResourceType      string           `json:"resourceType"`
	ID                string           `json:"id,omitempty"`
	Meta              *Meta            `json:"meta,omitempty"`
	Medication        *Reference       `json:"medicationReference,omitempty"`
	AuthoredOn        string           `json:"authoredOn,omitempty"`
	DispenseRequest   *DispenseRequest `json:"dispenseRequest,omitempty"`
	DosageInstruction []Dosage         `json:"dosageInstruction,omitempty"`
	Substitution      *Substitution    `json:"substitution,omitempty"`
	Extension         []Extension      `json:"extension,omitempty"`
}

type DispenseRequest struct {
	Quantity *Quantity `json:"quantity,omitempty"`
}

type Dosage struct {
	Text string `json:"text,omitempty"`
}

type Substitution struct {
	AllowedBoolean *bool `json:"allowedBoolean,omitempty"`
}

type Medication struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id,omitempty"`
	Meta         *Meta            `json:"meta,omitempty"`
	Code         *CodeableConcept `json:"code,omitempty"`
	Amount       *Ratio           `json:"amount,omitempty"`
	Batch        *Batch           `json:"batch,omitempty"`
	Extension    []Extension      `json:"extension,omitempty"`
}

type Batch struct {
	LotNumber string `json:"lotNumber,omitempty"`
}

type MedicationDispense struct {
	ResourceType   string      `json:"resourceType"`
	ID             string      `json:"id,omitempty"`
	Meta           *Meta       `json:"meta,omitempty"`
	Medication     *Reference  `json:"medicationReference,omitempty"`
	WhenHandedOver string      `json:"whenHandedOver,omitempty"`
	Quantity       *Quantity   `json:"quantity,omitempty"`
	Extension      []Extension `json:"extension,omitempty"`
}

type Invoice struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id,omitempty"`
	Meta         *Meta             `json:"meta,omitempty"`
	Status       string            `json:"status,omitempty"`
	LineItem     []InvoiceLineItem `json:"lineItem,omitempty"`
	TotalGross   *Money            `json:"totalGross,omitempty"`
	Extension    []Extension       `json:"extension,omitempty"`
}

type InvoiceLineItem struct {
	Sequence       int              `json:"sequence,omitempty"`
	ChargeItem     *CodeableConcept `json:"chargeItemCodeableConcept,omitempty"`
	PriceComponent []PriceComponent `json:"priceComponent,omitempty"`
	Extension      []Extension      `json:"extension,omitempty"`
}

type PriceComponent struct {
	Type      string           `json:"type,omitempty"`
	Code      *CodeableConcept `json:"code,omitempty"`
	Factor    *decimal.Decimal `json:"factor,omitempty"`
	Amount    *Money           `json:"amount,omitempty"`
	Extension []Extension      `json:"extension,omitempty"`
}

type Condition struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id,omitempty"`
	Meta         *Meta            `json:"meta,omitempty"`
	Code         *CodeableConcept `json:"code,omitempty"`
	Extension    []Extension      `json:"extension,omitempty"`
}
