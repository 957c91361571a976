package fhir

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coding systems and extension URLs of the German billing profiles.
const (
	SystemPZN = "http://fhir.de/CodeSystem/ifa/pzn"

	extPackagingSize = "https://fhir.kbv.de/StructureDefinition/KBV_EX_ERP_Medication_PackagingSize"
	extNormSize      = "http://fhir.de/StructureDefinition/normgroesse"
)

// DocumentKind classifies the bundle.
type DocumentKind int

const (
	KindUnknown DocumentKind = iota
	// KindPrescription is a KBV e-prescription bundle.
	KindPrescription
	// KindDispensing is a DAV dispensing/billing (Abgabedaten) bundle.
	KindDispensing
)

// String returns the kind for logs and reports.
func (k DocumentKind) String() string {
	switch k {
	case KindPrescription:
		return "prescription"
	case KindDispensing:
		return "dispensing"
	default:
		return "unknown"
	}
}

// Kind detects the document kind, first by profile, then by the resources
// the bundle carries.
func (b *Bundle) Kind() DocumentKind {
	if b.Meta != nil {
		for _, profile := range b.Meta.Profile {
			if strings.Contains(profile, "KBV_PR_ERP_Bundle") || strings.Contains(profile, "erp-prescription") {
				return KindPrescription
			}
			if strings.Contains(profile, "AbgabedatenBundle") || strings.Contains(profile, "DAV-PR-ERP") {
				return KindDispensing
			}
		}
	}

	if len(b.Invoices()) > 0 || len(b.MedicationDispenses()) > 0 {
		return KindDispensing
	}
	if len(b.MedicationRequests()) > 0 {
		return KindPrescription
	}
	return KindUnknown
}

// TimestampTime parses the bundle timestamp; ok is false when absent or
// unparseable.
func (b *Bundle) TimestampTime() (time.Time, bool) {
	if b.Timestamp == "" {
		return time.Time{}, false
	}
	t, err := ParseTime(b.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PrescriptionID returns the bundle identifier value.
func (b *Bundle) PrescriptionID() string {
	if b.Identifier == nil {
		return ""
	}
	return b.Identifier.Value
}

// codeBySystem returns the first coding code whose system matches pred.
func codeBySystem(cc *CodeableConcept, pred func(string) bool) string {
	if cc == nil {
		return ""
	}
	for _, c := range cc.Coding {
		if pred(c.System) {
			return c.Code
		}
	}
	return ""
}

// PZN returns the product identifier coded on the medication, or "".
func (m *Medication) PZN() string {
	return codeBySystem(m.Code, func(s string) bool { return s == SystemPZN })
}

// Name returns the display text of the medication code.
func (m *Medication) Name() string {
	if m.Code == nil {
		return ""
	}
	return m.Code.Text
}

// PackageSize returns the raw packaging-size extension value, or "".
func (m *Medication) PackageSize() string {
	if m.Amount == nil || m.Amount.Numerator == nil {
		return ""
	}
	for _, ext := range m.Amount.Numerator.Extension {
		if ext.URL == extPackagingSize && ext.ValueString != nil {
			return *ext.ValueString
		}
	}
	return ""
}

// NormSize returns the Normgroesse code (N1, N2, N3), or "".
func (m *Medication) NormSize() string {
	for _, ext := range m.Extension {
		if ext.URL == extNormSize && ext.ValueCode != nil {
			return *ext.ValueCode
		}
	}
	return ""
}

// QuantityValue returns the requested dispense quantity, if present.
func (r *MedicationRequest) QuantityValue() *decimal.Decimal {
	if r.DispenseRequest == nil || r.DispenseRequest.Quantity == nil {
		return nil
	}
	return r.DispenseRequest.Quantity.Value
}

// SubstitutionAllowed reports whether aut idem substitution is permitted;
// absence means allowed.
func (r *MedicationRequest) SubstitutionAllowed() bool {
	if r.Substitution == nil || r.Substitution.AllowedBoolean == nil {
		return true
	}
	return *r.Substitution.AllowedBoolean
}

// MedicationRef returns the reference string to the medication resource.
func (r *MedicationRequest) MedicationRef() string {
	if r.Medication == nil {
		return ""
	}
	return r.Medication.Reference
}

// HandedOverTime parses whenHandedOver; ok is false when absent or bad.
func (d *MedicationDispense) HandedOverTime() (time.Time, bool) {
	if d.WhenHandedOver == "" {
		return time.Time{}, false
	}
	t, err := ParseTime(d.WhenHandedOver)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PZN returns the product identifier coded on the charge item, or "".
func (li *InvoiceLineItem) PZN() string {
	return codeBySystem(li.ChargeItem, func(s string) bool { return s == SystemPZN })
}

// SOK returns the special identifier coded on the charge item, or "".
func (li *InvoiceLineItem) SOK() string {
	return codeBySystem(li.ChargeItem, func(s string) bool {
		s = strings.ToLower(s)
		return strings.Contains(s, "sok") || strings.Contains(s, "special")
	})
}

// FactorValue returns the per-mille factor of the first price component.
func (li *InvoiceLineItem) FactorValue() *decimal.Decimal {
	if len(li.PriceComponent) == 0 {
		return nil
	}
	return li.PriceComponent[0].Factor
}

// FactorCode returns the factor code carried in a price component
// extension, or "".
func (li *InvoiceLineItem) FactorCode() string {
	if len(li.PriceComponent) == 0 {
		return ""
	}
	for _, ext := range li.PriceComponent[0].Extension {
		if strings.Contains(strings.ToLower(ext.URL), "factor") && ext.ValueCode != nil {
			return *ext.ValueCode
		}
	}
	return ""
}

// PriceClass returns the Preiskennzeichen of the first price component: the
// coding whose system names a price code, or a price-identifier extension.
func (li *InvoiceLineItem) PriceClass() string {
	if len(li.PriceComponent) == 0 {
		return ""
	}
	pc := li.PriceComponent[0]
	if code := codeBySystem(pc.Code, func(s string) bool {
		s = strings.ToLower(s)
		return strings.Contains(s, "preiskennzeichen") || strings.Contains(s, "price")
	}); code != "" {
		return code
	}
	for _, ext := range pc.Extension {
		if strings.Contains(strings.ToLower(ext.URL), "preiskennzeichen") && ext.ValueCode != nil {
			return *ext.ValueCode
		}
	}
	return ""
}

// GrossAmount returns the declared price of the first price component.
func (li *InvoiceLineItem) GrossAmount() *Money {
	if len(li.PriceComponent) == 0 {
		return nil
	}
	return li.PriceComponent[0].Amount
}

// VATRate returns the MwStSatz extension value of the first price
// component, if present.
func (li *InvoiceLineItem) VATRate() *decimal.Decimal {
	if len(li.PriceComponent) == 0 {
		return nil
	}
	for _, ext := range li.PriceComponent[0].Extension {
		if strings.Contains(ext.URL, "MwStSatz") && ext.ValueDecimal != nil {
			return ext.ValueDecimal
		}
	}
	return nil
}

// DispensedQuantity returns the dispensed amount attached to the price
// component, if present.
func (li *InvoiceLineItem) DispensedQuantity() *decimal.Decimal {
	if len(li.PriceComponent) == 0 {
		return nil
	}
	for _, ext := range li.PriceComponent[0].Extension {
		if !strings.Contains(strings.ToLower(ext.URL), "quantity") {
			continue
		}
		if ext.ValueDecimal != nil {
			return ext.ValueDecimal
		}
		if ext.ValueQuantity != nil {
			return ext.ValueQuantity.Value
		}
	}
	return nil
}

// PackageQuantity returns the package amount from the line item extensions,
// falling back to the packaging size of the referenced medication.
func (li *InvoiceLineItem) PackageQuantity(med *Medication) *decimal.Decimal {
	for _, ext := range li.Extension {
		if !strings.Contains(strings.ToLower(ext.URL), "package") {
			continue
		}
		if ext.ValueDecimal != nil {
			return ext.ValueDecimal
		}
		if ext.ValueQuantity != nil {
			return ext.ValueQuantity.Value
		}
	}

	if med != nil {
		if size := med.PackageSize(); size != "" {
			if d, err := decimal.NewFromString(size); err == nil {
				return &d
			}
		}
	}
	return nil
}

// ManufacturingData is the Herstellungssegment of a compounded preparation.
type ManufacturingData struct {
	Manufacturer string
	Timestamp    string
	Counter      string
	Batch        string
}

// Complete reports whether all four required fields are present.
func (m ManufacturingData) Complete() bool {
	return m.Manufacturer != "" && m.Timestamp != "" && m.Counter != "" && m.Batch != ""
}

// MissingFields names the absent required fields.
func (m ManufacturingData) MissingFields() []string {
	var out []string
	if m.Manufacturer == "" {
		out = append(out, "manufacturer")
	}
	if m.Timestamp == "" {
		out = append(out, "timestamp")
	}
	if m.Counter == "" {
		out = append(out, "counter")
	}
	if m.Batch == "" {
		out = append(out, "batch")
	}
	return out
}

// manufacturingURL matches the Herstellungssegment container extension.
func manufacturingURL(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "manufacturing") ||
		strings.Contains(u, "compounding") ||
		strings.Contains(u, "herstellung")
}

// ExtractManufacturing reads the manufacturing segment from an extension
// list; ok is false when no segment is present at all.
func ExtractManufacturing(exts []Extension) (ManufacturingData, bool) {
	for _, ext := range exts {
		if !manufacturingURL(ext.URL) {
			continue
		}
		var data ManufacturingData
		for _, sub := range ext.Extension {
			u := strings.ToLower(sub.URL)
			switch {
			case strings.Contains(u, "hersteller") || strings.Contains(u, "manufacturer"):
				data.Manufacturer = extensionString(sub)
			case strings.Contains(u, "zeitstempel") || strings.Contains(u, "timestamp"):
				data.Timestamp = extensionString(sub)
			case strings.Contains(u, "zaehler") || strings.Contains(u, "counter"):
				data.Counter = extensionString(sub)
			case strings.Contains(u, "charge") || strings.Contains(u, "batch"):
				data.Batch = extensionString(sub)
			}
		}
		return data, true
	}
	return ManufacturingData{}, false
}

func extensionString(ext Extension) string {
	switch {
	case ext.ValueString != nil:
		return *ext.ValueString
	case ext.ValueCode != nil:
		return *ext.ValueCode
	case ext.ValueDateTime != nil:
		return *ext.ValueDateTime
	case ext.ValueIdentifier != nil:
		return ext.ValueIdentifier.Value
	case ext.ValueDecimal != nil:
		return ext.ValueDecimal.String()
	default:
		return ""
	}
}
