package rules

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/rs/zerolog"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/fhir"
	"github.com/megadur/plausibus/pipeline"
)

// Shared fixture machinery: docSpec assembles a dispensing document as
// JSON, parses it and builds the pipeline context the rule sets consume.

const (
	davProfile = "https://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-PR-ERP-AbgabedatenBundle|1.3"
	kbvProfile = "https://fhir.kbv.de/StructureDefinition/KBV_PR_ERP_Bundle|1.1.0"

	pznSystem        = "http://fhir.de/CodeSystem/ifa/pzn"
	sokSystem        = "http://fhir.de/CodeSystem/ifa/sok"
	priceClassSystem = "http://fhir.abda.de/eRezeptAbgabedaten/CodeSystem/DAV-CS-ERP-Preiskennzeichen"
	vatExtension     = "http://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-EX-ERP-MwStSatz"
	factorCodeExt    = "http://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-EX-ERP-factor-code"
	quantityExt      = "http://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-EX-ERP-quantity-dispensed"
	packageExt       = "http://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-EX-ERP-package-quantity"
	herstellungExt   = "http://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-EX-ERP-Herstellung"
)

type medSpec struct {
	id       string
	pzn      string
	name     string
	packSize string
}

type reqSpec struct {
	medRef     string
	authoredOn string
	qty        *float64
}

type dispSpec struct {
	when string
	// manufacturing maps hersteller/zeitstempel/zaehler/charge to values;
	// nil means no segment.
	manufacturing map[string]string
}

type lineSpec struct {
	pzn        string
	sok        string
	factor     *float64
	factorCode string
	priceClass string
	amount     *float64
	currency   string
	vat        *float64
	dispensed  *float64
	pack       *float64
	// manufacturing on the line item, same shape as dispSpec.
	manufacturing map[string]string
}

type condSpec struct {
	system string
	code   string
}

type docSpec struct {
	profile    string
	timestamp  string
	meds       []medSpec
	requests   []reqSpec
	dispenses  []dispSpec
	lines      []lineSpec
	conditions []condSpec
}

func fp(v float64) *float64 { return &v }

func manufacturingExt(fields map[string]string) map[string]any {
	var subs []map[string]any
	for _, key := range []string{"hersteller", "zeitstempel", "zaehler", "charge"} {
		if v, ok := fields[key]; ok {
			subs = append(subs, map[string]any{"url": key, "valueString": v})
		}
	}
	return map[string]any{"url": herstellungExt, "extension": subs}
}

func (l lineSpec) toMap() map[string]any {
	var codings []map[string]any
	if l.pzn != "" {
		codings = append(codings, map[string]any{"system": pznSystem, "code": l.pzn})
	}
	if l.sok != "" {
		codings = append(codings, map[string]any{"system": sokSystem, "code": l.sok})
	}

	pc := map[string]any{"type": "informational"}
	if l.factor != nil {
		pc["factor"] = *l.factor
	}
	if l.amount != nil {
		currency := l.currency
		if currency == "" {
			currency = "EUR"
		}
		pc["amount"] = map[string]any{"value": *l.amount, "currency": currency}
	}
	if l.priceClass != "" {
		pc["code"] = map[string]any{
			"coding": []map[string]any{{"system": priceClassSystem, "code": l.priceClass}},
		}
	}

	var pcExts []map[string]any
	if l.vat != nil {
		pcExts = append(pcExts, map[string]any{"url": vatExtension, "valueDecimal": *l.vat})
	}
	if l.factorCode != "" {
		pcExts = append(pcExts, map[string]any{"url": factorCodeExt, "valueCode": l.factorCode})
	}
	if l.dispensed != nil {
		pcExts = append(pcExts, map[string]any{"url": quantityExt, "valueDecimal": *l.dispensed})
	}
	if len(pcExts) > 0 {
		pc["extension"] = pcExts
	}

	item := map[string]any{
		"chargeItemCodeableConcept": map[string]any{"coding": codings},
		"priceComponent":            []map[string]any{pc},
	}

	var lineExts []map[string]any
	if l.pack != nil {
		lineExts = append(lineExts, map[string]any{"url": packageExt, "valueDecimal": *l.pack})
	}
	if l.manufacturing != nil {
		lineExts = append(lineExts, manufacturingExt(l.manufacturing))
	}
	if len(lineExts) > 0 {
		item["extension"] = lineExts
	}
	return item
}

func (d docSpec) json(t *testing.T) []byte {
	t.Helper()

	profile := d.profile
	if profile == "" {
		profile = davProfile
	}
	bundle := map[string]any{
		"resourceType": "Bundle",
		"id":           "b-test",
		"meta":         map[string]any{"profile": []string{profile}},
		"type":         "document",
	}
	if d.timestamp != "" {
		bundle["timestamp"] = d.timestamp
	}

	var entries []map[string]any
	add := func(fullURL string, res map[string]any) {
		e := map[string]any{"resource": res}
		if fullURL != "" {
			e["fullUrl"] = fullURL
		}
		entries = append(entries, e)
	}

	for _, m := range d.meds {
		res := map[string]any{
			"resourceType": "Medication",
			"id":           m.id,
			"code": map[string]any{
				"coding": []map[string]any{{"system": pznSystem, "code": m.pzn}},
				"text":   m.name,
			},
		}
		if m.packSize != "" {
			res["amount"] = map[string]any{
				"numerator": map[string]any{
					"value": 1,
					"extension": []map[string]any{{
						"url":         "https://fhir.kbv.de/StructureDefinition/KBV_EX_ERP_Medication_PackagingSize",
						"valueString": m.packSize,
					}},
				},
			}
		}
		add("urn:uuid:"+m.id, res)
	}

	for i, r := range d.requests {
		res := map[string]any{
			"resourceType": "MedicationRequest",
			"id":           "req-" + itoa(i),
		}
		if r.medRef != "" {
			res["medicationReference"] = map[string]any{"reference": r.medRef}
		}
		if r.authoredOn != "" {
			res["authoredOn"] = r.authoredOn
		}
		if r.qty != nil {
			res["dispenseRequest"] = map[string]any{
				"quantity": map[string]any{"value": *r.qty, "unit": "St"},
			}
		}
		add("", res)
	}

	for i, ds := range d.dispenses {
		res := map[string]any{
			"resourceType": "MedicationDispense",
			"id":           "disp-" + itoa(i),
		}
		if ds.when != "" {
			res["whenHandedOver"] = ds.when
		}
		if ds.manufacturing != nil {
			res["extension"] = []map[string]any{manufacturingExt(ds.manufacturing)}
		}
		add("", res)
	}

	if len(d.lines) > 0 {
		items := make([]map[string]any, 0, len(d.lines))
		for _, l := range d.lines {
			items = append(items, l.toMap())
		}
		add("", map[string]any{
			"resourceType": "Invoice",
			"id":           "inv-1",
			"status":       "issued",
			"lineItem":     items,
		})
	}

	for i, c := range d.conditions {
		add("", map[string]any{
			"resourceType": "Condition",
			"id":           "cond-" + itoa(i),
			"code": map[string]any{
				"coding": []map[string]any{{"system": c.system, "code": c.code}},
			},
		})
	}

	bundle["entry"] = entries
	data, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

func (d docSpec) context(t *testing.T) *pipeline.Context {
	t.Helper()
	b, err := fhir.ParseBundle(d.json(t))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return pipeline.BuildContext(b, zerolog.Nop())
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

// findIssues returns the issues carrying the given code.
func findIssues(issues []plausibus.Issue, code string) []plausibus.Issue {
	var out []plausibus.Issue
	for _, is := range issues {
		if is.Code == code {
			out = append(out, is)
		}
	}
	return out
}

func wantIssue(t *testing.T, issues []plausibus.Issue, code string) plausibus.Issue {
	t.Helper()
	found := findIssues(issues, code)
	if len(found) != 1 {
		t.Fatalf("issues with code %s = %d, want 1; all: %v", code, len(found), issues)
	}
	return found[0]
}

func wantNoIssue(t *testing.T, issues []plausibus.Issue, code string) {
	t.Helper()
	if found := findIssues(issues, code); len(found) > 0 {
		t.Fatalf("unexpected issue(s) with code %s: %v", code, found)
	}
}
