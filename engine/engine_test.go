package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/abda"
	"github.com/megadur/plausibus/pipeline"
	"github.com/megadur/plausibus/refdata"
)

// narcoticDispensing is a dispensing document with one controlled
// substance: no fee code, no diagnosis, dispensed nine days after the
// prescription was issued.
const narcoticDispensing = `{
  "resourceType": "Bundle",
  "id": "b-btm",
  "meta": {"profile": ["https://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-PR-ERP-AbgabedatenBundle|1.3"]},
  "type": "document",
  "timestamp": "2024-03-10T10:00:00Z",
  "entry": [
    {
      "fullUrl": "urn:uuid:med-1",
      "resource": {
        "resourceType": "Medication",
        "id": "med-1",
        "code": {
          "coding": [{"system": "http://fhir.de/CodeSystem/ifa/pzn", "code": "06313728"}],
          "text": "Morphin 10mg"
        }
      }
    },
    {
      "resource": {
        "resourceType": "MedicationRequest",
        "id": "req-1",
        "medicationReference": {"reference": "Medication/med-1"},
        "authoredOn": "2024-03-01",
        "dispenseRequest": {"quantity": {"value": 1, "unit": "St"}}
      }
    },
    {
      "resource": {
        "resourceType": "MedicationDispense",
        "id": "disp-1",
        "medicationReference": {"reference": "Medication/med-1"},
        "whenHandedOver": "2024-03-10"
      }
    },
    {
      "resource": {
        "resourceType": "Invoice",
        "id": "inv-1",
        "status": "issued",
        "lineItem": [{
          "sequence": 1,
          "chargeItemCodeableConcept": {
            "coding": [{"system": "http://fhir.de/CodeSystem/ifa/pzn", "code": "06313728"}]
          },
          "priceComponent": [{
            "type": "informational",
            "factor": 250,
            "code": {
              "coding": [{"system": "http://fhir.abda.de/eRezeptAbgabedaten/CodeSystem/DAV-CS-ERP-Preiskennzeichen", "code": "14"}]
            },
            "amount": {"value": 42.10, "currency": "EUR"},
            "extension": [
              {"url": "http://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-EX-ERP-factor-code", "valueCode": "11"},
              {"url": "http://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-EX-ERP-quantity-dispensed", "valueDecimal": 5}
            ]
          }],
          "extension": [
            {"url": "http://fhir.abda.de/eRezeptAbgabedaten/StructureDefinition/DAV-EX-ERP-package-quantity", "valueDecimal": 20}
          ]
        }]
      }
    }
  ]
}`

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	articles := abda.NewInMemoryProvider()
	if err := articles.Add(abda.Article{
		PZN: "06313728", Name: "Morphin 10mg",
		Btm:          abda.BtmNarcotic,
		MarketStatus: abda.MarketAvailable,
		Vat:          abda.VatFull,
	}); err != nil {
		t.Fatal(err)
	}

	fixed := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	defaults := []Option{WithClock(func() time.Time { return fixed })}
	e, err := New(articles, refdata.NewSeededService(), append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestValidateNarcoticScenario(t *testing.T) {
	e := testEngine(t)

	report, err := e.Validate(context.Background(), []byte(narcoticDispensing))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if report.Document != "dispensing" {
		t.Errorf("Document = %q, want dispensing", report.Document)
	}
	if got := report.ErrorCount(); got != 0 {
		t.Errorf("ErrorCount() = %d, want 0; issues: %v", got, report.AllIssues())
	}
	if got := report.InfoCount(); got != 2 {
		t.Errorf("InfoCount() = %d, want 2; issues: %v", got, report.AllIssues())
	}
	if got := report.WarningCount(); got != 2 {
		t.Errorf("WarningCount() = %d, want 2; issues: %v", got, report.AllIssues())
	}
	if !report.Valid {
		t.Error("Valid = false, want true: warnings must not fail the document")
	}

	codes := make(map[string]bool)
	for _, issue := range report.AllIssues() {
		codes[issue.Code] = true
	}
	for _, want := range []string{"DATA-003-I", "BTM-001-I", "BTM-003-W", "BTM-004-W"} {
		if !codes[want] {
			t.Errorf("missing issue %s; got %v", want, report.AllIssues())
		}
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	first, err := e.Validate(ctx, []byte(narcoticDispensing))
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Validate(ctx, []byte(narcoticDispensing))
	if err != nil {
		t.Fatal(err)
	}

	a, err := json.Marshal(first.AllIssues())
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(second.AllIssues())
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("issue lists differ between runs:\n%s\n%s", a, b)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	e := testEngine(t)

	if _, err := e.Validate(context.Background(), []byte(`{"resourceType":"Patient"}`)); err == nil {
		t.Error("Validate() on a non-bundle must fail")
	}
	if _, err := e.Validate(context.Background(), []byte(`{`)); err == nil {
		t.Error("Validate() on truncated JSON must fail")
	}
}

func TestValidateRecordsMetrics(t *testing.T) {
	m := plausibus.NewMetrics()
	e := testEngine(t, WithMetrics(m))

	if _, err := e.Validate(context.Background(), []byte(narcoticDispensing)); err != nil {
		t.Fatal(err)
	}

	if got := m.DocumentsTotal(); got != 1 {
		t.Errorf("DocumentsTotal() = %d, want 1", got)
	}
	if got := m.DocumentsValid(); got != 1 {
		t.Errorf("DocumentsValid() = %d, want 1", got)
	}
	snap := m.Snapshot()
	if snap.WarningsTotal != 2 {
		t.Errorf("snapshot warnings = %d, want 2", snap.WarningsTotal)
	}
}

type panickingRule struct{}

func (panickingRule) Name() string { return "panicking" }

func (panickingRule) Validate(context.Context, *pipeline.Context) []plausibus.Issue {
	panic("rule table corrupted")
}

func TestValidateSurvivesBrokenRule(t *testing.T) {
	e := testEngine(t, WithRule(panickingRule{}, pipeline.PriorityCalculation+100))

	report, err := e.Validate(context.Background(), []byte(narcoticDispensing))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if report.Valid {
		t.Error("Valid = true despite a failing rule set")
	}

	var found bool
	for _, issue := range report.AllIssues() {
		if issue.Code == pipeline.CodeInternalError && issue.Rule == "panicking" {
			found = true
		}
	}
	if !found {
		t.Errorf("no synthetic internal error; issues: %v", report.AllIssues())
	}
}
