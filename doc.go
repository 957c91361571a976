// Package plausibus contains the shared validation vocabulary for the
// e-prescription dispensing plausibility engine: severities, issues, the
// per-rule-set Result and the aggregated Report.
//
// The engine itself lives in the engine package; individual rule sets live
// in the rules package and run inside a pipeline (see package pipeline).
package plausibus
