// Package testutil holds shared test fixtures for the emission simulator:
// pinned allocation cases and a relative-tolerance assertion.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset is the content of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenAllocation `json:"tests"`
}

// GoldenAllocation is one pinned allocation: entity luminosities launched
// with a bias and a packet count, and what the allocation must produce.
type GoldenAllocation struct {
	Name         string        `json:"name"`
	Luminosities []float64     `json:"luminosities"`
	Bias         float64       `json:"bias"`
	Packets      int           `json:"packets"`
	Expected     GoldenOutcome `json:"expected"`
}

// GoldenOutcome is the expected allocation of a golden case.
type GoldenOutcome struct {
	Counts  []int     `json:"counts"`            // exact
	Weights []float64 `json:"weights,omitempty"` // normalized launch weights, when pinned
}

// datasetPath locates testdata/ at the module root from this source file.
func datasetPath(t *testing.T) string {
	t.Helper()
	_, here, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate testutil source file")
	}
	root := filepath.Join(filepath.Dir(here), "..", "..", "..")
	return filepath.Join(root, "testdata", "goldendataset.json")
}

// LoadGoldenDataset reads the golden allocation cases, failing the test on
// any error.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()
	raw, err := os.ReadFile(datasetPath(t))
	if err != nil {
		t.Fatalf("reading golden dataset: %v", err)
	}
	var ds GoldenDataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		t.Fatalf("decoding golden dataset: %v", err)
	}
	return &ds
}

// AssertFloat64Equal fails the test when want and got differ by more than
// relTol relative to the larger magnitude.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	scale := math.Max(math.Abs(want), math.Abs(got))
	if scale == 0 {
		return
	}
	if rel := math.Abs(want-got) / scale; rel > relTol {
		t.Errorf("%s = %v, want %v (relative difference %.3g > %.3g)", name, got, want, rel, relTol)
	}
}
