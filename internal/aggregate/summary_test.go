package aggregate

import (
	"testing"

	"adpulse/internal/domain"
)

// buildCube assembles a cube from per-source metric values, seeding the
// full catalog shape like the aggregator does.
func buildCube(cust *domain.Customer, rows map[int64]map[int64]map[string]float64) domain.Cube {
	seed := cust.MetricNames()
	cube := make(domain.Cube)
	for chID, sources := range rows {
		for srcID, metrics := range sources {
			for name, v := range metrics {
				cube.Add(chID, srcID, name, v, seed)
			}
		}
	}
	return cube
}

func TestMergeSummary(t *testing.T) {
	cust := testCustomer()

	predicted := buildCube(cust, map[int64]map[int64]map[string]float64{
		1: {
			11: {domain.MetricCost: 2000, "Leads": 200, domain.MetricBudget: 4200},
		},
	})
	historical := buildCube(cust, map[int64]map[int64]map[string]float64{
		1: {
			11: {domain.MetricCost: 1000, "Leads": 100},
		},
		2: { // historical-only channel, absent from the summary
			21: {domain.MetricCost: 500},
		},
	})

	out := MergeSummary(cust, predicted, historical)

	if _, ok := out[2]; ok {
		t.Error("historical-only channel must not appear in the summary")
	}

	ch := out[1]
	if ch == nil {
		t.Fatal("channel 1 missing")
	}
	if got := ch.Metrics[domain.MetricCost].Value; got != 3000 {
		t.Errorf("merged Cost = %v, want 3000", got)
	}
	// Budget has no historical counterpart; it carries over unchanged.
	if got := ch.Metrics[domain.MetricBudget].Value; got != 4200 {
		t.Errorf("merged Budget = %v, want 4200", got)
	}

	leads := ch.Metrics["Leads"]
	if !leads.Composite {
		t.Error("merged Leads should be a composite")
	}
	if leads.Value != 300 {
		t.Errorf("merged Leads value = %v, want 300", leads.Value)
	}
	// CPR is recomputed from the merged Cost, not summed.
	if leads.CPR != 10 {
		t.Errorf("merged Leads cpr = %v, want 10", leads.CPR)
	}
	// Conversion rate is not recomputable after merging; it stays zero.
	if leads.Conv != 0 {
		t.Errorf("merged Leads conv = %v, want 0", leads.Conv)
	}

	src := ch.Sources[11]
	if got := src[domain.MetricCost].Value; got != 3000 {
		t.Errorf("merged source Cost = %v, want 3000", got)
	}
	if got := src["Leads"]; got.Value != 300 || got.CPR != 10 {
		t.Errorf("merged source Leads = %+v, want value 300 cpr 10", got)
	}
}

func TestMergeSummary_SourceOnlyInPrediction(t *testing.T) {
	cust := testCustomer()

	predicted := buildCube(cust, map[int64]map[int64]map[string]float64{
		1: {
			11: {domain.MetricCost: 100},
			12: {domain.MetricCost: 200},
		},
	})
	historical := buildCube(cust, map[int64]map[int64]map[string]float64{
		1: {
			11: {domain.MetricCost: 50},
		},
	})

	out := MergeSummary(cust, predicted, historical)

	if got := out[1].Sources[11][domain.MetricCost].Value; got != 150 {
		t.Errorf("source 11 Cost = %v, want 150", got)
	}
	// No historical term for source 12.
	if got := out[1].Sources[12][domain.MetricCost].Value; got != 200 {
		t.Errorf("source 12 Cost = %v, want 200", got)
	}
	if got := out[1].Metrics[domain.MetricCost].Value; got != 350 {
		t.Errorf("channel Cost = %v, want 350", got)
	}
}

func TestMergeSummary_EmptyHistorical(t *testing.T) {
	cust := testCustomer()

	predicted := buildCube(cust, map[int64]map[int64]map[string]float64{
		1: {11: {domain.MetricCost: 100, "Leads": 10}},
	})

	out := MergeSummary(cust, predicted, make(domain.Cube))

	leads := out[1].Metrics["Leads"]
	if leads.Value != 10 || leads.CPR != 10 {
		t.Errorf("Leads = %+v, want value 10 cpr 10", leads)
	}
}
