package domain

import "testing"

func TestCube_AddAccumulatesBothLevels(t *testing.T) {
	seed := []string{MetricCost, MetricClicks}
	cube := make(Cube)

	cube.Add(1, 11, MetricCost, 100, seed)
	cube.Add(1, 12, MetricCost, 50, seed)
	cube.Add(1, 11, MetricCost, 25, seed)

	ch := cube[1]
	if ch == nil {
		t.Fatal("channel 1 missing")
	}
	if got := ch.Metrics[MetricCost].Value; got != 175 {
		t.Errorf("channel Cost = %v, want 175", got)
	}
	if got := ch.Sources[11][MetricCost].Value; got != 125 {
		t.Errorf("source 11 Cost = %v, want 125", got)
	}
	if got := ch.Sources[12][MetricCost].Value; got != 50 {
		t.Errorf("source 12 Cost = %v, want 50", got)
	}

	// Seeded metrics exist with zero values even without facts.
	if _, ok := ch.Metrics[MetricClicks]; !ok {
		t.Error("channel Clicks not seeded")
	}
	if _, ok := ch.Sources[11][MetricClicks]; !ok {
		t.Error("source Clicks not seeded")
	}
}

func TestCube_IDsSorted(t *testing.T) {
	seed := []string{MetricCost}
	cube := make(Cube)
	cube.Add(3, 31, MetricCost, 1, seed)
	cube.Add(1, 12, MetricCost, 1, seed)
	cube.Add(1, 11, MetricCost, 1, seed)
	cube.Add(2, 21, MetricCost, 1, seed)

	chIDs := cube.ChannelIDs()
	if len(chIDs) != 3 || chIDs[0] != 1 || chIDs[1] != 2 || chIDs[2] != 3 {
		t.Errorf("ChannelIDs() = %v, want [1 2 3]", chIDs)
	}

	srcIDs := cube[1].SourceIDs()
	if len(srcIDs) != 2 || srcIDs[0] != 11 || srcIDs[1] != 12 {
		t.Errorf("SourceIDs() = %v, want [11 12]", srcIDs)
	}
}

func TestCustomer_MetricNamesOrder(t *testing.T) {
	c := &Customer{Metrics: []MetricDefinition{
		{LabelID: 10, Name: "Leads", Kind: MetricKindConversionResult},
		{LabelID: 1, Name: MetricCost, Kind: MetricKindSingle},
		{LabelID: 2, Name: MetricClicks, Kind: MetricKindSingle},
	}}

	names := c.MetricNames()
	want := []string{MetricCost, MetricClicks, "Leads"}
	if len(names) != len(want) {
		t.Fatalf("MetricNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("MetricNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if !c.IsConversion("Leads") {
		t.Error("Leads should be a conversion")
	}
	if c.IsConversion(MetricCost) {
		t.Error("Cost should not be a conversion")
	}

	name, ok := c.MetricName(10)
	if !ok || name != "Leads" {
		t.Errorf("MetricName(10) = %q, %v", name, ok)
	}
	if _, ok := c.MetricName(999); ok {
		t.Error("MetricName(999) should not resolve")
	}
}
