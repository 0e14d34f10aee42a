package domain

import "sort"

// MetricValue holds one aggregated metric. Single metrics only use Value.
// Conversion metrics become composites once ratios are derived: Composite
// is set and CPR/Conv carry cost-per-result and conversion rate.
type MetricValue struct {
	Value     float64
	CPR       float64
	Conv      float64
	Composite bool
}

// MetricSet maps metric name to its aggregated value.
type MetricSet map[string]MetricValue

// ChannelData is one channel's slice of the cube: channel-level totals
// plus the per-source breakdown.
type ChannelData struct {
	Metrics MetricSet
	Sources map[int64]MetricSet
}

// Cube is the aggregation result: channel -> {metrics, sources}.
// Channel totals equal the sum of the source rows by construction; values
// are added to both levels in one step.
type Cube map[int64]*ChannelData

// NewMetricSet returns a set pre-seeded with zero values for every name,
// guaranteeing a uniform shape even when a metric has no facts.
func NewMetricSet(names []string) MetricSet {
	set := make(MetricSet, len(names))
	for _, name := range names {
		set[name] = MetricValue{}
	}
	return set
}

// Add accumulates value for metric at both the channel total and the
// source row, creating seeded containers on first touch.
func (c Cube) Add(channelID, sourceID int64, metric string, value float64, seed []string) {
	ch, ok := c[channelID]
	if !ok {
		ch = &ChannelData{
			Metrics: NewMetricSet(seed),
			Sources: make(map[int64]MetricSet),
		}
		c[channelID] = ch
	}

	src, ok := ch.Sources[sourceID]
	if !ok {
		src = NewMetricSet(seed)
		ch.Sources[sourceID] = src
	}

	mv := src[metric]
	mv.Value += value
	src[metric] = mv

	cv := ch.Metrics[metric]
	cv.Value += value
	ch.Metrics[metric] = cv
}

// ChannelIDs returns the cube's channel ids in ascending order.
func (c Cube) ChannelIDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SourceIDs returns a channel's source ids in ascending order.
func (d *ChannelData) SourceIDs() []int64 {
	ids := make([]int64, 0, len(d.Sources))
	for id := range d.Sources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
