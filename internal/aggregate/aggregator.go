// Package aggregate rolls raw metric facts up into the
// channel -> source -> metric cube consumed by the dashboard, and derives
// the budget, forecast and summary views on top of it.
package aggregate

import (
	"context"
	"time"

	"adpulse/internal/domain"
	"adpulse/internal/period"
	"adpulse/internal/storage"
)

const (
	// trailingDays is the length of the organic-baseline window ending at
	// the customer's last sync.
	trailingDays = 7

	// monthDays scales the trailing daily average up to a monthly budget.
	monthDays = 30
)

// Aggregator sums metric facts into cubes. All reads are snapshots; the
// aggregator holds no state between calls.
type Aggregator struct {
	facts storage.FactStore
}

// New creates an Aggregator over the given fact store.
func New(facts storage.FactStore) *Aggregator {
	return &Aggregator{facts: facts}
}

// queryFacts loads active facts for the customer's connectors and
// channels (or a single requested channel) within [from, to].
func (a *Aggregator) queryFacts(ctx context.Context, cust *domain.Customer, from, to time.Time, predicted bool, channelID int64) ([]*domain.MetricFact, error) {
	channels := cust.Channels
	if channelID != 0 {
		channels = []int64{channelID}
	}

	return a.facts.Query(ctx, storage.FactQuery{
		CustomerID:   cust.ID,
		From:         period.Day(from),
		To:           period.Day(to),
		Predicted:    &predicted,
		ConnectorIDs: cust.Connectors,
		ChannelIDs:   channels,
		LabelIDs:     cust.LabelIDs(),
	})
}

// sumFacts builds a cube from raw facts. Every metric of the customer's
// catalog is pre-seeded to zero for each channel and source touched, so
// the cube shape is uniform regardless of which metrics have facts.
// Facts whose label is outside the catalog are skipped.
func sumFacts(cust *domain.Customer, facts []*domain.MetricFact) domain.Cube {
	seed := cust.MetricNames()
	cube := make(domain.Cube)
	for _, f := range facts {
		name, ok := cust.MetricName(f.LabelID)
		if !ok {
			continue
		}
		cube.Add(f.ChannelID, f.SourceID, name, f.Value, seed)
	}
	return cube
}

// composite derives the {value, cpr, conv} composite for a conversion
// metric from a metric set's totals. cpr = Cost / value, conv = value /
// Clicks * 100. Zero denominators degrade to 0, never an error.
func composite(set domain.MetricSet, metric string) domain.MetricValue {
	v := set[metric].Value

	var cpr float64
	if v != 0 {
		cpr = set[domain.MetricCost].Value / v
	}

	var conv float64
	if clicks := set[domain.MetricClicks].Value; clicks != 0 {
		conv = v / clicks * 100
	}

	return domain.MetricValue{Value: v, CPR: cpr, Conv: conv, Composite: true}
}

// deriveConversions computes composites for every conversion metric.
// Channel-level ratios are computed once per channel, on the first source
// visited, and shared across that channel's source rows.
func deriveConversions(cust *domain.Customer, cube domain.Cube) {
	conversions := cust.ConversionNames()
	for _, chID := range cube.ChannelIDs() {
		ch := cube[chID]
		channelDone := false
		for _, srcID := range ch.SourceIDs() {
			src := ch.Sources[srcID]
			for _, metric := range conversions {
				if !channelDone {
					ch.Metrics[metric] = composite(ch.Metrics, metric)
				}
				src[metric] = composite(src, metric)
			}
			channelDone = true
		}
	}
}

// Historical aggregates actual (non-predicted) facts within [from, to]
// into a cube with derived conversion composites. channelID of 0 means
// all of the customer's channels.
func (a *Aggregator) Historical(ctx context.Context, cust *domain.Customer, from, to time.Time, channelID int64) (domain.Cube, error) {
	facts, err := a.queryFacts(ctx, cust, from, to, false, channelID)
	if err != nil {
		return nil, err
	}

	cube := sumFacts(cust, facts)
	deriveConversions(cust, cube)
	return cube, nil
}

// TrailingAverage aggregates the 7 days of actuals ending at the
// customer's last sync and divides every value by 7. It is the organic
// baseline for budget scaling. Conversion ratios here use Sessions as
// the conversion-rate denominator, without the percent scaling of the
// historical and predicted views.
func (a *Aggregator) TrailingAverage(ctx context.Context, cust *domain.Customer, channelID int64) (domain.Cube, error) {
	to := period.Day(cust.LastSync)
	from := to.AddDate(0, 0, -(trailingDays - 1))

	facts, err := a.queryFacts(ctx, cust, from, to, false, channelID)
	if err != nil {
		return nil, err
	}

	cube := sumFacts(cust, facts)

	conversions := cust.ConversionNames()
	singles := cust.SingleNames()

	for _, chID := range cube.ChannelIDs() {
		ch := cube[chID]
		channelDone := false
		for _, srcID := range ch.SourceIDs() {
			src := ch.Sources[srcID]

			// Ratios first, from the raw 7-day sums; then the averaging.
			for _, metric := range conversions {
				if !channelDone {
					ch.Metrics[metric] = averageComposite(ch.Metrics, metric)
				}
				src[metric] = averageComposite(src, metric)
			}

			for _, metric := range singles {
				mv := src[metric]
				mv.Value /= trailingDays
				src[metric] = mv

				if !channelDone {
					cv := ch.Metrics[metric]
					cv.Value /= trailingDays
					ch.Metrics[metric] = cv
				}
			}
			channelDone = true
		}
	}

	return cube, nil
}

// averageComposite is the trailing-average variant of composite: conv
// uses Sessions and stays a plain ratio, and the value is averaged over
// the window.
func averageComposite(set domain.MetricSet, metric string) domain.MetricValue {
	v := set[metric].Value

	var cpr float64
	if v != 0 {
		cpr = set[domain.MetricCost].Value / v
	}

	var conv float64
	if sessions := set[domain.MetricSessions].Value; sessions != 0 {
		conv = v / sessions
	}

	return domain.MetricValue{Value: v / trailingDays, CPR: cpr, Conv: conv, Composite: true}
}
