package aggregate

import (
	"context"
	"time"

	"adpulse/internal/domain"
)

// Predicted aggregates forecast facts within [from, to] and reallocates
// them against the trailing-average baseline: an explicit per-channel
// budget override rescales every metric proportionally, and the effective
// channel budget is distributed down to sources by cost share.
func (a *Aggregator) Predicted(ctx context.Context, cust *domain.Customer, from, to time.Time, budget map[int64]float64, channelID int64) (domain.Cube, error) {
	facts, err := a.queryFacts(ctx, cust, from, to, true, channelID)
	if err != nil {
		return nil, err
	}
	cube := sumFacts(cust, facts)

	avg, err := a.TrailingAverage(ctx, cust, channelID)
	if err != nil {
		return nil, err
	}

	allocateBudget(cust, cube, avg, budget)
	return cube, nil
}

// avgMonthlyCost is a channel's trailing-average daily Cost scaled to a
// month: the organic budget used when no override is given.
func avgMonthlyCost(avg domain.Cube, channelID int64) float64 {
	ch, ok := avg[channelID]
	if !ok {
		return 0
	}
	return ch.Metrics[domain.MetricCost].Value * monthDays
}

// allocateBudget applies budget overrides and computes the Budget metric.
func allocateBudget(cust *domain.Customer, cube, avg domain.Cube, budget map[int64]float64) {
	// Pass 1: rescale overridden channels. Channel totals are multiplied
	// once rather than re-summed from scaled sources, keeping the two
	// levels free of floating-point drift.
	for _, chID := range cube.ChannelIDs() {
		newBudget, ok := budget[chID]
		if !ok || newBudget == 0 {
			continue
		}

		coef := 1.0
		if old := avgMonthlyCost(avg, chID); old != 0 {
			coef = newBudget / old
		}

		ch := cube[chID]
		channelScaled := false
		for _, srcID := range ch.SourceIDs() {
			src := ch.Sources[srcID]
			for metric := range src {
				if !channelScaled {
					cv := ch.Metrics[metric]
					cv.Value *= coef
					ch.Metrics[metric] = cv
				}
				mv := src[metric]
				mv.Value *= coef
				src[metric] = mv
			}
			channelScaled = true
		}
	}

	// Pass 2: effective budgets and conversion composites.
	conversions := cust.ConversionNames()
	for _, chID := range cube.ChannelIDs() {
		ch := cube[chID]

		channelBudget, overridden := budget[chID]
		if !overridden {
			channelBudget = avgMonthlyCost(avg, chID)
		}
		channelCost := ch.Metrics[domain.MetricCost].Value
		ch.Metrics[domain.MetricBudget] = domain.MetricValue{Value: channelBudget}

		channelDone := false
		for _, srcID := range ch.SourceIDs() {
			src := ch.Sources[srcID]

			var sourceBudget float64
			if channelCost != 0 {
				sourceBudget = channelBudget * src[domain.MetricCost].Value / channelCost
			}
			src[domain.MetricBudget] = domain.MetricValue{Value: sourceBudget}

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
