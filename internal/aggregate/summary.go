package aggregate

import (
	"sort"

	"adpulse/internal/domain"
)

// MergeSummary adds the predicted-period and historical-period cubes into
// one summary cube. Only the value component of conversion composites is
// summed; cpr is recomputed from the merged value and the already merged
// Cost total. Metrics absent on the historical side default to their zero
// shape. The predicted cube drives iteration, so channels present only in
// the historical cube do not appear in the summary.
func MergeSummary(cust *domain.Customer, predicted, historical domain.Cube) domain.Cube {
	names := cust.MetricNames()
	out := make(domain.Cube)

	for _, chID := range predicted.ChannelIDs() {
		pch := predicted[chID]
		ch := &domain.ChannelData{
			Metrics: domain.NewMetricSet(names),
			Sources: make(map[int64]domain.MetricSet),
		}
		out[chID] = ch

		hch := historical[chID]

		channelDone := false
		for _, srcID := range pch.SourceIDs() {
			psrc := pch.Sources[srcID]
			src := domain.NewMetricSet(names)
			ch.Sources[srcID] = src

			for _, metric := range mergeOrder(cust, psrc) {
				predSource := psrc[metric]
				predChannel := pch.Metrics[metric]

				// Historical terms default to the metric's zero shape.
				var histChannel, histSource domain.MetricValue
				if hch != nil {
					if v, ok := hch.Metrics[metric]; ok {
						histChannel = v
						if hsrc, ok := hch.Sources[srcID]; ok {
							histSource = hsrc[metric]
						}
					}
				}

				if cust.IsConversion(metric) {
					if !channelDone {
						cv := ch.Metrics[metric]
						cv.Composite = true
						cv.Value += predChannel.Value + histChannel.Value
						if cv.Value != 0 {
							cv.CPR = ch.Metrics[domain.MetricCost].Value / cv.Value
						}
						ch.Metrics[metric] = cv
					}

					sv := src[metric]
					sv.Composite = true
					sv.Value += predSource.Value + histSource.Value
					if sv.Value != 0 {
						sv.CPR = src[domain.MetricCost].Value / sv.Value
					}
					src[metric] = sv
				} else {
					if !channelDone {
						cv := ch.Metrics[metric]
						cv.Value += predChannel.Value + histChannel.Value
						ch.Metrics[metric] = cv
					}

					// Computed metrics like Budget are not part of the
					// seeded catalog; the zero-value read creates them.
					sv := src[metric]
					sv.Value += predSource.Value + histSource.Value
					src[metric] = sv
				}
			}
			channelDone = true
		}
	}

	return out
}

// mergeOrder fixes the metric iteration order: catalog metrics first
// (singles before conversions, so Cost is merged before any cpr is
// recomputed from it), then extra computed metrics such as Budget.
func mergeOrder(cust *domain.Customer, set domain.MetricSet) []string {
	names := cust.MetricNames()
	inCatalog := make(map[string]struct{}, len(names))

	order := make([]string, 0, len(set))
	for _, name := range names {
		inCatalog[name] = struct{}{}
		if _, ok := set[name]; ok {
			order = append(order, name)
		}
	}

	var extras []string
	for name := range set {
		if _, ok := inCatalog[name]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)

	return append(order, extras...)
}
