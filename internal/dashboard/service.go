// Package dashboard composes the aggregation engine into the views the
// presentation layer consumes. HTTP routing, validation and authorization
// live outside this package.
package dashboard

import (
	"context"
	"sort"
	"time"

	"adpulse/internal/aggregate"
	"adpulse/internal/domain"
	"adpulse/internal/observability"
	"adpulse/internal/period"
	"adpulse/internal/storage"
)

// Service serves dashboard views for one customer at a time. It holds no
// per-customer state; the caller materializes the Customer per request.
type Service struct {
	agg      *aggregate.Aggregator
	facts    storage.FactStore
	channels storage.ChannelStore
	timeline storage.TimelineStore
	obs      *observability.Metrics
	clock    func() time.Time
}

// Options for creating a Service.
type Options struct {
	Facts    storage.FactStore
	Channels storage.ChannelStore
	Timeline storage.TimelineStore

	Metrics *observability.Metrics // optional
	Clock   func() time.Time       // defaults to time.Now
}

// NewService creates a dashboard service.
func NewService(opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		agg:      aggregate.New(opts.Facts),
		facts:    opts.Facts,
		channels: opts.Channels,
		timeline: opts.Timeline,
		obs:      opts.Metrics,
		clock:    clock,
	}
}

// Metrics returns the customer's metric catalog as label id -> name.
func (s *Service) Metrics(cust *domain.Customer) map[int64]string {
	out := make(map[int64]string, len(cust.Metrics))
	for _, m := range cust.Metrics {
		out[m.LabelID] = m.Name
	}
	return out
}

// ResultMetrics returns only the customer's conversion metrics as
// label id -> name.
func (s *Service) ResultMetrics(cust *domain.Customer) map[int64]string {
	out := make(map[int64]string)
	for _, m := range cust.Metrics {
		if m.Kind == domain.MetricKindConversionResult {
			out[m.LabelID] = m.Name
		}
	}
	return out
}

// Sources returns the customer's source catalog as source id -> label.
// The first label seen for a source wins.
func (s *Service) Sources(ctx context.Context, cust *domain.Customer) (map[int64]string, error) {
	refs, err := s.channels.ListSources(ctx, cust.ID)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]string)
	for _, ref := range refs {
		if !cust.HasChannel(ref.ChannelID) {
			continue
		}
		if _, ok := out[ref.SourceID]; !ok {
			out[ref.SourceID] = ref.Label
		}
	}
	return out, nil
}

// SourcesByChannel returns the catalog nested per channel:
// channel id -> source id -> label.
func (s *Service) SourcesByChannel(ctx context.Context, cust *domain.Customer) (map[int64]map[int64]string, error) {
	refs, err := s.channels.ListSources(ctx, cust.ID)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]map[int64]string)
	for _, ref := range refs {
		if !cust.HasChannel(ref.ChannelID) {
			continue
		}
		ch, ok := out[ref.ChannelID]
		if !ok {
			ch = make(map[int64]string)
			out[ref.ChannelID] = ch
		}
		if _, ok := ch[ref.SourceID]; !ok {
			ch[ref.SourceID] = ref.Label
		}
	}
	return out, nil
}

// HistoricalData aggregates actual facts within [from, to].
func (s *Service) HistoricalData(ctx context.Context, cust *domain.Customer, from, to time.Time, channelID int64) (domain.Cube, error) {
	if s.obs != nil {
		s.obs.AggregationQueries.WithLabelValues("historical").Inc()
		defer s.observeDuration(time.Now())
	}
	return s.agg.Historical(ctx, cust, from, to, channelID)
}

// PredictedData aggregates forecast facts within [from, to] with budget
// reallocation applied.
func (s *Service) PredictedData(ctx context.Context, cust *domain.Customer, from, to time.Time, budget map[int64]float64, channelID int64) (domain.Cube, error) {
	if s.obs != nil {
		s.obs.AggregationQueries.WithLabelValues("predicted").Inc()
		defer s.observeDuration(time.Now())
	}
	return s.agg.Predicted(ctx, cust, from, to, budget, channelID)
}

func (s *Service) observeDuration(start time.Time) {
	s.obs.AggregationDuration.Observe(time.Since(start).Seconds())
}

// PerformanceData aggregates actuals from the given date through the
// customer's last sync.
func (s *Service) PerformanceData(ctx context.Context, cust *domain.Customer, from time.Time) (domain.Cube, error) {
	return s.HistoricalData(ctx, cust, from, cust.LastSync, 0)
}

// ForecastData projects the metric over the period anchored at today.
func (s *Service) ForecastData(ctx context.Context, cust *domain.Customer, code string, labelID int64) (aggregate.Forecast, error) {
	if s.obs != nil {
		s.obs.ForecastsComputed.Inc()
	}
	return s.agg.Forecast(ctx, cust, code, labelID, s.clock())
}

// AdjustData is the what-if view: predicted period (optionally rescaled
// to a channel budget) merged with the historical period, reduced to
// channel-level metric maps.
type AdjustData struct {
	Data     map[int64]domain.MetricSet
	DateFrom string
	DateTo   string
}

// Adjust computes the AdjustData view. A non-zero channelID restricts the
// view to that channel and applies budgetValue as its budget override.
func (s *Service) Adjust(ctx context.Context, cust *domain.Customer, code string, channelID int64, budgetValue float64) (*AdjustData, error) {
	ref := s.clock()
	cur := period.CurrentPeriod(code, ref)
	dates := period.QueryDates(code, ref, cust.LastSync, cur.Start)

	budget := make(map[int64]float64)
	if channelID != 0 {
		budget[channelID] = budgetValue
	}

	predicted, err := s.PredictedData(ctx, cust, dates.Predicted.Start, dates.Predicted.End, budget, channelID)
	if err != nil {
		return nil, err
	}

	historical, err := s.HistoricalData(ctx, cust, dates.Historical.Start, dates.Historical.End, channelID)
	if err != nil {
		return nil, err
	}

	summary := aggregate.MergeSummary(cust, predicted, historical)

	data := make(map[int64]domain.MetricSet, len(summary))
	for chID, ch := range summary {
		data[chID] = ch.Metrics
	}

	return &AdjustData{
		Data:     data,
		DateFrom: cur.Start.Format("Jan 02 2006"),
		DateTo:   cur.End.Format("Jan 02 2006"),
	}, nil
}

// ChartRow is one (bucket, channel) point of the chart. Date is the
// bucket index into Groups; actual facts accumulate into Value and
// forecast facts into Predicted.
type ChartRow struct {
	Channel   int64
	Date      int
	Value     float64
	Predicted float64
}

// ChartData is the bucket-indexed chart series.
type ChartData struct {
	Data     []ChartRow
	Groups   []string
	Grouping period.Granularity
}

// Chart builds the chart series for one metric over the blended
// historical/predicted window. Forecast rows dated before the customer's
// last sync are stale and silently dropped.
func (s *Service) Chart(ctx context.Context, cust *domain.Customer, labelID int64, code string, from time.Time) (*ChartData, error) {
	ref := s.clock()
	dates := period.QueryDates(code, ref, cust.LastSync, from)

	grouping, label, groups := period.GroupDates(dates.Historical.Start, dates.Predicted.End)

	if grouping != period.GroupByDays {
		// Coarser buckets chart the whole current month of forecasts.
		dates.Predicted.Start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	indexes := make(map[string]int, len(groups))
	for i, g := range groups {
		indexes[g] = i
	}

	// Per bucket: channel rows in first-seen order.
	type bucket struct {
		order []int64
		rows  map[int64]*ChartRow
	}
	buckets := make(map[string]*bucket, len(groups))

	lastSync := period.Day(cust.LastSync)

	add := func(facts []*domain.MetricFact, predicted bool) {
		for _, f := range facts {
			if predicted && f.Date.Before(lastSync) {
				continue
			}

			bucketLabel := label(f.Date)
			idx, ok := indexes[bucketLabel]
			if !ok {
				// Outside the canonical bucket index (the exclusive end
				// day of the grouped range); nothing to chart it against.
				continue
			}

			b, ok := buckets[bucketLabel]
			if !ok {
				b = &bucket{rows: make(map[int64]*ChartRow)}
				buckets[bucketLabel] = b
			}

			row, ok := b.rows[f.ChannelID]
			if !ok {
				row = &ChartRow{Channel: f.ChannelID, Date: idx}
				b.rows[f.ChannelID] = row
				b.order = append(b.order, f.ChannelID)
			}

			if predicted {
				row.Predicted += f.Value
			} else {
				row.Value += f.Value
			}
		}
	}

	for _, part := range []struct {
		window    period.Window
		predicted bool
	}{
		{dates.Historical, false},
		{dates.Predicted, true},
	} {
		predicted := part.predicted
		facts, err := s.facts.Query(ctx, storage.FactQuery{
			CustomerID:   cust.ID,
			From:         part.window.Start,
			To:           part.window.End,
			Predicted:    &predicted,
			ConnectorIDs: cust.Connectors,
			ChannelIDs:   cust.Channels,
			LabelIDs:     []int64{labelID},
		})
		if err != nil {
			return nil, err
		}
		add(facts, predicted)
	}

	var rows []ChartRow
	for _, g := range groups {
		b, ok := buckets[g]
		if !ok {
			continue
		}
		for _, chID := range b.order {
			rows = append(rows, *b.rows[chID])
		}
	}

	return &ChartData{Data: rows, Groups: groups, Grouping: grouping}, nil
}

// TimelineGroups is the bucket index shared with the chart.
type TimelineGroups struct {
	Data   []string
	Format period.Granularity
}

// TimelineItem is one dated annotation, with Date rendered in the bucket
// label format.
type TimelineItem struct {
	ID          int64
	Date        string
	Description string
}

// TimelineData is the annotation feed for the charted window.
type TimelineData struct {
	Groups TimelineGroups
	Items  []TimelineItem
}

// Timeline lists the customer's annotations over the blended window,
// sorted by date descending then id ascending.
func (s *Service) Timeline(ctx context.Context, cust *domain.Customer, code string, from time.Time) (*TimelineData, error) {
	ref := s.clock()
	dates := period.QueryDates(code, ref, cust.LastSync, from)

	grouping, label, groups := period.GroupDates(dates.Historical.Start, dates.Predicted.End)

	events, err := s.timeline.ListByDateRange(ctx, cust.ID, dates.Historical.Start, dates.Predicted.End)
	if err != nil {
		return nil, err
	}

	sorted := make([]*domain.TimelineEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	items := make([]TimelineItem, 0, len(sorted))
	for _, e := range sorted {
		items = append(items, TimelineItem{
			ID:          e.ID,
			Date:        label(e.Date),
			Description: e.Description,
		})
	}

	return &TimelineData{
		Groups: TimelineGroups{Data: groups, Format: grouping},
		Items:  items,
	}, nil
}
