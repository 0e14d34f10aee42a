// Command forecast runs the aggregation engine against in-memory fixture
// data and prints the dashboard views. Useful for eyeballing the forecast
// math without a database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"adpulse/internal/dashboard"
	"adpulse/internal/domain"
	"adpulse/internal/period"
	"adpulse/internal/storage/memory"
)

func main() {
	code := flag.String("period", period.CodeMonth, "Period code: month, 3-months, 6-months, 12-months, year-end")
	channelID := flag.Int64("channel", 0, "Restrict views to one channel (0 = all)")
	budget := flag.Float64("budget", 0, "Budget override for --channel in the adjust view")
	flag.Parse()

	ctx := context.Background()

	// Fixed clock for deterministic output.
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	facts := memory.NewFactStore()
	customers := memory.NewCustomerStore()
	channels := memory.NewChannelStore()
	timeline := memory.NewTimelineStore()

	cust := seedFixtures(ctx, facts, customers, channels, timeline)

	svc := dashboard.NewService(dashboard.Options{
		Facts:    facts,
		Channels: channels,
		Timeline: timeline,
		Clock:    func() time.Time { return now },
	})

	forecast, err := svc.ForecastData(ctx, cust, *code, labelCost)
	if err != nil {
		fatal("forecast", err)
	}
	printJSON("forecast (Cost)", forecast)

	adjust, err := svc.Adjust(ctx, cust, *code, *channelID, *budget)
	if err != nil {
		fatal("adjust", err)
	}
	printJSON("adjust", adjust)

	chart, err := svc.Chart(ctx, cust, labelCost, *code, time.Time{})
	if err != nil {
		fatal("chart", err)
	}
	printJSON("chart (Cost)", chart)

	tl, err := svc.Timeline(ctx, cust, *code, time.Time{})
	if err != nil {
		fatal("timeline", err)
	}
	printJSON("timeline", tl)
}

const (
	labelCost     = int64(1)
	labelClicks   = int64(2)
	labelSessions = int64(3)
	labelLeads    = int64(10)
)

// seedFixtures loads one demo customer: two channels, daily actuals
// through last sync and forecasts beyond it.
func seedFixtures(
	ctx context.Context,
	facts *memory.FactStore,
	customers *memory.CustomerStore,
	channels *memory.ChannelStore,
	timeline *memory.TimelineStore,
) *domain.Customer {
	lastSync := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	cust := &domain.Customer{
		ID:         1,
		Name:       "Demo Co",
		LastSync:   lastSync,
		Connectors: []int64{1},
		Channels:   []int64{1, 2},
		Metrics: []domain.MetricDefinition{
			{LabelID: labelCost, Name: domain.MetricCost, Kind: domain.MetricKindSingle},
			{LabelID: labelClicks, Name: domain.MetricClicks, Kind: domain.MetricKindSingle},
			{LabelID: labelSessions, Name: domain.MetricSessions, Kind: domain.MetricKindSingle},
			{LabelID: labelLeads, Name: "Leads", Kind: domain.MetricKindConversionResult},
		},
	}
	if err := customers.Insert(ctx, cust); err != nil {
		fatal("seed customer", err)
	}

	for _, ref := range []domain.SourceRef{
		{ChannelID: 1, SourceID: 11, Label: "search"},
		{ChannelID: 1, SourceID: 12, Label: "display"},
		{ChannelID: 2, SourceID: 21, Label: "social"},
	} {
		if err := channels.Insert(ctx, cust.ID, ref); err != nil {
			fatal("seed sources", err)
		}
	}

	var batch []*domain.MetricFact
	add := func(day time.Time, channel, source, label int64, value float64, predicted bool) {
		batch = append(batch, &domain.MetricFact{
			CustomerID:  cust.ID,
			ConnectorID: 1,
			ChannelID:   channel,
			SourceID:    source,
			LabelID:     label,
			Date:        day,
			Value:       value,
			Predicted:   predicted,
		})
	}

	// Actuals: February 1 through last sync.
	for d := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC); !d.After(lastSync); d = d.AddDate(0, 0, 1) {
		add(d, 1, 11, labelCost, 100, false)
		add(d, 1, 11, labelClicks, 40, false)
		add(d, 1, 11, labelSessions, 55, false)
		add(d, 1, 11, labelLeads, 4, false)
		add(d, 2, 21, labelCost, 60, false)
		add(d, 2, 21, labelClicks, 25, false)
		add(d, 2, 21, labelSessions, 30, false)
		add(d, 2, 21, labelLeads, 2, false)
	}

	// Forecasts: day after last sync through end of April.
	end := time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)
	for d := lastSync.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		add(d, 1, 11, labelCost, 110, true)
		add(d, 1, 11, labelClicks, 44, true)
		add(d, 1, 11, labelLeads, 5, true)
		add(d, 2, 21, labelCost, 65, true)
		add(d, 2, 21, labelClicks, 27, true)
		add(d, 2, 21, labelLeads, 2, true)
	}

	if err := facts.Append(ctx, batch); err != nil {
		fatal("seed facts", err)
	}

	events := []*domain.TimelineEvent{
		{CustomerID: cust.ID, Date: time.Date(2024, time.February, 14, 0, 0, 0, 0, time.UTC), Description: "Spring campaign launched"},
		{CustomerID: cust.ID, Date: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Description: "Search bids raised 10%"},
	}
	if err := timeline.Append(ctx, events); err != nil {
		fatal("seed timeline", err)
	}

	return cust
}

func printJSON(title string, v interface{}) {
	fmt.Printf("== %s ==\n", title)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("marshal output", err)
	}
	fmt.Println(string(data))
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", what, err)
	os.Exit(1)
}
