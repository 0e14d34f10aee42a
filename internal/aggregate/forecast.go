package aggregate

import (
	"context"
	"math"
	"time"

	"adpulse/internal/domain"
	"adpulse/internal/period"
	"adpulse/internal/storage"
)

// Forecast is a period projection for one metric. Diff is the percent
// change against the previous period's actuals; Confidence measures how
// well the previous period's forecast matched its own actuals.
type Forecast struct {
	Prediction float64
	Diff       float64
	Confidence float64
}

// Forecast projects the metric over the current period. Without a
// historical baseline (previous period actuals summing to zero) the
// forecast is undefined and the zero triple is returned; that is a
// defined degenerate result, not an error.
func (a *Aggregator) Forecast(ctx context.Context, cust *domain.Customer, code string, labelID int64, ref time.Time) (Forecast, error) {
	var f Forecast
	if len(cust.Channels) == 0 {
		return f, nil
	}

	prev := period.PreviousPeriod(code, ref)

	prevFacts, err := a.facts.Query(ctx, storage.FactQuery{
		CustomerID:   cust.ID,
		From:         prev.Start,
		To:           prev.End,
		ConnectorIDs: cust.Connectors,
		ChannelIDs:   cust.Channels,
		LabelIDs:     []int64{labelID},
	})
	if err != nil {
		return f, err
	}

	var prevValue, prevPrediction float64
	for _, fact := range prevFacts {
		if fact.Predicted {
			prevPrediction += fact.Value
		} else {
			prevValue += fact.Value
		}
	}

	if prevValue == 0 {
		return f, nil
	}

	// Blend the current query window: actuals through last sync plus
	// predictions after it.
	cur := period.CurrentPeriod(code, ref)
	dates := period.QueryDates(code, ref, cust.LastSync, cur.Start)

	for _, part := range []struct {
		window    period.Window
		predicted bool
	}{
		{dates.Historical, false},
		{dates.Predicted, true},
	} {
		predicted := part.predicted
		facts, err := a.facts.Query(ctx, storage.FactQuery{
			CustomerID:   cust.ID,
			From:         part.window.Start,
			To:           part.window.End,
			Predicted:    &predicted,
			ConnectorIDs: cust.Connectors,
			ChannelIDs:   cust.Channels,
			LabelIDs:     []int64{labelID},
		})
		if err != nil {
			return Forecast{}, err
		}
		for _, fact := range facts {
			f.Prediction += fact.Value
		}
	}

	f.Diff = math.Round((f.Prediction - prevValue) / prevValue * 100)
	f.Confidence = math.Max(0, 100-math.Round(math.Abs(prevPrediction-prevValue)/prevValue*100))

	return f, nil
}
