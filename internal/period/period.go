// Package period computes calendar period boundaries and query windows
// for the dashboard's forecast horizon.
package period

import "time"

// Period codes accepted by the calculators. Unknown codes fall back to a
// single month.
const (
	CodeMonth    = "month"
	Code3Months  = "3-months"
	Code6Months  = "6-months"
	Code12Months = "12-months"
	CodeYearEnd  = "year-end"
)

// Window is an inclusive date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days in the window.
func (w Window) Days() int {
	return daysBetween(w.Start, w.End) + 1
}

// QueryWindows splits a period into the historical window (actual facts,
// through the customer's last sync) and the predicted window (forecast
// facts, from the day after last sync).
type QueryWindows struct {
	Historical Window
	Predicted  Window
}

// Day truncates t to midnight UTC. All period arithmetic operates on
// whole days.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)) / (24 * time.Hour))
}

// CurrentPeriod computes the period window containing ref. The start is
// the first day of ref's month (January 1 for year-end). Multi-month
// codes extend one extra month when ref's day-of-month is past the 15th,
// keeping a rolling window centered on today.
func CurrentPeriod(code string, ref time.Time) Window {
	ref = Day(ref)
	day := ref.Day()

	var start time.Time
	if code == CodeYearEnd {
		start = time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	} else {
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	count := 1
	years := false

	switch code {
	case Code3Months:
		count = 3
		if day > 15 {
			count = 4
		}
	case Code6Months:
		count = 6
		if day > 15 {
			count = 7
		}
	case Code12Months:
		// The original adds the month count on top of the base month,
		// spanning 13 (or 14) calendar months. Preserved as-is.
		count += 12
		if day > 15 {
			count++
		}
	case CodeYearEnd:
		years = true
	}

	var end time.Time
	if years {
		end = start.AddDate(count, 0, 0)
	} else {
		end = start.AddDate(0, count, 0)
	}
	end = end.AddDate(0, 0, -1)

	return Window{Start: start, End: end}
}

// PreviousPeriod shifts the current period backward by its own length in
// days: an equal-length immediately preceding window, not a
// calendar-aligned one.
func PreviousPeriod(code string, ref time.Time) Window {
	cur := CurrentPeriod(code, ref)
	days := cur.Days()
	return Window{
		Start: cur.Start.AddDate(0, 0, -days),
		End:   cur.End.AddDate(0, 0, -days),
	}
}

// QueryDates computes the historical/predicted window pair for a period.
// The historical window is the previous period with its end pinned to
// lastSync; the predicted window is the current period starting the day
// after lastSync. A non-zero from overrides the historical start.
func QueryDates(code string, ref, lastSync time.Time, from time.Time) QueryWindows {
	predicted := CurrentPeriod(code, ref)
	historical := PreviousPeriod(code, ref)

	if !from.IsZero() {
		historical.Start = Day(from)
	}
	historical.End = Day(lastSync)
	predicted.Start = Day(lastSync).AddDate(0, 0, 1)

	return QueryWindows{Historical: historical, Predicted: predicted}
}
