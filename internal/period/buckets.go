package period

import (
	"fmt"
	"time"
)

// Granularity of chart/timeline grouping.
type Granularity string

const (
	GroupByDays   Granularity = "days"
	GroupByWeeks  Granularity = "weeks"
	GroupByMonths Granularity = "months"
)

// Labeler formats a date into its bucket label.
type Labeler func(time.Time) string

func dayLabel(t time.Time) string {
	return t.Format("02 Jan 2006")
}

func weekLabel(t time.Time) string {
	_, week := t.ISOWeek()
	return fmt.Sprintf("%d week %d", week, t.Year())
}

func monthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}

// GroupDates partitions [from, to) into buckets. Up to 30 days groups by
// day; up to 15 whole weeks groups by ISO week; anything longer groups by
// month. The returned labels are deduplicated in first-seen order and
// serve as the canonical bucket index for chart and timeline rendering.
func GroupDates(from, to time.Time) (Granularity, Labeler, []string) {
	from, to = Day(from), Day(to)
	days := daysBetween(from, to)
	if days < 0 {
		days = -days
	}
	weeks := days / 7

	var grouping Granularity
	var label Labeler

	switch {
	case days <= 30:
		grouping = GroupByDays
		label = dayLabel
	case weeks <= 15:
		grouping = GroupByWeeks
		label = weekLabel
	default:
		grouping = GroupByMonths
		label = monthLabel
	}

	var labels []string
	seen := make(map[string]struct{})
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		l := label(d)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		labels = append(labels, l)
	}

	return grouping, label, labels
}
