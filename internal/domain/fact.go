package domain

import "time"

// Fact status constants. Facts are append-only; soft deletes flip the
// status to inactive instead of removing the row.
const (
	FactStatusActive   = 1
	FactStatusInactive = 2
)

// Standard metric names shared by every customer. Conversion metrics are
// customer-configured on top of these.
const (
	MetricCost     = "Cost"
	MetricClicks   = "Clicks"
	MetricSessions = "Sessions"
	MetricBudget   = "Budget"
)

// MetricFact is a single per-customer, per-channel, per-source daily
// observation. Predicted facts carry forecast values for dates past the
// customer's last sync; actual facts carry observed values.
// Corresponds to metric_facts table.
type MetricFact struct {
	ID          int64
	CustomerID  int64
	ConnectorID int64
	ChannelID   int64
	SourceID    int64 // rule-level subdivision of the channel
	LabelID     int64 // FK to metric_labels
	Date        time.Time
	Value       float64
	Predicted   bool
	Status      int
}

// MetricKind distinguishes plain-sum metrics from conversion composites.
type MetricKind int

const (
	MetricKindSingle MetricKind = iota + 1
	MetricKindConversionResult
)

// MetricDefinition names a measured quantity and how it aggregates.
// Corresponds to metric_labels table.
type MetricDefinition struct {
	LabelID int64
	Name    string
	Kind    MetricKind
}

// ChannelSource is a distinct (channel, source) pair observed in a
// customer's data. Prediction child tasks are keyed by these pairs.
type ChannelSource struct {
	ChannelID int64
	SourceID  int64
}

// SourceRef describes one source row of the channel/source catalog.
type SourceRef struct {
	ChannelID int64
	SourceID  int64
	Label     string
}

// TimelineEvent is a dated annotation shown alongside charts.
// Corresponds to timeline_events table.
type TimelineEvent struct {
	ID          int64
	CustomerID  int64
	Date        time.Time
	Description string
}
