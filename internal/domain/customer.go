package domain

import "time"

// Customer carries the configuration state aggregation depends on:
// active connectors, active channels, the customer's metric catalog and
// the date boundary separating actual from predicted facts. The struct is
// materialized once per request by the caller; there is no process-wide
// memoized lookup behind it.
type Customer struct {
	ID       int64
	Name     string
	LastSync time.Time

	Connectors []int64
	Channels   []int64
	Metrics    []MetricDefinition
}

// LabelIDs returns every metric label id configured for the customer.
func (c *Customer) LabelIDs() []int64 {
	ids := make([]int64, 0, len(c.Metrics))
	for _, m := range c.Metrics {
		ids = append(ids, m.LabelID)
	}
	return ids
}

// MetricNames returns metric names in catalog order: singles first, then
// conversion results. Aggregation relies on this ordering when deriving
// ratios that read the Cost total.
func (c *Customer) MetricNames() []string {
	names := make([]string, 0, len(c.Metrics))
	for _, m := range c.Metrics {
		if m.Kind == MetricKindSingle {
			names = append(names, m.Name)
		}
	}
	for _, m := range c.Metrics {
		if m.Kind == MetricKindConversionResult {
			names = append(names, m.Name)
		}
	}
	return names
}

// ConversionNames returns the names of the customer's conversion metrics.
func (c *Customer) ConversionNames() []string {
	var names []string
	for _, m := range c.Metrics {
		if m.Kind == MetricKindConversionResult {
			names = append(names, m.Name)
		}
	}
	return names
}

// SingleNames returns the names of the customer's plain-sum metrics.
func (c *Customer) SingleNames() []string {
	var names []string
	for _, m := range c.Metrics {
		if m.Kind == MetricKindSingle {
			names = append(names, m.Name)
		}
	}
	return names
}

// IsConversion reports whether the named metric aggregates as a
// {value, cpr, conv} composite for this customer.
func (c *Customer) IsConversion(name string) bool {
	for _, m := range c.Metrics {
		if m.Name == name {
			return m.Kind == MetricKindConversionResult
		}
	}
	return false
}

// MetricName resolves a label id to its metric name. The second return is
// false when the label is not part of the customer's catalog.
func (c *Customer) MetricName(labelID int64) (string, bool) {
	for _, m := range c.Metrics {
		if m.LabelID == labelID {
			return m.Name, true
		}
	}
	return "", false
}

// HasChannel reports whether the channel is active for the customer.
func (c *Customer) HasChannel(channelID int64) bool {
	for _, id := range c.Channels {
		if id == channelID {
			return true
		}
	}
	return false
}
