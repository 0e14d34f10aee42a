package domain

import (
	"errors"
	"fmt"
	"time"
)

// Master task types.
const (
	TaskTypeImport               = 1
	TaskTypeUpdate               = 2
	TaskTypeDelete               = 3
	TaskTypeFuturePrediction     = 4
	TaskTypeHistoricalPrediction = 5
)

// Task priorities. Lower numeric value is more urgent.
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// Master task statuses.
const (
	TaskStatusNew      = 1
	TaskStatusSplit    = 2
	TaskStatusProgress = 3
	TaskStatusFail     = 4
	TaskStatusCanceled = 5
)

// Child task statuses.
const (
	ChildStatusNew  = 1
	ChildStatusDone = 2
	ChildStatusFail = 3
)

// KeepCanceledTime is how long canceled masters are retained before the
// runner reclaims them.
const KeepCanceledTime = 60 * time.Minute

// Lookup errors for unknown codes. Unknown codes are always surfaced,
// never silently defaulted.
var (
	ErrUnknownType     = errors.New("unknown task type")
	ErrUnknownStatus   = errors.New("unknown task status")
	ErrUnknownPriority = errors.New("unknown task priority")
)

var taskTypeNames = map[int]string{
	TaskTypeImport:               "Import",
	TaskTypeUpdate:               "Update",
	TaskTypeDelete:               "Delete",
	TaskTypeFuturePrediction:     "Future",
	TaskTypeHistoricalPrediction: "Historical",
}

var taskStatusNames = map[int]string{
	TaskStatusNew:      "New",
	TaskStatusSplit:    "Prepared",
	TaskStatusProgress: "Processing",
	TaskStatusFail:     "Fail",
	TaskStatusCanceled: "Canceled",
}

var taskPriorityNames = map[int]string{
	PriorityHigh:   "High",
	PriorityMedium: "Medium",
	PriorityLow:    "Low",
}

// TaskTypeName translates a type code to its display name.
func TaskTypeName(code int) (string, error) {
	name, ok := taskTypeNames[code]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownType, code)
	}
	return name, nil
}

// TaskStatusName translates a status code to its display name.
func TaskStatusName(code int) (string, error) {
	name, ok := taskStatusNames[code]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownStatus, code)
	}
	return name, nil
}

// TaskPriorityName translates a priority code to its display name.
func TaskPriorityName(code int) (string, error) {
	name, ok := taskPriorityNames[code]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownPriority, code)
	}
	return name, nil
}

// MasterTask is a coarse job request over a date range. The scheduler
// splits it into day-granular child tasks (or per-pair prediction
// children) which external workers consume.
// Corresponds to task_masters table.
type MasterTask struct {
	ID          string // UUID
	CustomerID  int64
	ConnectorID int64
	DateFrom    time.Time
	DateTo      time.Time
	Type        int
	Priority    int
	Status      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsPrediction reports whether the master is split per (channel, source)
// pair rather than per calendar day.
func (m *MasterTask) IsPrediction() bool {
	return m.Type == TaskTypeFuturePrediction || m.Type == TaskTypeHistoricalPrediction
}

// ChildTask is one calendar day of a non-prediction master. Workers
// delete the row on completion; remaining rows drive progress.
// Corresponds to task_children table.
type ChildTask struct {
	ID       string // UUID
	MasterID string
	Date     time.Time
	Status   int
}

// PredictionChild is one (channel, source) unit of a prediction master.
// Corresponds to prediction_children table.
type PredictionChild struct {
	ID        string // UUID
	MasterID  string
	ChannelID int64
	SourceID  int64
	Status    int
}
