package model

import "time"

// RunStatus represents the current state of an insight run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusCollecting RunStatus = "collecting"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// TimeRange restricts search results by recency.
type TimeRange string

const (
	TimeRangeAny   TimeRange = ""
	TimeRangeHour  TimeRange = "hour"
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// Valid reports whether r is a known range (empty means unfiltered).
func (r TimeRange) Valid() bool {
	switch r {
	case TimeRangeAny, TimeRangeHour, TimeRangeDay, TimeRangeWeek, TimeRangeMonth, TimeRangeYear:
		return true
	}
	return false
}

// RunRequest describes the work for one run.
type RunRequest struct {
	Topics    []string  `json:"topics"`
	Domain    string    `json:"domain"`
	TimeRange TimeRange `json:"time_range,omitempty"`
	Source    string    `json:"source,omitempty"` // input file name, if any
}

// Run is a persisted insight run.
type Run struct {
	ID        string         `json:"id"`
	Request   RunRequest     `json:"request"`
	Status    RunStatus      `json:"status"`
	Error     string         `json:"error,omitempty"`
	Insights  *TopicInsights `json:"insights,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
