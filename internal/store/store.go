// Package store persists insight runs.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-insights/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Domain string          `json:"domain,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// limit returns the page size, defaulting to 100.
func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// Store defines the persistence interface for insight runs.
type Store interface {
	CreateRun(ctx context.Context, req model.RunRequest) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, insights *model.TopicInsights) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

const selectRun = `SELECT id, request, status, error, insights, created_at, updated_at FROM runs`

// listQuery renders the filtered, newest-first page query. bind returns the
// placeholder for the n-th argument (1-based).
func listQuery(f RunFilter, bind func(n int) string) (string, []any) {
	var b strings.Builder
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		b.WriteString(clause)
		b.WriteString(bind(len(args)))
	}

	b.WriteString(selectRun + " WHERE true")
	if f.Status != "" {
		add(" AND status = ", string(f.Status))
	}
	if f.Domain != "" {
		add(" AND domain = ", f.Domain)
	}
	add(" ORDER BY created_at DESC LIMIT ", f.limit())
	if f.Offset > 0 {
		add(" OFFSET ", f.Offset)
	}
	return b.String(), args
}

// newRun builds a queued run for req along with its encoded request.
func newRun(req model.RunRequest) (*model.Run, []byte, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, nil, eris.Wrap(err, "marshal request")
	}
	now := time.Now().UTC()
	return &model.Run{
		ID:        uuid.New().String(),
		Request:   req,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, reqJSON, nil
}

// decodeRun fills the JSON-backed fields of r.
func decodeRun(r *model.Run, reqJSON []byte, errMsg string, insightsJSON []byte) error {
	if err := json.Unmarshal(reqJSON, &r.Request); err != nil {
		return eris.Wrap(err, "unmarshal request")
	}
	r.Error = errMsg
	if len(insightsJSON) == 0 {
		return nil
	}
	r.Insights = model.NewTopicInsights()
	return eris.Wrap(json.Unmarshal(insightsJSON, r.Insights), "unmarshal insights")
}

func notFound(runID string) error {
	return eris.Wrapf(ErrNotFound, "run %s", runID)
}
