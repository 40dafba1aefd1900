package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/model"
)

// Tracker records the lifecycle of a persisted run.
type Tracker interface {
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, insights *model.TopicInsights) error
	FailRun(ctx context.Context, runID string, reason string) error
}

// RunTracked executes req and mirrors its progress into tracker under runID.
// Stage changes are written once each; a failed run is recorded with the
// error text before the error is returned. Tracker write failures are logged
// and do not stop the run.
func (p *Pipeline) RunTracked(ctx context.Context, tracker Tracker, runID string, req model.RunRequest, progress ProgressFunc) (*model.TopicInsights, error) {
	log := zap.L().With(zap.String("run_id", runID))

	// Writes must land even when ctx was cancelled mid-run.
	storeCtx := context.WithoutCancel(ctx)

	var stage model.RunStatus
	insights, err := p.Run(ctx, req, func(s model.RunStatus, done, total int) {
		if s != stage {
			stage = s
			if uerr := tracker.UpdateRunStatus(storeCtx, runID, s); uerr != nil {
				log.Warn("pipeline: record run status", zap.String("status", string(s)), zap.Error(uerr))
			}
		}
		if progress != nil {
			progress(s, done, total)
		}
	})
	if err != nil {
		if ferr := tracker.FailRun(storeCtx, runID, err.Error()); ferr != nil {
			log.Warn("pipeline: record run failure", zap.Error(ferr))
		}
		return nil, err
	}
	if cerr := tracker.CompleteRun(storeCtx, runID, insights); cerr != nil {
		log.Warn("pipeline: record run completion", zap.Error(cerr))
	}
	return insights, nil
}
