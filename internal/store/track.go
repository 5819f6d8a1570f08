package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Track records fn as a run of stage. A nil store runs fn untracked. Failures
// to write run history are logged and never replace fn's result.
func Track[T any](ctx context.Context, st Store, stage model.Stage, params any, fn func(context.Context) (T, error)) (T, string, error) {
	if st == nil {
		out, err := fn(ctx)
		return out, "", err
	}

	log := zap.L().With(zap.String("stage", string(stage)))

	run, err := st.CreateRun(ctx, stage, params)
	if err != nil {
		log.Warn("store: create run failed", zap.Error(err))
		out, err := fn(ctx)
		return out, "", err
	}

	out, fnErr := fn(ctx)

	// Record the outcome even when ctx was cancelled mid-batch.
	recCtx := context.WithoutCancel(ctx)
	if fnErr != nil {
		if err := st.FailRun(recCtx, run.ID, out, fnErr); err != nil {
			log.Warn("store: fail run", zap.String("run_id", run.ID), zap.Error(err))
		}
		return out, run.ID, fnErr
	}
	if err := st.CompleteRun(recCtx, run.ID, out); err != nil {
		log.Warn("store: complete run", zap.String("run_id", run.ID), zap.Error(err))
	}
	return out, run.ID, nil
}
