package erpsync

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// EntityFunc processes one entity of a fan-out.
type EntityFunc func(ctx context.Context, id string) error

// FanOutOptions configures FanOut.
type FanOutOptions struct {
	// Concurrency is the group size; values below one are treated as one.
	Concurrency int
	// Abort reports whether an entity error must stop the whole run rather
	// than be recorded as a failure of that entity. Defaults to
	// AbortOnStoreFailure.
	Abort  func(error) bool
	Logger *zap.Logger
}

// FanOutReport summarizes a fan-out.
type FanOutReport struct {
	Requested int
	Processed int
	Failed    int
	// Failures maps entity id to its error message.
	Failures map[string]string
}

// AbortOnStoreFailure stops a fan-out on persistence errors and on
// cancellation. Remote and data errors stay isolated to their entity.
func AbortOnStoreFailure(err error) bool {
	switch erpsync.KindOf(err) {
	case erpsync.KindPersistence, erpsync.KindCanceled:
		return true
	}
	return false
}

// FanOut calls fn once per id. Ids are split into groups of at most
// Concurrency; the calls of a group run concurrently and all of them
// settle before the next group starts, so one entity's failure never
// cancels its siblings. Failed entities are recorded and skipped with no
// retry. The returned error is non-nil only when the run was aborted.
func FanOut(ctx context.Context, ids []string, fn EntityFunc, opts FanOutOptions) (FanOutReport, error) {
	concurrency := max(opts.Concurrency, 1)
	abort := opts.Abort
	if abort == nil {
		abort = AbortOnStoreFailure
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	report := FanOutReport{Requested: len(ids), Failures: map[string]string{}}
	var mu sync.Mutex

	group := 0
	for chunk := range slices.Chunk(ids, concurrency) {
		group++
		if err := ctx.Err(); err != nil {
			return report, err
		}

		// errgroup.Group without WithContext: no shared cancellation.
		var g errgroup.Group
		for _, id := range chunk {
			g.Go(func() error {
				err := fn(ctx, id)

				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					report.Processed++
					return nil
				}
				if abort(err) {
					return err
				}
				report.Failed++
				report.Failures[id] = err.Error()
				logger.Warn("Entity failed, continuing",
					zap.String("entity_id", id),
					zap.Int("group", group),
					zap.String("kind", string(erpsync.KindOf(err))),
					zap.Error(err),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			logger.Error("Fan-out aborted",
				zap.Int("group", group),
				zap.Int("processed", report.Processed),
				zap.Error(err),
			)
			return report, err
		}
	}
	return report, nil
}
