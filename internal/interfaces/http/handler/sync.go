package handler

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	erpsyncapp "github.com/erp/portalsync/internal/application/erpsync"
	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/infrastructure/logger"
	"github.com/erp/portalsync/internal/interfaces/http/dto"
	"github.com/erp/portalsync/internal/interfaces/http/middleware"
)

const defaultRunListLimit = 20

// SyncRunner is the part of the sync service the HTTP layer needs.
type SyncRunner interface {
	Jobs() []string
	Trigger(ctx context.Context, name string, params erpsyncapp.JobParams) (*erpsync.JobReport, error)
	GetRun(ctx context.Context, id uuid.UUID) (*erpsync.SyncRun, error)
	ListRuns(ctx context.Context, job string, limit int) ([]erpsync.SyncRun, error)
}

// SyncHandler exposes job triggers and the run history.
type SyncHandler struct {
	BaseHandler
	runner SyncRunner
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(runner SyncRunner) *SyncHandler {
	return &SyncHandler{runner: runner}
}

// Trigger godoc
// @ID           triggerSyncJob
// @Summary      Run a sync job
// @Description  Runs one job to completion within the request. A failed run still returns the counts committed before the error.
// @Tags         sync
// @Produce      json
// @Security     SyncSecret
// @Param        job           path   string  true   "Job name" Enums(customers, etas, instruments, identifiers)
// @Param        ids           query  []string false "Explicit entity ids, repeated or comma separated" collectionFormat(multi)
// @Param        days          query  int     false  "Lookback window in days"
// @Param        dry_run       query  bool    false  "Extract and diff without writing"
// @Param        location_ids  query  []string false "Restrict the ETA snapshot to these locations" collectionFormat(multi)
// @Param        concurrency   query  int     false  "Fan-out width for per-customer jobs"
// @Param        page_lines    query  int     false  "Export lines per page"
// @Param        offset        query  int     false  "Start line of a file read"
// @Success      200 {object} APIResponse[JobReportResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      502 {object} JobFailureResponse
// @Failure      503 {object} JobFailureResponse
// @Router       /sync/{job} [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	job := c.Param("job")
	if !slices.Contains(h.runner.Jobs(), job) {
		h.NotFound(c, dto.ErrCodeUnknownJob, "unknown sync job "+job)
		return
	}

	var req TriggerSyncRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.AbortWithValidationError(c, err)
		return
	}

	report, err := h.runner.Trigger(c.Request.Context(), job, req.ToParams())
	if err != nil {
		var partial any
		if report != nil {
			partial = toJobReportResponse(report)
		}
		h.HandleError(c, err, partial)
		return
	}

	logger.GetGinLogger(c).Info("Sync job triggered",
		zap.String("job", job),
		zap.String("run_id", report.RunID),
	)
	h.Success(c, toJobReportResponse(report))
}

// ListRuns godoc
// @ID           listSyncRuns
// @Summary      List recent sync runs
// @Description  Returns the newest runs first, optionally for one job.
// @Tags         sync
// @Produce      json
// @Security     SyncSecret
// @Param        job    query  string  false  "Job name"
// @Param        limit  query  int     false  "Maximum runs to return" minimum(1) maximum(200) default(20)
// @Success      200 {object} APIResponse[[]SyncRunResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /sync/runs [get]
func (h *SyncHandler) ListRuns(c *gin.Context) {
	var req ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.AbortWithValidationError(c, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultRunListLimit
	}

	runs, err := h.runner.ListRuns(c.Request.Context(), req.Job, req.Limit)
	if err != nil {
		h.HandleError(c, err, nil)
		return
	}

	out := make([]SyncRunResponse, len(runs))
	for i := range runs {
		out[i] = toSyncRunResponse(&runs[i])
	}
	h.SuccessList(c, out, len(out), req.Limit)
}

// GetRun godoc
// @ID           getSyncRun
// @Summary      Get a sync run
// @Tags         sync
// @Produce      json
// @Security     SyncSecret
// @Param        id  path  string  true  "Run id" format(uuid)
// @Success      200 {object} APIResponse[SyncRunResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /sync/runs/{id} [get]
func (h *SyncHandler) GetRun(c *gin.Context) {
	var req RunIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.AbortWithValidationError(c, err)
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid run id")
		return
	}
	run, err := h.runner.GetRun(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err, nil)
		return
	}
	h.Success(c, toSyncRunResponse(run))
}

// ListJobs godoc
// @ID           listSyncJobs
// @Summary      List the registered sync jobs
// @Tags         sync
// @Produce      json
// @Security     SyncSecret
// @Success      200 {object} APIResponse[[]string]
// @Router       /sync/jobs [get]
func (h *SyncHandler) ListJobs(c *gin.Context) {
	h.Success(c, h.runner.Jobs())
}
