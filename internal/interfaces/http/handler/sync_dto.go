package handler

import (
	"strings"
	"time"

	erpsyncapp "github.com/erp/portalsync/internal/application/erpsync"
	"github.com/erp/portalsync/internal/domain/erpsync"
)

// TriggerSyncRequest is the query string of a trigger call. List values may
// be repeated (ids=1&ids=2) or comma separated (ids=1,2).
type TriggerSyncRequest struct {
	IDs         []string `form:"ids"`
	Days        int      `form:"days" binding:"gte=0,lte=3650"`
	DryRun      bool     `form:"dry_run"`
	LocationIDs []string `form:"location_ids"`
	Concurrency int      `form:"concurrency" binding:"gte=0,lte=100"`
	PageLines   int      `form:"page_lines" binding:"gte=0,lte=50000"`
	Offset      int      `form:"offset" binding:"gte=0"`
}

// ToParams converts the request into job parameters.
func (r TriggerSyncRequest) ToParams() erpsyncapp.JobParams {
	return erpsyncapp.JobParams{
		IDs:         splitList(r.IDs),
		Days:        r.Days,
		DryRun:      r.DryRun,
		LocationIDs: splitList(r.LocationIDs),
		Concurrency: r.Concurrency,
		PageLines:   r.PageLines,
		Offset:      r.Offset,
	}
}

// splitList flattens comma separated values, dropping blanks and repeats.
func splitList(values []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// ListRunsRequest filters the run history.
type ListRunsRequest struct {
	Job   string `form:"job"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// RunIDRequest is the path of a single run.
type RunIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// JobReportResponse is a job report as returned by a trigger call.
// @Description Counts of one sync run
type JobReportResponse struct {
	Job         string            `json:"job" example:"customers"`
	RunID       string            `json:"run_id,omitempty" example:"4b7f2c1e-2c5d-4f7a-9a51-0f1c2f3d4e5f"`
	DryRun      bool              `json:"dry_run" example:"false"`
	RowsRead    int               `json:"rows_read" example:"1200"`
	RowsValid   int               `json:"rows_valid" example:"1198"`
	RowsSkipped int               `json:"rows_skipped" example:"2"`
	Inserted    int               `json:"inserted" example:"15"`
	Updated     int               `json:"updated" example:"1183"`
	SoftDeleted int               `json:"soft_deleted" example:"4"`
	Requested   int               `json:"requested,omitempty" example:"0"`
	Processed   int               `json:"processed,omitempty" example:"0"`
	Failed      int               `json:"failed,omitempty" example:"0"`
	Failures    map[string]string `json:"failures,omitempty"`
	Context     map[string]any    `json:"context,omitempty"`
}

func toJobReportResponse(r *erpsync.JobReport) *JobReportResponse {
	if r == nil {
		return nil
	}
	return &JobReportResponse{
		Job:         r.Job,
		RunID:       r.RunID,
		DryRun:      r.DryRun,
		RowsRead:    r.RowsRead,
		RowsValid:   r.RowsValid,
		RowsSkipped: r.RowsSkipped,
		Inserted:    r.Inserted,
		Updated:     r.Updated,
		SoftDeleted: r.SoftDeleted,
		Requested:   r.Requested,
		Processed:   r.Processed,
		Failed:      r.Failed,
		Failures:    r.Failures,
		Context:     r.Context,
	}
}

// SyncRunResponse is one entry of the run audit trail.
// @Description Recorded sync run
type SyncRunResponse struct {
	ID         string         `json:"id" example:"4b7f2c1e-2c5d-4f7a-9a51-0f1c2f3d4e5f"`
	Job        string         `json:"job" example:"etas"`
	Status     string         `json:"status" example:"SUCCESS" enums:"RUNNING,SUCCESS,PARTIAL,FAILED"`
	DryRun     bool           `json:"dry_run" example:"false"`
	Params     map[string]any `json:"params,omitempty"`
	Report     map[string]any `json:"report,omitempty"`
	ErrorKind  string         `json:"error_kind,omitempty" example:"transient"`
	Error      string         `json:"error,omitempty"`
	Requested  int            `json:"requested" example:"0"`
	RowsRead   int            `json:"rows_read" example:"860"`
	Inserted   int            `json:"inserted" example:"12"`
	Updated    int            `json:"updated" example:"848"`
	Deleted    int            `json:"soft_deleted" example:"3"`
	Failed     int            `json:"failed" example:"0"`
	StartedAt  string         `json:"started_at" example:"2026-10-17T04:00:00Z"`
	FinishedAt string         `json:"finished_at,omitempty" example:"2026-10-17T04:01:12Z"`
	DurationMS int64          `json:"duration_ms,omitempty" example:"72000"`
}

func toSyncRunResponse(r *erpsync.SyncRun) SyncRunResponse {
	resp := SyncRunResponse{
		ID:        r.ID.String(),
		Job:       r.Job,
		Status:    string(r.Status),
		DryRun:    r.DryRun,
		Params:    r.Params,
		Report:    r.Report,
		ErrorKind: string(r.ErrorKind),
		Error:     r.Error,
		Requested: r.Requested,
		RowsRead:  r.RowsRead,
		Inserted:  r.Inserted,
		Updated:   r.Updated,
		Deleted:   r.Deleted,
		Failed:    r.Failed,
		StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
	}
	if r.FinishedAt != nil {
		resp.FinishedAt = r.FinishedAt.UTC().Format(time.RFC3339)
		resp.DurationMS = r.Duration().Milliseconds()
	}
	return resp
}
