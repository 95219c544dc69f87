package erpsync

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// ETAJob replaces shipment ETAs from the export named by the ETA manifest.
// The export is a complete snapshot of the locations it covers.
type ETAJob struct {
	deps     Deps
	cfg      JobConfig
	validate *validator.Validate
}

func (j *ETAJob) Name() string { return erpsync.JobETAs }

func (j *ETAJob) Run(ctx context.Context, params JobParams, report *erpsync.JobReport) error {
	now := j.deps.Now()
	if j.cfg.ETAManifestFileID == "" {
		return erpsync.NewInvalidInputError("no ETA manifest file is configured")
	}

	entry, err := j.deps.Files.ResolveViaManifest(ctx, j.cfg.ETAManifestFileID, j.cfg.ETAExportName)
	if err != nil {
		return err
	}
	report.Set("manifest_file_id", entry.ManifestFileID)
	report.Set("file_id", entry.FileID)
	report.Set("manifest_row_count", entry.RowCount)
	if !entry.GeneratedAt.IsZero() {
		report.Set("generated_at", entry.GeneratedAt.Format(time.RFC3339))
	}
	if entry.Tag != "" {
		report.Set("manifest_tag", entry.Tag)
	}
	archive(ctx, j.deps, ArchiveKey(erpsync.JobETAs, report.RunID, "manifest.json"), entry.Raw, "application/json")

	reader := j.deps.Files.Stream(entry.FileID, erpsync.StreamOptions{
		PageLines: pageLines(j.cfg, params),
		StartLine: params.Offset,
	})
	dec := newRowDecoder(erpsync.JobETAs, j.validate, toShipmentETA, j.deps.Logger)
	rows, err := readExport(ctx, reader, dec, report)
	if err != nil {
		return err
	}
	if err := requireValidRows(entry.FileID, entry.RowCount, len(rows), report); err != nil {
		return err
	}

	scope := j.scope(params, &rows, report)
	res, err := j.deps.Store.ReplaceShipmentETAs(ctx, scope, rows, reconcileOptions(j.cfg, params, now))
	report.AddResult(res)
	return err
}

// scope decides which locations the run may soft-delete. Explicit
// locations also filter the rows; otherwise every location present in the
// file is in scope. A read that does not start at line zero only merges.
func (j *ETAJob) scope(params JobParams, rows *[]erpsync.ShipmentETA, report *erpsync.JobReport) erpsync.Scope {
	location := func(e erpsync.ShipmentETA) string { return e.LocationID }

	var scope erpsync.Scope
	if len(params.LocationIDs) > 0 {
		kept, dropped := keepIn(*rows, params.LocationIDs, location)
		*rows = kept
		report.Set("out_of_scope", dropped)
		scope = erpsync.ScopeOf("location_id", params.LocationIDs...)
	} else {
		scope = erpsync.ScopeOf("location_id", distinct(*rows, location)...)
	}

	if params.Offset > 0 {
		j.deps.Logger.Info("Partial export read, soft-delete disabled", zap.Int("offset", params.Offset))
		report.Set("partial_read", true)
		scope = erpsync.ScopeOf("location_id")
	}
	report.Set("location_ids", scope.Values)
	return scope
}
