package erpsync

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// IdentifiersJob replaces customer identifiers from the newest identifier
// export in the configured folder.
type IdentifiersJob struct {
	deps     Deps
	cfg      JobConfig
	validate *validator.Validate
}

func (j *IdentifiersJob) Name() string { return erpsync.JobIdentifiers }

func (j *IdentifiersJob) Run(ctx context.Context, params JobParams, report *erpsync.JobReport) error {
	now := j.deps.Now()

	fileID, err := j.deps.Files.ResolveFileID(ctx, j.cfg.IdentifierFileName, j.cfg.IdentifierFolder)
	if err != nil {
		return err
	}
	if fileID == "" {
		return erpsync.NewMalformedError("EXPORT_FILE_NOT_FOUND",
			"no file named %q in folder %q", j.cfg.IdentifierFileName, j.cfg.IdentifierFolder)
	}
	report.Set("file_id", fileID)
	report.Set("file_name", j.cfg.IdentifierFileName)

	reader := j.deps.Files.Stream(fileID, erpsync.StreamOptions{
		PageLines: pageLines(j.cfg, params),
		StartLine: params.Offset,
	})
	dec := newRowDecoder(erpsync.JobIdentifiers, j.validate, toCustomerIdentifier, j.deps.Logger)
	rows, err := readExport(ctx, reader, dec, report)
	if err != nil {
		return err
	}
	if err := requireValidRows(fileID, 0, len(rows), report); err != nil {
		return err
	}

	customer := func(i erpsync.CustomerIdentifier) string { return i.CustomerID }
	var scope erpsync.Scope
	if len(params.IDs) > 0 {
		var dropped int
		rows, dropped = keepIn(rows, params.IDs, customer)
		report.Set("out_of_scope", dropped)
		scope = erpsync.ScopeOf("customer_id", params.IDs...)
	} else {
		scope = erpsync.ScopeOf("customer_id", distinct(rows, customer)...)
	}
	if params.Offset > 0 {
		report.Set("partial_read", true)
		scope = erpsync.ScopeOf("customer_id")
	}
	report.Set("customers", len(scope.Values))

	res, err := j.deps.Store.ReplaceIdentifiers(ctx, scope, rows, reconcileOptions(j.cfg, params, now))
	report.AddResult(res)
	return err
}
