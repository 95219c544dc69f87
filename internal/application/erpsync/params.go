package erpsync

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// JobParams scopes one triggered run. Zero values mean "use the default".
type JobParams struct {
	// IDs limits the customers job to these records and selects the
	// customers fanned out by the instruments job.
	IDs []string `json:"ids,omitempty" validate:"omitempty,max=5000,dive,numeric,max=32"`
	// Days overrides the incremental window of the customers job.
	Days int `json:"days,omitempty" validate:"gte=0,lte=3650"`
	// DryRun extracts and diffs without writing.
	DryRun bool `json:"dry_run"`
	// LocationIDs restricts the ETA snapshot to these locations.
	LocationIDs []string `json:"location_ids,omitempty" validate:"omitempty,max=1000,dive,required,max=32"`
	// Concurrency bounds the instruments fan-out.
	Concurrency int `json:"concurrency,omitempty" validate:"gte=0"`
	// PageLines is the number of export lines requested per page.
	PageLines int `json:"page_lines,omitempty" validate:"gte=0,lte=50000"`
	// Offset starts a file read at this line. A run that does not start at
	// line zero never soft-deletes.
	Offset int `json:"offset,omitempty" validate:"gte=0"`
}

// ToMap renders the params for the run audit record.
func (p JobParams) ToMap() map[string]any {
	m := map[string]any{"dry_run": p.DryRun}
	if len(p.IDs) > 0 {
		m["ids"] = p.IDs
	}
	if p.Days > 0 {
		m["days"] = p.Days
	}
	if len(p.LocationIDs) > 0 {
		m["location_ids"] = p.LocationIDs
	}
	if p.Concurrency > 0 {
		m["concurrency"] = p.Concurrency
	}
	if p.PageLines > 0 {
		m["page_lines"] = p.PageLines
	}
	if p.Offset > 0 {
		m["offset"] = p.Offset
	}
	return m
}

func validateParams(v *validator.Validate, p JobParams) error {
	if err := v.Struct(p); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" failed "+fe.Tag())
			}
		} else {
			fields = append(fields, err.Error())
		}
		return erpsync.NewInvalidInputError("invalid job parameters: %s", strings.Join(fields, "; "))
	}
	return nil
}
