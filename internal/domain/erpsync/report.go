package erpsync

// JobReport is the summary every job returns, including on failure where
// it carries whatever was committed before the error.
type JobReport struct {
	Job    string `json:"job"`
	RunID  string `json:"run_id,omitempty"`
	DryRun bool   `json:"dry_run"`

	RowsRead    int `json:"rows_read"`
	RowsValid   int `json:"rows_valid"`
	RowsSkipped int `json:"rows_skipped"`

	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	SoftDeleted int `json:"soft_deleted"`

	// Fan-out counters; zero for single-call jobs.
	Requested int               `json:"requested,omitempty"`
	Processed int               `json:"processed,omitempty"`
	Failed    int               `json:"failed,omitempty"`
	Failures  map[string]string `json:"failures,omitempty"`

	// Context identifies what was synced: file id, manifest timestamp, scope.
	Context map[string]any `json:"context,omitempty"`
}

// NewJobReport starts an empty report.
func NewJobReport(job string, dryRun bool) *JobReport {
	return &JobReport{Job: job, DryRun: dryRun, Context: map[string]any{}}
}

// AddResult folds reconcile counts into the report.
func (r *JobReport) AddResult(res ReconcileResult) {
	r.Inserted += res.Inserted
	r.Updated += res.Updated
	r.SoftDeleted += res.SoftDeleted
}

// Set records an audit context value.
func (r *JobReport) Set(key string, value any) {
	if r.Context == nil {
		r.Context = map[string]any{}
	}
	r.Context[key] = value
}
