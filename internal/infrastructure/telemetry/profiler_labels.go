package telemetry

import (
	"context"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelJob       = "job"
	ProfilingLabelOperation = "operation"
)

// MaxLabelValueLength bounds label values to keep profile series small.
const MaxLabelValueLength = 128

// highCardinalityLabels never become profile labels: each value would open
// a new series.
var highCardinalityLabels = map[string]bool{
	"request_id":  true,
	"run_id":      true,
	"trace_id":    true,
	"span_id":     true,
	"customer_id": true,
	"item_id":     true,
}

// WithProfilingLabels runs fn with Pyroscope labels attached to its
// goroutine. Goroutines started inside fn inherit the labels, so a fan-out
// is attributed to the job that spawned it.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels returns key/value pairs sorted by key, dropping empty
// entries and high-cardinality keys and truncating long values.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}
	clean := make(map[string]string, len(labels))
	for key, value := range labels {
		key = sanitizeLabelKey(key)
		if key == "" || value == "" || highCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		clean[key] = value
	}

	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, key, clean[key])
	}
	return pairs
}

// sanitizeLabelKey lowercases the key and keeps only [a-z0-9_].
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SyncJobLabels labels work done for one sync job.
func SyncJobLabels(job string) map[string]string {
	return map[string]string{
		ProfilingLabelOperation: "sync",
		ProfilingLabelJob:       job,
	}
}
