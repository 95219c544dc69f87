package erpsync

import (
	"context"
	"encoding/json"
	"time"
)

// RemoteQuerier runs one SQL-like statement against the ERP and returns
// every row across all result pages. The tag is used only for diagnostics.
type RemoteQuerier interface {
	Query(ctx context.Context, statement, tag string) ([]json.RawMessage, error)
}

// PageReader yields batches of parsed NDJSON records from an export file.
// Next returns io.EOF once the file is exhausted and never an empty batch.
type PageReader interface {
	Next(ctx context.Context) ([]json.RawMessage, error)
	// LinesRead is the number of lines the server reported returning.
	LinesRead() int
	// Skipped counts non-blank lines that failed to parse.
	Skipped() int
}

// StreamOptions configures a file stream.
type StreamOptions struct {
	PageLines int
	StartLine int
}

// ManifestEntry describes one export named by a manifest document.
type ManifestEntry struct {
	ManifestFileID string    `json:"manifest_file_id"`
	Export         string    `json:"export"`
	FileID         string    `json:"file_id"`
	RowCount       int       `json:"row_count"`
	GeneratedAt    time.Time `json:"generated_at"`
	Tag            string    `json:"tag,omitempty"`
	// Raw is the manifest document as read, kept for auditing.
	Raw []byte `json:"-"`
}

// ExportFiles locates and streams export files written by the ERP.
type ExportFiles interface {
	// ResolveFileID returns the most recent file with name inside folder,
	// or "" when there is none.
	ResolveFileID(ctx context.Context, name, folder string) (string, error)
	// ResolveViaManifest reads the manifest file and returns the entry for export.
	ResolveViaManifest(ctx context.Context, manifestFileID, export string) (*ManifestEntry, error)
	// Stream opens a lazy reader over fileID.
	Stream(fileID string, opts StreamOptions) PageReader
}

// Archive stores audit copies of manifests and job reports.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
