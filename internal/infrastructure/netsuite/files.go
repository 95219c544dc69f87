package netsuite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

const scriptActionRead = "read"

// ScriptCaller is the part of Client the file reader needs.
type ScriptCaller interface {
	CallScript(ctx context.Context, req ScriptRequest) (*ScriptResponse, error)
}

// Files locates export files and streams them through the RESTlet.
type Files struct {
	query     erpsync.RemoteQuerier
	script    ScriptCaller
	pageLines int
	logger    *zap.Logger
}

// NewFiles creates a file reader. pageLines is the default page size.
func NewFiles(query erpsync.RemoteQuerier, script ScriptCaller, pageLines int, logger *zap.Logger) *Files {
	if pageLines <= 0 {
		pageLines = DefaultPageLines
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Files{query: query, script: script, pageLines: pageLines, logger: logger}
}

// ResolveFileID finds the most recently modified file called name.
// folder may be empty to search every folder.
func (f *Files) ResolveFileID(ctx context.Context, name, folder string) (string, error) {
	stmt := "SELECT id, name, folder, lastmodifieddate FROM file WHERE name = '" + quote(name) + "'"
	if folder != "" {
		stmt += " AND folder = '" + quote(folder) + "'"
	}
	stmt += " ORDER BY lastmodifieddate DESC, id DESC"

	rows, err := f.query.Query(ctx, stmt, "file.resolve")
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	var row struct {
		ID flexString `json:"id"`
	}
	if err := json.Unmarshal(rows[0], &row); err != nil || row.ID == "" {
		return "", erpsync.NewMalformedError("FILE_ROW_INVALID", "file lookup for %q: expected an id, got %s", name, erpsync.Excerpt(rows[0]))
	}
	return string(row.ID), nil
}

type manifestDoc struct {
	GeneratedAt string                    `json:"generated_at"`
	Tag         string                    `json:"tag"`
	Exports     map[string]manifestExport `json:"exports"`
}

type manifestExport struct {
	FileID   flexString `json:"file_id"`
	RowCount int        `json:"row_count"`
}

// ResolveViaManifest reads the manifest and returns the entry for export.
func (f *Files) ResolveViaManifest(ctx context.Context, manifestFileID, export string) (*erpsync.ManifestEntry, error) {
	raw, err := f.ReadAll(ctx, manifestFileID)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var doc manifestDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, erpsync.NewMalformedError("MANIFEST_INVALID", "manifest %s is not valid JSON: %v (received %q)", manifestFileID, err, erpsync.Excerpt(raw))
	}
	entry, ok := doc.Exports[export]
	if !ok {
		names := make([]string, 0, len(doc.Exports))
		for n := range doc.Exports {
			names = append(names, n)
		}
		return nil, erpsync.NewMalformedError("MANIFEST_EXPORT_MISSING", "manifest %s: expected exports.%s, found [%s]", manifestFileID, export, strings.Join(names, ", "))
	}
	if entry.FileID == "" {
		return nil, erpsync.NewMalformedError("MANIFEST_EXPORT_MISSING", "manifest %s: exports.%s.file_id is empty", manifestFileID, export)
	}

	out := &erpsync.ManifestEntry{
		ManifestFileID: manifestFileID,
		Export:         export,
		FileID:         string(entry.FileID),
		RowCount:       entry.RowCount,
		Tag:            doc.Tag,
		Raw:            raw,
	}
	if doc.GeneratedAt != "" {
		ts, err := time.Parse(time.RFC3339, doc.GeneratedAt)
		if err != nil {
			return nil, erpsync.NewMalformedError("MANIFEST_INVALID", "manifest %s: generated_at %q is not RFC 3339", manifestFileID, doc.GeneratedAt)
		}
		out.GeneratedAt = ts
	}
	return out, nil
}

// ReadAll returns the whole file as text, one page at a time.
func (f *Files) ReadAll(ctx context.Context, fileID string) ([]byte, error) {
	var buf bytes.Buffer
	offset := 0
	for {
		resp, err := f.script.CallScript(ctx, ScriptRequest{Action: scriptActionRead, FileID: fileID, Offset: offset, Limit: f.pageLines})
		if err != nil {
			return nil, err
		}
		if resp.LinesReturned == 0 {
			break
		}
		if buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
			buf.WriteByte('\n')
		}
		buf.WriteString(resp.Data)
		offset += resp.LinesReturned
		if resp.Done || resp.LinesReturned < f.pageLines {
			break
		}
	}
	return buf.Bytes(), nil
}

// Stream opens a lazy NDJSON reader over fileID.
func (f *Files) Stream(fileID string, opts erpsync.StreamOptions) erpsync.PageReader {
	pageLines := opts.PageLines
	if pageLines <= 0 {
		pageLines = f.pageLines
	}
	start := opts.StartLine
	if start < 0 {
		start = 0
	}
	return &PageReader{
		script:    f.script,
		fileID:    fileID,
		pageLines: pageLines,
		offset:    start,
		logger:    f.logger.With(zap.String("file_id", fileID)),
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PageReader walks an export file by line offset.
type PageReader struct {
	script    ScriptCaller
	fileID    string
	pageLines int
	offset    int
	linesRead int
	skipped   int
	done      bool
	logger    *zap.Logger
}

// Next returns the next non-empty batch or io.EOF.
func (r *PageReader) Next(ctx context.Context) ([]json.RawMessage, error) {
	for !r.done {
		resp, err := r.script.CallScript(ctx, ScriptRequest{
			Action: scriptActionRead,
			FileID: r.fileID,
			Offset: r.offset,
			Limit:  r.pageLines,
		})
		if err != nil {
			return nil, err
		}

		lines := resp.LinesReturned
		if lines == 0 {
			r.done = true
			break
		}
		data := resp.Data
		if r.offset == 0 {
			data = strings.TrimPrefix(data, string(utf8BOM))
		}
		// The server's count drives the cursor, not what parsed.
		r.offset += lines
		r.linesRead += lines
		if resp.Done || lines < r.pageLines {
			r.done = true
		}

		batch := r.parse(data)
		if len(batch) > 0 {
			return batch, nil
		}
	}
	return nil, io.EOF
}

func (r *PageReader) parse(data string) []json.RawMessage {
	var batch []json.RawMessage
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed[0] != '{' || !json.Valid([]byte(trimmed)) {
			r.skipped++
			r.logger.Debug("Skipping unparsable export line", zap.Int("near_line", r.offset))
			continue
		}
		batch = append(batch, json.RawMessage(trimmed))
	}
	return batch
}

// LinesRead reports how many lines the server returned so far.
func (r *PageReader) LinesRead() int { return r.linesRead }

// Skipped reports how many non-blank lines failed to parse.
func (r *PageReader) Skipped() int { return r.skipped }

// Offset is the cursor position for the next page.
func (r *PageReader) Offset() int { return r.offset }

// flexString decodes a JSON string or number into a string.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("netsuite: expected string or number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

var (
	_ erpsync.ExportFiles   = (*Files)(nil)
	_ erpsync.PageReader    = (*PageReader)(nil)
	_ erpsync.RemoteQuerier = (*Client)(nil)
	_ ScriptCaller          = (*Client)(nil)
	_ TokenSource           = (*TokenCache)(nil)
)
