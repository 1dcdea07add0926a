package core

import (
	"sync"
	"time"

	"github.com/JonMunkholm/sansdoublons/internal/dedup"
	"github.com/JonMunkholm/sansdoublons/internal/ingest"
	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

// Session is the state of one user's pass through the pipeline: the
// buffered upload, how it was read, the loaded dataset and the latest
// dedup result. Stages never touch a Session directly; the Service feeds
// them its fields and stores what they return. A failed stage leaves the
// previous state in place.
type Session struct {
	ID        string
	FileName  string
	Family    tabular.Family
	CreatedAt time.Time

	mu         sync.Mutex
	lastAccess time.Time
	closed     bool

	// data is the full upload, kept for re-reads and sheet switches.
	data     []byte
	workbook ingest.Workbook
	sheets   *ingest.SheetMetadata
	text     *ingest.TextMetadata
	dataset  *tabular.Dataset
	request  *dedup.Request
	result   *dedup.Result
}

// touch records activity. Callers hold s.mu.
func (s *Session) touch(now time.Time) {
	s.lastAccess = now
}

// LastAccess reports when the session was last used.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// setDataset installs a freshly read dataset. Any earlier dedup result was
// computed from other data and is dropped.
func (s *Session) setDataset(ds *tabular.Dataset) {
	s.dataset = ds
	s.request = nil
	s.result = nil
}

// release frees the workbook handle and buffered data.
func (s *Session) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	s.dataset = nil
	s.result = nil
	if s.workbook == nil {
		return nil
	}
	err := s.workbook.Close()
	s.workbook = nil
	return err
}

// Snapshot is the read-only view of a session returned to callers.
type Snapshot struct {
	ID       string                `json:"id"`
	FileName string                `json:"file_name"`
	Family   tabular.Family        `json:"family"`
	Sheets   *ingest.SheetMetadata `json:"sheets,omitempty"`
	Text     *TextInfo             `json:"text,omitempty"`
	Columns  []ColumnInfo          `json:"columns"`
	Rows     int                   `json:"rows"`
	Preview  *Preview              `json:"preview,omitempty"`
	Result   *ResultInfo           `json:"result,omitempty"`
}

// TextInfo describes how a delimited file was decoded and split.
type TextInfo struct {
	Encoding  ingest.Encoding  `json:"encoding"`
	Mode      ingest.Delimiter `json:"mode"`
	Delimiter string           `json:"delimiter"`
	Attempts  []ingest.Attempt `json:"attempts"`
}

type ColumnInfo struct {
	Name string       `json:"name"`
	Type tabular.Type `json:"type"`
}

// ResultInfo summarizes the latest dedup run.
type ResultInfo struct {
	All          bool         `json:"all"`
	Columns      []string     `json:"columns,omitempty"`
	Keep         string       `json:"keep"`
	TrimSpace    bool         `json:"trim"`
	RowsBefore   int          `json:"rows_before"`
	RowsAfter    int          `json:"rows_after"`
	Removed      int          `json:"removed"`
	DownloadName string       `json:"download_name"`
	Preview      *Preview     `json:"preview"`
	RemovedRows  []RemovedRow `json:"removed_rows"`
}

// snapshot builds the caller view. Callers hold s.mu.
func (s *Session) snapshot(previewRows int, downloadName string) *Snapshot {
	snap := &Snapshot{
		ID:       s.ID,
		FileName: s.FileName,
		Family:   s.Family,
	}

	if s.sheets != nil {
		sheets := *s.sheets
		snap.Sheets = &sheets
	}
	if s.text != nil {
		snap.Text = &TextInfo{
			Encoding:  s.text.Encoding,
			Mode:      s.text.Mode,
			Delimiter: s.text.DelimiterLabel(),
			Attempts:  s.text.Attempts,
		}
	}

	if s.dataset != nil {
		snap.Rows = s.dataset.RowCount()
		snap.Columns = make([]ColumnInfo, len(s.dataset.Columns))
		for i, c := range s.dataset.Columns {
			snap.Columns[i] = ColumnInfo{Name: c.Name, Type: c.Type}
		}
		snap.Preview = NewPreview(s.dataset, previewRows)
	}

	if s.result != nil && s.request != nil && s.dataset != nil {
		snap.Result = &ResultInfo{
			All:          s.request.Scope.All,
			Columns:      s.request.Scope.Columns,
			Keep:         s.request.Keep.String(),
			TrimSpace:    s.request.TrimSpace,
			RowsBefore:   s.result.RowsBefore,
			RowsAfter:    s.result.RowsAfter,
			Removed:      s.result.Removed(),
			DownloadName: downloadName,
			Preview:      NewPreview(s.result.Dataset, previewRows),
			RemovedRows:  RemovedSample(s.dataset, s.result, previewRows),
		}
	}
	return snap
}
