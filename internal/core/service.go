package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sansdoublons/internal/dedup"
	"github.com/JonMunkholm/sansdoublons/internal/export"
	"github.com/JonMunkholm/sansdoublons/internal/ingest"
	"github.com/JonMunkholm/sansdoublons/internal/logging"
	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

var (
	// ErrSessionNotFound is returned for unknown, expired or closed sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionLimit is returned by Open when MaxSessions are live.
	ErrSessionLimit = errors.New("session limit reached")

	// ErrNoResult is returned by Export before any successful dedup run.
	ErrNoResult = errors.New("no deduplication result to export")

	// ErrNoDataset is returned when a workbook session has no sheet loaded.
	ErrNoDataset = errors.New("no sheet loaded")

	// ErrEmptyFile is returned by Open for zero-byte uploads.
	ErrEmptyFile = errors.New("empty file")

	// ErrNotDelimited is returned by Reread for workbook sessions.
	ErrNotDelimited = errors.New("manual re-read applies to delimited text only")

	// ErrNotSpreadsheet is returned by SelectSheet for text sessions.
	ErrNotSpreadsheet = errors.New("sheet selection applies to workbooks only")
)

// Options tunes a Service. Zero values select defaults.
type Options struct {
	MaxSessions int
	SessionTTL  time.Duration
	PreviewRows int
}

const (
	DefaultMaxSessions = 100
	DefaultSessionTTL  = 30 * time.Minute
)

// Service owns every live session and runs the pipeline stages on them.
// Operations on one session are serialized by its mutex; heavy stages
// across all sessions share the limiter.
type Service struct {
	opts    Options
	limiter *UploadLimiter
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a Service. A nil limiter gets the default limits.
func NewService(limiter *UploadLimiter, opts Options) *Service {
	if limiter == nil {
		limiter = NewUploadLimiter(0, 0)
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	return &Service{
		opts:     opts,
		limiter:  limiter,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Limiter exposes the shared limiter for health reporting and shutdown.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Open ingests an upload into a new session. For workbooks the first sheet
// is loaded right away; if it cannot be read the session still opens with
// no dataset so another sheet can be picked.
func (s *Service) Open(ctx context.Context, fileName string, data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.Len() >= s.opts.MaxSessions {
		return nil, ErrSessionLimit
	}

	var res *ingest.Result
	err := s.limiter.Do(ctx, func() error {
		var err error
		res, err = ingest.Ingest(data, fileName)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		FileName:   fileName,
		Family:     res.Family,
		CreatedAt:  now,
		lastAccess: now,
		data:       data,
		workbook:   res.Workbook,
		sheets:     res.Sheets,
		text:       res.Text,
		dataset:    res.Dataset,
	}
	logger := logging.WithFields(ctx, "session_id", sess.ID, "file", fileName, "family", res.Family)

	if sess.workbook != nil && len(sess.sheets.Sheets) > 0 {
		first := sess.sheets.Sheets[0]
		ds, err := ingest.ReadSheet(sess.workbook, first)
		if err != nil {
			logger.Warn("first sheet unreadable", "sheet", first, "error", err)
		} else {
			sess.sheets.Selected = first
			sess.dataset = ds
		}
	}

	if sess.text != nil {
		logger.Info("session opened",
			"encoding", sess.text.Encoding,
			"delimiter", sess.text.DelimiterLabel(),
			"attempts", len(sess.text.Attempts),
			"rows", sess.dataset.RowCount(),
		)
	} else {
		logger.Info("session opened", "sheets", len(sess.sheets.Sheets), "selected", sess.sheets.Selected)
	}

	// Snapshot before publishing; afterwards other requests may hold sess.mu.
	snap := s.view(sess)

	s.mu.Lock()
	if len(s.sessions) >= s.opts.MaxSessions {
		s.mu.Unlock()
		sess.release()
		return nil, ErrSessionLimit
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return snap, nil
}

// Get returns the current view of a session.
func (s *Service) Get(id string) (*Snapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return s.view(sess), nil
}

// SelectSheet loads another sheet of a workbook session.
func (s *Service) SelectSheet(ctx context.Context, id, sheet string) (*Snapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.workbook == nil {
		return nil, ErrNotSpreadsheet
	}

	var ds *tabular.Dataset
	err = s.limiter.Do(ctx, func() error {
		var err error
		ds, err = ingest.ReadSheet(sess.workbook, sheet)
		return err
	})
	if err != nil {
		return nil, err
	}

	sess.sheets.Selected = sheet
	sess.setDataset(ds)
	logging.WithFields(ctx, "session_id", sess.ID).Info("sheet selected", "sheet", sheet, "rows", ds.RowCount())
	return s.view(sess), nil
}

// Reread parses a delimited session again with an explicit encoding and
// delimiter, replacing the automatic choice.
func (s *Service) Reread(ctx context.Context, id, encoding, delimiter string) (*Snapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.Family != tabular.FamilyDelimited {
		return nil, ErrNotDelimited
	}

	var (
		ds   *tabular.Dataset
		meta *ingest.TextMetadata
	)
	err = s.limiter.Do(ctx, func() error {
		var err error
		ds, meta, err = ingest.Reread(sess.data, encoding, delimiter)
		return err
	})
	if err != nil {
		return nil, err
	}

	sess.text = meta
	sess.setDataset(ds)
	logging.WithFields(ctx, "session_id", sess.ID).Info("text re-read",
		"encoding", meta.Encoding,
		"delimiter", meta.DelimiterLabel(),
		"rows", ds.RowCount(),
	)
	return s.view(sess), nil
}

// Deduplicate runs req against the session's dataset and stores the result
// for export. Each call replaces the previous result.
func (s *Service) Deduplicate(ctx context.Context, id string, req dedup.Request) (*Snapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.dataset == nil {
		return nil, ErrNoDataset
	}

	var res *dedup.Result
	err = s.limiter.Do(ctx, func() error {
		var err error
		res, err = dedup.Dedup(sess.dataset, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	sess.request = &req
	sess.result = res
	logging.WithFields(ctx, "session_id", sess.ID).Info("deduplicated",
		"all", req.Scope.All,
		"columns", len(req.Scope.Columns),
		"keep", req.Keep.String(),
		"trim", req.TrimSpace,
		"rows_before", res.RowsBefore,
		"rows_after", res.RowsAfter,
	)
	return s.view(sess), nil
}

// Download is an exported file ready to send.
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Export serializes the latest dedup result to the session's family.
func (s *Service) Export(ctx context.Context, id string) (*Download, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.result == nil {
		return nil, ErrNoResult
	}

	var data []byte
	err = s.limiter.Do(ctx, func() error {
		var err error
		data, err = export.Export(sess.result.Dataset, sess.Family, sess.sheetName())
		return err
	})
	if err != nil {
		return nil, err
	}

	dl := &Download{
		FileName:    export.FileName(sess.FileName, sess.Family),
		ContentType: export.ContentType(sess.Family),
		Data:        data,
	}
	logging.WithFields(ctx, "session_id", sess.ID).Info("exported", "file", dl.FileName, "bytes", len(data))
	return dl, nil
}

// Close discards a session.
func (s *Service) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if err := sess.release(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	logging.WithFields(ctx, "session_id", id).Info("session closed")
	return nil
}

// CloseAll discards every session. It is called on shutdown.
func (s *Service) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.release()
	}
}

// lookup finds a live session. IDs that are not UUIDs never match.
func (s *Service) lookup(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// acquire looks up a session and locks it for one operation. The caller
// unlocks sess.mu when done.
func (s *Service) acquire(id string) (*Session, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// view snapshots sess. Callers hold sess.mu.
func (s *Service) view(sess *Session) *Snapshot {
	return sess.snapshot(s.opts.PreviewRows, export.FileName(sess.FileName, sess.Family))
}

// sheetName is the export sheet name hint. Callers hold s.mu.
func (s *Session) sheetName() string {
	if s.sheets == nil {
		return ""
	}
	return s.sheets.Selected
}
