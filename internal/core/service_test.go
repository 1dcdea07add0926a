package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sansdoublons/internal/dedup"
	"github.com/JonMunkholm/sansdoublons/internal/export"
	"github.com/JonMunkholm/sansdoublons/internal/ingest"
	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

const peopleCSV = "id,name\n1,Ann\n2,Bob\n1,Ann\n"

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	svc := NewService(NewUploadLimiter(2, time.Second), opts)
	t.Cleanup(svc.CloseAll)
	return svc
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"code", "city"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"A", "Paris"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"A", "Paris"}))

	_, err := f.NewSheet("Clients")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Clients", "A1", &[]interface{}{"email"}))
	require.NoError(t, f.SetSheetRow("Clients", "A2", &[]interface{}{"a@x.io"}))
	require.NoError(t, f.SetSheetRow("Clients", "A3", &[]interface{}{"a@x.io"}))
	require.NoError(t, f.SetSheetRow("Clients", "A4", &[]interface{}{"b@x.io"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestService_DelimitedPipeline(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	snap, err := svc.Open(ctx, "people.csv", []byte(peopleCSV))
	require.NoError(t, err)
	assert.Equal(t, tabular.FamilyDelimited, snap.Family)
	assert.Equal(t, 3, snap.Rows)
	require.NotNil(t, snap.Text)
	assert.Equal(t, ingest.EncodingUTF8, snap.Text.Encoding)
	assert.Equal(t, ",", snap.Text.Delimiter)
	assert.Nil(t, snap.Result)
	assert.Equal(t, []string{"id", "name"}, snap.Preview.Columns)

	_, err = svc.Export(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrNoResult)

	snap, err = svc.Deduplicate(ctx, snap.ID, dedup.Request{Scope: dedup.AllColumns(), Keep: dedup.KeepLast})
	require.NoError(t, err)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 3, snap.Result.RowsBefore)
	assert.Equal(t, 2, snap.Result.RowsAfter)
	assert.Equal(t, 1, snap.Result.Removed)
	assert.Equal(t, [][]string{{"2", "Bob"}, {"1", "Ann"}}, snap.Result.Preview.Rows)
	assert.Equal(t, []RemovedRow{{Line: 1, Values: []string{"1", "Ann"}}}, snap.Result.RemovedRows)
	assert.Equal(t, "people_sans_doublons.csv", snap.Result.DownloadName)

	dl, err := svc.Export(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "people_sans_doublons.csv", dl.FileName)
	assert.Equal(t, export.ContentTypeCSV, dl.ContentType)
	assert.Equal(t, "\uFEFFid,name\n2,Bob\n1,Ann\n", string(dl.Data))
}

func TestService_FailedDedupKeepsPreviousResult(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	snap, err := svc.Open(ctx, "people.csv", []byte(peopleCSV))
	require.NoError(t, err)
	_, err = svc.Deduplicate(ctx, snap.ID, dedup.Request{Scope: dedup.AllColumns()})
	require.NoError(t, err)

	_, err = svc.Deduplicate(ctx, snap.ID, dedup.Request{Scope: dedup.ColumnsScope("nope")})
	assert.ErrorIs(t, err, dedup.ErrInvalidScope)

	snap, err = svc.Get(snap.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 2, snap.Result.RowsAfter)
}

func TestService_Reread(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	snap, err := svc.Open(ctx, "people.csv", []byte(peopleCSV))
	require.NoError(t, err)
	_, err = svc.Deduplicate(ctx, snap.ID, dedup.Request{Scope: dedup.AllColumns()})
	require.NoError(t, err)

	snap, err = svc.Reread(ctx, snap.ID, "latin1", ";")
	require.NoError(t, err)
	assert.Equal(t, ingest.EncodingLatin1, snap.Text.Encoding)
	assert.Equal(t, ingest.DelimiterSemicolon, snap.Text.Mode)
	assert.Equal(t, []string{"id,name"}, snap.Preview.Columns)
	assert.Nil(t, snap.Result, "a new dataset drops the stale result")

	_, err = svc.Reread(ctx, snap.ID, "utf-16", ";")
	assert.ErrorIs(t, err, ingest.ErrUnreadableText)

	snap, err = svc.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, ingest.EncodingLatin1, snap.Text.Encoding, "failed re-read keeps the last good state")
}

func TestService_WorkbookPipeline(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	snap, err := svc.Open(ctx, "clients.xls", workbookBytes(t))
	require.NoError(t, err)
	assert.Equal(t, tabular.FamilySpreadsheet, snap.Family)
	require.NotNil(t, snap.Sheets)
	assert.Equal(t, []string{"Sheet1", "Clients"}, snap.Sheets.Sheets)
	assert.Equal(t, "Sheet1", snap.Sheets.Selected)
	assert.Equal(t, 2, snap.Rows)

	_, err = svc.Reread(ctx, snap.ID, "utf-8", ",")
	assert.ErrorIs(t, err, ErrNotDelimited)

	_, err = svc.SelectSheet(ctx, snap.ID, "Missing")
	assert.ErrorIs(t, err, ingest.ErrSheetRead)

	snap, err = svc.SelectSheet(ctx, snap.ID, "Clients")
	require.NoError(t, err)
	assert.Equal(t, "Clients", snap.Sheets.Selected)
	assert.Equal(t, 3, snap.Rows)

	snap, err = svc.Deduplicate(ctx, snap.ID, dedup.Request{Scope: dedup.ColumnsScope("email")})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Result.RowsAfter)

	dl, err := svc.Export(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "clients_sans_doublons.xlsx", dl.FileName)
	assert.Equal(t, export.ContentTypeXLSX, dl.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(dl.Data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Clients"}, f.GetSheetList())
}

func TestService_SelectSheetOnText(t *testing.T) {
	svc := newTestService(t, Options{})
	snap, err := svc.Open(context.Background(), "people.csv", []byte(peopleCSV))
	require.NoError(t, err)

	_, err = svc.SelectSheet(context.Background(), snap.ID, "Sheet1")
	assert.ErrorIs(t, err, ErrNotSpreadsheet)
}

func TestService_OpenErrors(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.Open(ctx, "people.csv", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = svc.Open(ctx, "people.json", []byte(peopleCSV))
	assert.ErrorIs(t, err, ingest.ErrUnsupportedFormat)

	_, err = svc.Open(ctx, "book.xlsx", []byte(peopleCSV))
	assert.ErrorIs(t, err, ingest.ErrCorruptWorkbook)

	assert.Equal(t, 0, svc.Len())
}

func TestService_UnknownSessions(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	for _, id := range []string{"", "not-a-uuid", "6f1c2c44-8f43-4c55-9a9e-4a57b8a0e0c1"} {
		_, err := svc.Get(id)
		assert.ErrorIs(t, err, ErrSessionNotFound, id)
		_, err = svc.Export(ctx, id)
		assert.ErrorIs(t, err, ErrSessionNotFound, id)
	}
}

func TestService_Close(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	snap, err := svc.Open(ctx, "people.csv", []byte(peopleCSV))
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, snap.ID))

	_, err = svc.Get(snap.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(ctx, snap.ID), ErrSessionNotFound)
}

func TestService_SessionLimit(t *testing.T) {
	svc := newTestService(t, Options{MaxSessions: 1})
	ctx := context.Background()

	_, err := svc.Open(ctx, "a.csv", []byte(peopleCSV))
	require.NoError(t, err)
	_, err = svc.Open(ctx, "b.csv", []byte(peopleCSV))
	assert.ErrorIs(t, err, ErrSessionLimit)
}

func TestService_SessionsAreIsolated(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	a, err := svc.Open(ctx, "a.csv", []byte(peopleCSV))
	require.NoError(t, err)
	b, err := svc.Open(ctx, "b.csv", []byte("x;y\n1;2\n"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = svc.Deduplicate(ctx, a.ID, dedup.Request{Scope: dedup.AllColumns()})
	require.NoError(t, err)

	b, err = svc.Get(b.ID)
	require.NoError(t, err)
	assert.Nil(t, b.Result)
	assert.Equal(t, []string{"x", "y"}, b.Preview.Columns)
}

func TestService_Sweep(t *testing.T) {
	svc := newTestService(t, Options{SessionTTL: time.Minute})
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	stale, err := svc.Open(ctx, "stale.csv", []byte(peopleCSV))
	require.NoError(t, err)

	clock = clock.Add(45 * time.Second)
	fresh, err := svc.Open(ctx, "fresh.csv", []byte(peopleCSV))
	require.NoError(t, err)

	clock = clock.Add(30 * time.Second)
	assert.Equal(t, 1, svc.Sweep())

	_, err = svc.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestService_SweepSkipsSessionsInUse(t *testing.T) {
	svc := newTestService(t, Options{SessionTTL: time.Minute})
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	snap, err := svc.Open(ctx, "busy.csv", []byte(peopleCSV))
	require.NoError(t, err)
	clock = clock.Add(2 * time.Minute)

	// A request holding the session keeps it alive.
	sess, err := svc.lookup(snap.ID)
	require.NoError(t, err)
	sess.mu.Lock()
	assert.Equal(t, 0, svc.Sweep())
	sess.mu.Unlock()
	assert.Equal(t, 1, svc.Len())

	// So does one touched after it went idle.
	_, err = svc.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, svc.Sweep())

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 1, svc.Sweep())
	assert.Equal(t, 0, svc.Len())
}

func TestService_SweeperStopsWithContext(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartSessionSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestService_PreviewTruncates(t *testing.T) {
	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 30; i++ {
		b.WriteString("v\n")
	}

	svc := newTestService(t, Options{PreviewRows: 10})
	snap, err := svc.Open(context.Background(), "many.csv", []byte(b.String()))
	require.NoError(t, err)

	assert.Equal(t, 30, snap.Rows)
	assert.Len(t, snap.Preview.Rows, 10)
	assert.True(t, snap.Preview.Truncated)
	assert.Equal(t, 30, snap.Preview.Total)
}
