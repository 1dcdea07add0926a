// Package core runs the deduplication pipeline for interactive sessions.
//
// This package holds the orchestration independent of any UI or transport
// layer. It can be driven by the web handlers or by tests without
// modification.
//
// # Sessions
//
// Each upload opens a [Session]: an explicit state object holding the
// buffered file, how it was read, the loaded dataset and the latest dedup
// result. The stages themselves live in other packages and are pure:
//
//	ingest.Ingest   bytes + file name -> dataset or workbook
//	ingest.ReadSheet / ingest.Reread  -> replacement dataset
//	dedup.Dedup     dataset + request -> cleaned dataset and counts
//	export.Export   cleaned dataset   -> file bytes
//
// [Service] looks sessions up by ID, serializes operations on each one and
// stores what the stages return. A stage that fails leaves the session as
// it was. Callers only ever see a [Snapshot].
//
// # Resource limits
//
// Heavy stages across all sessions share an [UploadLimiter]. Idle sessions
// are closed by [Service.StartSessionSweeper]; nothing is persisted.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// See error_messages.go for the code reference.
package core
