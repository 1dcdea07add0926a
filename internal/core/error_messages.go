package core

// error_messages.go turns pipeline errors into messages a user can act on.
//
// Every message carries a code that support can look up here:
//
//	FILE001  file too large            FILE005  empty file
//	FILE002  unsupported format        FILE006  unreadable text
//	FILE003  corrupt workbook          FILE007  sheet read failure
//	FILE004  no file provided
//
//	DUP001   invalid dedup scope       DUP002   no sheet loaded
//	EXP001   serialization failure     EXP002   nothing to export yet
//
//	SES001   session not found         SES003   wrong file family
//	SES002   session limit reached
//
//	UPL002   system busy               UPL005   request timed out
//	UPL004   request cancelled
//
//	REQ001   invalid request           RATE001  rate limited
//	ERR000   anything else; check the logs for the technical error
//
// Known sentinel errors are matched with errors.Is first. Errors that only
// carry text (from libraries or the HTTP layer) fall back to
// case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sansdoublons/internal/dedup"
	"github.com/JonMunkholm/sansdoublons/internal/export"
	"github.com/JonMunkholm/sansdoublons/internal/ingest"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "The file exceeds the maximum upload size",
		Action:  "Split the file or remove unused sheets and columns",
		Code:    "FILE001",
	}
	msgUnsupported = UserMessage{
		Message: "This file type is not supported",
		Action:  "Upload a .xlsx, .xls or .csv file",
		Code:    "FILE002",
	}
	msgCorruptWorkbook = UserMessage{
		Message: "The workbook could not be opened",
		Action:  "Open it in your spreadsheet application and save it again as .xlsx",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Choose a file to upload",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a file with a header row and data",
		Code:    "FILE005",
	}
	msgUnreadableText = UserMessage{
		Message: "The text file could not be read with any supported encoding and separator",
		Action:  "Pick the encoding and separator manually, or save the file as UTF-8 CSV",
		Code:    "FILE006",
	}
	msgSheetRead = UserMessage{
		Message: "This sheet could not be read",
		Action:  "Choose another sheet or check the sheet layout",
		Code:    "FILE007",
	}
	msgInvalidScope = UserMessage{
		Message: "The columns chosen for comparison are not valid",
		Action:  "Select at least one existing column, or compare all columns",
		Code:    "DUP001",
	}
	msgNoDataset = UserMessage{
		Message: "No sheet is loaded yet",
		Action:  "Select a sheet before removing duplicates",
		Code:    "DUP002",
	}
	msgSerialization = UserMessage{
		Message: "The cleaned data could not be written",
		Action:  "Check for very long text cells or unusual sheet names",
		Code:    "EXP001",
	}
	msgNoResult = UserMessage{
		Message: "There is nothing to download yet",
		Action:  "Run duplicate removal first",
		Code:    "EXP002",
	}
	msgSessionNotFound = UserMessage{
		Message: "Your session has expired",
		Action:  "Upload the file again",
		Code:    "SES001",
	}
	msgSessionLimit = UserMessage{
		Message: "Too many files are open right now",
		Action:  "Please wait a few minutes and try again",
		Code:    "SES002",
	}
	msgWrongFamily = UserMessage{
		Message: "This option does not apply to the uploaded file type",
		Action:  "Sheets apply to workbooks, encoding and separator to CSV files",
		Code:    "SES003",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}
	msgInvalidRequest = UserMessage{
		Message: "The request could not be understood",
		Action:  "Reload the page and try again",
		Code:    "REQ001",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// ErrInvalidRequest marks malformed client input (bad form values, JSON).
var ErrInvalidRequest = errors.New("invalid request")

// errorKinds maps sentinel errors to messages, checked in order with errors.Is.
var errorKinds = []struct {
	target error
	msg    UserMessage
}{
	{ingest.ErrUnsupportedFormat, msgUnsupported},
	{ingest.ErrCorruptWorkbook, msgCorruptWorkbook},
	{ingest.ErrSheetRead, msgSheetRead},
	{ingest.ErrUnreadableText, msgUnreadableText},
	{dedup.ErrInvalidScope, msgInvalidScope},
	{export.ErrSerialization, msgSerialization},
	{ErrEmptyFile, msgEmptyFile},
	{ErrNoDataset, msgNoDataset},
	{ErrNoResult, msgNoResult},
	{ErrSessionNotFound, msgSessionNotFound},
	{ErrSessionLimit, msgSessionLimit},
	{ErrNotDelimited, msgWrongFamily},
	{ErrNotSpreadsheet, msgWrongFamily},
	{ErrTooManyUploads, msgBusy},
	{ErrInvalidRequest, msgInvalidRequest},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPatterns catches errors that arrive without a sentinel.
// More specific patterns come first.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"request body too large", msgFileTooLarge},
	{"file too large", msgFileTooLarge},
	{"no such file", msgNoFile},
	{"no file provided", msgNoFile},
	{"empty file", msgEmptyFile},
	{"encoding error", msgUnreadableText},
	{"invalid csv", msgUnreadableText},
	{"too many uploads", msgBusy},
	{"context canceled", msgCancelled},
	{"context deadline exceeded", msgTimeout},
	{"timeout", msgTimeout},
	{"rate limit", msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
