package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Users can quote the code to support staff for faster diagnosis.
//
// # Lead Errors (LEAD001-LEAD099)
//
//	LEAD001 - Not found: the lead does not exist
//	LEAD002 - Conflict: someone else saved the lead since it was loaded
//	LEAD003 - Forbidden: only the owner may edit a lead
//
// # Authentication (AUTH001)
//
//	AUTH001 - No valid session
//
// # Validation (VAL001)
//
//	VAL001 - One or more fields are invalid; per-field details accompany it
//
// # Import Errors (IMP001-IMP099, FILE001-FILE099)
//
//	IMP001 - Too many data rows
//	IMP002 - Required columns missing
//	IMP003 - Too many imports running
//	IMP004 - No valid rows to import
//	IMP005 - Import steps called out of order
//	FILE001 - File exceeds upload size
//	FILE002 - File could not be read as CSV or XLSX
//	FILE004 - No file in the request
//
// # Database Errors (DB001-DB099)
//
// Matched on the driver's message text:
//
//	DB001 - Duplicate key
//	DB003 - Check constraint
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//
// # Other
//
//	REQ001  - Malformed request body or parameters
//	RATE001 - Rate limit exceeded
//	ERR000  - Anything unrecognized

import (
	"errors"
	"strings"
)

// UserMessage is an error rendered for end users.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

var typedErrors = []struct {
	target error
	msg    UserMessage
}{
	{ErrNotFound, UserMessage{"Lead not found", "Check the link or refresh the list", "LEAD001"}},
	{ErrConflict, UserMessage{"This record has been updated by someone else", "Please refresh and try again", "LEAD002"}},
	{ErrForbidden, UserMessage{"You can only edit leads you own", "Ask the lead's owner to make this change", "LEAD003"}},
	{ErrUnauthenticated, UserMessage{"You are not signed in", "Sign in and try again", "AUTH001"}},
	{ErrValidation, UserMessage{"Some fields are invalid", "Fix the highlighted fields and resubmit", "VAL001"}},
	{ErrTooManyImports, UserMessage{"Too many imports are running", "Please try again in a moment", "IMP003"}},
	{ErrNothingToImport, UserMessage{"No valid rows to import", "Fix the rejected rows and upload the file again", "IMP004"}},
	{ErrInvalidState, UserMessage{"This import cannot be committed", "Upload the file again", "IMP005"}},
}

var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"duplicate key", UserMessage{"A record with this ID already exists", "Please try again", "DB001"}},
	{"violates check constraint", UserMessage{"The record failed a data integrity check", "Review the values and try again", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB006"}},
	{"deadline exceeded", UserMessage{"Operation timed out", "Please try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"file too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller files", "FILE001"}},
	{"request body too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller files", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV or XLSX file to upload", "FILE004"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment and try again", "RATE001"}},
	{"malformed request", UserMessage{"The request could not be understood", "Check the request format and try again", "REQ001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError maps err to a user-facing message. Typed conditions are
// matched with errors.Is/As; anything else falls back to substring
// patterns over the error text. Returns the zero value for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var capErr *CapacityError
	if errors.As(err, &capErr) {
		return UserMessage{Message: capErr.Error(), Action: "Split the file and import each part separately", Code: "IMP001"}
	}
	var hdrErr *MissingHeadersError
	if errors.As(err, &hdrErr) {
		return UserMessage{Message: "Missing required columns: " + strings.Join(hdrErr.Missing, ", "), Action: "Download the import template and copy your data into it", Code: "IMP002"}
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return UserMessage{Message: "File could not be read as " + strings.ToUpper(decErr.Format), Action: "Save the file as UTF-8 CSV or XLSX and try again", Code: "FILE002"}
	}

	for _, te := range typedErrors {
		if errors.Is(err, te.target) {
			return te.msg
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

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
