package core

// # Error Codes Reference
//
// Every failure shown to a user carries a code they can quote to the
// maintainer. Codes are grouped by category:
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Unknown table format
//	         Action: Please contact the application's author.
//	         Kind: ErrUnknownSchema
//
//	SCH002 - Table format recognized but not supported
//	         Action: Please contact the application's author.
//	         Kind: ErrNotSupported
//
// # Internal Errors (INT001-INT099)
//
//	INT001 - Internal Error (converter output lacks mandatory columns)
//	         Action: Please contact the application's author.
//	         Kind: ErrSchemaViolation
//
// # Reconciliation Errors (REC001-REC099)
//
// CEX.io exports are rebuilt by matching orders with fills. When the match
// cannot be made safely the file is rejected as a whole.
//
//	REC001 - Export rows do not fit the order/fill/fee structure
//	         Kind: reconcile.ErrIntegrity
//
//	REC002 - An order matches more than one fill
//	         Kind: reconcile.ErrAmbiguousMatch
//
//	REC003 - No combination of fills adds up to an order
//	         Kind: reconcile.ErrUnreconcilableOrder
//
// # Rate Errors (RATE001-RATE099)
//
//	RATE001 - Historical price data unavailable
//	          Kind: rates.ErrDataSource
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - A cell could not be read as a date or number
//	         Kind: table.ErrInvalidValue
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Unsupported file type (tabular.ErrUnsupportedFile)
//	FILE002 - File too large (tabular.ErrFileTooLarge)
//	FILE003 - Empty file (tabular.ErrEmptyFile)
//	FILE004 - Unable to save file in folder (ErrWrite)
//	FILE005 - File not found (pattern "no such file or directory")
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy (ErrTooManyConversions)
//	UPL002 - Request cancelled (context.Canceled)
//	UPL003 - Request timed out (context.DeadlineExceeded)
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check the logs for the technical error
//
// # Matching
//
// Kinds are matched with errors.Is in table order, so wrapped errors map to
// the innermost known cause listed first. Errors from outside the module that
// carry no sentinel fall back to case-insensitive substring patterns.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/coinconvert/internal/rates"
	"github.com/JonMunkholm/coinconvert/internal/reconcile"
	"github.com/JonMunkholm/coinconvert/internal/table"
	"github.com/JonMunkholm/coinconvert/internal/tabular"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// Text renders the message as one sentence pair: "Message. Action".
func (m UserMessage) Text() string {
	if m.Message == "" {
		return ""
	}
	return m.Message + ". " + m.Action
}

const contactAuthor = "Please contact the application's author."

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is checked in order with errors.Is.
var errorKinds = []errorKind{
	{ErrUnknownSchema, UserMessage{
		Message: "Unknown table format",
		Action:  contactAuthor,
		Code:    "SCH001",
	}},
	{ErrNotSupported, UserMessage{
		Message: "This table format is recognized but not supported yet",
		Action:  contactAuthor,
		Code:    "SCH002",
	}},
	{ErrSchemaViolation, UserMessage{
		Message: "Internal Error",
		Action:  contactAuthor,
		Code:    "INT001",
	}},
	{reconcile.ErrIntegrity, UserMessage{
		Message: "The CEX export contains rows that are not orders, fills or fees",
		Action:  "Make sure the file is an unmodified CEX.io trade export. " + contactAuthor,
		Code:    "REC001",
	}},
	{reconcile.ErrAmbiguousMatch, UserMessage{
		Message: "An order in the CEX export matches more than one trade",
		Action:  "The file cannot be reconciled automatically. " + contactAuthor,
		Code:    "REC002",
	}},
	{reconcile.ErrUnreconcilableOrder, UserMessage{
		Message: "An order in the CEX export could not be matched with its trades",
		Action:  "Make sure the export covers the whole period of the order. " + contactAuthor,
		Code:    "REC003",
	}},
	{rates.ErrDataSource, UserMessage{
		Message: "Historical price data is unavailable for this file",
		Action:  "Check that the rate source covers every trade date and try again.",
		Code:    "RATE001",
	}},
	{table.ErrInvalidValue, UserMessage{
		Message: "The file contains a date or number that could not be read",
		Action:  "Check the reported row in the original export. " + contactAuthor,
		Code:    "VAL001",
	}},
	{tabular.ErrUnsupportedFile, UserMessage{
		Message: "Unsupported file type",
		Action:  "Please choose a .csv or .xlsx export.",
		Code:    "FILE001",
	}},
	{tabular.ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the export into smaller date ranges and try again.",
		Code:    "FILE002",
	}},
	{tabular.ErrEmptyFile, UserMessage{
		Message: "The file is empty",
		Action:  "Please choose an export that has a header row.",
		Code:    "FILE003",
	}},
	{ErrWrite, UserMessage{
		Message: "Unable to save file in folder",
		Action:  "Please make sure it exists and that you have sufficient permissions to write to that directory, and try again.",
		Code:    "FILE004",
	}},
	{ErrTooManyConversions, UserMessage{
		Message: "System is busy converting other files",
		Action:  "Please wait a moment and try again.",
		Code:    "UPL001",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again.",
		Code:    "UPL002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later.",
		Code:    "UPL003",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that carry no sentinel (case-insensitive).
var errorPatterns = []errorPattern{
	{"no such file or directory", UserMessage{
		Message: "File not found",
		Action:  "Check the path and try again.",
		Code:    "FILE005",
	}},
	{"cannot find the file", UserMessage{
		Message: "File not found",
		Action:  "Check the path and try again.",
		Code:    "FILE005",
	}},
}

// defaultMessage is returned when nothing matches (ERR000). The original
// error is only in the logs.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  contactAuthor,
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	_, err := core.Identify([]string{"foo"})
//	msg := core.MapError(err)
//	// msg.Code == "SCH001"
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

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
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

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
