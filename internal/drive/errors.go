package drive

import (
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/jobapply/jobapply/internal/errors"
)

// Credential errors. They are permanent until the user reconnects and are
// returned unchanged by Translate.
var (
	ErrNotConnected        = errors.NewStd("google account is not connected")
	ErrMissingToken        = errors.NewStd("google account has no stored token")
	ErrMissingRefreshToken = errors.NewStd("google token has no refresh token, reconnect the account")
)

// IsPermissionDenied reports whether err is one of the credential errors.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrMissingRefreshToken)
}

// Code classifies a failed Drive operation.
type Code string

const (
	CodeAuth        Code = "auth"
	CodeRefresh     Code = "refresh"
	CodeNotFound    Code = "not_found"
	CodeRateLimited Code = "rate_limited"
	CodeUpstream    Code = "upstream"
	CodeHTTP        Code = "http_error"
	CodeUnexpected  Code = "unexpected"
)

// Retryable reports whether the next scheduled attempt may succeed without user action.
func (c Code) Retryable() bool {
	switch c {
	case CodeRateLimited, CodeUpstream, CodeHTTP:
		return true
	default:
		return false
	}
}

// Error is a translated Drive failure.
type Error struct {
	Op      string // operation that failed, e.g. "upload"
	Code    Code
	Message string // user-facing text
	Status  int    // HTTP status, 0 when the failure had none
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("drive %s: %s (%s): %v", e.Op, e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("drive %s: %s (%s)", e.Op, e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Translate maps a transport failure to an *Error. Credential errors and
// errors that are already translated are returned as is.
func Translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsPermissionDenied(err) {
		return err
	}
	var translated *Error
	if errors.As(err, &translated) {
		return err
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &Error{
			Op:      op,
			Code:    CodeRefresh,
			Message: "Google session expired, please reconnect your Google account",
			Status:  status,
			Err:     err,
		}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fromStatus(op, apiErr.Code, err)
	}

	return &Error{
		Op:      op,
		Code:    CodeUnexpected,
		Message: "unexpected Google Drive error",
		Err:     err,
	}
}

func fromStatus(op string, status int, err error) *Error {
	e := &Error{Op: op, Status: status, Err: err}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = CodeAuth
		e.Message = "Google Drive access denied or expired, please reconnect your Google account"
	case status == http.StatusNotFound:
		e.Code = CodeNotFound
		e.Message = "Google Drive file or folder not found"
	case status == http.StatusTooManyRequests:
		e.Code = CodeRateLimited
		e.Message = "Google Drive rate limit reached, try again later"
	case status >= 500 && status <= 599:
		e.Code = CodeUpstream
		e.Message = "Google Drive is temporarily unavailable"
	default:
		e.Code = CodeHTTP
		e.Message = fmt.Sprintf("Google Drive request failed with HTTP %d", status)
	}
	return e
}

// CodeOf returns the code err translates to. Credential errors report CodeAuth.
func CodeOf(err error) Code {
	if IsPermissionDenied(err) {
		return CodeAuth
	}
	var e *Error
	if errors.As(Translate("", err), &e) {
		return e.Code
	}
	return CodeUnexpected
}
