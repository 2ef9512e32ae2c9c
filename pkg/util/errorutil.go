package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewInvalidTransition rejects a status edge outside the lifecycle table.
func NewInvalidTransition(from, to string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("cannot transition ticket from %s to %s", from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to})
}

// NewInvalidStatus rejects a value outside the status enum.
func NewInvalidStatus(value string) error {
	return NewDomainError("INVALID_STATUS",
		fmt.Sprintf("unknown ticket status %q", value),
		http.StatusBadRequest, nil)
}

// NewInvalidPriority rejects a value outside the priority enum.
func NewInvalidPriority(value string) error {
	return NewDomainError("INVALID_PRIORITY",
		fmt.Sprintf("unknown ticket priority %q", value),
		http.StatusBadRequest, nil)
}

// NewInvalidKey rejects a storage key that is not namespaced by the
// uploader's id.
func NewInvalidKey(key string) error {
	return NewDomainError("INVALID_KEY",
		"storage key must be prefixed with the uploader id",
		http.StatusBadRequest,
		map[string]any{"storage_key": key})
}

// NewTooManyAttachments rejects additions beyond the per-ticket cap.
func NewTooManyAttachments(current, adding, limit int) error {
	return NewDomainError("TOO_MANY_ATTACHMENTS",
		fmt.Sprintf("ticket already has %d attachments and adding %d more would exceed the limit of %d", current, adding, limit),
		http.StatusUnprocessableEntity,
		map[string]any{"current": current, "adding": adding, "limit": limit})
}

// NewReopenWindowElapsed rejects a requester reopen after the allowed window.
func NewReopenWindowElapsed(windowDays int) error {
	return NewDomainError("REOPEN_WINDOW_ELAPSED",
		fmt.Sprintf("the %d-day reopen window for this ticket has elapsed", windowDays),
		http.StatusUnprocessableEntity, nil)
}

// NewReopenNotAllowed rejects a requester reopen from a non-resolved state.
func NewReopenNotAllowed(status string) error {
	return NewDomainError("REOPEN_NOT_ALLOWED",
		fmt.Sprintf("only resolved tickets can be reopened; ticket is %s", status),
		http.StatusUnprocessableEntity,
		map[string]any{"status": status})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}

// CodeOf returns the DomainError code, or empty for non-domain errors.
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
