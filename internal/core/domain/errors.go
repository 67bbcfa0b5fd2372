package domain

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindConfiguration   ErrorKind = "configuration"
	KindValidation      ErrorKind = "validation"
	KindRecognition     ErrorKind = "recognition"
	KindRemote          ErrorKind = "remote"
	KindNetwork         ErrorKind = "network"
	KindCacheCorruption ErrorKind = "cache_corruption"
	KindUnknown         ErrorKind = "unknown"
)

const (
	MsgLookupNotConfigured      = "Vehicle lookup endpoint not configured. Please check settings."
	MsgRecognitionNotConfigured = "Text recognition is not configured. Please check settings."
	MsgEmptyRegistration        = "Please enter a registration number"
	MsgPlateNotRead             = "Could not read license plate. Please try again or enter manually."
	MsgInvalidFormat            = "Invalid registration format. Please check and try again."
	MsgAccessDenied             = "API access denied. Please check your DVLA API key."
	MsgVehicleNotFound          = "Vehicle not found. Please check the registration number."
	MsgRateLimited              = "Too many requests. Please wait and try again."
	MsgServiceUnavailable       = "Vehicle service temporarily unavailable. Please try again later."
	MsgNetworkFailure           = "Failed to fetch vehicle data. Please check your connection and try again."
	MsgUnknown                  = "Unknown error occurred"
)

// Error is a classified failure with a single display message. Status is the
// remote HTTP status for KindRemote, zero otherwise.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// RemoteStatusError classifies a failed vehicle lookup response by HTTP status.
func RemoteStatusError(status int, err error) *Error {
	return &Error{Kind: KindRemote, Status: status, Message: RemoteStatusMessage(status), Err: err}
}

func RemoteStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return MsgInvalidFormat
	case http.StatusForbidden:
		return MsgAccessDenied
	case http.StatusNotFound:
		return MsgVehicleNotFound
	case http.StatusTooManyRequests:
		return MsgRateLimited
	default:
		return MsgServiceUnavailable
	}
}

func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// UserMessage returns the display message carried by err.
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return MsgUnknown
}
