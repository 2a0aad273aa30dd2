package notifications

import "errors"

// Repository errors.
var (
	ErrChannelNotFound = errors.New("notification channel not found")
	ErrAlertNotFound   = errors.New("alert record not found")
)

// Dispatch errors.
var (
	ErrNoSender      = errors.New("no sender configured for channel type")
	ErrMissingTarget = errors.New("channel config is missing its delivery target")
)
