package domain

import "errors"

// Error taxonomy for the messaging core.
//
// Synchronous failures (validation, permission, persistence) reject the
// caller's request immediately. Asynchronous delivery failures never
// reject anything: they only update state and emit an event.
var (
	// ErrValidation rejects a send with no body/attachments or no
	// destination address.
	ErrValidation = errors.New("invalid message request")

	// ErrPermissionDenied is raised when the native transmit call is
	// rejected before any radio activity.
	ErrPermissionDenied = errors.New("sms permission denied")

	// ErrTransmit wraps a synchronous native transmit fault that is not
	// a permission problem.
	ErrTransmit = errors.New("native transmit failed")

	// ErrNotRetryable rejects a retry of a message that is not in the
	// failed state.
	ErrNotRetryable = errors.New("message is not in a retryable state")

	ErrMessageNotFound    = errors.New("message not found")
	ErrThreadNotFound     = errors.New("thread not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrContactNotFound    = errors.New("contact not found")
	ErrSettingNotFound    = errors.New("setting not found")
)
