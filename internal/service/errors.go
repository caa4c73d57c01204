// Package service implements the gift reservation and receipt-approval
// workflow on top of the store and blob collaborators.  It is
// transport-independent: handlers translate its sentinel errors into HTTP
// responses, and tests exercise it directly against in-memory fakes.
package service

import "errors"

// ErrInvalidInput is returned when a required field is missing or a value
// is out of range (empty guest name, unknown category, missing file).
// Handlers should translate this into 400.
var ErrInvalidInput = errors.New("invalid input")

// ErrNoReceiptPending is returned by DecideReceipt when the gift has no
// uploaded receipt to decide on.  A flavor of invalid input; maps to 400.
var ErrNoReceiptPending = errors.New("no receipt pending")

// ErrStorageFailure wraps blob store errors during receipt or photo
// handling.  When it is returned, the gift record has not been touched.
// Handlers should translate this into 502.
var ErrStorageFailure = errors.New("storage failure")
