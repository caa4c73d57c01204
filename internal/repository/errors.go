// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// service and handlers to distinguish between failure scenarios without
// inspecting driver errors. For example, ErrGiftNotFound maps to an HTTP
// 404 response while ErrForbidden maps to 403.
package repository

import "errors"

// ErrGiftNotFound is returned when a gift id does not resolve to a row.
var ErrGiftNotFound = errors.New("gift not found")

// ErrPhotoNotFound is returned when a guestbook photo id does not resolve.
var ErrPhotoNotFound = errors.New("photo not found")

// ErrSongNotFound is returned when a guestbook song id does not resolve.
var ErrSongNotFound = errors.New("song not found")

// ErrForbidden is returned when the caller is not allowed to act on a
// resource, such as submitting a receipt under a name that does not match
// the stored reservation. Handlers should translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering an admin with an email that
// is already taken. Handlers should translate this into 409.
var ErrEmailExists = errors.New("email already exists")
