// Package storage provides the blob store collaborator used for receipt
// and guestbook photo uploads.  The service layer talks to the BlobStore
// interface so tests can substitute an in-memory implementation.
package storage

import (
	"context"
	"io"
)

// BlobStore writes and deletes uploaded files.  Store must be durable
// before it returns: the gift row is only updated after the receipt file
// is safely written, so a storage failure never leaves a dangling
// receipt_url.
type BlobStore interface {
	// Store writes the content under the suggested key and returns the
	// reference to record in the database.  The returned reference may
	// differ from the key (an implementation is free to prefix it).
	Store(ctx context.Context, key string, content io.Reader) (string, error)
	// Delete removes a previously stored blob.  Deleting an unknown
	// reference is not an error.
	Delete(ctx context.Context, ref string) error
}
