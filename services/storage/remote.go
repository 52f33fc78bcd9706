// Package storage mirrors the local SQLite file and uploaded attachments to
// a durable object store.
package storage

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
)

var (
	// ErrObjectNotFound is returned by a Remote when the key has no object.
	ErrObjectNotFound = errors.New("object not found")
	// ErrPushFailed marks a local write whose remote push did not complete.
	ErrPushFailed = errors.New("push to remote store failed")
	// ErrAttachmentNotFound means neither a staged nor a remote copy exists.
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// Remote is a durable key/value object store.
type Remote interface {
	Download(ctx context.Context, key string, w io.Writer) error
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	// Name identifies the store in logs.
	Name() string
}
