// Package transport implements BlobTransport: the abstract interface the
// migration engine uses to move blobs to and from a remote, plus an
// S3-compatible and a local-filesystem implementation of it.
package transport

import (
	"context"
	"errors"
	"io"
)

// ErrObjectExists is returned by a non-force upload when the destination
// key already holds an object.
var ErrObjectExists = errors.New("transport: object already exists")

// Multipart upload sizes (original_source/src/s3/upload_multipart.rs):
// S3Transport sets the uploader's PartSize to TenMegabytes, so a body of up
// to TenMegabytes goes up as a single PutObject and a larger one is split
// into TenMegabytes parts. No upload path consults FiveMegabytes.
const (
	FiveMegabytes = 5_000_000
	TenMegabytes  = 10_000_000
)

// BlobTransport is the abstraction migration dispatches upload/download
// flows against — satisfied by an S3-compatible client (S3Transport) and by
// a Local filesystem remote.
type BlobTransport interface {
	// HeadObject reports whether key exists at the remote.
	HeadObject(ctx context.Context, key string) (bool, error)
	// GetObject streams key's content into w.
	GetObject(ctx context.Context, key string, w io.Writer) error
	// PutObject uploads a single object in one shot.
	PutObject(ctx context.Context, key string, r io.Reader, size int64) error
	// PutObjectMultipart uploads size bytes from r under key; S3Transport
	// splits bodies larger than TenMegabytes into parts and aborts the
	// multipart upload on any part or completion failure. If force is false and key
	// already exists, it returns ErrObjectExists without uploading.
	PutObjectMultipart(ctx context.Context, key string, r io.Reader, size int64, force bool) error
}
