package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Backend is the uniform contract over a hierarchical blob store. Paths are
// relative strings joined with Separator. A path ending in the separator
// denotes a directory.
//
// Implementations must be safe for concurrent use. They do not provide any
// locking of their own; see package lease for that.
type Backend interface {
	// Get opens the content of a file. Returns ErrNotFound if absent.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Put stores the content of r at path, creating parent directories.
	// Any failure is reported wrapped in ErrNotWritten.
	Put(ctx context.Context, path string, r io.Reader, opts ...PutOption) error

	// Remove deletes a file or directory. Removing an absent path is a no-op.
	Remove(ctx context.Context, path string, recursive bool) error

	// Exists reports whether path names a file or a directory.
	Exists(ctx context.Context, path string) (bool, error)

	// IsDirectory reports whether path names a directory.
	IsDirectory(ctx context.Context, path string) (bool, error)

	// Stat returns the metadata of path. Returns ErrNotFound if absent.
	Stat(ctx context.Context, path string) (Metadata, error)

	// List returns the names of the children of a directory ordered by
	// creation time, oldest first. Returns ErrListPath when path cannot be
	// listed.
	List(ctx context.Context, path string) ([]string, error)

	// MakeDirectory creates path and any missing parents. Idempotent.
	MakeDirectory(ctx context.Context, path string) error

	// Move renames src to dst.
	Move(ctx context.Context, src, dst string) error

	// Separator returns the path separator used by this backend.
	Separator() string
}

// Metadata keys.
const (
	MetaLastModified  = "Last-Modified"
	MetaETag          = "ETag"
	MetaContentLength = "Content-Length"
	MetaContentType   = "Content-Type"
)

// Metadata is the header-like description of a stored path. Entries carry
// Last-Modified whenever the service reports one; files carry ETag and
// directories never do.
type Metadata map[string]string

// LastModified parses the Last-Modified entry.
func (m Metadata) LastModified() (time.Time, error) {
	v, ok := m[MetaLastModified]
	if !ok {
		return time.Time{}, fmt.Errorf("no %s in metadata", MetaLastModified)
	}
	return http.ParseTime(v)
}

// IsFile reports whether the metadata describes a file.
func (m Metadata) IsFile() bool {
	_, ok := m[MetaETag]
	return ok
}

// FormatTime renders t the way Last-Modified is stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// PutOptions holds the settings collected from PutOption values.
type PutOptions struct {
	TTL time.Duration
}

// PutOption configures a Put.
type PutOption func(*PutOptions)

// WithTTL asks the backend to expire the entry after d. Backends without
// expiry support ignore it.
func WithTTL(d time.Duration) PutOption {
	return func(o *PutOptions) {
		o.TTL = d
	}
}

// ApplyPutOptions folds opts into a PutOptions value.
func ApplyPutOptions(opts ...PutOption) PutOptions {
	var o PutOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FormatTTL renders d as whole minutes, e.g. "5m". Anything shorter than a
// minute is rounded up to "1m".
func FormatTTL(d time.Duration) string {
	mins := int64((d + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("%dm", mins)
}
