// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package local

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/poiesic/strata/storage"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Backend stores data as a directory tree on a billy filesystem.
type Backend struct {
	fs     billy.Filesystem
	sep    string
	logger *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithSeparator sets the separator callers use in paths.
func WithSeparator(sep string) Option {
	return func(b *Backend) {
		if sep != "" {
			b.sep = sep
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a backend over fs.
func New(fs billy.Filesystem, opts ...Option) *Backend {
	b := &Backend{
		fs:     fs,
		sep:    string(os.PathSeparator),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewOS creates a backend rooted at dir on the host filesystem.
func NewOS(dir string, opts ...Option) *Backend {
	return New(osfs.New(dir), opts...)
}

var _ storage.Backend = (*Backend)(nil)

// Separator implements storage.Backend.
func (b *Backend) Separator() string {
	return b.sep
}

// fsPath converts a separator-joined path into a filesystem path.
func (b *Backend) fsPath(p string) string {
	parts := make([]string, 0, 8)
	for _, part := range strings.Split(p, b.sep) {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "."
	}
	return b.fs.Join(parts...)
}

// Get implements storage.Backend.
func (b *Backend) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := b.fsPath(path)
	fi, err := b.fs.Stat(p)
	if err != nil {
		return nil, notFound(path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", storage.ErrDirectoryPath, path)
	}
	f, err := b.fs.Open(p)
	if err != nil {
		return nil, notFound(path, err)
	}
	return f, nil
}

// Put implements storage.Backend. TTLs are not supported and ignored.
func (b *Backend) Put(ctx context.Context, path string, r io.Reader, opts ...storage.PutOption) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrNotWritten, path, err)
	}
	if path == "" || strings.HasSuffix(path, b.sep) {
		return fmt.Errorf("%w: %w: %s", storage.ErrNotWritten, storage.ErrDirectoryPath, path)
	}
	p := b.fsPath(path)
	if err := b.fs.MkdirAll(filepath.Dir(p), dirPerm); err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrNotWritten, path, err)
	}
	f, err := b.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrNotWritten, path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", storage.ErrNotWritten, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrNotWritten, path, err)
	}
	return nil
}

// Remove implements storage.Backend.
func (b *Backend) Remove(ctx context.Context, path string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := b.fsPath(path)
	fi, err := b.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if fi.IsDir() && recursive {
		err = util.RemoveAll(b.fs, p)
	} else {
		err = b.fs.Remove(p)
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	b.logger.Debug("removed", "path", path, "recursive", recursive)
	return nil
}

// Exists implements storage.Backend.
func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := b.fs.Stat(b.fsPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsDirectory implements storage.Backend.
func (b *Backend) IsDirectory(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fi, err := b.fs.Stat(b.fsPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return fi.IsDir(), nil
}

// Stat implements storage.Backend.
func (b *Backend) Stat(ctx context.Context, path string) (storage.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := b.fsPath(path)
	fi, err := b.fs.Stat(p)
	if err != nil {
		return nil, notFound(path, err)
	}
	md := storage.Metadata{
		storage.MetaLastModified: storage.FormatTime(fi.ModTime()),
	}
	if fi.IsDir() {
		return md, nil
	}
	etag, err := b.etag(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	md[storage.MetaETag] = etag
	md[storage.MetaContentLength] = strconv.FormatInt(fi.Size(), 10)
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		md[storage.MetaContentType] = ct
	}
	return md, nil
}

// etag hashes the file content with 64-bit BLAKE2b.
func (b *Backend) etag(p string) (string, error) {
	f, err := b.fs.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return `"` + hex.EncodeToString(h.Sum(nil)) + `"`, nil
}

// List implements storage.Backend. Children are ordered by modification time,
// ties broken by name.
func (b *Backend) List(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrListPath, path, err)
	}
	p := b.fsPath(path)
	if p != "." {
		fi, err := b.fs.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", storage.ErrListPath, path, err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("%w: %s: not a directory", storage.ErrListPath, path)
		}
	}
	infos, err := b.fs.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrListPath, path, err)
	}
	type child struct {
		name    string
		modTime time.Time
	}
	children := make([]child, len(infos))
	for i, fi := range infos {
		children[i] = child{name: fi.Name(), modTime: fi.ModTime()}
	}
	sort.SliceStable(children, func(i, j int) bool {
		if !children[i].modTime.Equal(children[j].modTime) {
			return children[i].modTime.Before(children[j].modTime)
		}
		return children[i].name < children[j].name
	})
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.name
	}
	return names, nil
}

// MakeDirectory implements storage.Backend.
func (b *Backend) MakeDirectory(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.fs.MkdirAll(b.fsPath(path), dirPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// Move implements storage.Backend.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, to := b.fsPath(src), b.fsPath(dst)
	if _, err := b.fs.Stat(from); err != nil {
		return notFound(src, err)
	}
	if err := b.fs.MkdirAll(filepath.Dir(to), dirPerm); err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	if err := b.fs.Rename(from, to); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

func notFound(path string, err error) error {
	if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return fmt.Errorf("%s: %w", path, err)
}
