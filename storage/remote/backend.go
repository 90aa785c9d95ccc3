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

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/strata/storage"
)

const (
	// Separator is the only separator the filer understands.
	Separator = "/"

	// DefaultPageSize is the number of entries requested per listing page.
	DefaultPageSize = 1000

	// DefaultTimeout bounds each HTTP request made by the default client.
	DefaultTimeout = 30 * time.Second
)

// textTypes are content types sent as text; the prefix match mirrors the
// filer's own handling.
var textTypes = []string{"text/", "application/json"}

// Backend talks to a SeaweedFS filer over HTTP.
type Backend struct {
	base     *url.URL
	client   *http.Client
	logger   *slog.Logger
	pageSize int
}

// Option configures a Backend.
type Option func(*Backend)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) {
		if c != nil {
			b.client = c
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

// WithPageSize sets how many entries a single listing request asks for.
func WithPageSize(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.pageSize = n
		}
	}
}

// New creates a backend for the filer at baseURL, e.g. http://localhost:8888.
func New(baseURL string, opts ...Option) (*Backend, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid filer url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid filer url %q: scheme and host required", baseURL)
	}
	b := &Backend{
		base:     u,
		client:   &http.Client{Timeout: DefaultTimeout},
		logger:   slog.Default(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

var _ storage.Backend = (*Backend)(nil)

// Separator implements storage.Backend.
func (b *Backend) Separator() string {
	return Separator
}

// url builds the request URL for p. A trailing separator on p is kept.
func (b *Backend) url(p string, query url.Values) string {
	u := *b.base
	joined := path.Join("/", b.base.Path, p)
	if strings.HasSuffix(p, Separator) && !strings.HasSuffix(joined, Separator) {
		joined += Separator
	}
	u.Path = joined
	u.RawPath = ""
	u.RawQuery = query.Encode()
	return u.String()
}

func (b *Backend) do(ctx context.Context, method, target string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("filer request", "method", method, "url", target, "status", resp.StatusCode)
	return resp, nil
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Get implements storage.Backend.
func (b *Backend) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	if strings.HasSuffix(p, Separator) {
		return nil, fmt.Errorf("%w: %s", storage.ErrDirectoryPath, p)
	}
	resp, err := b.do(ctx, http.MethodGet, b.url(p, nil), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", p, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		drain(resp)
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	if !ok(resp) {
		drain(resp)
		return nil, fmt.Errorf("get %s: status %d", p, resp.StatusCode)
	}
	return resp.Body, nil
}

// Put implements storage.Backend. The content is uploaded as the multipart
// field "file"; a TTL is sent as ttl=<minutes>m.
func (b *Backend) Put(ctx context.Context, p string, r io.Reader, opts ...storage.PutOption) error {
	if p == "" || strings.HasSuffix(p, Separator) {
		return fmt.Errorf("%w: %w: %s", storage.ErrNotWritten, storage.ErrDirectoryPath, p)
	}
	o := storage.ApplyPutOptions(opts...)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(p)))
	h.Set("Content-Type", partContentType(p))
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrNotWritten, p, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrNotWritten, p, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrNotWritten, p, err)
	}

	query := url.Values{}
	if o.TTL > 0 {
		query.Set("ttl", storage.FormatTTL(o.TTL))
	}
	header := http.Header{"Content-Type": {mw.FormDataContentType()}}
	resp, err := b.do(ctx, http.MethodPost, b.url(p, query), &buf, header)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrNotWritten, p, err)
	}
	defer drain(resp)
	if !ok(resp) {
		return fmt.Errorf("%w: %s: status %d", storage.ErrNotWritten, p, resp.StatusCode)
	}
	return nil
}

// partContentType returns the content type the part is sent with.
func partContentType(p string) string {
	ct := mime.TypeByExtension(path.Ext(p))
	for _, prefix := range textTypes {
		if strings.HasPrefix(ct, prefix) {
			return ct
		}
	}
	return "application/octet-stream"
}

// Remove implements storage.Backend. Recursive removal walks the tree and
// deletes children before their parent.
func (b *Backend) Remove(ctx context.Context, p string, recursive bool) error {
	md, err := b.head(ctx, p)
	if err != nil {
		return err
	}
	if md == nil {
		return nil
	}
	if recursive && !md.IsFile() {
		children, err := b.List(ctx, p)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := b.Remove(ctx, join(strings.TrimSuffix(p, Separator), child), true); err != nil {
				return err
			}
		}
	}
	resp, err := b.do(ctx, http.MethodDelete, b.url(p, nil), nil, nil)
	if err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	defer drain(resp)
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if !ok(resp) {
		return fmt.Errorf("delete %s: status %d", p, resp.StatusCode)
	}
	return nil
}

// head returns nil metadata when p does not exist.
func (b *Backend) head(ctx context.Context, p string) (storage.Metadata, error) {
	header := http.Header{"Accept": {"application/json"}}
	resp, err := b.do(ctx, http.MethodHead, b.url(p, nil), nil, header)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", p, err)
	}
	defer drain(resp)
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if !ok(resp) {
		return nil, fmt.Errorf("head %s: status %d", p, resp.StatusCode)
	}
	md := storage.Metadata{}
	for _, key := range []string{
		storage.MetaLastModified,
		storage.MetaETag,
		storage.MetaContentLength,
		storage.MetaContentType,
	} {
		if v := resp.Header.Get(key); v != "" {
			md[key] = v
		}
	}
	return md, nil
}

// Exists implements storage.Backend.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	md, err := b.head(ctx, p)
	if err != nil {
		return false, err
	}
	return md != nil, nil
}

// IsDirectory implements storage.Backend. Only files carry an ETag.
func (b *Backend) IsDirectory(ctx context.Context, p string) (bool, error) {
	md, err := b.head(ctx, p)
	if err != nil {
		return false, err
	}
	return md != nil && !md.IsFile(), nil
}

// Stat implements storage.Backend.
func (b *Backend) Stat(ctx context.Context, p string) (storage.Metadata, error) {
	md, err := b.head(ctx, p)
	if err != nil {
		return nil, err
	}
	if md == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	return md, nil
}

type listing struct {
	Entries               []entry `json:"Entries"`
	LastFileName          string  `json:"LastFileName"`
	ShouldDisplayLoadMore bool    `json:"ShouldDisplayLoadMore"`
}

type entry struct {
	FullPath string    `json:"FullPath"`
	Crtime   time.Time `json:"Crtime"`
}

// List implements storage.Backend. All pages are fetched and the entries
// sorted by creation time.
func (b *Backend) List(ctx context.Context, p string) ([]string, error) {
	dir := p
	if !strings.HasSuffix(dir, Separator) {
		dir += Separator
	}
	header := http.Header{"Accept": {"application/json"}}

	var entries []entry
	last := ""
	for {
		query := url.Values{"limit": {strconv.Itoa(b.pageSize)}}
		if last != "" {
			query.Set("lastFileName", last)
		}
		page, err := b.listPage(ctx, b.url(dir, query), header)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", storage.ErrListPath, p, err)
		}
		entries = append(entries, page.Entries...)
		if !page.ShouldDisplayLoadMore || page.LastFileName == "" || page.LastFileName == last {
			break
		}
		last = page.LastFileName
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Crtime.Before(entries[j].Crtime)
	})
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = path.Base(e.FullPath)
	}
	return names, nil
}

func (b *Backend) listPage(ctx context.Context, target string, header http.Header) (*listing, error) {
	resp, err := b.do(ctx, http.MethodGet, target, nil, header)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if !ok(resp) {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var page listing
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &page, nil
}

// MakeDirectory implements storage.Backend. The filer creates an empty
// folder for a POST to a path ending in the separator.
func (b *Backend) MakeDirectory(ctx context.Context, p string) error {
	exists, err := b.Exists(ctx, p)
	if err == nil && exists {
		return nil
	}
	dir := strings.TrimSuffix(p, Separator) + Separator
	resp, err := b.do(ctx, http.MethodPost, b.url(dir, nil), nil, nil)
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}
	defer drain(resp)
	if !ok(resp) {
		return fmt.Errorf("mkdir %s: status %d", p, resp.StatusCode)
	}
	return nil
}

// Move implements storage.Backend.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	from := path.Join("/", b.base.Path, src)
	resp, err := b.do(ctx, http.MethodPost, b.url(dst, url.Values{"mv.from": {from}}), nil, nil)
	if err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	defer drain(resp)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, src)
	}
	if !ok(resp) {
		return fmt.Errorf("move %s to %s: status %d", src, dst, resp.StatusCode)
	}
	return nil
}

func join(parts ...string) string {
	return strings.Join(parts, Separator)
}
