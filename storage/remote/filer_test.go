package remote

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeFiler is an in-memory stand-in for the SeaweedFS filer HTTP API.
type fakeFiler struct {
	mu       sync.Mutex
	entries  map[string]*fakeEntry
	clock    time.Time
	ttls     map[string]string
	types    map[string]string
	listings int
}

type fakeEntry struct {
	data   []byte
	dir    bool
	crtime time.Time
}

func newFakeFiler(t *testing.T) (*fakeFiler, *httptest.Server) {
	t.Helper()
	f := &fakeFiler{
		entries: map[string]*fakeEntry{"/": {dir: true}},
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ttls:    make(map[string]string),
		types:   make(map[string]string),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeFiler) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeFiler) mkdirAll(p string) {
	for p != "/" {
		if _, ok := f.entries[p]; !ok {
			f.entries[p] = &fakeEntry{dir: true, crtime: f.tick()}
		}
		p = path.Dir(p)
	}
}

func (f *fakeFiler) children(p string) []string {
	var names []string
	for k := range f.entries {
		if k != "/" && path.Dir(k) == p {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

func (f *fakeFiler) has(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[path.Clean("/"+p)]
	return ok
}

func (f *fakeFiler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := path.Clean(r.URL.Path)
	e := f.entries[p]

	switch r.Method {
	case http.MethodHead:
		if e == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Last-Modified", e.crtime.UTC().Format(http.TimeFormat))
		if !e.dir {
			w.Header().Set("ETag", fmt.Sprintf("%q", fmt.Sprintf("%x", sha1.Sum(e.data))))
			w.Header().Set("Content-Length", strconv.Itoa(len(e.data)))
		}
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		if e == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if e.dir {
			f.list(w, r, p)
			return
		}
		w.Header().Set("Content-Type", f.types[p])
		w.Write(e.data)

	case http.MethodPost:
		if from := r.URL.Query().Get("mv.from"); from != "" {
			f.move(w, path.Clean(from), p)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			f.mkdirAll(p)
			w.WriteHeader(http.StatusCreated)
			return
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		f.mkdirAll(path.Dir(p))
		created := f.tick()
		if e != nil {
			created = e.crtime
		}
		f.entries[p] = &fakeEntry{data: data, crtime: created}
		f.types[p] = hdr.Header.Get("Content-Type")
		if ttl := r.URL.Query().Get("ttl"); ttl != "" {
			f.ttls[p] = ttl
		}
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		if e == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if e.dir && len(f.children(p)) > 0 && r.URL.Query().Get("recursive") != "true" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		for k := range f.entries {
			if k == p || strings.HasPrefix(k, p+"/") {
				delete(f.entries, k)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeFiler) list(w http.ResponseWriter, r *http.Request, p string) {
	f.listings++
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	last := r.URL.Query().Get("lastFileName")

	var page listing
	for _, k := range f.children(p) {
		name := path.Base(k)
		if last != "" && name <= last {
			continue
		}
		if limit > 0 && len(page.Entries) == limit {
			page.ShouldDisplayLoadMore = true
			break
		}
		page.Entries = append(page.Entries, entry{FullPath: k, Crtime: f.entries[k].crtime})
		page.LastFileName = name
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func (f *fakeFiler) move(w http.ResponseWriter, src, dst string) {
	if _, ok := f.entries[src]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.mkdirAll(path.Dir(dst))
	moved := make(map[string]*fakeEntry)
	for k, e := range f.entries {
		if k == src || strings.HasPrefix(k, src+"/") {
			moved[k] = e
		}
	}
	for k, e := range moved {
		delete(f.entries, k)
		f.entries[dst+strings.TrimPrefix(k, src)] = e
	}
	w.WriteHeader(http.StatusOK)
}
