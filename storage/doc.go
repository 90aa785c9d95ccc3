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

// Package storage provides the storage abstraction layer for strata.
//
// This package defines the Backend interface that decouples the object store
// and the index engine from the blob service holding the data. Two backends
// ship with strata:
//
//   - storage/local: a directory tree on a go-billy filesystem
//   - storage/remote: a SeaweedFS filer reached over HTTP
//
// A third package, storage/badger, does not implement Backend. It provides
// an alternative index.Store kept in an embedded BadgerDB.
//
// # Error Taxonomy
//
// Backends report failures with the sentinel errors in this package, wrapped
// with context:
//
//	ErrNotFound       the path does not exist
//	ErrNotWritten     a Put failed
//	ErrListPath       a List failed
//	ErrDirectoryPath  a file operation was given a directory path
//	ErrLoad           stored data could not be decoded (object store)
//
// Test with errors.Is.
//
// # Metrics
//
// Instrument wraps any Backend and records per-operation counters and
// latency histograms in a Prometheus registry:
//
//	b = storage.Instrument(b, storage.NewMetrics(prometheus.DefaultRegisterer))
//
// # Thread Safety
//
// All Backend implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All Backend methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
