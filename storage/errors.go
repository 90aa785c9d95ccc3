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

package storage

import "errors"

var (
	// ErrNotFound indicates that the requested path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotWritten indicates that a write did not complete.
	ErrNotWritten = errors.New("not written")

	// ErrListPath indicates that a path could not be listed.
	ErrListPath = errors.New("cannot list path")

	// ErrLoad indicates that stored data could not be turned into a record.
	ErrLoad = errors.New("cannot load record")

	// ErrDirectoryPath indicates that a file operation was given a
	// directory path.
	ErrDirectoryPath = errors.New("path is a directory")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
