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

// Package index maintains secondary indexes as entries in a Store, turning
// "all campaigns of user X" or "all campaigns containing word W" into a
// listing of one container.
//
// # Layout
//
// Each index kind is a Definition. An entry relating reference id R to
// target id T lives at
//
//	Name/[shard2]/[shard3]/[qualifier...]/R/TargetKind/T._
//
// The shards are the trailing two and three characters of R (after
// encoding) and bound the fan-out of the Name directory. References that may
// hold path-unsafe characters, such as emails and free-text words, are
// stored URL-safe base64 encoded.
//
// # Stores
//
// PathStore keeps entries as zero-byte files through an objects.Store, so
// that the entry's existence is the relation. storage/badger provides an
// embedded alternative with the same ordering guarantees.
//
// # Words
//
// Free text is lower-cased, split on whitespace, stripped of ASCII
// punctuation, and filtered to tokens of three or more characters that are
// not stop words of the configured language.
package index
