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

// Package search finds campaigns by the words of their title and
// description.
//
// The Searcher cleans the query the same way the word index cleans campaign
// text, takes the union of the ids indexed under each remaining word, caps
// it, loads the campaigns and orders them by most recent contribution.
// Optionally only campaigns containing every query word are kept.
package search
