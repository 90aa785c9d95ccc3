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

package core

import "errors"

// Domain validation errors
var (
	// ErrIDTooShort indicates an id too short to derive shard segments from.
	ErrIDTooShort = errors.New("id must be at least 3 characters")

	// ErrMissingField indicates stored data lacks a field the record kind requires.
	ErrMissingField = errors.New("required field missing")

	// ErrUnknownKind indicates a kind name that is not registered.
	ErrUnknownKind = errors.New("unknown record kind")

	// ErrEmptyID indicates a record without an id where one is required.
	ErrEmptyID = errors.New("record id cannot be empty")
)
