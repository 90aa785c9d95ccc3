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

import (
	"encoding/json"
	"fmt"
)

// CheckRequired verifies that raw stored data carries every field rec
// declares as required.
//
// Only presence is checked. Values are validated by decoding into the
// record's Go type; anything beyond that is the caller's business.
func CheckRequired(raw map[string]json.RawMessage, rec Record) error {
	for _, field := range rec.RequiredFields() {
		if _, ok := raw[field]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrMissingField, rec.RecordKind(), field)
		}
	}
	return nil
}

// ValidateID checks that id can be stored.
func ValidateID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(id) < MinIDLength {
		return fmt.Errorf("%w: %q", ErrIDTooShort, id)
	}
	return nil
}
