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

import (
	"encoding/json"
	"fmt"

	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/strata/core"
)

// RecordIndent is the indentation used for stored records.
const RecordIndent = "    "

// MarshalRecord serializes a record to indented JSON.
func MarshalRecord(rec core.Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", RecordIndent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalRaw decodes stored record data into its top-level fields.
func UnmarshalRaw(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrSerializationFailed)
	}
	return raw, nil
}

// UnmarshalRecord decodes stored record data into rec.
func UnmarshalRecord(data []byte, rec core.Record) error {
	if err := json.Unmarshal(data, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return nil
}

// RawString returns the string value of a raw field, or "" when the field is
// absent or not a string.
func RawString(raw map[string]json.RawMessage, field string) string {
	v, ok := raw[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// MarshalSeq serializes a sequence number to bytes.
func MarshalSeq(seq uint64) []byte {
	buf := make([]byte, varint.Uint64.Size(seq))
	varint.Uint64.Marshal(seq, buf)
	return buf
}

// UnmarshalSeq deserializes a sequence number from bytes.
func UnmarshalSeq(data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, ErrTruncatedData
	}
	seq, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return seq, nil
}
