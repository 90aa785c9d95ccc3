package core

import (
	"fmt"
	"strings"
)

// DataFile is the name of the file holding a record's serialized form.
const DataFile = "data.json"

// MinIDLength is the shortest id a shard path can be derived from.
const MinIDLength = 3

// ParentPath returns the directory holding a record:
// Kind/<last 2 of id>/<last 3 of id>/<id>.
func ParentPath(sep, kind, id string) (string, error) {
	if len(id) < MinIDLength {
		return "", fmt.Errorf("%w: %q", ErrIDTooShort, id)
	}
	return strings.Join([]string{kind, id[len(id)-2:], id[len(id)-3:], id}, sep), nil
}

// RecordPath returns the full relative path of a record's data file.
func RecordPath(sep, kind, id string) (string, error) {
	parent, err := ParentPath(sep, kind, id)
	if err != nil {
		return "", err
	}
	return parent + sep + DataFile, nil
}

// PathOf returns the data file path for rec using its current id.
func PathOf(sep string, rec Record) (string, error) {
	return RecordPath(sep, rec.RecordKind(), rec.Metadata().ID)
}

// ParentOf returns the directory path for rec using its current id.
func ParentOf(sep string, rec Record) (string, error) {
	return ParentPath(sep, rec.RecordKind(), rec.Metadata().ID)
}
