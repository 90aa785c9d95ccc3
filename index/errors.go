package index

import "errors"

var (
	// ErrInvalidArgument indicates a reference or target id that cannot be
	// turned into an index path.
	ErrInvalidArgument = errors.New("invalid index argument")

	// ErrInvalidQualifier indicates a missing or unusable qualifier field.
	ErrInvalidQualifier = errors.New("invalid index qualifier")

	// ErrUnknownLanguage indicates a stop-word language that is not bundled.
	ErrUnknownLanguage = errors.New("unknown stop-word language")
)
