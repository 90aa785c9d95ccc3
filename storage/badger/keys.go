package badger

// Key prefixes for different data types
const (
	indexEntryPrefix = "idx"
	indexEntrySeq    = "idxseq"
)

// keySep separates a container from its member. It cannot occur in a
// container path or a target id.
const keySep = "\x00"

// makeIndexContainerPrefix generates the prefix shared by all entries of a
// container.
// Format: prefix:container\x00
func makeIndexContainerPrefix(container string) []byte {
	prefix := indexEntryPrefix + ":"
	buf := make([]byte, 0, len(prefix)+len(container)+len(keySep))
	buf = append(buf, prefix...)
	buf = append(buf, container...)
	buf = append(buf, keySep...)
	return buf
}

// makeIndexEntryKey generates the key of one container member.
// Format: prefix:container\x00member
func makeIndexEntryKey(container, member string) []byte {
	return append(makeIndexContainerPrefix(container), member...)
}
