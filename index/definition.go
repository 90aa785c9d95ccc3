package index

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MarkerSuffix is appended to a target id to form its marker name.
const MarkerSuffix = "._"

// LatestRef is the reference id of the single latest-campaigns container.
const LatestRef = "latest"

// Definition declares an index kind.
type Definition struct {
	// Name is the first path segment of every entry.
	Name string

	// PartitionDepth is the number of shard segments (0, 1 or 2) taken
	// from the trailing characters of the reference id.
	PartitionDepth int

	// EncodeRef stores the reference id base64 encoded, for ids holding
	// characters that are unsafe in a path segment.
	EncodeRef bool

	// Qualifiers are extra fields that must be supplied and are placed
	// between the shards and the reference id, in this order.
	Qualifiers []string

	// TargetKind names the container holding the target markers.
	TargetKind string
}

// Built-in index kinds.
var (
	UserCampaigns     = Definition{Name: "UserCampaignIndex", PartitionDepth: 1, TargetKind: "Campaigns"}
	EmailUsers        = Definition{Name: "EmailUserIndex", PartitionDepth: 2, EncodeRef: true, TargetKind: "Users"}
	CategoryCampaigns = Definition{Name: "CategoryCampaignIndex", TargetKind: "Campaigns"}
	WordCampaigns     = Definition{Name: "WordCampaignIndex", PartitionDepth: 2, EncodeRef: true, TargetKind: "Campaigns"}
	BestCampaigns     = Definition{Name: "CampaignBestIndex", TargetKind: "BestCampaigns"}
	WorstCampaigns    = Definition{Name: "CampaignWorstIndex", TargetKind: "WorstCampaigns"}
	LatestCampaigns   = Definition{Name: "LatestCampaignIndex", TargetKind: "LatestCampaigns"}
)

// Definitions returns the built-in index kinds.
func Definitions() []Definition {
	return []Definition{
		UserCampaigns,
		EmailUsers,
		CategoryCampaigns,
		WordCampaigns,
		BestCampaigns,
		WorstCampaigns,
		LatestCampaigns,
	}
}

// Lookup returns the built-in definition with the given name.
func Lookup(name string) (Definition, bool) {
	for _, d := range Definitions() {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// EncodeRefID returns the path segment stored for ref.
func (d Definition) EncodeRefID(ref string) string {
	if d.EncodeRef {
		return base64.RawURLEncoding.EncodeToString([]byte(ref))
	}
	return ref
}

// shardSource strips padding and right-pads with zeros to three characters.
func shardSource(s string) string {
	s = strings.ReplaceAll(s, "=", "")
	for len(s) < 3 {
		s += "0"
	}
	return s
}

// BuildPath assembles Name/[shards]/[qualifiers]/ref/TargetKind[/target._].
// An empty target yields the container path that lists the targets.
func BuildPath(d Definition, sep, ref, target string, qualifiers map[string]string) (string, error) {
	quals := make([]string, 0, len(d.Qualifiers))
	for _, q := range d.Qualifiers {
		v, ok := qualifiers[q]
		if !ok {
			return "", fmt.Errorf("%w: %s requires %q", ErrInvalidQualifier, d.Name, q)
		}
		if v == "" || strings.Contains(v, sep) {
			return "", fmt.Errorf("%w: %s %q=%q", ErrInvalidQualifier, d.Name, q, v)
		}
		quals = append(quals, v)
	}

	if ref == "" || len(ref) < d.PartitionDepth {
		return "", fmt.Errorf("%w: %s ref %q shorter than %d characters", ErrInvalidArgument, d.Name, ref, d.PartitionDepth)
	}
	encoded := d.EncodeRefID(ref)
	if strings.Contains(encoded, sep) {
		return "", fmt.Errorf("%w: %s ref %q contains the separator", ErrInvalidArgument, d.Name, ref)
	}
	if strings.Contains(target, sep) {
		return "", fmt.Errorf("%w: %s target %q contains the separator", ErrInvalidArgument, d.Name, target)
	}

	parts := []string{d.Name}
	src := shardSource(encoded)
	switch d.PartitionDepth {
	case 1:
		parts = append(parts, src[len(src)-3:])
	case 2:
		parts = append(parts, src[len(src)-2:], src[len(src)-3:])
	}
	parts = append(parts, quals...)
	parts = append(parts, encoded, d.TargetKind)
	if target != "" {
		parts = append(parts, target+MarkerSuffix)
	}
	return strings.Join(parts, sep), nil
}
