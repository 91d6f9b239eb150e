package model

import "strings"

// SourceKind identifies where a data point came from. Kinds are totally
// ordered by Priority; higher priority data may overwrite lower.
type SourceKind string

const (
	SourceKindSEC          SourceKind = "sec"
	SourceKindAPI          SourceKind = "api"
	SourceKindHistorical   SourceKind = "historical"
	SourceKindUserProvided SourceKind = "user_provided"
	SourceKindInterpolated SourceKind = "interpolated"
	SourceKindUnknown      SourceKind = "unknown"
)

var sourcePriority = map[SourceKind]int{
	SourceKindSEC:          5,
	SourceKindAPI:          4,
	SourceKindHistorical:   3,
	SourceKindUserProvided: 2,
	SourceKindInterpolated: 1,
	SourceKindUnknown:      1,
}

// Priority returns the rank of k. Unrecognized kinds rank with unknown.
func (k SourceKind) Priority() int {
	if p, ok := sourcePriority[k]; ok {
		return p
	}
	return 1
}

// Valid reports whether k is one of the declared kinds.
func (k SourceKind) Valid() bool {
	_, ok := sourcePriority[k]
	return ok
}

// citationMarkers is checked in order; the first marker found wins.
var citationMarkers = []struct {
	marker string
	kind   SourceKind
}{
	{"SEC", SourceKindSEC},
	{"API", SourceKindAPI},
	{"Historical records", SourceKindHistorical},
	{"User provided data", SourceKindUserProvided},
	{"INTERPOLATED", SourceKindInterpolated},
}

// ClassifyCitation derives a source kind from free-text citation markers.
func ClassifyCitation(citation string) SourceKind {
	for _, m := range citationMarkers {
		if strings.Contains(citation, m.marker) {
			return m.kind
		}
	}
	return SourceKindUnknown
}
