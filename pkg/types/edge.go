package types

import "time"

// EdgeType is the relationship carried by an Edge. Only Decision→Decision
// edges exist in the current model.
type EdgeType string

const (
	// EdgeSupersedes marks a newer decision replacing a strictly older one.
	EdgeSupersedes EdgeType = "SUPERSEDES"
	// EdgeCites marks a topical reference to a prior decision.
	EdgeCites EdgeType = "CITES"
	// EdgeContinues marks follow-on work on the same topic.
	EdgeContinues     EdgeType = "CONTINUES"
	EdgeDependsOn     EdgeType = "DEPENDS_ON"
	EdgeConstrains    EdgeType = "CONSTRAINS"
	EdgeConflictsWith EdgeType = "CONFLICTS_WITH"
	EdgeImpacts       EdgeType = "IMPACTS"
)

// ParseEdgeType normalizes a caller-supplied relationship name. Unknown
// names coerce to the generic IMPACTS type; ok reports whether the input
// matched the enum.
func ParseEdgeType(s string) (t EdgeType, ok bool) {
	normalized := EdgeType(normalizeRelName(s))
	switch normalized {
	case EdgeSupersedes, EdgeCites, EdgeContinues, EdgeDependsOn,
		EdgeConstrains, EdgeConflictsWith, EdgeImpacts:
		return normalized, true
	}
	return EdgeImpacts, false
}

func normalizeRelName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c == ' ':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// Edge is a typed provenance relationship between two facts in the same
// project. Auto distinguishes similarity-inferred edges from explicitly
// asserted ones; only auto edges may be bulk-deleted and rebuilt.
type Edge struct {
	ID         string    `json:"id"`
	Project    string    `json:"project"`
	SourceID   string    `json:"source_id"`
	TargetID   string    `json:"target_id"`
	Type       EdgeType  `json:"type"`
	Similarity float64   `json:"similarity,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Auto       bool      `json:"auto"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks required edge fields.
func (e *Edge) Validate() error {
	if e.Project == "" {
		return ErrProjectRequired
	}
	if e.SourceID == "" || e.TargetID == "" {
		return ErrEmptyID
	}
	if _, ok := ParseEdgeType(string(e.Type)); !ok {
		return ErrUnknownEdgeType
	}
	return nil
}
