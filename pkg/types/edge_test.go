package types

import "testing"

func TestParseEdgeType(t *testing.T) {
	tests := []struct {
		in     string
		want   EdgeType
		wantOK bool
	}{
		{"SUPERSEDES", EdgeSupersedes, true},
		{"cites", EdgeCites, true},
		{"depends on", EdgeDependsOn, true},
		{"conflicts_with", EdgeConflictsWith, true},
		{"RELATES_TO", EdgeImpacts, false},
		{"", EdgeImpacts, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseEdgeType(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseEdgeType(%q) = (%v, %v), want (%v, %v)",
					tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestEdgeValidate(t *testing.T) {
	base := Edge{
		Project:  "proj",
		SourceID: "a",
		TargetID: "b",
		Type:     EdgeCites,
	}

	valid := base
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	noProject := base
	noProject.Project = ""
	if err := noProject.Validate(); err != ErrProjectRequired {
		t.Errorf("Validate() = %v, want %v", err, ErrProjectRequired)
	}

	noTarget := base
	noTarget.TargetID = ""
	if err := noTarget.Validate(); err != ErrEmptyID {
		t.Errorf("Validate() = %v, want %v", err, ErrEmptyID)
	}

	badType := base
	badType.Type = EdgeType("FRIENDS_WITH")
	if err := badType.Validate(); err != ErrUnknownEdgeType {
		t.Errorf("Validate() = %v, want %v", err, ErrUnknownEdgeType)
	}
}
