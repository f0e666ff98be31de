package types

import (
	"errors"
	"strings"
	"time"
)

// Validation errors
var (
	ErrProjectRequired = errors.New("project cannot be empty")
	ErrEmptyID         = errors.New("id cannot be empty")
	ErrMissingField    = errors.New("missing required payload field")
	ErrUnknownFactType = errors.New("unknown fact type")
	ErrUnknownEdgeType = errors.New("unknown edge type")
	ErrInvalidLimit    = errors.New("limit must be positive")
)

// FactType discriminates the payload carried by a Fact.
type FactType string

const (
	FactDecision       FactType = "decision"
	FactCorrection     FactType = "correction"
	FactException      FactType = "exception"
	FactInsight        FactType = "insight"
	FactQuestion       FactType = "question"
	FactFailedApproach FactType = "failed_approach"
	FactProject        FactType = "project_fact"
	FactReference      FactType = "reference"
)

// AllFactTypes returns every fact type in a stable order.
func AllFactTypes() []FactType {
	return []FactType{
		FactDecision,
		FactCorrection,
		FactException,
		FactInsight,
		FactQuestion,
		FactFailedApproach,
		FactProject,
		FactReference,
	}
}

// Valid reports whether t names a known fact type.
func (t FactType) Valid() bool {
	for _, known := range AllFactTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// DecisionStatus is the lifecycle state of a Decision fact.
type DecisionStatus string

const (
	// StatusDevelopmental marks a decision captured but not yet vetted.
	StatusDevelopmental DecisionStatus = "developmental"
	// StatusCurated marks a vetted, team-visible decision. Terminal.
	StatusCurated DecisionStatus = "curated"
)

// Decision records a choice made during a session.
type Decision struct {
	Description    string `json:"description"`
	Rationale      string `json:"rationale,omitempty"`
	RevisitTrigger string `json:"revisit_trigger,omitempty"`
}

// Correction records a belief the user corrected.
type Correction struct {
	WrongBelief string `json:"wrong_belief"`
	RightBelief string `json:"right_belief"`
	Severity    string `json:"severity,omitempty"`
}

// Exception records a sanctioned break of an established rule.
type Exception struct {
	RuleBroken    string `json:"rule_broken"`
	Justification string `json:"justification"`
	Scope         string `json:"scope,omitempty"`
}

// Insight records a realization worth keeping.
type Insight struct {
	Category     string `json:"category,omitempty"`
	Summary      string `json:"summary"`
	Implications string `json:"implications,omitempty"`
}

// Question records an open or answered question.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Context  string `json:"context,omitempty"`
}

// FailedApproach records something that was tried and did not work.
type FailedApproach struct {
	Approach string `json:"approach"`
	Outcome  string `json:"outcome,omitempty"`
	Lesson   string `json:"lesson,omitempty"`
}

// ProjectFact records a project convention, tool, or pattern.
type ProjectFact struct {
	Category  string `json:"category,omitempty"`
	Statement string `json:"statement"`
}

// Reference records a URL or file path mentioned in conversation.
type Reference struct {
	Kind string `json:"kind"` // "url" or "file_path"
	URI  string `json:"uri"`
}

// Fact is a typed node in the memory graph. Exactly one payload pointer is
// set, matching Type. Everything except Status (and PromotedAt) is immutable
// after creation.
type Fact struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	Owner     string    `json:"owner,omitempty"`
	Type      FactType  `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Status is only meaningful for Decision facts.
	Status     DecisionStatus `json:"status,omitempty"`
	PromotedAt *time.Time     `json:"promoted_at,omitempty"`

	Embedding []float32 `json:"embedding,omitempty"`
	Topics    []string  `json:"topics,omitempty"`

	DetectionConfidence float64 `json:"detection_confidence,omitempty"`
	DetectionMethod     string  `json:"detection_method,omitempty"`

	Decision       *Decision       `json:"decision,omitempty"`
	Correction     *Correction     `json:"correction,omitempty"`
	Exception      *Exception      `json:"exception,omitempty"`
	Insight        *Insight        `json:"insight,omitempty"`
	Question       *Question       `json:"question,omitempty"`
	FailedApproach *FailedApproach `json:"failed_approach,omitempty"`
	ProjectFact    *ProjectFact    `json:"project_fact,omitempty"`
	Reference      *Reference      `json:"reference,omitempty"`
}

// Validate checks structural requirements: project, type, and the payload
// fields the type cannot exist without.
func (f *Fact) Validate() error {
	if f.Project == "" {
		return ErrProjectRequired
	}
	switch f.Type {
	case FactDecision:
		if f.Decision == nil || f.Decision.Description == "" {
			return ErrMissingField
		}
	case FactCorrection:
		if f.Correction == nil || f.Correction.RightBelief == "" {
			return ErrMissingField
		}
	case FactException:
		if f.Exception == nil || f.Exception.RuleBroken == "" {
			return ErrMissingField
		}
	case FactInsight:
		if f.Insight == nil || f.Insight.Summary == "" {
			return ErrMissingField
		}
	case FactQuestion:
		if f.Question == nil || f.Question.Question == "" {
			return ErrMissingField
		}
	case FactFailedApproach:
		if f.FailedApproach == nil || f.FailedApproach.Approach == "" {
			return ErrMissingField
		}
	case FactProject:
		if f.ProjectFact == nil || f.ProjectFact.Statement == "" {
			return ErrMissingField
		}
	case FactReference:
		if f.Reference == nil || f.Reference.URI == "" {
			return ErrMissingField
		}
	default:
		return ErrUnknownFactType
	}
	return nil
}

// ValidateForCreate additionally requires an assigned ID.
func (f *Fact) ValidateForCreate() error {
	if f.ID == "" {
		return ErrEmptyID
	}
	return f.Validate()
}

// Text returns the embeddable/searchable text of the fact.
func (f *Fact) Text() string {
	switch f.Type {
	case FactDecision:
		return join(f.Decision.Description, f.Decision.Rationale)
	case FactCorrection:
		return join(f.Correction.WrongBelief, f.Correction.RightBelief)
	case FactException:
		return join(f.Exception.RuleBroken, f.Exception.Justification)
	case FactInsight:
		return join(f.Insight.Summary, f.Insight.Implications)
	case FactQuestion:
		return join(f.Question.Question, f.Question.Answer)
	case FactFailedApproach:
		return join(f.FailedApproach.Approach, f.FailedApproach.Lesson)
	case FactProject:
		return f.ProjectFact.Statement
	case FactReference:
		return f.Reference.URI
	}
	return ""
}

func join(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// HasEmbedding reports whether the fact participates in vector operations.
func (f *Fact) HasEmbedding() bool {
	return len(f.Embedding) > 0
}

// HasTopic reports whether the fact carries the given topic tag.
func (f *Fact) HasTopic(topic string) bool {
	for _, t := range f.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// SharesTopic reports whether two facts have at least one topic in common.
func (f *Fact) SharesTopic(other *Fact) bool {
	for _, t := range f.Topics {
		if other.HasTopic(t) {
			return true
		}
	}
	return false
}

// VisibleTo reports whether a caller may read this fact. A fact is visible
// to its owner; with includeTeam, curated Decisions and ProjectFacts are
// visible to everyone. An empty callerOwner disables owner filtering
// entirely (single-user deployments have no identity).
func (f *Fact) VisibleTo(callerOwner string, includeTeam bool) bool {
	if callerOwner == "" {
		return true
	}
	if f.Owner == callerOwner {
		return true
	}
	if !includeTeam {
		return false
	}
	if f.Type == FactDecision {
		return f.Status == StatusCurated
	}
	return f.Type == FactProject
}
