package types

// Scope identifies whose memory a request operates on. Project is the hard
// partition; Owner is the calling identity, empty in single-user deployments.
type Scope struct {
	Project string `json:"project"`
	Owner   string `json:"owner,omitempty"`
}

// Validate rejects scopes without a project.
func (s Scope) Validate() error {
	if s.Project == "" {
		return ErrProjectRequired
	}
	return nil
}
