// Package ccmemory is a project-scoped memory graph for coding agents. It
// stores typed facts (decisions, corrections, insights, and friends),
// infers provenance edges between decisions from embedding similarity, and
// assembles the resulting graph back into session context.
//
// The entry point is Client, created with New. Callers that only need a
// slice of the API should depend on one of the focused interfaces in
// interfaces.go instead of the full Memory interface.
package ccmemory
