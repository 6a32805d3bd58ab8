// Package spec parses behavioural-verification specifications.
//
// A specification is a YAML or JSON document with top-level keys `title?`,
// `hypothesis`, `inputs`, `variations`, and `checks`. Parsing validates the
// document against an embedded CUE schema, expands sugar constructs
// (`repeat` blocks) into a flat variation list, and resolves variation and
// check names against their registries so that unknown names fail fast,
// before any backend executes.
package spec

import (
	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/check"
	"github.com/vigil-run/vigil/internal/vary"
)

// InputRecord is one declared input: an opaque data mapping with an
// identifier, passed by value into execution and never mutated in place. An
// optional Reference output substitutes for executing the baseline slice.
type InputRecord struct {
	ID        string
	Data      backend.Input
	Reference backend.Output // nil unless declared
}

// VariationSpec is one entry in the variation list. After expansion only
// resolved single-effect entries remain: Type is either "none" or a
// registered transform type, and Domain is filled from the registry.
type VariationSpec struct {
	Type   string
	Domain vary.Domain // empty for "none"
	Params map[string]any

	// Sugar fields, present only before expansion.
	Times int
	Do    []VariationSpec
}

// IsNone reports whether the entry is the explicit baseline.
func (v *VariationSpec) IsNone() bool { return v.Type == vary.TypeNone }

// Document is a parsed, expanded, and resolved specification.
type Document struct {
	Path       string
	Title      string
	Hypothesis string

	Inputs []InputRecord

	// Variations is the flat, expanded list. Never contains repeat entries;
	// contains exactly the authored entries otherwise, in order. Empty
	// authored lists normalize to a single "none" entry (baseline-only run).
	Variations []VariationSpec

	Checks []*check.Resolved
}
