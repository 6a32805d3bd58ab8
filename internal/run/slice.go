// Package run holds the execution-time data model shared by the engine,
// checks, and report assembly: slices, execution records, and the record set
// checks evaluate over.
package run

import (
	"fmt"

	"github.com/vigil-run/vigil/internal/backend"
)

// BaselineID is the variation identifier of slices produced by the reserved
// "none" variation. Baseline slices are the reference point for
// reference-intent checks.
const BaselineID = "baseline"

// Slice is one fully resolved execution unit: an input payload together with
// the function and environment configuration it runs under. A slice is
// constructed once by the materializer and is immutable thereafter; it is
// uniquely identified by (InputID, VariationID).
type Slice struct {
	InputID     string
	VariationID string

	// VariationType is the variation's registered type name, or "none".
	VariationType string

	// Label is the author-supplied annotation from the variation's "label"
	// param. Empty when the author gave none.
	Label string

	Input       backend.Input
	Function    backend.FunctionConfig
	Environment backend.EnvironmentConfig

	// Reference is a declared expected output for baseline slices. When set,
	// the orchestrator records it directly instead of executing the backend.
	Reference backend.Output
}

// ID returns the composite slice identifier.
func (s *Slice) ID() string {
	return fmt.Sprintf("input-%s-%s", s.InputID, s.VariationID)
}

// IsBaseline reports whether this slice was produced by the "none" variation.
func (s *Slice) IsBaseline() bool {
	return s.VariationID == BaselineID
}
