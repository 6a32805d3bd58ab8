// Package report assembles run outcomes into the persisted report document.
//
// A report is self-contained: spec identity, backend, base configuration,
// every slice, every execution record, and every check result. Faults keep
// their codes, so a reader can always tell "slice failed" from "drift" from
// "check errored".
package report

import (
	"time"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/check"
	"github.com/vigil-run/vigil/internal/run"
)

// Meta identifies the run.
type Meta struct {
	RunID      string    `yaml:"run_id" json:"run_id"`
	SpecPath   string    `yaml:"spec" json:"spec"`
	Title      string    `yaml:"title" json:"title"`
	Hypothesis string    `yaml:"hypothesis" json:"hypothesis"`
	Backend    string    `yaml:"backend" json:"backend"`
	StartedAt  time.Time `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time `yaml:"finished_at" json:"finished_at"`
}

// Summary is the aggregate view a reader scans first.
type Summary struct {
	Slices   int            `yaml:"slices" json:"slices"`
	Failures int            `yaml:"failures" json:"failures"`
	Results  map[string]int `yaml:"results" json:"results"`
}

// SliceEntry is one materialized slice as persisted.
type SliceEntry struct {
	ID            string         `yaml:"id" json:"id"`
	InputID       string         `yaml:"input" json:"input"`
	VariationID   string         `yaml:"variation" json:"variation"`
	VariationType string         `yaml:"type" json:"type"`
	Label         string         `yaml:"label,omitempty" json:"label,omitempty"`
	Input         map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
	Function      map[string]any `yaml:"function,omitempty" json:"function,omitempty"`
	Environment   map[string]any `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// FailureEntry mirrors a captured backend failure.
type FailureEntry struct {
	Kind    string `yaml:"kind" json:"kind"`
	Message string `yaml:"message" json:"message"`
}

// RecordEntry is one execution record as persisted.
type RecordEntry struct {
	Slice               string         `yaml:"slice" json:"slice"`
	Source              string         `yaml:"source,omitempty" json:"source,omitempty"`
	Output              map[string]any `yaml:"output,omitempty" json:"output,omitempty"`
	Failure             *FailureEntry  `yaml:"failure,omitempty" json:"failure,omitempty"`
	ResolvedEnvironment map[string]any `yaml:"resolved_environment,omitempty" json:"resolved_environment,omitempty"`
	StartedAt           time.Time      `yaml:"started_at" json:"started_at"`
	FinishedAt          time.Time      `yaml:"finished_at" json:"finished_at"`
	Trace               map[string]any `yaml:"trace,omitempty" json:"trace,omitempty"`
}

// ResultEntry is one check result as persisted. Status is the report label
// (INFO, PASS, WARN, ERROR).
type ResultEntry struct {
	Check   string         `yaml:"check" json:"check"`
	Status  string         `yaml:"status" json:"status"`
	Scope   check.Scope    `yaml:"scope" json:"scope"`
	Details map[string]any `yaml:"details,omitempty" json:"details,omitempty"`
	Fault   *check.Fault   `yaml:"fault,omitempty" json:"fault,omitempty"`
}

// Report is the full persisted document.
type Report struct {
	Meta    Meta   `yaml:"run" json:"run"`
	Verdict string `yaml:"verdict" json:"verdict"`

	Summary Summary `yaml:"summary" json:"summary"`

	BaseFunction    map[string]any `yaml:"base_function,omitempty" json:"base_function,omitempty"`
	BaseEnvironment map[string]any `yaml:"base_environment,omitempty" json:"base_environment,omitempty"`

	Slices  []SliceEntry  `yaml:"slices" json:"slices"`
	Records []RecordEntry `yaml:"records" json:"records"`
	Results []ResultEntry `yaml:"results" json:"results"`
}

// Assemble builds the report from a completed run. Slice, record and result
// order is preserved from execution and evaluation.
func Assemble(meta Meta, base backend.Config, set *run.Set, results []*check.Result) *Report {
	rep := &Report{
		Meta:            meta,
		BaseFunction:    base.Function,
		BaseEnvironment: base.Environment,
		Summary: Summary{
			Slices:  len(set.Records()),
			Results: make(map[string]int),
		},
	}

	for _, rec := range set.Records() {
		s := rec.Slice
		rep.Slices = append(rep.Slices, SliceEntry{
			ID:            s.ID(),
			InputID:       s.InputID,
			VariationID:   s.VariationID,
			VariationType: s.VariationType,
			Label:         s.Label,
			Input:         s.Input,
			Function:      s.Function,
			Environment:   s.Environment,
		})

		entry := RecordEntry{
			Slice:               rec.SliceID(),
			Source:              rec.Source,
			Output:              rec.Output,
			ResolvedEnvironment: rec.ResolvedEnvironment,
			StartedAt:           rec.StartedAt,
			FinishedAt:          rec.FinishedAt,
			Trace:               rec.Trace,
		}
		if rec.Failed() {
			entry.Failure = &FailureEntry{Kind: rec.Failure.Kind, Message: rec.Failure.Message}
			rep.Summary.Failures++
		}
		rep.Records = append(rep.Records, entry)
	}

	statuses := make([]check.Status, 0, len(results))
	for _, res := range results {
		rep.Results = append(rep.Results, ResultEntry{
			Check:   res.CheckName,
			Status:  res.Status.String(),
			Scope:   res.Scope,
			Details: res.Details,
			Fault:   res.Fault,
		})
		rep.Summary.Results[res.Status.String()]++
		statuses = append(statuses, res.Status)
	}

	verdict := check.Merge(statuses)
	if verdict == check.StatusInfo {
		// Nothing asserted; the run itself succeeding is the outcome.
		verdict = check.StatusPass
	}
	rep.Verdict = verdict.String()

	return rep
}

// TrimPayloads drops the bulky payload maps from slices and records, keeping
// identities, failures and results intact. Used for large corpora where the
// payloads are already on disk next to the spec.
func (r *Report) TrimPayloads() {
	for i := range r.Slices {
		r.Slices[i].Input = nil
		r.Slices[i].Function = nil
		r.Slices[i].Environment = nil
	}
	for i := range r.Records {
		r.Records[i].Output = nil
		r.Records[i].ResolvedEnvironment = nil
		r.Records[i].Trace = nil
	}
	r.BaseFunction = nil
	r.BaseEnvironment = nil
}
