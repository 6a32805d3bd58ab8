package engine

import (
	"fmt"
	"log/slog"

	"github.com/vigil-run/vigil/internal/check"
	"github.com/vigil-run/vigil/internal/run"
)

// Evaluate runs every resolved check over the record set and returns results
// in check declaration order, inputs and records inner.
//
// Faults are results, not errors: a check that panics or errors converts to a
// CHECK_ERROR result attributed to that check and evaluation continues. A
// missing baseline surfaces as REFERENCE_MISSING, never as a silent PASS.
func Evaluate(checks []*check.Resolved, set *run.Set, logger *slog.Logger) []*check.Result {
	var results []*check.Result
	for _, c := range checks {
		switch c.Intent {
		case check.IntentUnary:
			results = append(results, evaluateUnary(c, set, logger)...)
		case check.IntentReference:
			results = append(results, evaluateReference(c, set, logger)...)
		case check.IntentGroup:
			results = append(results, evaluateGroup(c, set, logger)...)
		default:
			results = append(results, faultResult(c, check.Scope{},
				check.FaultCheckError, fmt.Sprintf("unknown intent %q", c.Intent)))
		}
	}
	return results
}

func evaluateUnary(c *check.Resolved, set *run.Set, logger *slog.Logger) []*check.Result {
	impl := c.Impl.(check.Unary)
	var results []*check.Result
	for _, rec := range set.Records() {
		scope := check.Scope{InputID: rec.InputID(), SliceIDs: []string{rec.SliceID()}}

		// Assertive checks cannot judge a slice that never executed; diagnostic
		// checks still see it and report what happened.
		if rec.Failed() && c.Mode == check.ModeAssertive {
			results = append(results, faultResult(c, scope, check.FaultSliceFailed, rec.Failure.String()))
			continue
		}

		st, details, err := safeCall(func() (check.Status, map[string]any, error) {
			return impl.CheckRecord(rec)
		})
		results = append(results, finish(c, scope, st, details, err, logger))
	}
	return results
}

func evaluateReference(c *check.Resolved, set *run.Set, logger *slog.Logger) []*check.Result {
	impl := c.Impl.(check.Reference)
	var results []*check.Result
	for _, inputID := range set.InputIDs() {
		baseline := set.Baseline(inputID)
		if baseline == nil {
			results = append(results, faultResult(c, check.Scope{InputID: inputID},
				check.FaultReferenceMissing, "no baseline slice for input"))
			continue
		}

		for _, rec := range set.Variants(inputID) {
			scope := check.Scope{
				InputID:  inputID,
				SliceIDs: []string{rec.SliceID(), baseline.SliceID()},
			}
			if baseline.Failed() {
				results = append(results, faultResult(c, scope, check.FaultSliceFailed,
					"baseline "+baseline.Failure.String()))
				continue
			}
			if rec.Failed() {
				results = append(results, faultResult(c, scope, check.FaultSliceFailed, rec.Failure.String()))
				continue
			}

			st, details, err := safeCall(func() (check.Status, map[string]any, error) {
				return impl.Compare(rec, baseline)
			})
			results = append(results, finish(c, scope, st, details, err, logger))
		}
	}
	return results
}

func evaluateGroup(c *check.Resolved, set *run.Set, logger *slog.Logger) []*check.Result {
	impl := c.Impl.(check.Group)
	var results []*check.Result
	for _, inputID := range set.InputIDs() {
		recs := set.ByInput(inputID)

		usable := make([]*run.Record, 0, len(recs))
		for _, rec := range recs {
			if !rec.Failed() {
				usable = append(usable, rec)
			}
		}

		scope := check.Scope{InputID: inputID, SliceIDs: sliceIDs(usable)}
		if len(usable) == 0 {
			results = append(results, faultResult(c, scope, check.FaultSliceFailed,
				"no slice in group executed"))
			continue
		}

		st, details, err := safeCall(func() (check.Status, map[string]any, error) {
			return impl.CheckGroup(usable)
		})
		if excluded := len(recs) - len(usable); excluded > 0 && err == nil {
			if details == nil {
				details = make(map[string]any)
			}
			details["slices_excluded"] = excluded
		}
		results = append(results, finish(c, scope, st, details, err, logger))
	}
	return results
}

// safeCall runs one check invocation, converting a panic into an error so a
// misbehaving check degrades to a CHECK_ERROR result.
func safeCall(fn func() (check.Status, map[string]any, error)) (st check.Status, details map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	return fn()
}

func finish(c *check.Resolved, scope check.Scope, st check.Status, details map[string]any, err error, logger *slog.Logger) *check.Result {
	if err != nil {
		logger.Warn("check errored", "check", c.Name, "input", scope.InputID, "error", err)
		return faultResult(c, scope, check.FaultCheckError, err.Error())
	}
	res := &check.Result{
		CheckName: c.Name,
		Scope:     scope,
		Status:    c.Mode.Normalize(st),
		Details:   details,
	}
	annotate(c, res)
	return res
}

func faultResult(c *check.Resolved, scope check.Scope, code, msg string) *check.Result {
	res := &check.Result{
		CheckName: c.Name,
		Scope:     scope,
		Status:    check.StatusError,
		Fault:     &check.Fault{Code: code, Message: msg},
	}
	annotate(c, res)
	return res
}

func annotate(c *check.Resolved, res *check.Result) {
	if c.Label == "" {
		return
	}
	if res.Details == nil {
		res.Details = make(map[string]any)
	}
	res.Details["label"] = c.Label
}

func sliceIDs(recs []*run.Record) []string {
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.SliceID()
	}
	return ids
}
