package check

// Status classifies a check outcome. Ordering matters: Merge keeps the most
// severe status, and INFO never outranks an assertive outcome.
type Status int

const (
	StatusInfo Status = iota // informational, diagnostic checks only
	StatusPass               // within tolerance
	StatusWarn               // borderline, per check-defined threshold
	StatusError              // violated, or the check itself failed
)

// String returns the report label for the status.
func (s Status) String() string {
	switch s {
	case StatusInfo:
		return "INFO"
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Merge reduces multiple statuses to the most severe one. An empty slice
// merges to INFO.
func Merge(statuses []Status) Status {
	merged := StatusInfo
	for _, s := range statuses {
		if s > merged {
			merged = s
		}
	}
	return merged
}

// Mode distinguishes checks that assert from checks that only report.
type Mode string

const (
	// ModeAssertive checks classify outcomes into PASS, WARN or ERROR.
	ModeAssertive Mode = "assertive"

	// ModeDiagnostic checks never assert: every outcome is reported as INFO.
	ModeDiagnostic Mode = "diagnostic"
)

// Normalize clamps a status to the mode's allowed range: diagnostic checks
// always produce INFO, assertive checks never produce INFO.
func (m Mode) Normalize(s Status) Status {
	if m == ModeDiagnostic {
		return StatusInfo
	}
	if s == StatusInfo {
		return StatusPass
	}
	return s
}

// Intent declares what a check evaluates over.
type Intent string

const (
	// IntentUnary evaluates one execution record at a time.
	IntentUnary Intent = "unary"

	// IntentReference evaluates each non-baseline record against the baseline
	// record for the same input.
	IntentReference Intent = "reference"

	// IntentGroup evaluates the full record set for an input jointly.
	IntentGroup Intent = "group"
)
