package run

// Set is the complete, ordered collection of execution records for a run.
// Checks evaluate exclusively over a Set; they never trigger new execution
// and never mutate records.
type Set struct {
	records []*Record

	byInput   map[string][]*Record
	baselines map[string]*Record
	inputIDs  []string
}

// NewSet builds a Set from records in execution order.
func NewSet(records []*Record) *Set {
	s := &Set{
		records:   records,
		byInput:   make(map[string][]*Record),
		baselines: make(map[string]*Record),
	}
	for _, rec := range records {
		id := rec.InputID()
		if _, seen := s.byInput[id]; !seen {
			s.inputIDs = append(s.inputIDs, id)
		}
		s.byInput[id] = append(s.byInput[id], rec)
		if rec.Slice.IsBaseline() {
			s.baselines[id] = rec
		}
	}
	return s
}

// Records returns all records in execution order.
func (s *Set) Records() []*Record { return s.records }

// InputIDs returns the input identifiers in first-occurrence order.
func (s *Set) InputIDs() []string { return s.inputIDs }

// ByInput returns the records for one input in execution order.
func (s *Set) ByInput(inputID string) []*Record { return s.byInput[inputID] }

// Baseline returns the baseline record for an input, or nil when the run had
// no "none" variation for it.
func (s *Set) Baseline(inputID string) *Record { return s.baselines[inputID] }

// Variants returns the non-baseline records for one input in execution order.
func (s *Set) Variants(inputID string) []*Record {
	var out []*Record
	for _, rec := range s.byInput[inputID] {
		if !rec.Slice.IsBaseline() {
			out = append(out, rec)
		}
	}
	return out
}
