package export

// Outcome is the immutable result of attempting to export one notebook.
// Exactly one of OutputPath and FailureDetail is populated, determined by
// Succeeded.
type Outcome struct {
	sourcePath    string
	succeeded     bool
	outputPath    string
	failureDetail string
}

// Succeeded creates a successful outcome.
func Succeeded(sourcePath, outputPath string) Outcome {
	return Outcome{sourcePath: sourcePath, succeeded: true, outputPath: outputPath}
}

// Failed creates a failed outcome. failureDetail must already be sanitized
// of absolute local paths.
func Failed(sourcePath, failureDetail string) Outcome {
	return Outcome{sourcePath: sourcePath, failureDetail: failureDetail}
}

// SourcePath returns the source notebook path.
func (o Outcome) SourcePath() string {
	return o.sourcePath
}

// Succeeded reports whether the export succeeded.
func (o Outcome) Succeeded() bool {
	return o.succeeded
}

// OutputPath returns the produced document path; empty unless Succeeded.
func (o Outcome) OutputPath() string {
	return o.outputPath
}

// FailureDetail returns the sanitized diagnostic; empty when Succeeded.
func (o Outcome) FailureDetail() string {
	return o.failureDetail
}

// BatchResult aggregates the outcomes of one orchestration run. Counts are
// computed from the outcome slice, never stored, so they cannot drift.
// Not safe for concurrent mutation; the orchestrator accumulates outcomes
// from a single collector goroutine.
type BatchResult struct {
	outcomes []Outcome
}

// NewBatchResult creates an empty batch result.
func NewBatchResult() *BatchResult {
	return &BatchResult{}
}

// Add appends one outcome.
func (b *BatchResult) Add(o Outcome) {
	b.outcomes = append(b.outcomes, o)
}

// Outcomes returns a copy of the accumulated outcomes.
func (b *BatchResult) Outcomes() []Outcome {
	out := make([]Outcome, len(b.outcomes))
	copy(out, b.outcomes)
	return out
}

// Total returns the number of work items that reported an outcome.
func (b *BatchResult) Total() int {
	return len(b.outcomes)
}

// SucceededCount returns the number of successful exports.
func (b *BatchResult) SucceededCount() int {
	n := 0
	for _, o := range b.outcomes {
		if o.succeeded {
			n++
		}
	}
	return n
}

// FailedCount returns the number of failed exports.
func (b *BatchResult) FailedCount() int {
	return b.Total() - b.SucceededCount()
}

// AllSucceeded reports whether no export failed.
func (b *BatchResult) AllSucceeded() bool {
	return b.FailedCount() == 0
}

// Failures returns the failed outcomes.
func (b *BatchResult) Failures() []Outcome {
	var failures []Outcome
	for _, o := range b.outcomes {
		if !o.succeeded {
			failures = append(failures, o)
		}
	}
	return failures
}

// Successes returns the successful outcomes.
func (b *BatchResult) Successes() []Outcome {
	var successes []Outcome
	for _, o := range b.outcomes {
		if o.succeeded {
			successes = append(successes, o)
		}
	}
	return successes
}
