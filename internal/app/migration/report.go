package migration

import (
	"time"

	"github.com/google/uuid"

	"github.com/propflow/migrator/internal/domain"
)

// Phase names, in canonical execution order.
const (
	PhaseExtract    = "extract"
	PhaseDimensions = "dimensions"
	PhasePrimary    = "primary"
	PhaseMedia      = "media"
	PhaseValidate   = "validate"
)

var allPhases = []string{PhaseExtract, PhaseDimensions, PhasePrimary, PhaseMedia, PhaseValidate}

// PhaseResult holds the outcome of a single pipeline phase.
type PhaseResult struct {
	Attempted int
	Succeeded int
	Skipped   int
	Errored   int
	Duration  time.Duration
	Err       error

	// Errors samples the first errorSampleSize per-record failures;
	// the Errored count keeps the true total.
	Errors []domain.RecordError
}

// recordError appends a sampled per-record error and bumps the count.
func (r *PhaseResult) recordError(externalID, msg string, sampleSize int) {
	r.Errored++
	if len(r.Errors) < sampleSize {
		r.Errors = append(r.Errors, domain.RecordError{ExternalID: externalID, Message: msg})
	}
}

// merge folds another result into this one, keeping the sample bounded.
func (r *PhaseResult) merge(other PhaseResult, sampleSize int) {
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Skipped += other.Skipped
	r.Errored += other.Errored
	for _, e := range other.Errors {
		if len(r.Errors) >= sampleSize {
			break
		}
		r.Errors = append(r.Errors, e)
	}
}

// Report is the run's primary observable output besides the migrated rows.
type Report struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Phases     map[string]PhaseResult

	// ExpectedTotal is the source-reported record count (approximate).
	ExpectedTotal int
	// SuccessRatio is migrated primary rows over ExpectedTotal, computed
	// by the validation phase. Reporting only, never a rollback trigger.
	SuccessRatio float64

	// Fatal is set when the run halted on a setup failure before the
	// phases could do useful work.
	Fatal error
}

// Totals sums the primary-phase counters, the numbers that matter for
// "did the data arrive".
func (r *Report) Totals() (attempted, succeeded, skipped, errored int) {
	p := r.Phases[PhasePrimary]
	return p.Attempted, p.Succeeded, p.Skipped, p.Errored
}

// HasErrors returns true if any phase recorded errors.
func (r *Report) HasErrors() bool {
	for _, p := range r.Phases {
		if p.Err != nil || p.Errored > 0 {
			return true
		}
	}
	return false
}
