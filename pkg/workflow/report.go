package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// StepResult records one executed step.
type StepResult struct {
	Name     string
	Duration time.Duration
	// BestEffort steps report failures without aborting the run.
	BestEffort bool
	Err        error
}

// Report summarizes a demo run: which steps ran, in order, and how long
// they took.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
}

// Failed returns the steps that reported an error.
func (r Report) Failed() []StepResult {
	return lo.Filter(r.Steps, func(s StepResult, _ int) bool {
		return s.Err != nil
	})
}

// Summary renders the run for the final log line.
func (r Report) Summary() string {
	names := lo.Map(r.Steps, func(s StepResult, _ int) string {
		if s.Err != nil {
			return s.Name + "!"
		}
		return s.Name
	})
	return fmt.Sprintf("run %s: %d/%d steps clean in %s: %s",
		r.RunID,
		len(r.Steps)-len(r.Failed()),
		len(r.Steps),
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
		strings.Join(names, ", "))
}

// shortID returns a compact run identifier for log correlation.
func shortID() string {
	return uuid.NewString()[:8]
}
