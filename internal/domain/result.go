package domain

import (
	"errors"
	"time"
)

// StepResult contains the outcome of one backup step against one destination.
type StepResult struct {
	Destination Destination   `json:"destination"`
	Target      string        `json:"target"`
	Tool        string        `json:"tool"`
	Success     bool          `json:"success"`
	ExitCode    int           `json:"exit_code,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	Summary     []string      `json:"summary,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// NewStepResult creates a StepResult for the given destination and target.
func NewStepResult(dest Destination, target, tool string) *StepResult {
	return &StepResult{
		Destination: dest,
		Target:      target,
		Tool:        tool,
		StartTime:   time.Now(),
	}
}

// Complete marks the step as finished. Tool failures have their exit code and
// stderr lifted into the result for uniform reporting.
func (r *StepResult) Complete(success bool, err error) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
	if err != nil {
		r.Error = err.Error()
		var toolErr *ExternalToolError
		if errors.As(err, &toolErr) {
			r.ExitCode = toolErr.ExitCode
			r.Stderr = toolErr.Stderr
		}
	}
}

// RunResult contains the results of a complete run across all destinations.
type RunResult struct {
	Source    string         `json:"source"`
	Mode      BackupMode     `json:"mode"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Duration  time.Duration  `json:"duration"`
	Success   bool           `json:"success"`
	DryRun    bool           `json:"dry_run"`
	Steps     []*StepResult  `json:"steps"`
	Skipped   []Destination  `json:"skipped,omitempty"`
	Errors    []string       `json:"errors,omitempty"`
}

// NewRunResult creates a RunResult for the given job.
func NewRunResult(job *BackupJob, dryRun bool) *RunResult {
	return &RunResult{
		Source:    job.Source,
		Mode:      job.Mode,
		StartTime: time.Now(),
		DryRun:    dryRun,
		Steps:     make([]*StepResult, 0, len(job.Destinations)),
	}
}

// AddStep records a step result.
func (r *RunResult) AddStep(step *StepResult) {
	if step != nil {
		r.Steps = append(r.Steps, step)
	}
}

// AddError records a run-level error.
func (r *RunResult) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

// Complete marks the run as finished. A run succeeds only when at least one
// step executed, every executed step succeeded, no destination was skipped,
// and no run-level error occurred.
func (r *RunResult) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)

	r.Success = len(r.Steps) > 0 && len(r.Skipped) == 0 && len(r.Errors) == 0
	for _, step := range r.Steps {
		if !step.Success {
			r.Success = false
		}
	}
}
