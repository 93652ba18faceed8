package pipeline

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/model"
)

// StageState is the lifecycle state of a stage.
type StageState = model.StageState

const (
	StatePending   = model.StatePending
	StateRunning   = model.StateRunning
	StateSkipped   = model.StateSkipped
	StateCompleted = model.StateCompleted
	StateFailed    = model.StateFailed
)

// StageResult is the outcome of one stage.
type StageResult struct {
	Err          error
	Name         StageName
	State        StageState
	Outputs      []string
	Calibrations []string
	Invocations  int
	Duration     time.Duration
	Enabled      bool
}

// RunResult records every stage of a run in execution order.
type RunResult struct {
	Started time.Time
	Stages  []StageResult
	ID      uuid.UUID
}

func newRunResult(stages Stages) *RunResult {
	result := &RunResult{
		ID:      uuid.New(),
		Started: time.Now(),
		Stages:  make([]StageResult, len(stages)),
	}
	for i, stage := range stages {
		result.Stages[i] = StageResult{Name: stage.Name, State: StatePending, Enabled: stage.Enabled}
	}

	return result
}

// Stage returns the result of the named stage.
func (r *RunResult) Stage(name StageName) (StageResult, bool) {
	for _, stage := range r.Stages {
		if stage.Name == name {
			return stage, true
		}
	}

	return StageResult{}, false
}

// Order returns the stage names as they were executed.
func (r *RunResult) Order() []StageName {
	names := make([]StageName, len(r.Stages))
	for i, stage := range r.Stages {
		names[i] = stage.Name
	}

	return names
}

// Failed reports whether a stage failed.
func (r *RunResult) Failed() bool {
	for _, stage := range r.Stages {
		if stage.State == StateFailed {
			return true
		}
	}

	return false
}

// Remaining returns the failed stage and the enabled stages that never ran, so that a failed run can be resumed.
// Stages switched off for the run are left out.
func (r *RunResult) Remaining() []StageName {
	names := make([]StageName, 0)

	for _, stage := range r.Stages {
		if stage.State == StateFailed || (stage.State == StatePending && stage.Enabled) {
			names = append(names, stage.Name)
		}
	}

	return names
}

// WriteSummary prints one line per stage.
func (r *RunResult) WriteSummary(wrt io.Writer) error {
	tw := tabwriter.NewWriter(wrt, 0, 4, 2, ' ', 0)

	_, err := fmt.Fprintf(tw, "run %s\nSTAGE\tSTATE\tDURATION\tCALLS\tOUTPUTS\tCALIBRATIONS\n", r.ID)
	if err != nil {
		return errors.Wrap(err, "unable to write summary header")
	}

	for _, stage := range r.Stages {
		line := fmt.Sprintf("%s\t%s\t%s\t%d\t%s\t%d",
			stage.Name, stage.State, stage.Duration.Round(time.Millisecond), stage.Invocations,
			joinOrDash(stage.Outputs), len(stage.Calibrations))
		if stage.Err != nil {
			line += "\t" + stage.Err.Error()
		}

		_, err := fmt.Fprintln(tw, line)
		if err != nil {
			return errors.Wrapf(err, "unable to write summary for %s", stage.Name)
		}
	}

	if remaining := r.Remaining(); r.Failed() && len(remaining) > 0 {
		names := make([]string, len(remaining))
		for i, name := range remaining {
			names[i] = string(name)
		}

		_, err := fmt.Fprintf(tw, "resume with: %s\n", strings.Join(names, ", "))
		if err != nil {
			return errors.Wrap(err, "unable to write resume hint")
		}
	}

	return errors.Wrap(tw.Flush(), "unable to flush summary")
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}

	return strings.Join(values, ",")
}
