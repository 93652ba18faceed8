package model

import "time"

// RunOption defines the interface for run options.
type RunOption interface {
	// New initialises the run option.
	New() error
	// PrepareStage runs for every stage, enabled or not, before the first one executes.
	PrepareStage(stage *StageInfo) error
	// BeforeStage runs before an enabled stage starts.
	BeforeStage(stage *StageInfo) error
	// OnInvocation runs after every engine invocation of a stage.
	OnInvocation(stage *StageInfo, elapsed time.Duration) error
	// AfterStage runs once the stage reached a terminal state.
	AfterStage(stage *StageInfo, state StageState, elapsed time.Duration) error
	// Finish runs after the run is over, whether it failed or not.
	Finish() error
}
