package model

// StageState is the lifecycle state of a stage during a run.
type StageState string

const (
	StatePending   StageState = "PENDING"
	StateRunning   StageState = "RUNNING"
	StateSkipped   StageState = "SKIPPED"
	StateCompleted StageState = "COMPLETED"
	StateFailed    StageState = "FAILED"
)

// Terminal reports whether no further transition can happen.
func (s StageState) Terminal() bool {
	return s == StateSkipped || s == StateCompleted || s == StateFailed
}

// StageInfo describes a stage to the run options.
type StageInfo struct {
	Name                string
	DependsOn           []string
	Enabled             bool
	ProducesCalibration bool
}

var (
	StartStage = &StageInfo{Name: "start", Enabled: true}
	EndStage   = &StageInfo{Name: "end", Enabled: true}
)
