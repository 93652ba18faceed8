package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConfig            = errors.New("invalid configuration")
	ErrClassification    = errors.New("classification failed")
	ErrStageFailed       = errors.New("stage failed")
	ErrRunnerReused      = errors.New("runner can only run once")
	ErrEngineMustBeSet   = errors.New("engine must be set")
	ErrOpenerMustBeSet   = errors.New("frame opener must be set")
	ErrUnknownAttribute  = errors.New("unknown attribute")
	ErrUnknownStage      = errors.New("unknown stage")
	ErrDuplicateStage    = errors.New("duplicate stage")
	ErrUnorderedStages   = errors.New("stage declared before its dependency")
	ErrUnsupportedOp     = errors.New("unsupported operator")
	ErrNoInputPattern    = errors.New("input pattern must be set")
	ErrStageInputMissing = errors.New("stage input role is not defined")
)

// ConfigError reports a defect in the stage or run configuration.
type ConfigError struct {
	Err    error
	Reason string
}

func newConfigError(err error, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Err: err, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Reason, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes every ConfigError match ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig } //nolint:errorlint

// ClassificationError reports a frame that could not be inspected or a selection that cannot be evaluated.
type ClassificationError struct {
	Err       error
	Path      string
	Attribute Attribute
}

func (e *ClassificationError) Error() string {
	switch {
	case e.Attribute != "":
		return fmt.Sprintf("%s: attribute %q: %s", ErrClassification, e.Attribute, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", ErrClassification, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s: %s", ErrClassification, e.Err)
	}
}

func (e *ClassificationError) Unwrap() error { return e.Err }

func (e *ClassificationError) Is(target error) bool { return target == ErrClassification } //nolint:errorlint

// StageError wraps the error returned by the engine, the store or the plotter while a stage was running.
type StageError struct {
	Err   error
	Stage StageName
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrStageFailed, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Is(target error) bool { return target == ErrStageFailed } //nolint:errorlint
