package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/model"
)

const (
	// DisplayRecipe is the engine recipe showing a product on the image viewer.
	DisplayRecipe = "display"
	// DefaultDisplayPattern names the 2-D spectrum produced by the science stage.
	DefaultDisplayPattern = "%s_2D.fits"
	// DefaultAperture is the aperture plotted from an extracted spectrum.
	DefaultAperture = 1
)

// Invocation is one call to the reduction engine.
type Invocation struct {
	Params map[string]string
	Stage  StageName
	Role   Role
	Recipe string
	Files  []string
}

// Engine reduces files with a recipe and returns the products it wrote.
type Engine interface {
	Reduce(ctx context.Context, inv Invocation) ([]string, error)
}

// Plotter renders a spectrum. Interactive mirrors a global plotting mode that the runner switches off while it
// renders and restores afterwards.
type Plotter interface {
	Interactive() bool
	SetInteractive(interactive bool)
	Plot(ctx context.Context, path string, aperture int) error
}

// Runner executes stages in order against an engine.
//
// A Runner runs once. The calibration store is expected to be initialised before Run is called.
type Runner struct {
	engine         Engine
	registrar      Registrar
	plotter        Plotter
	logger         *zap.Logger
	displayPattern string
	opts           []model.RunOption
	aperture       int
	plotSpectrum   bool
	ran            atomic.Bool
}

// NewRunner creates a runner around engine.
func NewRunner(engine Engine, opts ...RunnerOption) (*Runner, error) {
	if engine == nil {
		return nil, ErrEngineMustBeSet
	}

	runner := &Runner{
		engine:         engine,
		logger:         zap.NewNop(),
		displayPattern: DefaultDisplayPattern,
		aperture:       DefaultAperture,
	}
	for _, opt := range opts {
		opt(runner)
	}

	for _, opt := range runner.opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply run option")
		}
	}

	return runner, nil
}

func stageInfo(stage Stage) *model.StageInfo {
	deps := make([]string, len(stage.DependsOn))
	for i, dep := range stage.DependsOn {
		deps[i] = string(dep)
	}

	return &model.StageInfo{
		Name:                string(stage.Name),
		DependsOn:           deps,
		Enabled:             stage.Enabled,
		ProducesCalibration: stage.ProducesCalibration,
	}
}

// Run executes the enabled stages in order. Disabled stages are marked SKIPPED. The first failure stops the run;
// the returned RunResult then holds the completed stages, the failed one and the pending ones.
func (r *Runner) Run(ctx context.Context, stages Stages, roles Roles) (*RunResult, error) {
	if !r.ran.CompareAndSwap(false, true) {
		return nil, ErrRunnerReused
	}

	gaps, err := stages.Gaps()
	if err != nil {
		return nil, err
	}

	for _, gap := range gaps {
		r.logger.Warn("upstream stage disabled, relying on calibrations already in the store",
			zap.String("stage", string(gap.Stage)),
			zap.String("upstream", string(gap.Upstream)),
		)
	}

	for _, stage := range stages {
		for _, role := range stage.Inputs {
			if _, ok := roles[role]; !ok {
				return nil, newConfigError(ErrStageInputMissing, "stage %s reads %s", stage.Name, role)
			}
		}
	}

	infos := make([]*model.StageInfo, len(stages))
	for i, stage := range stages {
		infos[i] = stageInfo(stage)

		err := r.applyOptions(func(opt model.RunOption) error { return opt.PrepareStage(infos[i]) })
		if err != nil {
			return nil, errors.Wrap(err, "unable to prepare stage")
		}
	}

	result := newRunResult(stages)
	r.logger.Info("run started", zap.String("run", result.ID.String()), zap.Int("stages", len(stages)))

	for i, stage := range stages {
		err := r.runStage(ctx, stage, infos[i], roles, &result.Stages[i])
		if err != nil {
			r.logger.Error("stage failed, halting run",
				zap.String("stage", string(stage.Name)),
				zap.Error(err),
			)

			return result, r.finishRun(err)
		}
	}

	return result, r.finishRun(nil)
}

func (r *Runner) runStage(ctx context.Context, stage Stage, info *model.StageInfo, roles Roles, res *StageResult) error {
	if !stage.Enabled {
		res.State = StateSkipped
		r.logger.Info("skipping stage", zap.String("stage", string(stage.Name)))

		return r.applyOptions(func(opt model.RunOption) error { return opt.AfterStage(info, StateSkipped, 0) })
	}

	err := r.applyOptions(func(opt model.RunOption) error { return opt.BeforeStage(info) })
	if err != nil {
		return errors.Wrap(err, "unable to run before stage function")
	}

	r.logger.Info("running stage", zap.String("stage", string(stage.Name)), zap.Any("params", stage.Params()))
	res.State = StateRunning
	start := time.Now()

	err = r.execute(ctx, stage, info, roles, res)
	res.Duration = time.Since(start)

	if err != nil {
		res.State = StateFailed
		res.Err = err
		_ = r.applyOptions(func(opt model.RunOption) error { return opt.AfterStage(info, StateFailed, res.Duration) })

		return &StageError{Stage: stage.Name, Err: err}
	}

	res.State = StateCompleted
	r.logger.Info("stage completed",
		zap.String("stage", string(stage.Name)),
		zap.Strings("outputs", res.Outputs),
		zap.Duration("elapsed", res.Duration),
	)

	return r.applyOptions(func(opt model.RunOption) error { return opt.AfterStage(info, StateCompleted, res.Duration) })
}

func (r *Runner) execute(ctx context.Context, stage Stage, info *model.StageInfo, roles Roles, res *StageResult) error {
	var firstInput string

	for _, role := range stage.Inputs {
		files := roles.Paths(role)
		if len(files) == 0 {
			r.logger.Warn("no input frames, nothing to reduce",
				zap.String("stage", string(stage.Name)),
				zap.String("role", string(role)),
			)

			continue
		}

		if firstInput == "" {
			firstInput = files[0]
		}

		outputs, err := r.invoke(ctx, info, res, Invocation{
			Stage:  stage.Name,
			Role:   role,
			Files:  files,
			Params: stage.Params(),
		})
		if err != nil {
			return errors.Wrapf(err, "unable to reduce %s", role)
		}

		res.Outputs = append(res.Outputs, outputs...)

		if stage.ProducesCalibration {
			r.register(ctx, stage, res, outputs)
		}
	}

	if stage.Display && firstInput != "" {
		_, err := r.invoke(ctx, info, res, Invocation{
			Stage:  stage.Name,
			Recipe: DisplayRecipe,
			Files:  []string{r.displayName(firstInput)},
		})
		if err != nil {
			return errors.Wrap(err, "unable to display 2-D spectrum")
		}
	}

	if stage.Plot && r.plotSpectrum && r.plotter != nil && len(res.Outputs) > 0 {
		err := r.plot(ctx, res.Outputs[0])
		if err != nil {
			return errors.Wrapf(err, "unable to plot %s", res.Outputs[0])
		}
	}

	return nil
}

func (r *Runner) invoke(ctx context.Context, info *model.StageInfo, res *StageResult, inv Invocation) ([]string, error) {
	start := time.Now()
	outputs, err := r.engine.Reduce(ctx, inv)
	res.Invocations++

	hookErr := r.applyOptions(func(opt model.RunOption) error { return opt.OnInvocation(info, time.Since(start)) })
	if err != nil {
		return nil, err
	}

	if hookErr != nil {
		return nil, errors.Wrap(hookErr, "unable to run invocation function")
	}

	return outputs, nil
}

// register hands every output to the store. Deduplication is the store's business and a failed registration
// does not fail the stage.
func (r *Runner) register(ctx context.Context, stage Stage, res *StageResult, outputs []string) {
	if r.registrar == nil {
		r.logger.Warn("no calibration store, products not registered", zap.String("stage", string(stage.Name)))

		return
	}

	for _, output := range outputs {
		err := r.registrar.Register(ctx, output)
		if err != nil {
			r.logger.Error("unable to register calibration",
				zap.String("stage", string(stage.Name)),
				zap.String("file", output),
				zap.Error(err),
			)

			continue
		}

		res.Calibrations = append(res.Calibrations, output)
	}
}

func (r *Runner) displayName(input string) string {
	base := filepath.Base(input)

	return fmt.Sprintf(r.displayPattern, strings.TrimSuffix(base, filepath.Ext(base)))
}

// plot switches the plotter out of interactive mode while rendering. The previous mode is restored on every exit
// path, panics included.
func (r *Runner) plot(ctx context.Context, path string) error {
	previous := r.plotter.Interactive()
	r.plotter.SetInteractive(false)

	defer r.plotter.SetInteractive(previous)

	return r.plotter.Plot(ctx, path, r.aperture)
}

func (r *Runner) applyOptions(fn func(opt model.RunOption) error) error {
	for _, opt := range r.opts {
		err := fn(opt)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) finishRun(runErr error) error {
	for _, opt := range r.opts {
		err := opt.Finish()
		if err != nil && runErr == nil {
			return errors.Wrap(err, "unable to finish run option")
		}
	}

	return runErr
}
