package main

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-spectro-pipeline/internal/caldb"
	"github.com/askiada/go-spectro-pipeline/internal/config"
	"github.com/askiada/go-spectro-pipeline/internal/engine"
	"github.com/askiada/go-spectro-pipeline/internal/fitsframe"
	"github.com/askiada/go-spectro-pipeline/internal/plot"
	"github.com/askiada/go-spectro-pipeline/pkg/pipeline"
	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/drawer"
	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/measure"
	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/model"
)

func run(ctx context.Context, out io.Writer, cfg config.Config, logger *zap.Logger) error {
	db, err := caldb.Open(cfg.CalibrationDB)
	if err != nil {
		return err
	}
	defer db.Close()

	store := caldb.NewStore(db, caldb.StoreLogger(logger))

	_, err = store.EnsureInitialized(ctx)
	if err != nil {
		return err
	}

	paths, err := pipeline.Discover(cfg.DataRoot, cfg.InputGlob)
	if err != nil {
		return err
	}

	logger.Info("input frames", zap.String("pattern", cfg.InputPattern()), zap.Strings("files", paths))

	classifier, err := pipeline.NewClassifier(fitsframe.NewOpener(cfg.Standards...), cfg.TargetObject,
		pipeline.ClassifierRegistrar(store),
		pipeline.ClassifierLogger(logger),
		pipeline.ClassifierConcurrency(cfg.ClassifyConcurrency),
	)
	if err != nil {
		return err
	}

	roles, err := classifier.Classify(ctx, paths)
	if err != nil {
		return err
	}

	flags, err := cfg.StageFlags()
	if err != nil {
		return err
	}

	stages, err := pipeline.BuildStages(flags, cfg.Interactive)
	if err != nil {
		return err
	}

	runner, msr, err := newRunner(cfg, store, logger)
	if err != nil {
		return err
	}

	result, runErr := runner.Run(ctx, stages, roles)
	if result == nil {
		return runErr
	}

	err = result.WriteSummary(out)
	if err != nil {
		return errors.Wrap(err, "unable to print summary")
	}

	for name, mt := range msr.AllMetrics() {
		if mt.Invocations() > 0 {
			logger.Debug("stage metrics",
				zap.String("stage", name),
				zap.Int("invocations", mt.Invocations()),
				zap.Duration("avg_invocation", mt.AVGInvocation()),
			)
		}
	}

	return runErr
}

func newRunner(cfg config.Config, store *caldb.Store, logger *zap.Logger) (*pipeline.Runner, measure.Measure, error) {
	eng, err := engine.New(cfg.Engine.Command,
		engine.Args(cfg.Engine.Args...),
		engine.Dir(cfg.WorkDir),
		engine.Logger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	msr := measure.NewDefaultMeasure()
	runOpts := []model.RunOption{measure.PipelineMeasure(msr)}

	if cfg.GraphFile != "" {
		runOpts = append(runOpts, drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.GraphFile), msr))
	}

	opts := []pipeline.RunnerOption{
		pipeline.RunnerLogger(logger),
		pipeline.RunnerRegistrar(store),
		pipeline.RunnerDisplayPattern(cfg.DisplayPattern),
		pipeline.RunnerAperture(cfg.Aperture),
		pipeline.RunnerOptions(runOpts...),
	}

	if cfg.PlotSpectrum {
		plotter, err := plot.New(cfg.Plot.Command, plot.Args(cfg.Plot.Args...), plot.Logger(logger))
		if err != nil {
			return nil, nil, err
		}

		opts = append(opts, pipeline.RunnerPlotter(plotter, true))
	}

	runner, err := pipeline.NewRunner(eng, opts...)
	if err != nil {
		return nil, nil, err
	}

	return runner, msr, nil
}
