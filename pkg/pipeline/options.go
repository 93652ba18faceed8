package pipeline

import (
	"go.uber.org/zap"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/model"
)

type RunnerOption func(r *Runner)

// RunnerLogger sets the logger used for stage banners and warnings.
func RunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// RunnerRegistrar sets the store receiving the master calibrations.
func RunnerRegistrar(registrar Registrar) RunnerOption {
	return func(r *Runner) {
		r.registrar = registrar
	}
}

// RunnerPlotter sets the plotter and whether extracted spectra are plotted.
func RunnerPlotter(plotter Plotter, enabled bool) RunnerOption {
	return func(r *Runner) {
		r.plotter = plotter
		r.plotSpectrum = enabled
	}
}

// RunnerDisplayPattern sets the name of the 2-D product displayed after the science stage.
// The pattern receives the base name of the first input frame, without extension.
func RunnerDisplayPattern(pattern string) RunnerOption {
	return func(r *Runner) {
		r.displayPattern = pattern
	}
}

// RunnerAperture sets the aperture plotted from the extracted spectrum.
func RunnerAperture(aperture int) RunnerOption {
	return func(r *Runner) {
		r.aperture = aperture
	}
}

// RunnerOptions adds hooks such as the drawer or the measure.
func RunnerOptions(opts ...model.RunOption) RunnerOption {
	return func(r *Runner) {
		r.opts = append(r.opts, opts...)
	}
}
