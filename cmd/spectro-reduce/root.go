package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-spectro-pipeline/internal/config"
	"github.com/askiada/go-spectro-pipeline/internal/logging"
	"github.com/askiada/go-spectro-pipeline/pkg/pipeline"
)

type stageFlag struct {
	name  string
	stage pipeline.StageName
	usage string
}

var stageFlags = []stageFlag{ //nolint:gochecknoglobals
	{name: "makebias", stage: pipeline.StageBias, usage: "make master biases"},
	{name: "makeflats", stage: pipeline.StageFlats, usage: "make master flats"},
	{name: "makearcs", stage: pipeline.StageArcs, usage: "reduce arcs and determine the wavelength solution"},
	{name: "makestd", stage: pipeline.StageStandard, usage: "reduce the standard and derive the sensitivity function"},
	{name: "makesci", stage: pipeline.StageScience, usage: "reduce science frames and extract the 1-D spectrum"},
}

type rootOptions struct {
	configFile string
	dataRoot   string
	target     string
	caldb      string
	logFile    string
	graphFile  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithOptions(&rootOptions{})
}

func newRootCmdWithOptions(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spectro-reduce",
		Short: "Reduce long-slit spectra from raw frames to a flux calibrated 1-D spectrum",
		Long: `spectro-reduce classifies the raw frames found under the data root and runs, in order,
the bias, flats, arcs, standard and science stages through the external reduction engine.

Master calibrations are registered in a local calibration database so that later stages,
and later runs, pick the best match automatically. Any stage can be switched off, e.g.

  spectro-reduce --makebias=false --makeflats=false`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{File: cfg.LogFile, Verbose: opts.verbose})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			printFlags(cmd.OutOrStdout(), cfg)

			err = run(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
			if err != nil {
				logger.Error("run failed", zap.Error(err))
			}

			return err
		},
	}

	flags := cmd.Flags()
	for _, sf := range stageFlags {
		flags.Bool(sf.name, true, "default=true; "+sf.usage)
	}

	flags.Bool("interactive", true, "default=true; perform all reductions interactively")
	flags.Bool("plotspec", true, "default=true; plot the extracted spectrum")
	flags.StringVar(&opts.dataRoot, "data-root", "", "directory holding the raw data")
	flags.StringVar(&opts.target, "target", "", "object name of the science target")
	flags.StringVar(&opts.graphFile, "graph", "", "write the stage graph to this DOT file")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	persistent.StringVar(&opts.caldb, "caldb", "", "calibration database file")
	persistent.StringVar(&opts.logFile, "log-file", "", "log file written in addition to stderr")
	persistent.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newCaldbCmd(opts))

	return cmd
}

// loadConfig reads the configuration file and applies the flags set on the command line. A flag left unset keeps
// the configured value.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()

	for _, sf := range stageFlags {
		if !flags.Changed(sf.name) {
			continue
		}

		enabled, err := flags.GetBool(sf.name)
		if err != nil {
			return cfg, err
		}

		cfg.SetStage(sf.stage, enabled)
	}

	if flags.Changed("interactive") {
		cfg.Interactive, err = flags.GetBool("interactive")
		if err != nil {
			return cfg, err
		}
	}

	if flags.Changed("plotspec") {
		cfg.PlotSpectrum, err = flags.GetBool("plotspec")
		if err != nil {
			return cfg, err
		}
	}

	if opts.dataRoot != "" {
		cfg.DataRoot = opts.dataRoot
	}

	if opts.target != "" {
		cfg.TargetObject = opts.target
	}

	if opts.caldb != "" {
		cfg.CalibrationDB = opts.caldb
	}

	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}

	if opts.graphFile != "" {
		cfg.GraphFile = opts.graphFile
	}

	return cfg, cfg.Validate()
}

func printFlags(wrt io.Writer, cfg config.Config) {
	fmt.Fprintf(wrt, "makebias=%t, makeflats=%t, makearcs=%t, makestd=%t, makesci=%t, interactive=%t, plotspec=%t\n",
		cfg.Enabled(pipeline.StageBias),
		cfg.Enabled(pipeline.StageFlats),
		cfg.Enabled(pipeline.StageArcs),
		cfg.Enabled(pipeline.StageStandard),
		cfg.Enabled(pipeline.StageScience),
		cfg.Interactive,
		cfg.PlotSpectrum,
	)
}
