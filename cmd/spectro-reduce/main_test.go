package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-spectro-pipeline/internal/config"
	"github.com/askiada/go-spectro-pipeline/pkg/pipeline"
)

func TestLoadConfigFlags(t *testing.T) {
	t.Parallel()

	cfgFile := filepath.Join(t.TempDir(), "spectro.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("stages:\n  arcs: false\ntarget_object: M31\ninteractive: false\n"), 0o600))

	tcs := map[string]struct {
		args  []string
		check func(t *testing.T, cfg config.Config)
	}{
		"defaults": {
			args: []string{},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, config.Default(), cfg)
			},
		},
		"stage flags": {
			args: []string{"--makebias=false", "--makesci=false", "--plotspec=false"},
			check: func(t *testing.T, cfg config.Config) {
				assert.False(t, cfg.Enabled(pipeline.StageBias))
				assert.True(t, cfg.Enabled(pipeline.StageFlats))
				assert.False(t, cfg.Enabled(pipeline.StageScience))
				assert.False(t, cfg.PlotSpectrum)
				assert.True(t, cfg.Interactive)
			},
		},
		"file values kept when flags unset": {
			args: []string{"--config", cfgFile, "--makebias=false"},
			check: func(t *testing.T, cfg config.Config) {
				assert.False(t, cfg.Enabled(pipeline.StageArcs))
				assert.False(t, cfg.Enabled(pipeline.StageBias))
				assert.Equal(t, "M31", cfg.TargetObject)
				assert.False(t, cfg.Interactive)
			},
		},
		"flags win over file": {
			args: []string{
				"--config", cfgFile, "--makearcs", "--interactive", "--target", "J2145+0031",
				"--caldb", "night.db", "--data-root", "/data", "--graph", "run.dot",
			},
			check: func(t *testing.T, cfg config.Config) {
				assert.True(t, cfg.Enabled(pipeline.StageArcs))
				assert.True(t, cfg.Interactive)
				assert.Equal(t, "J2145+0031", cfg.TargetObject)
				assert.Equal(t, "night.db", cfg.CalibrationDB)
				assert.Equal(t, "/data", cfg.DataRoot)
				assert.Equal(t, "run.dot", cfg.GraphFile)
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := &rootOptions{}
			cmd := newRootCmdWithOptions(opts)
			require.NoError(t, cmd.ParseFlags(tc.args))

			cfg, err := loadConfig(cmd, opts)
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestPrintFlags(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.SetStage(pipeline.StageFlats, false)
	cfg.Interactive = false

	var buf bytes.Buffer
	printFlags(&buf, cfg)

	assert.Equal(t,
		"makebias=true, makeflats=false, makearcs=true, makestd=true, makesci=true, interactive=false, plotspec=true\n",
		buf.String())
}

func TestCaldbCommands(t *testing.T) {
	t.Parallel()

	dbFile := filepath.Join(t.TempDir(), "calibrations.db")

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer

		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"caldb"}, append(args, "--caldb", dbFile)...))

		err := cmd.Execute()

		return out.String(), err
	}

	out, err := execute("init")
	require.NoError(t, err)
	assert.Contains(t, out, "calibration database created")

	out, err = execute("init")
	require.NoError(t, err)
	assert.NotContains(t, out, "calibration database created")

	_, err = execute("add", "/night/S0001_bias.fits", "/night/S0003_flat.fits")
	require.NoError(t, err)

	_, err = execute("remove", "/night/S0003_flat.fits")
	require.NoError(t, err)

	out, err = execute("list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "/night/S0001_bias.fits"))
	assert.Contains(t, lines[0], "processed_bias")

	_, err = execute("remove", "/night/S0003_flat.fits")
	assert.Error(t, err)
}

func TestCaldbLogFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logFile := filepath.Join(dir, "caldb.log")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"caldb", "init", "--caldb", filepath.Join(dir, "calibrations.db"), "--log-file", logFile})
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "calibration database created")
}
