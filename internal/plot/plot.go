// Package plot renders extracted spectra with an external plotting command.
package plot

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline"
)

// DefaultCommand plots one aperture of a spectrum: `dgsplot <file> <aperture>`.
const DefaultCommand = "dgsplot"

var ErrNoCommand = errors.New("plot command must be set")

// Command is a pipeline.Plotter.
//
// In interactive mode the plot window is started and left open while the run goes on. Otherwise Plot blocks
// until the window is closed.
type Command struct {
	mu          sync.Mutex
	stdout      io.Writer
	stderr      io.Writer
	logger      *zap.Logger
	path        string
	args        []string
	interactive bool
}

type Option func(c *Command)

// Args adds arguments placed before the file.
func Args(args ...string) Option {
	return func(c *Command) {
		c.args = append(c.args, args...)
	}
}

// Output redirects the command standard output and error.
func Output(stdout, stderr io.Writer) Option {
	return func(c *Command) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// Logger sets the logger.
func Logger(logger *zap.Logger) Option {
	return func(c *Command) {
		c.logger = logger
	}
}

// New creates an interactive plotter running path.
func New(path string, opts ...Option) (*Command, error) {
	if path == "" {
		return nil, ErrNoCommand
	}

	cmd := &Command{
		path:        path,
		interactive: true,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cmd)
	}

	return cmd, nil
}

func (c *Command) Interactive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.interactive
}

func (c *Command) SetInteractive(interactive bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interactive = interactive
}

// Plot renders aperture of the spectrum in path.
func (c *Command) Plot(ctx context.Context, path string, aperture int) error {
	args := append(append([]string{}, c.args...), path, strconv.Itoa(aperture))

	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	if !c.Interactive() {
		return errors.Wrapf(cmd.Run(), "unable to plot %s", path)
	}

	err := cmd.Start()
	if err != nil {
		return errors.Wrapf(err, "unable to start plot of %s", path)
	}

	go func() {
		err := cmd.Wait()
		if err != nil {
			c.logger.Warn("plot window exited with an error", zap.String("file", path), zap.Error(err))
		}
	}()

	return nil
}

var _ pipeline.Plotter = (*Command)(nil)
