// Package engine invokes the external reduction command.
//
// Every invocation runs `<command> [args] <files...> [-r recipe] [-p key=value ...]` in the working directory.
// The products of an invocation are the FITS files created or rewritten there while the command ran.
package engine

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline"
)

// DefaultCommand is the reduction command line tool.
const DefaultCommand = "reduce"

// ErrNoCommand is returned when no command is configured.
var ErrNoCommand = errors.New("reduction command must be set")

// Command is a pipeline.Engine running an external program.
type Command struct {
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
	path   string
	dir    string
	args   []string
	env    []string
}

type Option func(c *Command)

// Args adds arguments placed before the files on every invocation.
func Args(args ...string) Option {
	return func(c *Command) {
		c.args = append(c.args, args...)
	}
}

// Dir sets the working directory where products are written.
func Dir(dir string) Option {
	return func(c *Command) {
		c.dir = dir
	}
}

// Env adds KEY=VALUE entries to the command environment.
func Env(env ...string) Option {
	return func(c *Command) {
		c.env = append(c.env, env...)
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

// New creates an engine running path.
func New(path string, opts ...Option) (*Command, error) {
	if path == "" {
		return nil, ErrNoCommand
	}

	cmd := &Command{
		path:   path,
		dir:    ".",
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cmd)
	}

	return cmd, nil
}

// Arguments returns the command line of inv, without the program name.
func (c *Command) Arguments(inv pipeline.Invocation) []string {
	args := append([]string{}, c.args...)
	args = append(args, inv.Files...)

	if inv.Recipe != "" {
		args = append(args, "-r", inv.Recipe)
	}

	keys := make([]string, 0, len(inv.Params))
	for k := range inv.Params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, "-p", k+"="+inv.Params[k])
	}

	return args
}

// Reduce runs the command and returns, sorted, the FITS files it created or modified.
func (c *Command) Reduce(ctx context.Context, inv pipeline.Invocation) ([]string, error) {
	before, err := snapshot(c.dir)
	if err != nil {
		return nil, err
	}

	args := c.Arguments(inv)
	c.logger.Debug("invoking reduction engine", zap.String("command", c.path), zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Dir = c.dir
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	cmd.Env = append(os.Environ(), c.env...)

	err = cmd.Run()
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", c.path, strings.Join(args, " "))
	}

	after, err := snapshot(c.dir)
	if err != nil {
		return nil, err
	}

	return products(before, after), nil
}

func snapshot(dir string) (map[string]time.Time, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.fits"))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list products in %s", dir)
	}

	files := make(map[string]time.Time, len(matches))

	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to stat %s", match)
		}

		files[match] = info.ModTime()
	}

	return files, nil
}

func products(before, after map[string]time.Time) []string {
	outputs := make([]string, 0)

	for path, modTime := range after {
		if prev, ok := before[path]; ok && !modTime.After(prev) {
			continue
		}

		outputs = append(outputs, path)
	}

	sort.Strings(outputs)

	return outputs
}

var _ pipeline.Engine = (*Command)(nil)
