package pipeline

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Role names a set of frames with the same purpose in the reduction.
type Role string

const (
	RoleBiasStandard  Role = "bias-standard"
	RoleBiasScience   Role = "bias-science"
	RoleFlats         Role = "flats"
	RoleArcs          Role = "arcs"
	RoleStandardStar  Role = "standard-star"
	RoleScienceTarget Role = "science-target"
)

const (
	ReadoutCentralSpectrum = "Central Spectrum"
	ReadoutFullFrame       = "Full Frame"
)

// RoleDefinition binds a role to the selection that builds it.
type RoleDefinition struct {
	Role      Role
	Selection Selection
}

// RoleDefinitions returns the fixed role table. The science target is the non calibration frame whose object
// name is target.
func RoleDefinitions(target string) []RoleDefinition {
	return []RoleDefinition{
		{Role: RoleBiasStandard, Selection: Selection{
			Include: []Tag{TagBias},
			Where:   []Predicate{Eq(AttrReadoutMode, ReadoutCentralSpectrum)},
		}},
		{Role: RoleBiasScience, Selection: Selection{
			Include: []Tag{TagBias},
			Where:   []Predicate{Eq(AttrReadoutMode, ReadoutFullFrame)},
		}},
		{Role: RoleFlats, Selection: Selection{Include: []Tag{TagFlat}}},
		{Role: RoleArcs, Selection: Selection{Include: []Tag{TagArc}}},
		{Role: RoleStandardStar, Selection: Selection{Include: []Tag{TagStandard}}},
		{Role: RoleScienceTarget, Selection: Selection{
			Exclude: []Tag{TagCal},
			Where:   []Predicate{Eq(AttrObject, target)},
		}},
	}
}

// Roles maps each role to its ordered frames.
type Roles map[Role][]Frame

// Paths returns the file paths of role, in inventory order.
func (r Roles) Paths(role Role) []string {
	return framePaths(r[role])
}

// Partition applies every definition to frames. It is pure: the same frames always yield the same roles.
func Partition(frames []Frame, defs []RoleDefinition) (Roles, error) {
	roles := make(Roles, len(defs))

	for _, def := range defs {
		selected, err := Select(frames, def.Selection)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to select role %s", def.Role)
		}

		roles[def.Role] = selected
	}

	return roles, nil
}

// Registrar records a calibration file in the calibration store.
type Registrar interface {
	Register(ctx context.Context, path string) error
}

// Classifier opens frames and splits them into roles.
type Classifier struct {
	opener      FrameOpener
	registrar   Registrar
	logger      *zap.Logger
	definitions []RoleDefinition
	concurrent  int
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(c *Classifier)

// ClassifierConcurrency bounds the number of frames opened at the same time.
func ClassifierConcurrency(concurrent int) ClassifierOption {
	return func(c *Classifier) {
		c.concurrent = concurrent
	}
}

// ClassifierLogger sets the logger used for the inventory report.
func ClassifierLogger(logger *zap.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// ClassifierRegistrar sets the store receiving bad pixel maps found during classification.
func ClassifierRegistrar(registrar Registrar) ClassifierOption {
	return func(c *Classifier) {
		c.registrar = registrar
	}
}

// ClassifierDefinitions replaces the role table.
func ClassifierDefinitions(defs []RoleDefinition) ClassifierOption {
	return func(c *Classifier) {
		c.definitions = defs
	}
}

// NewClassifier creates a classifier selecting target as the science object.
func NewClassifier(opener FrameOpener, target string, opts ...ClassifierOption) (*Classifier, error) {
	if opener == nil {
		return nil, ErrOpenerMustBeSet
	}

	classifier := &Classifier{
		opener:      opener,
		logger:      zap.NewNop(),
		definitions: RoleDefinitions(target),
		concurrent:  1,
	}
	for _, opt := range opts {
		opt(classifier)
	}

	if classifier.concurrent < 1 {
		classifier.concurrent = 1
	}

	return classifier, nil
}

// Inventory opens every path. The returned frames keep the order of paths whatever the concurrency.
func (c *Classifier) Inventory(ctx context.Context, paths []string) ([]Frame, error) {
	frames := make([]Frame, len(paths))

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(c.concurrent)

	for idx, path := range paths {
		localIdx, localPath := idx, path

		errGrp.Go(func() error {
			frame, err := c.opener.Open(dCtx, localPath)
			if err != nil {
				return &ClassificationError{Path: localPath, Err: err}
			}

			frame.Path = localPath
			frames[localIdx] = frame

			return nil
		})
	}

	err := errGrp.Wait()
	if err != nil {
		return nil, err
	}

	return frames, nil
}

// Classify opens paths, reports the inventory and builds the roles.
//
// Every frame tagged BPM is registered into the calibration store here, before any stage runs and whatever
// stages are enabled.
func (c *Classifier) Classify(ctx context.Context, paths []string) (Roles, error) {
	frames, err := c.Inventory(ctx, paths)
	if err != nil {
		return nil, err
	}

	c.report(frames)

	roles, err := Partition(frames, c.definitions)
	if err != nil {
		return nil, err
	}

	err = c.registerBadPixelMaps(ctx, frames)
	if err != nil {
		return nil, err
	}

	for _, def := range c.definitions {
		c.logger.Info("role selected",
			zap.String("role", string(def.Role)),
			zap.Strings("files", roles.Paths(def.Role)),
		)
	}

	return roles, nil
}

func (c *Classifier) report(frames []Frame) {
	for _, frame := range frames {
		switch {
		case frame.HasTag(TagBias):
			mode, _ := frame.Attribute(AttrReadoutMode)
			c.logger.Info("bias frame", zap.String("file", frame.Path), zap.String("readout", mode))
		case !frame.HasTag(TagCal):
			object, _ := frame.Attribute(AttrObject)
			c.logger.Info("science frame", zap.String("file", frame.Path), zap.String("object", object))
		}
	}
}

func (c *Classifier) registerBadPixelMaps(ctx context.Context, frames []Frame) error {
	bpms, err := Select(frames, Selection{Include: []Tag{TagBPM}})
	if err != nil {
		return err
	}

	if len(bpms) > 0 && c.registrar == nil {
		c.logger.Warn("bad pixel maps found but no calibration store is set", zap.Int("count", len(bpms)))

		return nil
	}

	for _, bpm := range bpms {
		err := c.registrar.Register(ctx, bpm.Path)
		if err != nil {
			return errors.Wrapf(err, "unable to register bad pixel map %s", bpm.Path)
		}

		c.logger.Info("bad pixel map registered", zap.String("file", bpm.Path))
	}

	return nil
}

// Discover returns the files under root matching pattern, sorted lexically.
func Discover(root, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, ErrNoInputPattern
	}

	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to glob %s", pattern)
	}

	sort.Strings(matches)

	return matches, nil
}
