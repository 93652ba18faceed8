package pipeline

import (
	"context"
	"sort"
)

// Tag labels the role of a frame as reported by the metadata tagger.
type Tag string

const (
	TagBias     Tag = "BIAS"
	TagFlat     Tag = "FLAT"
	TagArc      Tag = "ARC"
	TagStandard Tag = "STANDARD"
	TagCal      Tag = "CAL"
	TagBPM      Tag = "BPM"
)

// Attribute names a header-derived property that selections can compare against.
type Attribute string

const (
	// AttrReadoutMode is the detector region of interest, e.g. "Full Frame" or "Central Spectrum".
	AttrReadoutMode Attribute = "detector_roi_setting"
	// AttrObject is the target object name.
	AttrObject Attribute = "object"
	// AttrTags is the tag set of the frame. Only OpHasTag and OpLacksTag apply to it.
	AttrTags Attribute = "tags"
)

var knownAttributes = map[Attribute]struct{}{
	AttrReadoutMode: {},
	AttrObject:      {},
	AttrTags:        {},
}

// IsKnownAttribute reports whether selections may reference attr.
func IsKnownAttribute(attr Attribute) bool {
	_, ok := knownAttributes[attr]

	return ok
}

// Frame is one input exposure and its classification metadata. It is never mutated once built.
type Frame struct {
	tags       map[Tag]struct{}
	attributes map[Attribute]string
	Path       string
}

// NewFrame copies tags and attrs into a new Frame.
func NewFrame(path string, tags []Tag, attrs map[Attribute]string) Frame {
	frame := Frame{
		Path:       path,
		tags:       make(map[Tag]struct{}, len(tags)),
		attributes: make(map[Attribute]string, len(attrs)),
	}
	for _, tag := range tags {
		frame.tags[tag] = struct{}{}
	}

	for k, v := range attrs {
		frame.attributes[k] = v
	}

	return frame
}

// HasTag reports whether the frame carries tag.
func (f Frame) HasTag(tag Tag) bool {
	_, ok := f.tags[tag]

	return ok
}

// Tags returns the frame tags in lexical order.
func (f Frame) Tags() []Tag {
	tags := make([]Tag, 0, len(f.tags))
	for tag := range f.tags {
		tags = append(tags, tag)
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	return tags
}

// Attribute returns the value of attr and whether the frame defines it.
func (f Frame) Attribute(attr Attribute) (string, bool) {
	v, ok := f.attributes[attr]

	return v, ok
}

// FrameOpener reads the tags and attributes of the file at path.
type FrameOpener interface {
	Open(ctx context.Context, path string) (Frame, error)
}

// FrameOpenerFunc adapts a function to FrameOpener.
type FrameOpenerFunc func(ctx context.Context, path string) (Frame, error)

// Open calls fn.
func (fn FrameOpenerFunc) Open(ctx context.Context, path string) (Frame, error) {
	return fn(ctx, path)
}

func framePaths(frames []Frame) []string {
	paths := make([]string, len(frames))
	for i, frame := range frames {
		paths[i] = frame.Path
	}

	return paths
}
