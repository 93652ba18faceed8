// Package fitsframe reads the primary header of a FITS file and derives the tags and attributes used to classify
// the frame.
package fitsframe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline"
)

// Header keywords read from the primary HDU.
const (
	KeyObsType  = "OBSTYPE"
	KeyObsClass = "OBSCLASS"
	KeyObject   = "OBJECT"
	KeyROI      = "DETROI"
)

// UndefinedROI is the readout mode of a frame without a DETROI keyword.
const UndefinedROI = "Undefined"

// DefaultStandards lists spectrophotometric standards recognised as STANDARD.
var DefaultStandards = []string{ //nolint:gochecknoglobals
	"BD+28 4211", "EG131", "EG21", "EG274", "Feige110", "Feige34", "Feige66", "G191B2B", "GD71",
	"Hiltner600", "LTT1020", "LTT1788", "LTT2415", "LTT3218", "LTT3864", "LTT4364", "LTT4816",
	"LTT6248", "LTT7379", "LTT7987", "LTT9239", "LTT9491", "VMa2",
}

var calibrationClasses = map[string]struct{}{ //nolint:gochecknoglobals
	"dayCal":     {},
	"partnerCal": {},
	"progCal":    {},
	"acqCal":     {},
}

// Header holds the keywords relevant to classification.
type Header struct {
	ObsType  string
	ObsClass string
	Object   string
	ROI      string
}

// Opener is a pipeline.FrameOpener reading FITS files from disk.
type Opener struct {
	standards map[string]struct{}
}

// NewOpener creates an opener recognising DefaultStandards and extra as standard stars.
func NewOpener(extra ...string) *Opener {
	opener := &Opener{standards: make(map[string]struct{})}
	for _, name := range append(append([]string{}, DefaultStandards...), extra...) {
		opener.standards[normalise(name)] = struct{}{}
	}

	return opener
}

func normalise(name string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

// IsStandard reports whether object is a known spectrophotometric standard.
func (o *Opener) IsStandard(object string) bool {
	_, ok := o.standards[normalise(object)]

	return ok
}

// Open reads the primary header of path.
func (o *Opener) Open(ctx context.Context, path string) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}

	hdr, err := ReadHeader(path)
	if err != nil {
		return pipeline.Frame{}, err
	}

	return o.Frame(path, hdr), nil
}

// Frame builds the frame of path from its header.
func (o *Opener) Frame(path string, hdr Header) pipeline.Frame {
	roi := hdr.ROI
	if roi == "" {
		roi = UndefinedROI
	}

	return pipeline.NewFrame(path, o.Tags(path, hdr), map[pipeline.Attribute]string{
		pipeline.AttrReadoutMode: roi,
		pipeline.AttrObject:      hdr.Object,
	})
}

// Tags derives the classification tags of a frame.
func (o *Opener) Tags(path string, hdr Header) []pipeline.Tag {
	obsType := strings.ToUpper(hdr.ObsType)
	base := strings.ToLower(filepath.Base(path))

	if obsType == "BPM" || strings.HasPrefix(base, "bpm_") {
		return []pipeline.Tag{pipeline.TagBPM, pipeline.TagCal}
	}

	switch obsType {
	case "BIAS":
		return []pipeline.Tag{pipeline.TagBias, pipeline.TagCal}
	case "FLAT":
		return []pipeline.Tag{pipeline.TagFlat, pipeline.TagCal}
	case "ARC":
		return []pipeline.Tag{pipeline.TagArc, pipeline.TagCal}
	case "DARK":
		return []pipeline.Tag{pipeline.TagCal}
	}

	if o.IsStandard(hdr.Object) {
		return []pipeline.Tag{pipeline.TagStandard, pipeline.TagCal}
	}

	if _, ok := calibrationClasses[hdr.ObsClass]; ok {
		return []pipeline.Tag{pipeline.TagCal}
	}

	return []pipeline.Tag{}
}

// ReadHeader reads the classification keywords from the primary HDU of path.
func ReadHeader(path string) (Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return Header{}, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	fits, err := fitsio.Open(file)
	if err != nil {
		return Header{}, errors.Wrapf(err, "unable to decode %s", path)
	}
	defer fits.Close()

	primary := fits.HDU(0).Header()

	return Header{
		ObsType:  cardString(primary, KeyObsType),
		ObsClass: cardString(primary, KeyObsClass),
		Object:   cardString(primary, KeyObject),
		ROI:      cardString(primary, KeyROI),
	}, nil
}

func cardString(hdr *fitsio.Header, key string) string {
	card := hdr.Get(key)
	if card == nil || card.Value == nil {
		return ""
	}

	if s, ok := card.Value.(string); ok {
		return strings.TrimSpace(s)
	}

	return strings.TrimSpace(fmt.Sprint(card.Value))
}

var _ pipeline.FrameOpener = (*Opener)(nil)
