package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// Operator compares a frame attribute against a literal.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	// OpHasTag tests that the tag set holds the tag literal.
	OpHasTag
	// OpLacksTag tests that the tag set does not hold the tag literal.
	OpLacksTag
)

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpHasTag:
		return "contains"
	case OpLacksTag:
		return "lacks"
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

// Predicate is a single comparison against a string or tag literal, e.g. object=="J2145+0031" or
// tags contains "BIAS". OpEqual and OpNotEqual compare a header attribute; OpHasTag and OpLacksTag test AttrTags.
type Predicate struct {
	Attribute Attribute
	Value     string
	Op        Operator
}

// Eq builds an equality predicate.
func Eq(attr Attribute, value string) Predicate {
	return Predicate{Attribute: attr, Op: OpEqual, Value: value}
}

// Ne builds an inequality predicate.
func Ne(attr Attribute, value string) Predicate {
	return Predicate{Attribute: attr, Op: OpNotEqual, Value: value}
}

// Tagged builds a predicate matching frames carrying tag.
func Tagged(tag Tag) Predicate {
	return Predicate{Attribute: AttrTags, Op: OpHasTag, Value: string(tag)}
}

// Untagged builds a predicate matching frames without tag.
func Untagged(tag Tag) Predicate {
	return Predicate{Attribute: AttrTags, Op: OpLacksTag, Value: string(tag)}
}

func (p Predicate) String() string {
	if p.isTagOp() {
		return fmt.Sprintf("%s %s %q", p.Attribute, p.Op, p.Value)
	}

	return fmt.Sprintf("%s%s%q", p.Attribute, p.Op, p.Value)
}

func (p Predicate) isTagOp() bool {
	return p.Op == OpHasTag || p.Op == OpLacksTag
}

func (p Predicate) validate() error {
	if !IsKnownAttribute(p.Attribute) {
		return &ClassificationError{Attribute: p.Attribute, Err: ErrUnknownAttribute}
	}

	switch {
	case p.Op != OpEqual && p.Op != OpNotEqual && !p.isTagOp():
		return &ClassificationError{Attribute: p.Attribute, Err: errors.Wrap(ErrUnsupportedOp, p.Op.String())}
	case p.isTagOp() != (p.Attribute == AttrTags):
		return &ClassificationError{
			Attribute: p.Attribute,
			Err:       errors.Wrapf(ErrUnsupportedOp, "%s on %s", p.Op, p.Attribute),
		}
	}

	return nil
}

// Eval evaluates the predicate against frame. A known attribute missing from the frame compares as "".
func (p Predicate) Eval(frame Frame) (bool, error) {
	err := p.validate()
	if err != nil {
		return false, err
	}

	value, _ := frame.Attribute(p.Attribute)

	switch p.Op {
	case OpHasTag:
		return frame.HasTag(Tag(p.Value)), nil
	case OpLacksTag:
		return !frame.HasTag(Tag(p.Value)), nil
	case OpEqual:
		return value == p.Value, nil
	default:
		return value != p.Value, nil
	}
}

// Selection filters frames by required tags, forbidden tags and attribute predicates.
// Every part is optional; an empty Selection matches every frame.
type Selection struct {
	Include []Tag
	Exclude []Tag
	Where   []Predicate
}

// Matches reports whether frame satisfies the selection.
func (s Selection) Matches(frame Frame) (bool, error) {
	for _, tag := range s.Include {
		if !frame.HasTag(tag) {
			return false, nil
		}
	}

	for _, tag := range s.Exclude {
		if frame.HasTag(tag) {
			return false, nil
		}
	}

	for _, pred := range s.Where {
		ok, err := pred.Eval(frame)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// Select returns the frames matching sel, in input order.
// Predicates are validated up front so that a bad selection fails even on an empty inventory.
func Select(frames []Frame, sel Selection) ([]Frame, error) {
	for _, pred := range sel.Where {
		err := pred.validate()
		if err != nil {
			return nil, err
		}
	}

	selected := make([]Frame, 0)

	for _, frame := range frames {
		ok, err := sel.Matches(frame)
		if err != nil {
			return nil, err
		}

		if ok {
			selected = append(selected, frame)
		}
	}

	return selected, nil
}
