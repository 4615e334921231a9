// Package coordinates implements OSGB36 eastings/northings validation for
// manual coordinate entry: numeric-pattern and sign checks, the digit-length
// and range rules, polygon boundary validation, and the context-sensitive
// error message wording the forms rely on.
package coordinates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// OSGB36 boundary constants. Zero is always accepted regardless of padding;
// the length rules apply only to non-zero values.
const (
	MinEastings  = 1
	MaxEastings  = 700000
	MinNorthings = 1
	MaxNorthings = 1200000

	EastingsDigits    = 6
	NorthingsDigitsLo = 6
	NorthingsDigitsHi = 7

	// PolygonMinPoints is the minimum number of boundary points.
	PolygonMinPoints = 3
)

// Axis distinguishes the two OSGB36 coordinate components.
type Axis string

const (
	Eastings  Axis = "eastings"
	Northings Axis = "northings"
)

// Kind classifies a coordinate validation failure.
type Kind string

const (
	KindRequired           Kind = "required"
	KindNonNumeric         Kind = "nonNumeric"
	KindMustBePositive     Kind = "mustBePositive"
	KindLengthInvalid      Kind = "lengthInvalid"
	KindInsufficientPoints Kind = "insufficientPoints"
)

// Error is a coordinate validation failure with its display message already
// rendered for the caller's message context.
type Error struct {
	Kind    Kind
	Axis    Axis
	Message string
}

func (e *Error) Error() string { return e.Message }

// PointError wraps a coordinate failure with the 1-based polygon point it
// belongs to.
type PointError struct {
	Point int
	Err   *Error
}

func (e *PointError) Error() string { return e.Err.Message }
func (e *PointError) Unwrap() error { return e.Err }

// messageMode selects the error phrasing. It replaces the source system's
// stringly-typed "constants"/"simple"/"withPoint" switch with a closed
// variant so every branch is handled.
type messageMode int

const (
	modeConstants messageMode = iota
	modeSimple
	modeWithPoint
)

// MessageContext selects how validation messages are phrased: generic
// field-keyed messages for the primary two-field form, short imperative
// messages, or point-labelled messages for polygon entry.
type MessageContext struct {
	mode  messageMode
	point int
}

// Constants selects the generic field-name keyed phrasing used by the
// primary centre-point form.
func Constants() MessageContext { return MessageContext{mode: modeConstants} }

// Simple selects the short phrasing ("Enter the eastings").
func Simple() MessageContext { return MessageContext{mode: modeSimple} }

// WithPoint selects the point-labelled phrasing ("Enter the eastings of
// point 2"). point is 1-based.
func WithPoint(point int) MessageContext {
	return MessageContext{mode: modeWithPoint, point: point}
}

// Pair is one OSGB36 coordinate: an eastings/northings value pair as entered.
type Pair struct {
	Eastings  string `json:"eastings"`
	Northings string `json:"northings"`
}

// numericPattern accepts digits with at most one embedded decimal point and
// an optional leading minus. The minus is deliberately let through so a
// negative value reaches the positivity check and reports mustBePositive
// rather than nonNumeric.
var numericPattern = regexp.MustCompile(`^-?[0-9]*\.?[0-9]+$`)

// ValidateValue validates a single eastings or northings value.
// Checks run in a fixed order: presence, numeric pattern, sign, then the
// digit-length and range rule. Zero is valid with any amount of padding.
func ValidateValue(raw string, axis Axis, msg MessageContext) *Error {
	value := strings.TrimSpace(raw)
	if value == "" {
		return newError(KindRequired, axis, msg)
	}

	if !numericPattern.MatchString(value) {
		return newError(KindNonNumeric, axis, msg)
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return newError(KindNonNumeric, axis, msg)
	}
	if n < 0 {
		return newError(KindMustBePositive, axis, msg)
	}
	if n == 0 {
		return nil
	}

	switch axis {
	case Eastings:
		if len(value) != EastingsDigits || n < MinEastings || n > MaxEastings {
			return newError(KindLengthInvalid, axis, msg)
		}
	case Northings:
		if (len(value) != NorthingsDigitsLo && len(value) != NorthingsDigitsHi) ||
			n < MinNorthings || n > MaxNorthings {
			return newError(KindLengthInvalid, axis, msg)
		}
	}
	return nil
}

// ValidatePair validates one coordinate pair, eastings first.
func ValidatePair(p Pair, msg MessageContext) *Error {
	if err := ValidateValue(p.Eastings, Eastings, msg); err != nil {
		return err
	}
	return ValidateValue(p.Northings, Northings, msg)
}

// ValidatePolygon validates an ordered polygon boundary: at least
// PolygonMinPoints points, each validated independently with the Simple
// phrasing. Point order is significant and is never reordered here.
func ValidatePolygon(points []Pair) error {
	if len(points) < PolygonMinPoints {
		return &Error{
			Kind:    KindInsufficientPoints,
			Message: fmt.Sprintf("The polygon must have at least %d coordinate points", PolygonMinPoints),
		}
	}
	for i, p := range points {
		if err := ValidatePair(p, Simple()); err != nil {
			return &PointError{Point: i + 1, Err: err}
		}
	}
	return nil
}

func newError(kind Kind, axis Axis, msg MessageContext) *Error {
	return &Error{Kind: kind, Axis: axis, Message: message(kind, axis, msg)}
}

// message renders the display string for a failure. The three modes must
// produce exactly the published wording; the axis name is capitalized only
// when it starts the sentence.
func message(kind Kind, axis Axis, msg MessageContext) string {
	digits := "6 digits"
	if axis == Northings {
		digits = "6 or 7 digits"
	}

	switch msg.mode {
	case modeConstants:
		switch kind {
		case KindRequired:
			return fmt.Sprintf("Enter the %s", axis)
		case KindNonNumeric:
			return fmt.Sprintf("The %s must be a number", axis)
		case KindMustBePositive:
			return fmt.Sprintf("The %s must be a positive number", axis)
		default:
			return fmt.Sprintf("The %s must be %s", axis, digits)
		}
	case modeSimple:
		switch kind {
		case KindRequired:
			return fmt.Sprintf("Enter the %s", axis)
		case KindNonNumeric:
			return fmt.Sprintf("%s must be a number", capitalize(axis))
		case KindMustBePositive:
			return fmt.Sprintf("%s must be a positive number", capitalize(axis))
		default:
			return fmt.Sprintf("%s must be %s", capitalize(axis), digits)
		}
	default: // modeWithPoint
		switch kind {
		case KindRequired:
			return fmt.Sprintf("Enter the %s of point %d", axis, msg.point)
		case KindNonNumeric:
			return fmt.Sprintf("%s of point %d must be a number", capitalize(axis), msg.point)
		case KindMustBePositive:
			return fmt.Sprintf("%s of point %d must be a positive number", capitalize(axis), msg.point)
		default:
			return fmt.Sprintf("%s of point %d must be %s", capitalize(axis), msg.point, digits)
		}
	}
}

func capitalize(axis Axis) string {
	s := string(axis)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
