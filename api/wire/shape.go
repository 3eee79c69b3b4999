package wire

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ShapeKind is the closed set of drawable element kinds
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeDiamond   ShapeKind = "diamond"
	ShapeCircle    ShapeKind = "circle"
	ShapeLine      ShapeKind = "line"
	ShapeArrow     ShapeKind = "arrow"
	ShapeText      ShapeKind = "text"
	ShapeFreehand  ShapeKind = "freehand"
)

// ErrUnknownShape is returned by ParseShapeKind for values outside the enumeration
var ErrUnknownShape = errors.New("unknown shape kind")

// ShapeKinds lists every valid shape kind in declaration order
var ShapeKinds = []ShapeKind{
	ShapeRectangle,
	ShapeDiamond,
	ShapeCircle,
	ShapeLine,
	ShapeArrow,
	ShapeText,
	ShapeFreehand,
}

// ParseShapeKind validates s against the enumeration. The legacy spelling
// "freeHand" is accepted and normalised.
func ParseShapeKind(s string) (ShapeKind, error) {
	if s == "freeHand" {
		return ShapeFreehand, nil
	}
	for _, k := range ShapeKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownShape, truncate(s, 32))
}

// Valid reports whether k is a member of the enumeration
func (k ShapeKind) Valid() bool {
	_, err := ParseShapeKind(string(k))
	return err == nil
}

// IsTwoPoint reports whether the shape's geometry is a start/end corner pair
func (k ShapeKind) IsTwoPoint() bool {
	switch k {
	case ShapeRectangle, ShapeDiamond, ShapeCircle, ShapeLine, ShapeArrow:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
