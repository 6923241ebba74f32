package geometry

import (
	"math"
	"strings"

	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

// Shape is the cross-section of the raw stock a component is cut from.
type Shape string

const (
	ShapeRound  Shape = "KR"
	ShapeSquare Shape = "STV"
	ShapeFlat   Shape = "PL"
)

var shapes = []Shape{ShapeRound, ShapeSquare, ShapeFlat}

// Shapes lists the supported cross-sections.
func Shapes() []Shape {
	out := make([]Shape, len(shapes))
	copy(out, shapes)
	return out
}

// ParseShape accepts the stock codes case-insensitively.
func ParseShape(raw string) (Shape, error) {
	code := Shape(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range shapes {
		if s == code {
			return s, nil
		}
	}
	return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown shape %q", raw).
		WithDetails(map[string]any{"shape": raw})
}

// IsRound reports whether the weight uses the circular cross-section.
func (s Shape) IsRound() bool {
	return s == ShapeRound
}

const (
	// mm² · mm · kg/m³ → kg
	mm3ToM3 = 1e9
)

// Weight returns the stock weight in kg. Round stock uses π·d²·L·ρ/4e9;
// every other shape is approximated as a d×d prism, d²·L·ρ/1e9.
func Weight(shape Shape, diameterMM, lengthMM, density float64) (float64, error) {
	if err := positive("diameter_mm", diameterMM); err != nil {
		return 0, err
	}
	if err := positive("length_mm", lengthMM); err != nil {
		return 0, err
	}
	if err := positive("density", density); err != nil {
		return 0, err
	}

	if shape.IsRound() {
		return math.Pi * diameterMM * diameterMM * lengthMM * density / (4 * mm3ToM3), nil
	}
	return diameterMM * diameterMM * lengthMM * density / mm3ToM3, nil
}

// UnitVolume returns the swept cylinder volume of one piece in m³.
func UnitVolume(diameterMM, lengthMM float64) (float64, error) {
	if err := positive("diameter_mm", diameterMM); err != nil {
		return 0, err
	}
	if err := positive("length_mm", lengthMM); err != nil {
		return 0, err
	}
	r := diameterMM / 2000
	return math.Pi * r * r * (lengthMM / 1000), nil
}

func positive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a positive number", field).
			WithDetails(map[string]any{"field": field, "value": v})
	}
	return nil
}
