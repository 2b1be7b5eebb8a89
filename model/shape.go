package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/arloliu/corrfit/errs"
)

// Type identifies a standard one-argument model shape.
type Type int

const (
	// TypeLinear represents the linear model: y = a + b*x
	TypeLinear Type = iota
	// TypeQuadratic represents the quadratic model: y = a + b*x + c*x²
	TypeQuadratic
	// TypeHyperbolic represents the hyperbolic model: y = a + b / x
	TypeHyperbolic
	// TypeLogarithmic represents the logarithmic model: y = a + b * ln(x)
	TypeLogarithmic
	// TypePower represents the power model: y = a * x^b
	TypePower
	// TypeExponential represents the exponential model: y = a * e^(b * x)
	TypeExponential
)

// Types lists every standard shape in declaration order.
var Types = []Type{TypeLinear, TypeQuadratic, TypeHyperbolic, TypeLogarithmic, TypePower, TypeExponential}

var typeNames = map[Type]string{
	TypeLinear:      "linear",
	TypeQuadratic:   "quadratic",
	TypeHyperbolic:  "hyperbolic",
	TypeLogarithmic: "logarithmic",
	TypePower:       "power",
	TypeExponential: "exponential",
}

var typeFromString = map[string]Type{
	"linear":      TypeLinear,
	"quadratic":   TypeQuadratic,
	"polynomial":  TypeQuadratic,
	"hyperbolic":  TypeHyperbolic,
	"logarithmic": TypeLogarithmic,
	"power":       TypePower,
	"exponential": TypeExponential,
}

// String returns the string representation of the model type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return "unknown"
}

// TypeFromString returns the Type for a case-insensitive name.
// Returns Type(-1) for unknown names.
func TypeFromString(name string) Type {
	if t, ok := typeFromString[strings.ToLower(name)]; ok {
		return t
	}

	return Type(-1)
}

// NPar returns the parameter count of the shape, 0 for unknown types.
func (t Type) NPar() int {
	switch t {
	case TypeQuadratic:
		return 3
	case TypeLinear, TypeHyperbolic, TypeLogarithmic, TypePower, TypeExponential:
		return 2
	default:
		return 0
	}
}

// Formula returns a human-readable formula for the shape with coefficients p.
func (t Type) Formula(p []float64) string {
	if len(p) < t.NPar() || t.NPar() == 0 {
		return t.String()
	}

	switch t {
	case TypeLinear:
		return fmt.Sprintf("y = %.4g + %.4g*x", p[0], p[1])
	case TypeQuadratic:
		return fmt.Sprintf("y = %.4g + %.4g*x + %.4g*x²", p[0], p[1], p[2])
	case TypeHyperbolic:
		return fmt.Sprintf("y = %.4g + %.4g / x", p[0], p[1])
	case TypeLogarithmic:
		return fmt.Sprintf("y = %.4g + %.4g * ln(x)", p[0], p[1])
	case TypePower:
		return fmt.Sprintf("y = %.4g * x^%.4g", p[0], p[1])
	default:
		return fmt.Sprintf("y = %.4g * e^(%.4g * x)", p[0], p[1])
	}
}

func (t Type) eval(x float64, q []float64) float64 {
	switch t {
	case TypeLinear:
		return q[0] + q[1]*x
	case TypeQuadratic:
		return q[0] + q[1]*x + q[2]*x*x
	case TypeHyperbolic:
		if x == 0 {
			return math.Inf(1)
		}

		return q[0] + q[1]/x
	case TypeLogarithmic:
		return q[0] + q[1]*math.Log(x)
	case TypePower:
		return q[0] * math.Pow(x, q[1])
	case TypeExponential:
		return q[0] * math.Exp(q[1]*x)
	default:
		return math.NaN()
	}
}

// Standard returns the Model of a standard shape. The model reads x[0] and
// the shape's coefficients from p in formula order.
func Standard(t Type) (Model, error) {
	n := t.NPar()
	if n == 0 {
		return nil, fmt.Errorf("%w: unknown model type %d", errs.ErrConfig, int(t))
	}

	return New(t.String(), 1, n, func(x, p []float64) float64 {
		return t.eval(x[0], p)
	})
}
