package params

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Validator checks a value and returns its normalized form. Validators must
// be pure and idempotent: v(v(x)) == v(x) for every accepted x.
type Validator func(v any) (any, error)

var fold = cases.Fold()

func foldString(s string) string {
	return fold.String(strings.TrimSpace(s))
}

// Anisotropic integration modes.
const (
	AnisoTrue  = "true"
	AnisoFalse = "false"
	AnisoAuto  = "auto"
)

// AnisoMode accepts a boolean or one of "true", "false", "auto" in any case
// and normalizes to one of those three strings.
func AnisoMode(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		if val {
			return AnisoTrue, nil
		}
		return AnisoFalse, nil
	case string:
		switch foldString(val) {
		case AnisoTrue:
			return AnisoTrue, nil
		case AnisoFalse:
			return AnisoFalse, nil
		case AnisoAuto:
			return AnisoAuto, nil
		}
	}
	return nil, errors.New("input could not be converted to a proper anisotropic mode")
}

// Float64 accepts any finite number or numeric string and returns a float64.
func Float64(v any) (any, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%v is not finite", f)
	}
	return f, nil
}

// Positive is Float64 restricted to values greater than zero.
func Positive(v any) (any, error) {
	out, err := Float64(v)
	if err != nil {
		return nil, err
	}
	if out.(float64) <= 0 {
		return nil, fmt.Errorf("must be positive, got %v", out)
	}
	return out, nil
}

// NonNegative is Float64 restricted to values of at least zero.
func NonNegative(v any) (any, error) {
	out, err := Float64(v)
	if err != nil {
		return nil, err
	}
	if out.(float64) < 0 {
		return nil, fmt.Errorf("must not be negative, got %v", out)
	}
	return out, nil
}

// Int accepts integers, integral floats and integer strings.
func Int(v any) (any, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case int32:
		return int(val), nil
	case uint:
		return int(val), nil
	case uint64:
		return int(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("%v is not an integer", val)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", val)
		}
		return n, nil
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

// Bool accepts booleans and the strings understood by strconv.ParseBool.
func Bool(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", val)
		}
		return b, nil
	}
	return nil, fmt.Errorf("expected boolean, got %T", v)
}

// String accepts only strings.
func String(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

// OneOf accepts a case-insensitive match of one of options and returns the
// option as declared.
func OneOf(options ...string) Validator {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected one of %v, got %T", options, v)
		}
		key := foldString(s)
		for _, opt := range options {
			if foldString(opt) == key {
				return opt, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %v", s, options)
	}
}

// Chain runs validators in order, feeding each the previous output.
func Chain(vs ...Validator) Validator {
	return func(v any) (any, error) {
		var err error
		for _, validate := range vs {
			if v, err = validate(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", val)
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
