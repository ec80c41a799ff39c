// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"
	"strconv"
	"strings"

	"nickandperla.net/calcnb/internal/scope"
)

// DefaultPrecision is the number of significant digits used by Format when
// no precision is given.
const DefaultPrecision = 14

// Exponent bounds outside of which numbers are shown in exponent notation.
const (
	lowerExp = -3
	upperExp = 21
)

// Format renders a value for display with at most precision significant
// digits. A nil value formats as the empty string.
func (r *Runtime) Format(v scope.Value, precision int) string {
	return Format(v, precision)
}

// Format renders a value for display. See Runtime.Format.
func Format(v scope.Value, precision int) string {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	switch x := v.(type) {
	case nil:
		return ""
	case Number:
		return formatNumber(float64(x), precision)
	case Bool:
		return strconv.FormatBool(bool(x))
	case *Vector:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, el := range x.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatNumber(el, precision))
		}
		sb.WriteByte(']')
		return sb.String()
	case *Function:
		return x.Name + "(" + strings.Join(x.Params, ", ") + ")"
	}
	return "?"
}

func formatNumber(f float64, precision int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	// Round to the requested significant digits first so that float noise
	// like 7.800000000000001 disappears.
	s := strconv.FormatFloat(f, 'e', precision-1, 64)
	mant, expStr, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expStr)

	if exp >= lowerExp && exp < upperExp {
		rounded, _ := strconv.ParseFloat(s, 64)
		return strconv.FormatFloat(rounded, 'f', -1, 64)
	}

	if strings.Contains(mant, ".") {
		mant = strings.TrimRight(mant, "0")
		mant = strings.TrimSuffix(mant, ".")
	}
	sign := "+"
	if exp < 0 {
		sign = "-"
		exp = -exp
	}
	return mant + "e" + sign + strconv.Itoa(exp)
}
