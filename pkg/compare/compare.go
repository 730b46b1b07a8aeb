// Package compare implements the structural equality used by every field
// comparison. Values are JSON-shaped: scalars, nil, string-keyed maps and
// sequences of those.
package compare

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
)

// Equal reports whether a and b are structurally equal.
//
//   - nil equals only nil
//   - numbers compare by value regardless of Go kind, so golden 7 equals a decoded float64(7)
//   - keyed maps require the same key set and equal values
//   - sequences compare by length and position
//
// Values of differing kinds are unequal. Equal never panics.
func Equal(a, b any) bool {
	a, b = indirect(a), indirect(b)
	aNil, bNil := isNil(a), isNil(b)
	if aNil || bNil {
		return aNil && bNil
	}

	an, aIsNum := number(a)
	bn, bIsNum := number(b)
	if aIsNum || bIsNum {
		return aIsNum && bIsNum && an.equal(bn)
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.String:
		return vb.Kind() == reflect.String && va.String() == vb.String()
	case reflect.Bool:
		return vb.Kind() == reflect.Bool && va.Bool() == vb.Bool()
	case reflect.Map:
		return equalMaps(va, vb)
	case reflect.Slice, reflect.Array:
		return equalSequences(va, vb)
	}
	return reflect.DeepEqual(a, b)
}

func equalMaps(va, vb reflect.Value) bool {
	if vb.Kind() != reflect.Map || va.Type().Key().Kind() != reflect.String || vb.Type().Key().Kind() != reflect.String {
		return false
	}
	if va.Len() != vb.Len() {
		return false
	}
	iter := va.MapRange()
	for iter.Next() {
		other := vb.MapIndex(reflect.ValueOf(iter.Key().String()).Convert(vb.Type().Key()))
		if !other.IsValid() {
			return false
		}
		if !Equal(iter.Value().Interface(), other.Interface()) {
			return false
		}
	}
	return true
}

func equalSequences(va, vb reflect.Value) bool {
	if vb.Kind() != reflect.Slice && vb.Kind() != reflect.Array {
		return false
	}
	if va.Len() != vb.Len() {
		return false
	}
	for i := 0; i < va.Len(); i++ {
		if !Equal(va.Index(i).Interface(), vb.Index(i).Interface()) {
			return false
		}
	}
	return true
}

// indirect dereferences non-nil pointers.
func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() || !rv.CanInterface() {
		return v
	}
	return rv.Interface()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// numeric holds an integer exactly when it has one, a float otherwise.
type numeric struct {
	isInt bool
	i     int64
	u     uint64
	neg   bool
	f     float64
}

func (n numeric) equal(o numeric) bool {
	if n.isInt && o.isInt {
		return n.neg == o.neg && n.i == o.i && n.u == o.u
	}
	x, y := n.float(), o.float()
	return x == y || (math.IsNaN(x) && math.IsNaN(y))
}

func (n numeric) float() float64 {
	if !n.isInt {
		return n.f
	}
	if n.neg {
		return float64(n.i)
	}
	return float64(n.u)
}

func fromInt(i int64) numeric {
	if i < 0 {
		return numeric{isInt: true, neg: true, i: i}
	}
	return numeric{isInt: true, u: uint64(i)}
}

func fromFloat(f float64) numeric {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		if f >= 0 && f < math.MaxUint64 {
			return numeric{isInt: true, u: uint64(f)}
		}
		if f < 0 && f >= math.MinInt64 {
			return numeric{isInt: true, neg: true, i: int64(f)}
		}
	}
	return numeric{f: f}
}

func number(v any) (numeric, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return fromInt(i), true
		}
		if f, err := n.Float64(); err == nil {
			return fromFloat(f), true
		}
		return numeric{}, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return numeric{isInt: true, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return fromFloat(rv.Float()), true
	}
	return numeric{}, false
}

// NormalizeTimeOfDay strips a fractional-second suffix from a time of day,
// so "06:00:00.0000000" becomes "06:00:00". Other strings pass through.
func NormalizeTimeOfDay(s string) string {
	head, frac, found := strings.Cut(s, ".")
	if !found || strings.Count(head, ":") != 2 {
		return s
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return s
		}
	}
	return head
}

// NormalizeTimeValue applies NormalizeTimeOfDay to string values and
// returns anything else unchanged.
func NormalizeTimeValue(v any) any {
	if s, ok := v.(string); ok {
		return NormalizeTimeOfDay(s)
	}
	return v
}
