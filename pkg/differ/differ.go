// Package differ compares fetched policies against their golden definitions
// field by field.
package differ

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/realgarit/intuneup/pkg/compare"
	"github.com/realgarit/intuneup/pkg/golden"
	"github.com/realgarit/intuneup/pkg/logging"
	"github.com/realgarit/intuneup/pkg/policy"
)

// Differ produces per-field comparison results.
type Differ interface {
	// Diff compares actual against golden and returns one result per
	// compared field or leaf. Scalar and opaque fields come first in
	// declaration order, then structured leaves in parent order.
	Diff(category policy.Category, actual policy.RawPolicy, golden golden.Definition) []policy.FieldResult

	// Compare wraps Diff into a policy level result.
	Compare(actual policy.RawPolicy, golden golden.Definition) policy.Result

	// CompareAll compares every policy of a collection.
	CompareAll(actual []policy.RawPolicy, golden golden.Definition) []policy.Result
}

// differ is the default implementation of Differ.
type differ struct {
	logger *zerolog.Logger
}

// New creates a Differ.
func New(opts ...Option) Differ {
	d := &differ{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Diff implements Differ.
func (d *differ) Diff(category policy.Category, actual policy.RawPolicy, def golden.Definition) []policy.FieldResult {
	var scalars, leaves []policy.FieldResult

	for _, f := range def.Fields() {
		switch {
		case policy.IsProtected(f.Name):
			d.logger.Trace().Str("field", f.Name).Msg("Skipping protected field")
		case policy.IsStructured(f.Name):
			expanded := d.expand(category, f, actual[f.Name])
			d.logger.Trace().Str("field", f.Name).Int("leaves", len(expanded)).Msg("Expanded structured field")
			leaves = append(leaves, expanded...)
		default:
			scalars = append(scalars, scalar(category, f, actual))
		}
	}

	return append(scalars, leaves...)
}

// Compare implements Differ.
func (d *differ) Compare(actual policy.RawPolicy, def golden.Definition) policy.Result {
	return policy.NewResult(def.Category(), actual, d.Diff(def.Category(), actual, def))
}

// CompareAll implements Differ.
func (d *differ) CompareAll(actual []policy.RawPolicy, def golden.Definition) []policy.Result {
	results := make([]policy.Result, 0, len(actual))
	for _, p := range actual {
		results = append(results, d.Compare(p, def))
	}
	return results
}

// scalar compares a plain or opaque field as one unit.
func scalar(category policy.Category, f golden.Field, actual policy.RawPolicy) policy.FieldResult {
	value, present := actual[f.Name]
	r := policy.FieldResult{
		Field:       f.Name,
		Expected:    f.Value,
		Actual:      policy.DeepCopy(value),
		IsMatch:     compare.Equal(f.Value, value),
		IsPatchable: !policy.ReadOnlyAtWrite(category, f.Name),
	}
	switch {
	case !present:
		r.Note = "field not set"
	case !r.IsMatch && !r.IsPatchable:
		r.Note = "read-only at write time, correct manually"
	}
	return r
}

// expand turns a structured field into one result per documented leaf.
func (d *differ) expand(category policy.Category, f golden.Field, actual any) []policy.FieldResult {
	switch f.Name {
	case policy.FieldInstallationSchedule:
		return expandSchedule(category, f, actual)
	case policy.FieldExpeditedUpdateSettings:
		return expandExpedite(category, f, actual)
	}
	d.logger.Warn().Str("field", f.Name).Msg("No expander for structured field")
	return nil
}

func expandSchedule(category policy.Category, f golden.Field, actual any) []policy.FieldResult {
	goldenMap, _ := f.Value.(map[string]any)
	want, _ := policy.DecodeInstallSchedule(goldenMap)

	actualMap, _ := actual.(map[string]any)
	got, decoded := policy.DecodeInstallSchedule(actual)

	var note string
	same := decoded && sameVariant(want, got)
	switch {
	case actual == nil:
		note = "installation schedule not set"
	case !decoded:
		note = fmt.Sprintf("unrecognized installation schedule %v", describeRaw(actual))
	case !same:
		note = "configured as " + got.Describe()
	}

	results := make([]policy.FieldResult, 0, 2)
	for _, leaf := range policy.Leaves(f.Name) {
		key := leafKey(leaf)
		expected := compare.NormalizeTimeValue(goldenMap[key])
		var value any
		if same {
			value = compare.NormalizeTimeValue(actualMap[key])
		}
		results = append(results, leafResult(category, leaf, expected, value, note))
	}
	return results
}

// sameVariant reports whether got is the variant of want.
func sameVariant(want, got policy.InstallSchedule) bool {
	switch want.(type) {
	case policy.ActiveHoursInstall:
		_, ok := got.(policy.ActiveHoursInstall)
		return ok
	case policy.ScheduledInstall:
		_, ok := got.(policy.ScheduledInstall)
		return ok
	}
	return false
}

func expandExpedite(category policy.Category, f golden.Field, actual any) []policy.FieldResult {
	goldenMap, _ := f.Value.(map[string]any)
	actualMap, ok := actual.(map[string]any)

	var note string
	switch {
	case actual == nil:
		note = "expedited update settings not set"
	case !ok:
		note = fmt.Sprintf("unrecognized expedited update settings %v", describeRaw(actual))
	}

	results := make([]policy.FieldResult, 0, 2)
	for _, leaf := range policy.Leaves(f.Name) {
		key := leafKey(leaf)
		results = append(results, leafResult(category, leaf, goldenMap[key], policy.DeepCopy(actualMap[key]), note))
	}
	return results
}

func leafResult(category policy.Category, leaf string, expected, actual any, note string) policy.FieldResult {
	r := policy.FieldResult{
		Field:       leaf,
		Expected:    policy.DeepCopy(expected),
		Actual:      actual,
		IsMatch:     compare.Equal(expected, actual),
		IsPatchable: !policy.ReadOnlyAtWrite(category, leaf),
	}
	if !r.IsMatch {
		r.Note = note
	}
	return r
}

func leafKey(path string) string {
	_, key, _ := strings.Cut(path, ".")
	return key
}

func describeRaw(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
