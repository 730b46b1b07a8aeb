// Package patch turns comparison results into the minimal write payload
// that corrects their patchable deviations.
package patch

import (
	"strings"

	"github.com/realgarit/intuneup/pkg/golden"
	"github.com/realgarit/intuneup/pkg/policy"
)

// Synthesizer builds patches against one golden definition.
type Synthesizer struct {
	golden golden.Definition
}

// New creates a Synthesizer for def.
func New(def golden.Definition) *Synthesizer {
	return &Synthesizer{golden: def}
}

// Synthesize returns the patch correcting every patchable deviation of
// result. Deviating structured leaves are written as their whole golden
// parent object, once per parent. Protected fields, bare structured parent
// names and unknown dotted paths are never emitted, whatever the result
// says about them. An empty patch means no write is needed.
func (s *Synthesizer) Synthesize(result policy.Result) policy.Patch {
	out := policy.Patch{}
	for _, f := range result.Fields {
		if f.IsMatch || !f.IsPatchable || !Writable(result.Category, f.Field) {
			continue
		}

		if parent, ok := policy.ParentOf(f.Field); ok {
			if _, done := out[parent]; done {
				continue
			}
			if value, ok := s.golden.Get(parent); ok {
				out[parent] = value
			}
			continue
		}

		out[f.Field] = policy.DeepCopy(f.Expected)
	}
	return out
}

// Writable reports whether field may appear in a patch for category,
// either as itself or through its structured parent.
func Writable(category policy.Category, field string) bool {
	if field == "" || policy.IsProtected(field) || policy.ReadOnlyAtWrite(category, field) {
		return false
	}
	if strings.Contains(field, ".") {
		_, ok := policy.ParentOf(field)
		return ok
	}
	return !policy.IsStructured(field)
}

// Classification splits the deviations of a result by how they get fixed.
type Classification struct {
	Patchable  []policy.FieldResult
	ManualOnly []policy.FieldResult
}

// Classify sorts every deviation of result into patchable or manual-only.
func Classify(result policy.Result) Classification {
	var c Classification
	for _, f := range result.Deviations() {
		if f.IsPatchable && Writable(result.Category, f.Field) {
			c.Patchable = append(c.Patchable, f)
		} else {
			c.ManualOnly = append(c.ManualOnly, f)
		}
	}
	return c
}
