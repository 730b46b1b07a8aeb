package differ

import (
	"fmt"
	"strings"

	"github.com/realgarit/intuneup/pkg/policy"
)

// Summary totals the results of a reconciliation pass.
type Summary struct {
	Policies     int `json:"policies" yaml:"policies"`         // Policies compared
	Compliant    int `json:"compliant" yaml:"compliant"`       // Policies with no deviation
	NonCompliant int `json:"nonCompliant" yaml:"nonCompliant"` // Policies with at least one deviation
	Deviations   int `json:"deviations" yaml:"deviations"`     // Deviating fields across all policies
	Patchable    int `json:"patchable" yaml:"patchable"`       // Deviating fields a patch can correct
	ManualOnly   int `json:"manualOnly" yaml:"manualOnly"`     // Deviating fields that need manual action
}

// Summarize totals results.
func Summarize(results []policy.Result) Summary {
	var s Summary
	for _, r := range results {
		s.Policies++
		if r.IsFullyCompliant {
			s.Compliant++
		} else {
			s.NonCompliant++
		}
		for _, f := range r.Deviations() {
			s.Deviations++
			if f.IsPatchable {
				s.Patchable++
			} else {
				s.ManualOnly++
			}
		}
	}
	return s
}

// Add merges other into s.
func (s Summary) Add(other Summary) Summary {
	return Summary{
		Policies:     s.Policies + other.Policies,
		Compliant:    s.Compliant + other.Compliant,
		NonCompliant: s.NonCompliant + other.NonCompliant,
		Deviations:   s.Deviations + other.Deviations,
		Patchable:    s.Patchable + other.Patchable,
		ManualOnly:   s.ManualOnly + other.ManualOnly,
	}
}

// HasDeviations reports whether any compared field deviated.
func (s Summary) HasDeviations() bool {
	return s.Deviations > 0
}

// String returns a one-line rendering of the summary.
func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d/%d policies compliant", s.Compliant, s.Policies)
	if s.HasDeviations() {
		fmt.Fprintf(&sb, ", %d deviations (%d patchable, %d manual)", s.Deviations, s.Patchable, s.ManualOnly)
	}
	return sb.String()
}
