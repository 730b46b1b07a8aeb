package policy

// FieldResult is the comparison outcome of one golden field or leaf.
type FieldResult struct {
	Field       string `json:"field" yaml:"field"`
	Expected    any    `json:"expected" yaml:"expected"`
	Actual      any    `json:"actual" yaml:"actual"`
	IsMatch     bool   `json:"isMatch" yaml:"isMatch"`
	IsPatchable bool   `json:"isPatchable" yaml:"isPatchable"`
	// Note is a diagnostic shown next to the field. It never affects IsMatch.
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Result is the comparison of one policy against its golden definition.
type Result struct {
	PolicyID         string        `json:"policyId" yaml:"policyId"`
	PolicyName       string        `json:"policyName" yaml:"policyName"`
	Category         Category      `json:"policyType" yaml:"policyType"`
	Fields           []FieldResult `json:"fields" yaml:"fields"`
	IsFullyCompliant bool          `json:"isFullyCompliant" yaml:"isFullyCompliant"`
}

// NewResult builds a Result with IsFullyCompliant derived from fields.
func NewResult(category Category, p RawPolicy, fields []FieldResult) Result {
	r := Result{
		PolicyID:   p.ID(),
		PolicyName: p.DisplayName(),
		Category:   category,
		Fields:     fields,
	}
	r.IsFullyCompliant = r.Compliant()
	return r
}

// Compliant recomputes compliance from the field results.
func (r Result) Compliant() bool {
	for _, f := range r.Fields {
		if !f.IsMatch {
			return false
		}
	}
	return true
}

// Deviations returns the non-matching fields in order.
func (r Result) Deviations() []FieldResult {
	var out []FieldResult
	for _, f := range r.Fields {
		if !f.IsMatch {
			out = append(out, f)
		}
	}
	return out
}

// Patchable returns the non-matching fields that a patch can correct.
func (r Result) Patchable() []FieldResult {
	var out []FieldResult
	for _, f := range r.Fields {
		if !f.IsMatch && f.IsPatchable {
			out = append(out, f)
		}
	}
	return out
}
