// Package table provides common table formatting utilities for CLI commands.
package table

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/realgarit/intuneup/internal/cmd/emoji"
	"github.com/realgarit/intuneup/pkg/policy"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// Empty reports whether the table has no rows.
func (d Data) Empty() bool {
	return len(d.Rows) == 0
}

// maxValueWidth bounds rendered values in narrow tables.
const maxValueWidth = 48

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// Title renders a category label or operation name for headings.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

// PolicyStatus returns the colored status mark of a policy.
func PolicyStatus(r policy.Result) string {
	if r.IsFullyCompliant {
		return green(emoji.Success + " compliant")
	}
	return red(fmt.Sprintf("%s %d deviation(s)", emoji.Error, len(r.Deviations())))
}

// FieldStatus returns the colored status mark of a field.
func FieldStatus(f policy.FieldResult) string {
	switch {
	case f.IsMatch:
		return green(emoji.Success + " match")
	case f.IsPatchable:
		return red(emoji.Error + " patchable")
	default:
		return yellow(emoji.Manual + " manual")
	}
}

// ResultsToTableData converts comparison results to table format. Compliant
// policies get one row; deviating ones get a row per deviating field.
func ResultsToTableData(results []policy.Result, wide, deviationsOnly bool) Data {
	headers := []string{"Policy", "Status", "Field", "Expected", "Actual"}
	if wide {
		headers = []string{"Policy", "ID", "Status", "Field", "Expected", "Actual", "Note"}
	}

	var rows [][]string
	for _, r := range results {
		name := r.PolicyName
		if name == "" {
			name = "-"
		}

		if r.IsFullyCompliant {
			if deviationsOnly {
				continue
			}
			row := []string{name, PolicyStatus(r), "-", "-", "-"}
			if wide {
				row = []string{name, r.PolicyID, PolicyStatus(r), "-", "-", "-", "-"}
			}
			rows = append(rows, row)
			continue
		}

		for i, f := range r.Deviations() {
			policyCell := name
			if i > 0 {
				policyCell = ""
			}
			row := []string{
				policyCell,
				FieldStatus(f),
				f.Field,
				FormatValue(f.Expected, wide),
				FormatValue(f.Actual, wide),
			}
			if wide {
				id := r.PolicyID
				if i > 0 {
					id = ""
				}
				note := f.Note
				if note == "" {
					note = "-"
				}
				row = []string{policyCell, id, row[1], row[2], row[3], row[4], note}
			}
			rows = append(rows, row)
		}
	}

	return Data{
		Headers: headers,
		Rows:    rows,
	}
}

// FormatValue renders a field value for a table cell. Sub-objects and
// arrays are shown as compact JSON.
func FormatValue(v any, wide bool) string {
	var s string
	switch val := v.(type) {
	case nil:
		return faint("<not set>")
	case string:
		if val == "" {
			return `""`
		}
		s = val
	case bool, int, int64, float64, json.Number:
		s = fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprintf("%v", val)
		} else {
			s = string(b)
		}
	}

	if r := []rune(s); !wide && len(r) > maxValueWidth {
		s = string(r[:maxValueWidth-3]) + "..."
	}
	return strings.ReplaceAll(s, "\n", " ")
}
