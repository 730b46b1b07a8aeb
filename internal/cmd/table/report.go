package table

import (
	"fmt"
	"strconv"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/internal/cmd/emoji"
	"github.com/realgarit/intuneup/pkg/golden"
	"github.com/realgarit/intuneup/pkg/patch"
	"github.com/realgarit/intuneup/pkg/policy"
	"github.com/realgarit/intuneup/pkg/remediate"
)

// SummaryToTableData converts the per-category totals of a report.
func SummaryToTableData(report *intuneup.Report) Data {
	headers := []string{"Category", "Policies", "Compliant", "Deviations", "Patchable", "Manual", "Status"}

	rows := make([][]string, 0, len(report.Categories)+1)
	for _, cr := range report.Categories {
		status := green(emoji.Success)
		switch {
		case cr.Err != nil:
			status = red(emoji.Error + " " + cr.Err.Error())
		case cr.Summary.HasDeviations():
			status = red(emoji.Error)
		}
		rows = append(rows, []string{
			Title(cr.Category.Label()),
			strconv.Itoa(cr.Summary.Policies),
			strconv.Itoa(cr.Summary.Compliant),
			strconv.Itoa(cr.Summary.Deviations),
			strconv.Itoa(cr.Summary.Patchable),
			strconv.Itoa(cr.Summary.ManualOnly),
			status,
		})
	}

	s := report.Summary
	rows = append(rows, []string{
		"Total",
		strconv.Itoa(s.Policies),
		strconv.Itoa(s.Compliant),
		strconv.Itoa(s.Deviations),
		strconv.Itoa(s.Patchable),
		strconv.Itoa(s.ManualOnly),
		"",
	})

	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignLeft},
	}
}

// GoldenToTableData lists the golden fields of a definition in declaration order.
func GoldenToTableData(def golden.Definition, wide bool) Data {
	headers := []string{"Field", "Value", "Patchable"}

	fields := def.Fields()
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		writable := emoji.Success
		switch {
		case policy.IsProtected(f.Name):
			writable = emoji.Optional
		case policy.IsStructured(f.Name):
			writable = "per leaf"
		case !patch.Writable(def.Category(), f.Name):
			writable = emoji.Manual
		}
		rows = append(rows, []string{f.Name, FormatValue(f.Value, wide), writable})
	}

	return Data{
		Headers: headers,
		Rows:    rows,
	}
}

// PlanToTableData lists the patches a dry run would send, one row per field.
func PlanToTableData(results []policy.Result, plans []policy.Patch, wide bool) Data {
	headers := []string{"Policy", "Field", "Value", "Manual Only"}

	var rows [][]string
	for i, r := range results {
		manual := strconv.Itoa(len(patch.Classify(r).ManualOnly))
		p := plans[i]
		if p.Empty() {
			rows = append(rows, []string{r.PolicyName, faint("nothing to patch"), "-", manual})
			continue
		}
		for j, key := range p.Keys() {
			name := r.PolicyName
			if j > 0 {
				name, manual = "", ""
			}
			rows = append(rows, []string{name, key, FormatValue(p[key], wide), manual})
		}
	}

	return Data{
		Headers: headers,
		Rows:    rows,
	}
}

// RemediationsToTableData converts remediation reports to table format.
func RemediationsToTableData(reports []intuneup.RemediationReport, wide bool) Data {
	headers := []string{"Policy", "Category", "Result", "Fields", "Manual Only"}
	if wide {
		headers = append(headers, "Refetch")
	}

	rows := make([][]string, 0, len(reports))
	for _, rep := range reports {
		row := []string{rep.PolicyName, Title(rep.Category.Label())}
		if rep.Err != nil {
			row = append(row, red(emoji.Error+" "+rep.Err.Error()), "-", "-")
			if wide {
				row = append(row, "-")
			}
			rows = append(rows, row)
			continue
		}
		row = append(row, OutcomeStatus(rep.Outcome),
			strconv.Itoa(len(rep.Outcome.Patch.Keys())),
			strconv.Itoa(len(rep.Outcome.ManualOnly)))
		if wide {
			row = append(row, RefreshStatus(rep.Outcome))
		}
		rows = append(rows, row)
	}

	return Data{
		Headers: headers,
		Rows:    rows,
	}
}

// OutcomeToTableData converts a single outcome to a key-value table.
func OutcomeToTableData(o *remediate.Outcome) Data {
	rows := [][]string{
		{"Operation", Title(o.Operation)},
		{"Category", Title(o.Category.Label())},
		{"Policy ID", o.PolicyID},
		{"Result", OutcomeStatus(o)},
	}
	if o.Created != nil {
		rows = append(rows, []string{"Display Name", o.Created.DisplayName()})
	}
	if len(o.Patch) > 0 {
		rows = append(rows, []string{"Fields", fmt.Sprint(o.Patch.Keys())})
	}
	if o.Refreshed != nil || o.RefreshErr != nil {
		rows = append(rows, []string{"Refetch", RefreshStatus(o)})
	}

	return Data{
		Headers: []string{"Property", "Value"},
		Rows:    rows,
	}
}

// OutcomeStatus returns the colored status of an outcome.
func OutcomeStatus(o *remediate.Outcome) string {
	if o == nil || !o.Applied {
		return faint(emoji.Optional + " nothing to write")
	}
	if o.Operation == remediate.OperationCreate {
		return green(emoji.Success + " created")
	}
	return green(emoji.Success + " patched")
}

// RefreshStatus describes the refetch that followed a patch.
func RefreshStatus(o *remediate.Outcome) string {
	switch {
	case o == nil:
		return "-"
	case o.RefreshErr != nil:
		return yellow(emoji.Warning + " " + o.RefreshErr.Error())
	case o.Refreshed == nil:
		return "-"
	default:
		return PolicyStatus(*o.Refreshed)
	}
}
