package output

import (
	"fmt"
	"io"

	md "github.com/nao1215/markdown"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/internal/cmd/globals"
	"github.com/realgarit/intuneup/internal/cmd/table"
	"github.com/realgarit/intuneup/pkg/golden"
	"github.com/realgarit/intuneup/pkg/patch"
	"github.com/realgarit/intuneup/pkg/policy"
	"github.com/realgarit/intuneup/pkg/remediate"
)

// Document is a titled report made of facts and sections.
type Document struct {
	Title    string
	Facts    []string
	Sections []Section
	Notes    []string
}

func writeDocument(doc *md.Markdown, d *Document) {
	doc.H1(d.Title)
	if len(d.Facts) > 0 {
		doc.BulletList(d.Facts...)
	}
	writeMarkdownSections(doc, d.Sections)
	for _, n := range d.Notes {
		doc.Blockquote(n)
	}
}

// isTable reports whether format renders tables.
func isTable(format Format) bool {
	return format == FormatTable || format == FormatWide || format == ""
}

// FormatReport writes a reconciliation report.
func FormatReport(w io.Writer, report *intuneup.Report, deviationsOnly bool, globalFlags *globals.Flags) error {
	format := DetectFormat(globalFlags.Output)
	wide := format == FormatWide

	switch {
	case isTable(format), format == FormatMarkdown:
	default:
		if deviationsOnly {
			report = withDeviationsOnly(report)
		}
		return NewFormatter(format).Format(w, report)
	}

	var sections []Section
	for _, cr := range report.Categories {
		title := fmt.Sprintf("%s (%d)", table.Title(cr.Category.Label()), len(cr.Results))
		if cr.Err != nil {
			sections = append(sections, Section{Title: title + ": " + cr.Err.Error()})
			continue
		}
		data := table.ResultsToTableData(cr.Results, wide, deviationsOnly)
		if data.Empty() {
			continue
		}
		sections = append(sections, Section{Title: title, Table: data})
	}
	sections = append(sections, Section{Title: "Summary", Table: table.SummaryToTableData(report)})

	facts := reportFacts(report)
	if format == FormatMarkdown {
		return NewFormatter(format).Format(w, &Document{
			Title:    "Windows Update policy report",
			Facts:    facts,
			Sections: sections,
			Notes:    []string{report.Summary.String()},
		})
	}

	if !globalFlags.Quiet {
		for _, f := range facts {
			if _, err := fmt.Fprintln(w, f); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return NewFormatter(format).Format(w, sections)
}

func reportFacts(report *intuneup.Report) []string {
	tenant := report.Tenant
	if tenant == "" {
		tenant = "unknown"
	}
	return []string{
		"Tenant: " + tenant,
		"Customer: " + report.CustomerName,
		"Feature update version: " + report.FeatureUpdateVersion,
		"Quality update release: " + report.QualityUpdateRelease,
		"Generated: " + report.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
	}
}

// withDeviationsOnly returns a copy of report without compliant results.
func withDeviationsOnly(report *intuneup.Report) *intuneup.Report {
	out := *report
	out.Categories = make([]intuneup.CategoryReport, len(report.Categories))
	for i, cr := range report.Categories {
		var kept []policy.Result
		for _, r := range cr.Results {
			if !r.IsFullyCompliant {
				kept = append(kept, r)
			}
		}
		cr.Results = kept
		out.Categories[i] = cr
	}
	return &out
}

// goldenView is the structured form of a golden definition.
type goldenView struct {
	Category    policy.Category `json:"category" yaml:"category"`
	DisplayName string          `json:"displayName" yaml:"displayName"`
	Fields      []goldenField   `json:"fields" yaml:"fields"`
}

type goldenField struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// FormatGolden writes the golden definitions of categories.
func FormatGolden(w io.Writer, registry *golden.Registry, categories []policy.Category, globalFlags *globals.Flags) error {
	format := DetectFormat(globalFlags.Output)

	if !isTable(format) && format != FormatMarkdown {
		views := make([]goldenView, 0, len(categories))
		for _, c := range categories {
			def := registry.Definition(c)
			v := goldenView{Category: c, DisplayName: registry.DisplayName(c, "")}
			for _, f := range def.Fields() {
				v.Fields = append(v.Fields, goldenField{Name: f.Name, Value: f.Value})
			}
			views = append(views, v)
		}
		return NewFormatter(format).Format(w, views)
	}

	sections := make([]Section, 0, len(categories))
	for _, c := range categories {
		sections = append(sections, Section{
			Title: fmt.Sprintf("%s (%s)", table.Title(c.Label()), registry.DisplayName(c, "")),
			Table: table.GoldenToTableData(registry.Definition(c), format == FormatWide),
		})
	}
	return NewFormatter(format).Format(w, sections)
}

// planView is the structured form of a dry-run patch.
type planView struct {
	PolicyID   string               `json:"policyId" yaml:"policyId"`
	PolicyName string               `json:"policyName" yaml:"policyName"`
	Category   policy.Category      `json:"category" yaml:"category"`
	Patch      policy.Patch         `json:"patch" yaml:"patch"`
	ManualOnly []policy.FieldResult `json:"manualOnly,omitempty" yaml:"manualOnly,omitempty"`
}

// FormatPlans writes the patches a dry run would send. plans[i] belongs to results[i].
func FormatPlans(w io.Writer, results []policy.Result, plans []policy.Patch, globalFlags *globals.Flags) error {
	format := DetectFormat(globalFlags.Output)
	if isTable(format) || format == FormatMarkdown {
		return NewFormatter(format).Format(w, Section{
			Title: "Planned patches (dry run)",
			Table: table.PlanToTableData(results, plans, format == FormatWide),
		})
	}

	views := make([]planView, len(results))
	for i, r := range results {
		views[i] = planView{
			PolicyID:   r.PolicyID,
			PolicyName: r.PolicyName,
			Category:   r.Category,
			Patch:      plans[i],
			ManualOnly: patch.Classify(r).ManualOnly,
		}
	}
	return NewFormatter(format).Format(w, views)
}

// FormatRemediations writes the outcome of a remediation run.
func FormatRemediations(w io.Writer, reports []intuneup.RemediationReport, globalFlags *globals.Flags) error {
	format := DetectFormat(globalFlags.Output)
	if isTable(format) || format == FormatMarkdown {
		return NewFormatter(format).Format(w, Section{
			Title: "Remediation",
			Table: table.RemediationsToTableData(reports, format == FormatWide),
		})
	}
	return NewFormatter(format).Format(w, reports)
}

// FormatOutcome writes a single remediation or provisioning outcome.
func FormatOutcome(w io.Writer, outcome *remediate.Outcome, globalFlags *globals.Flags) error {
	format := DetectFormat(globalFlags.Output)
	if isTable(format) || format == FormatMarkdown {
		return NewFormatter(format).Format(w, table.OutcomeToTableData(outcome))
	}
	return NewFormatter(format).Format(w, outcome)
}
