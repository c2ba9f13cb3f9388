package report

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/followup-cli/internal/model"
)

// WriteJSON writes the dashboard view of b as indented JSON.
func WriteJSON(w io.Writer, b *model.Batch, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Dashboard(b, opts)); err != nil {
		return eris.Wrap(err, "report: write json")
	}
	return nil
}

// WriteYAML writes the dashboard view of b as YAML.
func WriteYAML(w io.Writer, b *model.Batch, opts Options) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Dashboard(b, opts)); err != nil {
		return eris.Wrap(err, "report: write yaml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "report: close yaml encoder")
	}
	return nil
}

// xlsxColumns is the header row of the spreadsheet export.
var xlsxColumns = []string{
	"Row", "Owner", "Company", "Deal", "Phase", "Temperature",
	"Last Follow-up", "Next Follow-up", "Status", "Diagnosis", "Strategy",
	"Recommended Action", "Source", "Error",
}

// WriteXLSX writes one spreadsheet row per visible outcome of b.
func WriteXLSX(w io.Writer, b *model.Batch, opts Options) error {
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Advisories")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	addRow(sh, xlsxColumns...)
	for _, g := range Dashboard(b, opts).Owners {
		for _, o := range g.Outcomes {
			var diag, strat, action, source string
			if a := o.Advisory; a != nil {
				diag, strat, action, source = a.Diagnosis, a.Strategy, a.RecommendedAction, string(a.Source)
			}
			next := ""
			if !o.Position.Exhausted() {
				next = strconv.Itoa(o.Position.Next)
			}
			addRow(sh,
				strconv.Itoa(o.Row),
				g.Owner,
				o.Lead.Company,
				o.Lead.DealName,
				o.Lead.Phase,
				o.Lead.CurrentTemperature(o.Position).Label(),
				strconv.Itoa(o.Position.LastCompleted),
				next,
				string(o.Status),
				diag,
				strat,
				action,
				source,
				o.Error,
			)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}

func addRow(sh *xlsx.Sheet, values ...string) {
	row := sh.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
