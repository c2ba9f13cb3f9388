package lead

import (
	"strings"

	"github.com/sells-group/followup-cli/internal/model"
)

// Normalize converts one raw record into a Lead. It fails with *SchemaError
// when a required column is absent from the record's column set; blank values
// in present columns are not an error.
func Normalize(record map[string]string) (model.Lead, error) {
	headers := make([]string, 0, len(record))
	for k := range record {
		headers = append(headers, k)
	}
	m := MapColumns(headers)
	if missing := m.Missing(); len(missing) > 0 {
		return model.Lead{}, &SchemaError{Missing: missing}
	}
	return m.Lead(record), nil
}

// Lead builds a Lead from record using an already validated mapping.
func (m Mapping) Lead(record map[string]string) model.Lead {
	l := model.NewLead(
		m.text(record, ColumnDealName),
		m.text(record, ColumnCompany),
		m.text(record, ColumnPhase),
		m.text(record, ColumnOwner),
	)
	for n := 1; n <= model.MaxFollowUps; n++ {
		desc := m.text(record, DescriptionColumn(n))
		if desc == "" {
			continue
		}
		slot := &l.FollowUps[n-1]
		slot.Description = desc
		slot.Temperature = model.ParseTemperature(m.value(record, TemperatureColumn(n)))
	}
	return l
}

func (m Mapping) value(record map[string]string, c Column) string {
	raw, ok := m[c]
	if !ok {
		return ""
	}
	return record[raw]
}

// text returns the trimmed cell value, treating spreadsheet null markers as
// blank.
func (m Mapping) text(record map[string]string, c Column) string {
	v := strings.TrimSpace(m.value(record, c))
	switch strings.ToLower(v) {
	case "nan", "null":
		return ""
	}
	return v
}
