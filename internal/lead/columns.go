// Package lead turns raw CRM export rows into typed leads and locates where
// each lead's follow-up conversation stopped.
package lead

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/followup-cli/internal/model"
)

// Column is a canonical column of the CRM export.
type Column string

const (
	ColumnDealName Column = "deal_name"
	ColumnCompany  Column = "company"
	ColumnPhase    Column = "phase"
	ColumnOwner    Column = "owner"
)

// TemperatureColumn returns the canonical temperature column of follow-up n.
func TemperatureColumn(n int) Column {
	return Column(fmt.Sprintf("followup_%d_temperature", n))
}

// DescriptionColumn returns the canonical description column of follow-up n.
func DescriptionColumn(n int) Column {
	return Column(fmt.Sprintf("followup_%d_description", n))
}

// RequiredColumns must be present in every export.
var RequiredColumns = []Column{
	ColumnDealName,
	ColumnCompany,
	ColumnPhase,
	ColumnOwner,
	TemperatureColumn(1),
	DescriptionColumn(1),
}

// columnAliases lists the folded header spellings accepted for each column,
// including the headers of the Portuguese CRM export.
var columnAliases = buildAliases()

func buildAliases() map[Column][]string {
	aliases := map[Column][]string{
		ColumnDealName: {"deal name", "deal", "opportunity", "nome do negocio", "negocio"},
		ColumnCompany:  {"company", "account", "empresa"},
		ColumnPhase:    {"phase", "stage", "fase", "etapa"},
		ColumnOwner:    {"owner", "salesperson", "responsavel", "vendedor", "usuario"},
	}
	for n := 1; n <= model.MaxFollowUps; n++ {
		aliases[TemperatureColumn(n)] = []string{
			fmt.Sprintf("followup %d temperature", n),
			fmt.Sprintf("follow up %d temperature", n),
			fmt.Sprintf("temperature %d", n),
			fmt.Sprintf("temperatura da proposta follow %d", n),
			fmt.Sprintf("temperatura da proposta follow up %d", n),
			fmt.Sprintf("temperatura follow %d", n),
			fmt.Sprintf("temperatura follow up %d", n),
			fmt.Sprintf("temperatura %d", n),
		}
		aliases[DescriptionColumn(n)] = []string{
			fmt.Sprintf("followup %d description", n),
			fmt.Sprintf("follow up %d description", n),
			fmt.Sprintf("description %d", n),
			fmt.Sprintf("descricao follow up %d", n),
			fmt.Sprintf("descricao do follow up %d", n),
			fmt.Sprintf("descricao follow %d", n),
			fmt.Sprintf("follow up %d", n),
		}
	}
	return aliases
}

// FoldHeader normalizes a header for matching: quotes removed, accents
// stripped, lower-cased, underscores and hyphens read as spaces, whitespace
// collapsed.
func FoldHeader(s string) string {
	s = strings.NewReplacer(`"`, "", "'", "", "_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(strings.ToLower(Fold(s))), " ")
}

// Fold strips combining marks so "Descrição" and "Descricao" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Mapping resolves canonical columns to the raw header that carries them.
type Mapping map[Column]string

// MapColumns matches raw headers to canonical columns. The first header (in
// sorted order) that matches a column wins; unmatched headers are ignored.
func MapColumns(headers []string) Mapping {
	byFolded := make(map[string]string, len(headers))
	sorted := append([]string(nil), headers...)
	sort.Strings(sorted)
	for _, h := range sorted {
		f := FoldHeader(h)
		if _, seen := byFolded[f]; !seen {
			byFolded[f] = h
		}
	}

	m := make(Mapping)
	for col, aliases := range columnAliases {
		if raw, ok := byFolded[FoldHeader(string(col))]; ok {
			m[col] = raw
			continue
		}
		for _, a := range aliases {
			if raw, ok := byFolded[a]; ok {
				m[col] = raw
				break
			}
		}
	}
	return m
}

// Missing returns the required columns the mapping lacks, in canonical order.
func (m Mapping) Missing() []Column {
	var missing []Column
	for _, c := range RequiredColumns {
		if _, ok := m[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// SchemaError reports required columns absent from an export.
type SchemaError struct {
	Missing []Column
}

func (e *SchemaError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return "missing required columns: " + strings.Join(names, ", ")
}

// ValidateColumns checks a header row for the required columns.
func ValidateColumns(headers []string) error {
	if missing := MapColumns(headers).Missing(); len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}
