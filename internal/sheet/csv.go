package sheet

import (
	"bytes"
	"encoding/csv"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV parses delimited text. A UTF-8 BOM is stripped, input that is not
// valid UTF-8 is decoded as Windows-1252, and the delimiter is sniffed from
// the header line.
func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrap(err, "csv: decode windows-1252")
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read rows")
	}
	return rows, nil
}

// sniffDelimiter picks the most frequent of ';', ',' and tab outside quotes
// on the first line. Spreadsheet exports in pt-BR locales use ';'.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	counts := map[rune]int{}
	inQuotes := false
	for _, r := range string(line) {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case !inQuotes && (r == ';' || r == ',' || r == '\t'):
			counts[r]++
		}
	}

	best, bestN := ',', 0
	for _, r := range []rune{',', ';', '\t'} {
		if counts[r] > bestN {
			best, bestN = r, counts[r]
		}
	}
	return best
}
