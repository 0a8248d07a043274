// Package workbook loads planning indicators from an Excel workbook.
package workbook

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/indicator-cli/internal/fetcher"
	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/resolve"
)

// Column headers, accent-folded and without spaces.
const (
	colAxis      = "eje"
	colName      = "indicador"
	colTarget    = "meta"
	colBaseline  = "valorinicial"
	headerSearch = 10
)

// ErrNoHeader is returned when no row within the first rows names the
// Indicador column.
var ErrNoHeader = eris.New("workbook: header row with an Indicador column not found")

// LoadIndicators reads the first sheet of the workbook at path.
func LoadIndicators(path string) ([]model.IndicatorRow, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "workbook: read")
	}
	return ParseRows(rows)
}

// ParseRows maps raw sheet rows to indicator rows. The header row may be
// preceded by title rows. Numeric-looking Meta cells are kept as numbers.
// Blank rows are skipped; rows without an Indicador cell are kept and get
// the default name when converted to a spec.
func ParseRows(rows [][]string) ([]model.IndicatorRow, error) {
	headerIdx, cols := findHeader(rows)
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	var out []model.IndicatorRow
	for _, row := range rows[headerIdx+1:] {
		rec := model.IndicatorRow{
			Axis: cell(row, cols[colAxis]),
			Name: cell(row, cols[colName]),
		}
		meta := cell(row, cols[colTarget])
		base := cell(row, cols[colBaseline])
		if rec.Axis == "" && rec.Name == "" && meta == "" && base == "" {
			continue
		}
		if meta != "" {
			rec.Target = numericOrText(meta)
		}
		if base != "" {
			rec.Baseline = numericOrText(base)
		}
		out = append(out, rec)
	}
	return out, nil
}

func findHeader(rows [][]string) (int, map[string]int) {
	for i, row := range rows {
		if i >= headerSearch {
			break
		}
		cols := map[string]int{colAxis: -1, colName: -1, colTarget: -1, colBaseline: -1}
		for j, c := range row {
			key := strings.ReplaceAll(resolve.Fold(strings.TrimSpace(c)), " ", "")
			if _, ok := cols[key]; ok && cols[key] < 0 {
				cols[key] = j
			}
		}
		if cols[colName] >= 0 {
			return i, cols
		}
	}
	return -1, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func numericOrText(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
