package statement

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbook reads the first worksheet of an xlsx statement export into a
// row-major cell grid. Cells holding plain numbers become float64 so the
// extractor can tell amounts from text; everything else stays a string.
func ReadWorkbook(r io.Reader) ([][]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no worksheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	grid := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			if trimmed := strings.TrimSpace(cell); trimmed != "" {
				if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
					cells[j] = v
					continue
				}
			}
			cells[j] = cell
		}
		grid[i] = cells
	}
	return grid, nil
}
