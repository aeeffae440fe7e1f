package xlsx

import (
	"fmt"
	"time"

	"github.com/clarity-bi/clarity/dataset"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Export serializes the current working copy of a table to a spreadsheet
// byte buffer, excluding the identity column.
func Export(t dataset.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Name
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	var columns []string
	for _, c := range t.Columns {
		if c != dataset.RowIDColumn {
			columns = append(columns, c)
		}
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range t.Rows {
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = exportCell(r.Cells[c])
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportCell(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format("2006-01-02")
	case decimal.Decimal:
		return x.InexactFloat64()
	default:
		return x
	}
}
