package xlsx_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/clarity-bi/clarity/dataset"
	"github.com/clarity-bi/clarity/xlsx"
)

// buildWorkbook writes a two-sheet workbook the way the dashboard's source
// files are laid out.
func buildWorkbook(t *testing.T, salesSheet, claimsSheet string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName(f.GetSheetName(0), salesSheet))
	_, err := f.NewSheet(claimsSheet)
	require.NoError(t, err)

	salesRows := [][]any{
		{"Policy No", " Dealer ", "Gross Premium", "Policy Sold Date"},
		{"P-001", "Alpha Motors", 100, "2024-01-15"},
		{"P-002", "Beta Cars", 250.5, "2024-02-10"},
	}
	for i, row := range salesRows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(salesSheet, addr, &row))
	}

	claimsRows := [][]any{
		{"Policy No", "Claim Status", "Total Auth Amount", "Failure Date"},
		{"P-002", "Approved", 50, "2024-03-01"},
	}
	for i, row := range claimsRows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(claimsSheet, addr, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRead_IdentifiesSheetsByName(t *testing.T) {
	// GIVEN: A workbook whose claims sheet comes first alphabetically-odd
	// WHEN: Reading it
	// THEN: Sheets are matched by name substring, not position

	data := buildWorkbook(t, "2024 Sales", "2024 Claims")

	sales, claims, err := xlsx.Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, sales.Len())
	assert.Equal(t, 1, claims.Len())
}

func TestRead_TrimsHeadersAndCoercesCells(t *testing.T) {
	data := buildWorkbook(t, "Sales", "Claims")

	sales, _, err := xlsx.Read(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Contains(t, sales.Columns, "Dealer", "padded header is trimmed")

	row := sales.Rows[0]
	assert.Equal(t, float64(100), row.Cells["Gross Premium"], "numbers are typed")
	d, ok := row.Cells["Policy Sold Date"].(time.Time)
	require.True(t, ok, "date-ish columns are parsed to times")
	assert.Equal(t, 2024, d.Year())
}

func TestRead_Garbage(t *testing.T) {
	_, _, err := xlsx.Read(strings.NewReader("this is not a workbook"))
	require.Error(t, err)
	var le *dataset.LoadError
	assert.ErrorAs(t, err, &le)
}

func TestExportReadRoundTrip(t *testing.T) {
	// GIVEN: A loaded store whose sales table was edited
	// WHEN: Exporting and re-reading the sales table
	// THEN: The edit survives and the identity column does not

	data := buildWorkbook(t, "Sales", "Claims")
	sales, claims, err := xlsx.Read(bytes.NewReader(data))
	require.NoError(t, err)

	store := dataset.NewStore()
	store.Load(sales, claims)
	_, err = store.UpdateCell(dataset.TableSales, 0, "Dealer", "Gamma Garage")
	require.NoError(t, err)

	out, err := xlsx.Export(store.Sales())
	require.NoError(t, err)

	reread, _, err := xlsx.Read(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 2, reread.Len())
	assert.NotContains(t, reread.Columns, dataset.RowIDColumn)
	assert.Equal(t, "Gamma Garage", dataset.CellString(reread.Rows[0].Cells["Dealer"]))
}
