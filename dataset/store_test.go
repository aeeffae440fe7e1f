package dataset_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarity-bi/clarity/dataset"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func salesTable() dataset.Table {
	columns := []string{"Policy No", "Dealer", "Product", "Make", "Gross Premium", "Risk Premium", "Policy Sold Date"}
	mk := func(policy, dealer, product, make_ string, gross, risk float64, sold time.Time) dataset.Row {
		return dataset.Row{Cells: map[string]any{
			"Policy No":        policy,
			"Dealer":           dealer,
			"Product":          product,
			"Make":             make_,
			"Gross Premium":    gross,
			"Risk Premium":     risk,
			"Policy Sold Date": sold,
		}}
	}
	jan := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
	return dataset.Table{
		Name:    "Sales",
		Columns: columns,
		Rows: []dataset.Row{
			mk("P-001", "Alpha Motors", "Extended Warranty", "Toyota", 100, 60, jan),
			mk("P-002", "Alpha Motors", "Extended Warranty", "Honda", 200, 120, jan),
			mk("P-003", "Beta Cars", "GAP", "Toyota", 300, 180, feb),
		},
	}
}

func claimsTable() dataset.Table {
	columns := []string{"Policy No", "Claim Status", "Part Type", "Labor", "Parts", "Total Auth Amount", "Failure Date"}
	mk := func(policy, status, part string, labor, parts, auth float64, failed time.Time) dataset.Row {
		return dataset.Row{Cells: map[string]any{
			"Policy No":         policy,
			"Claim Status":      status,
			"Part Type":         part,
			"Labor":             labor,
			"Parts":             parts,
			"Total Auth Amount": auth,
			"Failure Date":      failed,
		}}
	}
	jan := time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)
	return dataset.Table{
		Name:    "Claims",
		Columns: columns,
		Rows: []dataset.Row{
			mk("P-002", "Approved", "Gearbox", 20, 30, 50, jan),
		},
	}
}

func newLoadedStore(t *testing.T) *dataset.Store {
	t.Helper()
	s := dataset.NewStore()
	s.Load(salesTable(), claimsTable())
	require.True(t, s.Loaded())
	return s
}

// =============================================================================
// LOAD / NORMALIZATION
// =============================================================================

func TestStore_Load_AssignsPositionalRowIDs(t *testing.T) {
	s := newLoadedStore(t)

	for i, r := range s.Sales().Rows {
		assert.Equal(t, i, r.ID)
	}
	for i, r := range s.Claims().Rows {
		assert.Equal(t, i, r.ID)
	}
}

func TestStore_Load_DerivesYearAndMonthFromDate(t *testing.T) {
	// GIVEN: Input tables carry dates but no Year/Month columns
	// WHEN: The store loads them
	// THEN: Year and Month are derived per row from the date column

	s := newLoadedStore(t)

	sales := s.Sales()
	require.True(t, sales.HasColumn("Year"))
	require.True(t, sales.HasColumn("Month"))
	assert.Equal(t, 2024, sales.Rows[0].Cells["Year"])
	assert.Equal(t, 1, sales.Rows[0].Cells["Month"])
	assert.Equal(t, 2, sales.Rows[2].Cells["Month"])

	claims := s.Claims()
	assert.Equal(t, 2024, claims.Rows[0].Cells["Year"])
	assert.Equal(t, 1, claims.Rows[0].Cells["Month"])
}

func TestStore_Load_ResolvesSchemaVariants(t *testing.T) {
	// GIVEN: A sales table using the "PolicyNo" header spelling
	// WHEN: The store loads it
	// THEN: The policy field still resolves

	sales := salesTable()
	sales.Columns[0] = "PolicyNo"
	for i := range sales.Rows {
		sales.Rows[i].Cells["PolicyNo"] = sales.Rows[i].Cells["Policy No"]
		delete(sales.Rows[i].Cells, "Policy No")
	}

	s := dataset.NewStore()
	s.Load(sales, claimsTable())

	assert.Equal(t, "PolicyNo", s.Sales().Schema.Col(dataset.FieldPolicy))
}

func TestStore_Load_ReplacesPreviousDataWholesale(t *testing.T) {
	s := newLoadedStore(t)

	_, err := s.UpdateCell(dataset.TableSales, 0, "Dealer", "Changed Motors")
	require.NoError(t, err)
	require.Len(t, s.ChangeLog(), 1)

	s.Load(salesTable(), claimsTable())

	assert.Empty(t, s.ChangeLog(), "reload clears the change log")
	assert.Equal(t, "Alpha Motors", dataset.CellString(s.Sales().Rows[0].Cells["Dealer"]))
}

func TestStore_KnownStatuses_CanonicalPlusObserved(t *testing.T) {
	claims := claimsTable()
	claims.Rows[0].Cells["Claim Status"] = "Under Review"

	s := dataset.NewStore()
	s.Load(salesTable(), claims)

	statuses := s.KnownStatuses()
	assert.Contains(t, statuses, "Approved")
	assert.Contains(t, statuses, "Rejected")
	assert.Contains(t, statuses, "Reversed")
	assert.Contains(t, statuses, "Pending")
	assert.Contains(t, statuses, "Under Review")
}

// =============================================================================
// MERGED VIEW
// =============================================================================

func TestStore_Merged_LinksClaimsToSalesByPolicy(t *testing.T) {
	// GIVEN: One claim of 50 against policy P-002
	// WHEN: The store links the tables
	// THEN: Only the P-002 row carries the claim aggregate

	s := newLoadedStore(t)

	merged := s.Merged()
	require.Equal(t, 3, merged.Len())

	withClaim := merged.Rows[1]
	assert.Equal(t, "P-002", dataset.CellString(withClaim.Cells["Policy No"]))
	assert.Equal(t, 1, withClaim.Cells[dataset.ColClaimCount])
	assert.Equal(t, true, withClaim.Cells[dataset.ColHasClaim])
	amt, ok := dataset.CellDecimal(withClaim.Cells[dataset.ColTotalClaimAmount])
	require.True(t, ok)
	assert.Equal(t, "50", amt.String())

	noClaim := merged.Rows[0]
	assert.Equal(t, 0, noClaim.Cells[dataset.ColClaimCount])
	assert.Equal(t, false, noClaim.Cells[dataset.ColHasClaim])
}

func TestStore_Merged_DegradesWithoutPolicyColumn(t *testing.T) {
	// GIVEN: A claims table with no policy identifier
	// WHEN: The store links the tables
	// THEN: Every sales row reports zero claims

	claims := claimsTable()
	claims.Columns[0] = "Reference"
	for i := range claims.Rows {
		claims.Rows[i].Cells["Reference"] = claims.Rows[i].Cells["Policy No"]
		delete(claims.Rows[i].Cells, "Policy No")
	}

	s := dataset.NewStore()
	s.Load(salesTable(), claims)

	for _, r := range s.Merged().Rows {
		assert.Equal(t, 0, r.Cells[dataset.ColClaimCount])
		assert.Equal(t, false, r.Cells[dataset.ColHasClaim])
	}
}

// =============================================================================
// FILTER OPTIONS
// =============================================================================

func TestStore_GetFilterOptions(t *testing.T) {
	s := newLoadedStore(t)

	opts := s.GetFilterOptions()
	assert.Equal(t, []string{"Alpha Motors", "Beta Cars"}, opts.Dealers)
	assert.Equal(t, []string{"Extended Warranty", "GAP"}, opts.Products)
	assert.Equal(t, []int{2024}, opts.Years)
	assert.Equal(t, []int{1, 2}, opts.Months)
	assert.Equal(t, []string{"Honda", "Toyota"}, opts.Makes)
	assert.Equal(t, []string{"Approved"}, opts.ClaimStatuses)
	assert.Equal(t, []string{"Gearbox"}, opts.PartTypes)
	assert.Equal(t, "2024-01-15", opts.MinDate)
	assert.Equal(t, "2024-02-10", opts.MaxDate)
}

func TestStore_GetFilterOptions_EmptyBeforeLoad(t *testing.T) {
	s := dataset.NewStore()
	assert.Equal(t, dataset.FilterOptions{}, s.GetFilterOptions())
}

// =============================================================================
// RAW DATA PAGINATION
// =============================================================================

func TestStore_GetRawData_PaginatesAndHidesIdentityColumn(t *testing.T) {
	s := newLoadedStore(t)

	page, err := s.GetRawData(dataset.TableSales, 1, 2, dataset.Filter{}, "", "")
	require.NoError(t, err)

	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Rows, 2)
	assert.NotContains(t, page.Columns, dataset.RowIDColumn, "identity column is not reported")
	assert.Contains(t, page.Rows[0], dataset.RowIDColumn, "rows still carry the identity for editing")
}

func TestStore_GetRawData_ClampsPageIntoRange(t *testing.T) {
	s := newLoadedStore(t)

	page, err := s.GetRawData(dataset.TableSales, 99, 2, dataset.Filter{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page, "out-of-range page clamps to the last page")
	assert.Len(t, page.Rows, 1)
}

func TestStore_GetRawData_SortsNumerically(t *testing.T) {
	s := newLoadedStore(t)

	page, err := s.GetRawData(dataset.TableSales, 1, 10, dataset.Filter{}, "Gross Premium", "desc")
	require.NoError(t, err)
	require.Len(t, page.Rows, 3)
	assert.Equal(t, float64(300), page.Rows[0]["Gross Premium"])
	assert.Equal(t, float64(100), page.Rows[2]["Gross Premium"])
}

func TestStore_GetRawData_UnknownTable(t *testing.T) {
	s := newLoadedStore(t)

	_, err := s.GetRawData("inventory", 1, 10, dataset.Filter{}, "", "")
	assert.ErrorIs(t, err, dataset.ErrTableNotFound)
}
