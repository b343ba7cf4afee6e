package adapter

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	"github.com/smallbiznis/usagehub/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func TestForType(t *testing.T) {
	node := testNode(t)

	for _, datasetType := range []datasetdomain.DatasetType{
		datasetdomain.TypeUsageEvent,
		datasetdomain.TypeCloudConsumption,
		datasetdomain.TypeDesktopConsumption,
		datasetdomain.TypeManualAdjustment,
	} {
		a, err := ForType(datasetType, node)
		require.NoError(t, err)
		assert.NotNil(t, a)
	}

	_, err := ForType(datasetdomain.DatasetType("bogus"), node)
	assert.Error(t, err)
}

func TestEventAdapter_Transform(t *testing.T) {
	a, err := ForType(datasetdomain.TypeUsageEvent, testNode(t))
	require.NoError(t, err)

	row := tabular.Row{
		"Event Date":            "2024-03-15T09:00:00Z",
		"User Email":            " Alice@Example.com ",
		"Project Name":          "Tower",
		"Product / Sub Product": "Revit 2024",
		"Feature Category":      "modeling",
		"Custom Column":         "kept",
	}

	raw, err := a.TransformToRaw(row, snowflake.ID(10), snowflake.ID(20))
	require.NoError(t, err)

	event, ok := raw.(*rawdomain.EventRow)
	require.True(t, ok)
	assert.Equal(t, "2024-03-15", event.EventDate)
	assert.Equal(t, "Alice@Example.com", event.UserEmail)
	assert.Equal(t, "Revit 2024", event.ProductName)
	require.NotNil(t, event.ProjectName)
	assert.Equal(t, "Tower", *event.ProjectName)
	require.NotNil(t, event.FeatureCategory)
	assert.Equal(t, "modeling", *event.FeatureCategory)
	assert.Equal(t, snowflake.ID(10), event.AccountID)
	assert.Equal(t, snowflake.ID(20), event.DatasetID)

	// Unconsumed columns land in the open field bag.
	require.NotNil(t, event.Extra)
	assert.Equal(t, "kept", event.Extra["Custom Column"])
	assert.NotContains(t, event.Extra, "Event Date")
}

func TestEventAdapter_MissingFieldsNamesAll(t *testing.T) {
	a, err := ForType(datasetdomain.TypeUsageEvent, testNode(t))
	require.NoError(t, err)

	row := tabular.Row{
		"Event Date":            nil,
		"User Email":            nil,
		"Project Name":          "Tower",
		"Product / Sub Product": nil,
	}

	_, err = a.TransformToRaw(row, 1, 2)
	require.Error(t, err)

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Contains(t, rowErr.Reason, "event date")
	assert.Contains(t, rowErr.Reason, "user email")
	assert.Contains(t, rowErr.Reason, "product")
}

func TestEventAdapter_InvalidDate(t *testing.T) {
	a, err := ForType(datasetdomain.TypeUsageEvent, testNode(t))
	require.NoError(t, err)

	row := tabular.Row{
		"Event Date":            "not a date",
		"User Email":            "a@b.co",
		"Project Name":          "p",
		"Product / Sub Product": "x",
	}

	_, err = a.TransformToRaw(row, 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event date")
}

func TestDesktopAdapter_Transform(t *testing.T) {
	a, err := ForType(datasetdomain.TypeDesktopConsumption, testNode(t))
	require.NoError(t, err)

	// Spreadsheet path hands dates through as serials.
	row := tabular.Row{
		"usageDate":         float64(45292),
		"productName":       "AutoCAD",
		"userName":          "bob",
		"tokensConsumed":    "3.5",
		"usageHours":        float64(2),
		"useCount":          nil,
		"machineName":       "WS-042",
		"licenseServerName": "lic01",
	}

	raw, err := a.TransformToRaw(row, 1, 2)
	require.NoError(t, err)

	desktop, ok := raw.(*rawdomain.DesktopConsumptionRow)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", desktop.UsageDate)
	require.NotNil(t, desktop.TokensConsumed)
	assert.Equal(t, 3.5, *desktop.TokensConsumed)
	require.NotNil(t, desktop.UsageHours)
	assert.Equal(t, float64(2), *desktop.UsageHours)
	assert.Nil(t, desktop.UseCount)
	require.NotNil(t, desktop.MachineName)
	assert.Equal(t, "WS-042", *desktop.MachineName)
	require.NotNil(t, desktop.LicenseServer)
	assert.Equal(t, "lic01", *desktop.LicenseServer)
}

func TestCloudAdapter_MissingUser(t *testing.T) {
	a, err := ForType(datasetdomain.TypeCloudConsumption, testNode(t))
	require.NoError(t, err)

	row := tabular.Row{
		"usageDate":      "2024-01-05",
		"productName":    "Fusion",
		"userName":       nil,
		"tokensConsumed": "1",
	}

	_, err = a.TransformToRaw(row, 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")
}

func TestManualAdapter_Transform(t *testing.T) {
	a, err := ForType(datasetdomain.TypeManualAdjustment, testNode(t))
	require.NoError(t, err)

	row := tabular.Row{
		"usageDate":       "2024-02-01",
		"transactionDate": "garbage value",
		"reasonType":      "credit",
		"productName":     "N/A",
		"tokensConsumed":  "-12",
	}

	raw, err := a.TransformToRaw(row, 1, 2)
	require.NoError(t, err)

	manual, ok := raw.(*rawdomain.ManualAdjustmentRow)
	require.True(t, ok)
	assert.Equal(t, "2024-02-01", manual.UsageDate)
	// A bad transaction date is dropped, never fatal.
	assert.Nil(t, manual.TransactionDate)
	require.NotNil(t, manual.ReasonType)
	assert.Equal(t, "credit", *manual.ReasonType)
	require.NotNil(t, manual.ProductName)
	assert.Equal(t, "N/A", *manual.ProductName)
	require.NotNil(t, manual.TokensConsumed)
	assert.Equal(t, float64(-12), *manual.TokensConsumed)
}

func TestManualAdapter_OnlyUsageDateRequired(t *testing.T) {
	a, err := ForType(datasetdomain.TypeManualAdjustment, testNode(t))
	require.NoError(t, err)

	raw, err := a.TransformToRaw(tabular.Row{"usageDate": "2024-02-01"}, 1, 2)
	require.NoError(t, err)
	assert.NotNil(t, raw)

	_, err = a.TransformToRaw(tabular.Row{"reasonType": "credit"}, 1, 2)
	assert.Error(t, err)
}

func TestFieldReader_ExtraBagCap(t *testing.T) {
	a, err := ForType(datasetdomain.TypeManualAdjustment, testNode(t))
	require.NoError(t, err)

	row := tabular.Row{"usageDate": "2024-02-01"}
	for i := 0; i < rawdomain.MaxExtraKeys+10; i++ {
		row[fmt.Sprintf("col_%03d", i)] = "v"
	}

	raw, err := a.TransformToRaw(row, 1, 2)
	require.NoError(t, err)

	manual := raw.(*rawdomain.ManualAdjustmentRow)
	assert.Len(t, manual.Extra, rawdomain.MaxExtraKeys)
	// Sorted header order makes the cap deterministic.
	assert.Contains(t, manual.Extra, "col_000")
	assert.NotContains(t, manual.Extra, fmt.Sprintf("col_%03d", rawdomain.MaxExtraKeys+9))
}
