package view_test

import (
	"testing"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bulkTool(t *testing.T) catalog.Tool {
	t.Helper()
	tool, err := catalog.MustDefault().Get("bulk-shipment-labeling-optimizer")
	require.NoError(t, err)
	return tool
}

func bulkResults() domain.ResultPayload {
	return domain.ResultPayload{
		"totalCost":             1245.5,
		"costPerLabel":          12.456,
		"bulkDiscount":          12.0,
		"estimatedDeliveryTime": "5-7 business days",
		"recommendedCarrier":    "DHL",
		"labelFormat":           "4x6 thermal",
		"processingTime":        "2 hours",
		"carbonFootprint":       "18 kg CO2e",
		"optimizationTips":      []any{"Consolidate pickups", "Use zone skipping"},
	}
}

func TestBuild_BulkShipmentRendersNineFields(t *testing.T) {
	out := view.Build(bulkTool(t), bulkResults())

	require.Len(t, out.Sections, 9)
	assert.Empty(t, out.Missing)

	byField := map[string]view.Section{}
	for _, s := range out.Sections {
		byField[s.Field] = s
		assert.False(t, s.Details)
	}
	assert.Equal(t, "$1,245.50", byField["totalCost"].Value)
	assert.Equal(t, "$12.46", byField["costPerLabel"].Value)
	assert.Equal(t, "12%", byField["bulkDiscount"].Value)
	assert.Equal(t, "DHL", byField["recommendedCarrier"].Value)
	assert.Equal(t, []string{"Consolidate pickups", "Use zone skipping"}, byField["optimizationTips"].Items)
}

func TestBuild_MissingFieldsAreMarked(t *testing.T) {
	results := bulkResults()
	delete(results, "labelFormat")

	out := view.Build(bulkTool(t), results)
	assert.Equal(t, []string{"labelFormat"}, out.Missing)

	for _, s := range out.Sections {
		if s.Field == "labelFormat" {
			assert.True(t, s.Missing)
			assert.Equal(t, view.NotProvided, s.Value)
		}
	}
}

func TestBuild_UnlistedFieldsBecomeDetails(t *testing.T) {
	results := bulkResults()
	results["warehouseNote"] = "Dock 4"
	results["alternatives"] = []any{map[string]any{"carrier": "UPS", "cost": 1300.0}}

	out := view.Build(bulkTool(t), results)
	require.Len(t, out.Sections, 11)

	alt := out.Sections[9]
	assert.Equal(t, "alternatives", alt.Field)
	assert.True(t, alt.Details)
	assert.Equal(t, catalog.BlockTable, alt.Kind)
	require.NotNil(t, alt.Table)
	assert.Equal(t, []string{"Carrier", "Cost"}, alt.Table.Headers)
	assert.Equal(t, [][]string{{"UPS", "1300"}}, alt.Table.Rows)

	note := out.Sections[10]
	assert.Equal(t, "Warehouse Note", note.Label)
	assert.Equal(t, "Dock 4", note.Value)
}

func TestBuild_MalformedValuesDegrade(t *testing.T) {
	tool := catalog.Tool{ID: "t", Title: "T", Layout: []catalog.Block{
		{Kind: catalog.BlockTable, Field: "rows", Columns: []catalog.Column{{Field: "a"}}},
		{Kind: catalog.BlockChart, Field: "chart"},
		{Kind: catalog.BlockList, Field: "items"},
	}}

	out := view.Build(tool, domain.ResultPayload{
		"rows":  "oops",
		"chart": 3.0,
		"items": "single",
	})
	require.Len(t, out.Sections, 3)
	for _, s := range out.Sections {
		assert.Equal(t, catalog.BlockCard, s.Kind, s.Field)
	}
	assert.Equal(t, "oops", out.Sections[0].Value)
	assert.Equal(t, "single", out.Sections[2].Value)
}

func TestBuild_Charts(t *testing.T) {
	tool := catalog.Tool{ID: "t", Layout: []catalog.Block{
		{Kind: catalog.BlockChart, Field: "record"},
		{Kind: catalog.BlockChart, Field: "flat"},
	}}

	out := view.Build(tool, domain.ResultPayload{
		"record": map[string]any{
			"data":   []any{map[string]any{"label": "Jan", "value": 10.0}},
			"xLabel": "Month",
			"yLabel": "Units",
		},
		"flat": map[string]any{"b": 2.0, "a": 1.0},
	})

	require.NotNil(t, out.Sections[0].Chart)
	assert.Equal(t, "Month", out.Sections[0].Chart.XLabel)
	require.NotNil(t, out.Sections[1].Chart)
	assert.Equal(t, []domain.ChartPoint{{Label: "a", Value: 1}, {Label: "b", Value: 2}}, out.Sections[1].Chart.Data)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		v      any
		format string
		want   string
	}{
		{1234.567, "currency", "$1,234.57"},
		{-5.0, "currency", "-$5.00"},
		{87.5, "percent", "87.5%"},
		{12.5, "km", "12.5 km"},
		{1500000.0, "number", "1,500,000"},
		{1500000.0, "", "1500000"},
		{2024.0, "", "2024"},
		{0.123456, "", "0.1235"},
		{3, "", "3"},
		{"text", "currency", "text"},
		{true, "", "true"},
		{map[string]any{"minDays": 2.0, "maxDays": 5.0}, "", "Max Days: 5, Min Days: 2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, view.Format(tt.v, tt.format), "%v/%s", tt.v, tt.format)
	}
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Total Cost", view.Humanize("totalCost"))
	assert.Equal(t, "Lead time", view.Humanize("lead_time"))
	assert.Equal(t, "", view.Humanize(""))
}
