package registry

import (
	"context"
	"fmt"

	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// MonthlySales is the transform used by sales-and-operations-planning.
const MonthlySales = "monthly-sales"

type monthlySale struct {
	Month string  `mapstructure:"month"`
	Sales float64 `mapstructure:"sales"`
}

// MonthlySalesTransform reshapes the historicalSales list of {month, sales}
// pairs into a salesData mapping (month -> sales) and derives planningHorizon
// from the number of months. Other fields pass through unchanged.
// A repeated month is reported as a validation error on historicalSales.
func MonthlySalesTransform(_ context.Context, data domain.FormData) (map[string]any, error) {
	var sales []monthlySale
	if err := mapstructure.Decode(data["historicalSales"], &sales); err != nil {
		return nil, fmt.Errorf("decode historicalSales: %w", err)
	}

	body := make(map[string]any, len(data)+1)
	for k, v := range data {
		if k == "historicalSales" {
			continue
		}
		body[k] = v
	}

	salesData := make(map[string]any, len(sales))
	for _, s := range sales {
		if _, dup := salesData[s.Month]; dup {
			return nil, &schema.AggregateError{Errors: []error{&schema.ValidationError{
				Key:    "historicalSales",
				Reason: fmt.Sprintf("month %q appears more than once", s.Month),
			}}}
		}
		salesData[s.Month] = s.Sales
	}
	body["salesData"] = salesData
	body["planningHorizon"] = float64(len(salesData))
	return body, nil
}
