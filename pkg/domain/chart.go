package domain

import (
	"encoding/json"
	"strconv"
)

// ChartPoint is one labelled bar or point of a chart record.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartData is the chart record shape embedded in result payloads:
// {data: [{label, value}], xLabel, yLabel}.
type ChartData struct {
	Data   []ChartPoint `json:"data"`
	XLabel string       `json:"xLabel,omitempty"`
	YLabel string       `json:"yLabel,omitempty"`
}

// ParseChart decodes a chart record from a payload value.
// It reports false when v does not have the chart shape.
func ParseChart(v any) (ChartData, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return ChartData{}, false
	}
	raw, ok := m["data"].([]any)
	if !ok {
		return ChartData{}, false
	}

	chart := ChartData{}
	chart.XLabel, _ = m["xLabel"].(string)
	chart.YLabel, _ = m["yLabel"].(string)

	for _, item := range raw {
		point, ok := item.(map[string]any)
		if !ok {
			return ChartData{}, false
		}
		value, ok := ToFloat(point["value"])
		if !ok {
			return ChartData{}, false
		}
		chart.Data = append(chart.Data, ChartPoint{
			Label: Stringify(point["label"]),
			Value: value,
		})
	}
	return chart, true
}

// ToFloat converts JSON-ish numeric values to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Stringify renders a scalar payload value as display text.
// Whole floats print without a fractional part.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
