package runtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aretw0/tooldeck/internal/runtime"
	"github.com/aretw0/tooldeck/pkg/adapters/backend"
	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records every request and answers with canned JSON.
type fakeBackend struct {
	mu sync.Mutex

	optionsStatus int
	options       map[string]any
	resultsStatus int
	response      map[string]any

	optionsCalls []string
	resultsCalls []string
	bodies       []map[string]any
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/api/v1/tools-options":
		f.optionsCalls = append(f.optionsCalls, r.URL.RawQuery)
		if f.optionsStatus != 0 {
			w.WriteHeader(f.optionsStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"options": f.options})
	case "/api/v1/chat-tools":
		f.resultsCalls = append(f.resultsCalls, r.URL.RawQuery)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.bodies = append(f.bodies, body)
		if f.resultsStatus != 0 {
			w.WriteHeader(f.resultsStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": f.response})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBackend) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.optionsCalls), len(f.resultsCalls)
}

func newEngine(t *testing.T, fb *fakeBackend, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return runtime.NewEngine(catalog.MustDefault(), backend.New(srv.URL), opts...)
}

func bulkShipmentResult() map[string]any {
	return map[string]any{
		"totalCost":             245.5,
		"costPerLabel":          2.455,
		"bulkDiscount":          12.0,
		"estimatedDeliveryTime": "5-7 business days",
		"recommendedCarrier":    "DHL",
		"labelFormat":           "4x6 thermal",
		"processingTime":        "2 hours",
		"carbonFootprint":       "18 kg CO2e",
		"optimizationTips":      []any{"Consolidate pickups", "Use zone skipping"},
	}
}

func TestMount_FetchesOptionsOnce(t *testing.T) {
	fb := &fakeBackend{options: map[string]any{
		"packageSize":  []any{"Medium"},
		"shippingType": []any{"International"},
	}}
	eng := newEngine(t, fb)

	state, err := eng.Mount(context.Background(), "s1", "bulk-shipment-labeling-optimizer")
	require.NoError(t, err)

	opt, res := fb.counts()
	assert.Equal(t, 1, opt)
	assert.Equal(t, 0, res)
	assert.Equal(t, "tool_name=bulk-shipment-labeling-optimizer", fb.optionsCalls[0])

	assert.Equal(t, domain.PhaseForm, state.Phase)
	assert.Equal(t, domain.ToolOptions{
		"packageSize":  {"Medium"},
		"shippingType": {"International"},
	}, state.Options)
	assert.False(t, state.OptionsFailed)
	assert.Empty(t, state.Notices)
}

func TestMount_ReportsFetchingPhaseToHooks(t *testing.T) {
	fb := &fakeBackend{options: map[string]any{}}

	var phases []domain.Phase
	var ops []domain.RequestOp
	hooks := domain.LifecycleHooks{
		OnPhaseChange: func(_ context.Context, e *domain.PhaseEvent) {
			phases = append(phases, e.To)
		},
		OnRequest: func(_ context.Context, e *domain.RequestEvent) {
			assert.Equal(t, domain.PhaseFetchingOptions, phases[len(phases)-1], "request must be issued while fetching")
			ops = append(ops, e.Op)
		},
	}
	eng := newEngine(t, fb, runtime.WithLifecycleHooks(hooks))

	_, err := eng.Mount(context.Background(), "s1", "route-optimizer")
	require.NoError(t, err)

	assert.Equal(t, []domain.Phase{domain.PhaseFetchingOptions, domain.PhaseForm}, phases)
	assert.Equal(t, []domain.RequestOp{domain.OpFetchOptions}, ops)
}

func TestMount_OptionsFailureIsANotice(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		fb := &fakeBackend{optionsStatus: status}

		var responses []*domain.RequestEvent
		eng := newEngine(t, fb, runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnResponse: func(_ context.Context, e *domain.RequestEvent) { responses = append(responses, e) },
		}))

		state, err := eng.Mount(context.Background(), "s1", "bulk-shipment-labeling-optimizer")
		require.NoError(t, err, "a failed fetch is not a page error")

		assert.Equal(t, domain.PhaseForm, state.Phase)
		assert.True(t, state.OptionsFailed)
		assert.Empty(t, state.Options)
		require.Len(t, state.Notices, 1)
		assert.Equal(t, domain.NoticeDestructive, state.Notices[0].Level)
		assert.Equal(t, domain.DefaultFailureTitle, state.Notices[0].Title)
		assert.Equal(t, "Failed to load labeling options", state.Notices[0].Description)

		require.Len(t, responses, 1)
		assert.True(t, responses[0].IsError)
		assert.Equal(t, status, responses[0].Status)
	}
}

func TestMount_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	eng := runtime.NewEngine(catalog.MustDefault(), backend.New(url))
	state, err := eng.Mount(context.Background(), "s1", "route-optimizer")
	require.NoError(t, err)
	assert.True(t, state.OptionsFailed)
	assert.Len(t, state.Notices, 1)
}

func TestMount_UnknownTool(t *testing.T) {
	eng := newEngine(t, &fakeBackend{})
	_, err := eng.Mount(context.Background(), "s1", "teleporter")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestMount_SeedsGroupDefaults(t *testing.T) {
	eng := newEngine(t, &fakeBackend{options: map[string]any{}})
	state, err := eng.Mount(context.Background(), "s1", "route-optimizer")
	require.NoError(t, err)

	stops, ok := state.FormData["stops"].([]any)
	require.True(t, ok)
	assert.Len(t, stops, 1)
}

func TestBulkShipmentScenario(t *testing.T) {
	fb := &fakeBackend{
		options: map[string]any{
			"packageSize":  []any{"Medium"},
			"shippingType": []any{"International"},
		},
		response: bulkShipmentResult(),
	}
	eng := newEngine(t, fb)
	ctx := context.Background()

	state, err := eng.Mount(ctx, "s1", "bulk-shipment-labeling-optimizer")
	require.NoError(t, err)

	values := domain.FormData{
		"packageSize":    "Medium",
		"carrier":        "DHL",
		"numberOfLabels": 100.0,
		"shippingType":   "International",
	}
	state, err = eng.Submit(ctx, state, values)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseResults, state.Phase)
	require.Len(t, fb.bodies, 1)
	assert.Equal(t, map[string]any(values), fb.bodies[0], "body equals the submitted values")
	assert.Equal(t, "tool=bulk-shipment-labeling-optimizer", fb.resultsCalls[0])
	assert.Equal(t, domain.ResultPayload(bulkShipmentResult()), state.Results, "results are stored unchanged")
	assert.Len(t, state.Results, 9)

	// Back hides the output, keeps the values and does not refetch options.
	state, err = eng.Reset(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseForm, state.Phase)
	assert.Nil(t, state.Results)
	assert.Equal(t, values, state.FormData)

	opt, res := fb.counts()
	assert.Equal(t, 1, opt)
	assert.Equal(t, 1, res)
}

func TestSubmit_InvalidNeverReachesBackend(t *testing.T) {
	fb := &fakeBackend{options: map[string]any{"packageSize": []any{"Medium"}}}
	eng := newEngine(t, fb)
	ctx := context.Background()

	state, err := eng.Mount(ctx, "s1", "bulk-shipment-labeling-optimizer")
	require.NoError(t, err)

	next, err := eng.Submit(ctx, state, domain.FormData{
		"packageSize":    "Huge",
		"numberOfLabels": -3.0,
	})
	require.Error(t, err)

	fields := schema.FieldErrors(err)
	assert.Contains(t, fields, "packageSize")
	assert.Contains(t, fields, "carrier")
	assert.Equal(t, "must be a positive number", fields["numberOfLabels"])

	assert.Equal(t, domain.PhaseForm, next.Phase)
	assert.Equal(t, "Huge", next.FormData["packageSize"], "draft is kept for re-render")

	_, res := fb.counts()
	assert.Equal(t, 0, res)
}

func TestSubmit_ResultsFailure(t *testing.T) {
	fb := &fakeBackend{
		options:       map[string]any{},
		resultsStatus: http.StatusBadGateway,
	}
	eng := newEngine(t, fb)
	ctx := context.Background()

	state, err := eng.Mount(ctx, "s1", "freight-cost-estimator")
	require.NoError(t, err)

	tool, err := eng.Catalog().Get("freight-cost-estimator")
	require.NoError(t, err)

	state, err = eng.Submit(ctx, state, validValues(tool))
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseForm, state.Phase)
	assert.Nil(t, state.Results)
	require.Len(t, state.Notices, 1)
	assert.Equal(t, domain.NoticeDestructive, state.Notices[0].Level)
}

func TestSubmit_DoubleSubmitRejected(t *testing.T) {
	fb := &fakeBackend{
		options:  map[string]any{"packageSize": []any{"Medium"}, "shippingType": []any{"International"}},
		response: bulkShipmentResult(),
	}
	eng := newEngine(t, fb)
	ctx := context.Background()

	state, err := eng.Mount(ctx, "s1", "bulk-shipment-labeling-optimizer")
	require.NoError(t, err)

	values := domain.FormData{
		"packageSize":    "Medium",
		"carrier":        "UPS",
		"numberOfLabels": 10.0,
		"shippingType":   "International",
	}
	state, err = eng.Submit(ctx, state, values)
	require.NoError(t, err)

	again, err := eng.Submit(ctx, state, values)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Same(t, state, again)

	_, res := fb.counts()
	assert.Equal(t, 1, res)
}

func TestSubmit_MonthlySalesTransform(t *testing.T) {
	fb := &fakeBackend{
		options:  map[string]any{"productFamily": []any{"Widgets"}, "months": []any{"Jan", "Feb"}},
		response: map[string]any{"recommendedProduction": 1200.0},
	}
	eng := newEngine(t, fb)
	ctx := context.Background()

	state, err := eng.Mount(ctx, "s1", "sales-and-operations-planning")
	require.NoError(t, err)

	values := domain.FormData{
		"productFamily":      "Widgets",
		"productionCapacity": 1000.0,
		"currentInventory":   0.0,
		"targetServiceLevel": 95.0,
		"historicalSales": []any{
			map[string]any{"month": "Jan", "sales": 400.0},
			map[string]any{"month": "Feb", "sales": 500.0},
		},
	}
	state, err = eng.Submit(ctx, state, values)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseResults, state.Phase)

	require.Len(t, fb.bodies, 1)
	body := fb.bodies[0]
	assert.Equal(t, map[string]any{"Jan": 400.0, "Feb": 500.0}, body["salesData"])
	assert.Equal(t, 2.0, body["planningHorizon"])
	assert.NotContains(t, body, "historicalSales")
	assert.Equal(t, "Widgets", body["productFamily"])
}

func TestSubmit_TransformValidationFailure(t *testing.T) {
	fb := &fakeBackend{options: map[string]any{}}
	eng := newEngine(t, fb)
	ctx := context.Background()

	state, err := eng.Mount(ctx, "s1", "sales-and-operations-planning")
	require.NoError(t, err)

	next, err := eng.Submit(ctx, state, domain.FormData{
		"productFamily":      "Widgets",
		"productionCapacity": 1000.0,
		"currentInventory":   10.0,
		"targetServiceLevel": 90.0,
		"historicalSales": []any{
			map[string]any{"month": "Jan", "sales": 1.0},
			map[string]any{"month": "Jan", "sales": 2.0},
		},
	})
	require.Error(t, err)
	assert.Contains(t, schema.FieldErrors(err), "historicalSales")
	assert.Equal(t, domain.PhaseForm, next.Phase)

	_, res := fb.counts()
	assert.Equal(t, 0, res)
}

func TestReset_OutsideResults(t *testing.T) {
	eng := newEngine(t, &fakeBackend{options: map[string]any{}})
	ctx := context.Background()

	state, err := eng.Mount(ctx, "s1", "route-optimizer")
	require.NoError(t, err)

	same, err := eng.Reset(ctx, state)
	require.NoError(t, err)
	assert.Same(t, state, same)

	_, err = eng.Reset(ctx, domain.NewState("s2", "route-optimizer"))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestEdit_GroupActions(t *testing.T) {
	eng := newEngine(t, &fakeBackend{options: map[string]any{}})
	ctx := context.Background()

	state, err := eng.Mount(ctx, "s1", "route-optimizer")
	require.NoError(t, err)

	state, ok, err := eng.Edit(ctx, state, state.FormData, "add:stops")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, state.FormData["stops"], 2)

	state, ok, err = eng.Edit(ctx, state, state.FormData, "remove:stops:0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, state.FormData["stops"], 1)

	_, ok, err = eng.Edit(ctx, state, state.FormData, "explode:stops")
	require.NoError(t, err)
	assert.False(t, ok)
}

// validValues fills every required field of a tool with an acceptable value.
func validValues(tool catalog.Tool) domain.FormData {
	return fill(tool.Form.Fields)
}

func fill(fields []schema.Field) domain.FormData {
	data := domain.FormData{}
	for _, f := range fields {
		switch f.Kind {
		case schema.KindNumber:
			v := 1.0
			if f.Min != nil && *f.Min > v {
				v = *f.Min
			}
			if f.Max != nil && *f.Max < v {
				v = *f.Max
			}
			data[f.Name] = v
		case schema.KindCheckbox:
			data[f.Name] = true
		case schema.KindMultiSelect:
			if len(f.Choices) > 0 {
				data[f.Name] = []any{f.Choices[0]}
			} else {
				data[f.Name] = []any{"any"}
			}
		case schema.KindGroup:
			entries := make([]any, 0, f.MinEntries())
			for i := 0; i < f.MinEntries(); i++ {
				entries = append(entries, map[string]any(fill(f.Fields)))
			}
			data[f.Name] = entries
		default:
			if len(f.Choices) > 0 {
				data[f.Name] = f.Choices[0]
			} else {
				data[f.Name] = "value"
			}
		}
	}
	return data
}
