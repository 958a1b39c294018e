/*
Package tooldeck hosts a catalog of form-driven logistics tools.

Every tool follows the same page lifecycle: fetch the selectable options
from the backend, show a form built from them, post the validated values to
the backend computation endpoint, and render the returned payload as cards,
tables, lists and charts. "Back" returns to the form with the last values,
without fetching the options again.

There is no computational core. Route optimization, cost estimation and risk
scoring happen in an external backend reached over HTTP; tooldeck owns the
page state machine, form validation, and declarative rendering of results.

# Usage

	eng, err := tooldeck.New("https://api.example.com")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, err := eng.Mount(ctx, "visit-1", "freight-cost-estimator")
	if err != nil {
		log.Fatal(err)
	}

	state, err = eng.Submit(ctx, state, tooldeck.FormData{
		"origin":      "Rotterdam",
		"destination": "Hamburg",
		"mode":        "Road",
		"weightKg":    1200,
	})
	if fields := schema.FieldErrors(err); fields != nil {
		// show inline messages
	}

	if state.Phase == domain.PhaseResults {
		fmt.Println(view.Markdown(view.Build(tool, state.Results)))
	}

# Surfaces

The same engine drives server-rendered pages and a JSON API
(pkg/adapters/http), an interactive terminal loop (pkg/runner) and an MCP
server for agents (pkg/adapters/mcp). Visit state is kept in a StateStore
(memory or redis) behind pkg/session, which serializes access per visit.
*/
package tooldeck
