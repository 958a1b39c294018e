package domain

// Phase defines which branch of a tool page is active.
type Phase string

const (
	PhaseInit            Phase = "init"
	PhaseFetchingOptions Phase = "fetching-options"
	PhaseForm            Phase = "idle-with-form"
	PhaseFetchingResults Phase = "fetching-results"
	PhaseResults         Phase = "results-visible"
)

// transitions lists, per phase, the phases it may move to.
// A visit never terminates; it cycles between the form and the results.
var transitions = map[Phase][]Phase{
	PhaseInit:            {PhaseFetchingOptions},
	PhaseFetchingOptions: {PhaseForm},
	PhaseForm:            {PhaseFetchingResults},
	PhaseFetchingResults: {PhaseResults, PhaseForm},
	PhaseResults:         {PhaseForm},
}

// CanTransition reports whether the phase machine allows moving from -> to.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Loading reports whether a request is in flight for this phase.
func (p Phase) Loading() bool {
	return p == PhaseFetchingOptions || p == PhaseFetchingResults
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}
