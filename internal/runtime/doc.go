// Package runtime implements the page controller every tool shares.
//
// A visit moves through
//
//	init -> fetching-options -> idle-with-form <-> fetching-results -> results-visible
//
// and back to idle-with-form on reset. Request failures never escape as
// errors; they become destructive notices on the state.
package runtime
