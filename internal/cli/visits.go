package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/session"
	"github.com/dustin/go-humanize"
)

// ListVisits prints one row per stored visit, most recently updated first.
// Visits that fail to load (expired between List and Load) are skipped.
func ListVisits(ctx context.Context, visits *session.Manager, w io.Writer, now time.Time) error {
	keys, err := visits.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing visits: %w", err)
	}

	states := make([]*domain.State, 0, len(keys))
	for _, key := range keys {
		state, err := visits.Load(ctx, key)
		if err != nil {
			continue
		}
		states = append(states, state)
	}
	if len(states) == 0 {
		fmt.Fprintln(w, "No active visits found.")
		return nil
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].UpdatedAt.After(states[j].UpdatedAt)
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VISIT\tTOOL\tPHASE\tUPDATED")
	for _, s := range states {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.SessionID, s.ToolID, s.Phase, humanize.RelTime(s.UpdatedAt, now, "ago", "from now"))
	}
	return tw.Flush()
}

// InspectVisit prints the stored state as indented JSON.
func InspectVisit(ctx context.Context, visits *session.Manager, key string, w io.Writer) error {
	state, err := visits.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("error loading visit '%s': %w", key, err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling state: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// RemoveVisits deletes the given visits, reporting each one. With all set,
// every stored visit is removed.
func RemoveVisits(ctx context.Context, visits *session.Manager, keys []string, all bool, w io.Writer) error {
	if all {
		var err error
		if keys, err = visits.List(ctx); err != nil {
			return fmt.Errorf("error listing visits: %w", err)
		}
	}

	var failed []string
	for _, key := range keys {
		if err := visits.Delete(ctx, key); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", key, err)
			failed = append(failed, key)
			continue
		}
		fmt.Fprintf(w, "Removed visit '%s'\n", key)
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to remove %s", strings.Join(failed, ", "))
	}
	return nil
}
