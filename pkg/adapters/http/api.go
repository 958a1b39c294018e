package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/session"
	"github.com/aretw0/tooldeck/pkg/view"
)

// maxBodyBytes caps JSON submissions.
const maxBodyBytes = 1 << 20

type toolSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// visitResponse is a visit state plus, once results are visible, the
// resolved output. Notices in State are delivered once.
type visitResponse struct {
	State    *domain.State `json:"state"`
	Output   *view.Output  `json:"output,omitempty"`
	Markdown string        `json:"markdown,omitempty"`
}

func newVisitResponse(tool catalog.Tool, state *domain.State) visitResponse {
	resp := visitResponse{State: state.Snapshot()}
	state.DrainNotices()
	if state.Phase == domain.PhaseResults {
		out := view.Build(tool, state.Results)
		resp.Output = &out
		resp.Markdown = view.Markdown(out)
	}
	return resp
}

// listTools handles GET /api/tools.
func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	tools := s.Engine.Catalog().List()
	out := make([]toolSummary, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolSummary{ID: t.ID, Title: t.Title, Category: t.Category, Description: t.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

// getTool handles GET /api/tools/{tool}.
func (s *Server) getTool(w http.ResponseWriter, r *http.Request) {
	tool, err := s.lookupTool(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// getState handles GET /api/tools/{tool}/state, mounting the tool on first use.
func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	fresh := r.URL.Query().Has("fresh")
	s.updateVisit(w, r, func(ctx context.Context, key string, tool catalog.Tool, cur *domain.State) (*domain.State, error) {
		if cur == nil || fresh {
			return s.Engine.Mount(ctx, key, tool.ID)
		}
		return cur, nil
	})
}

// submitState handles POST /api/tools/{tool}/submit. The body is the form
// values as a JSON object.
func (s *Server) submitState(w http.ResponseWriter, r *http.Request) {
	var values domain.FormData
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&values); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid request body: %w", errBadRequest, err))
		return
	}
	values, err := sanitize(values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.updateVisit(w, r, func(ctx context.Context, key string, tool catalog.Tool, cur *domain.State) (*domain.State, error) {
		if cur == nil {
			mounted, err := s.Engine.Mount(ctx, key, tool.ID)
			if err != nil {
				return nil, err
			}
			cur = mounted
		}
		next, err := s.Engine.Submit(ctx, cur, values)
		if err != nil && next != nil && statusFor(err) == http.StatusInternalServerError {
			// The failure is on the state as a notice.
			s.logger.Warn("submit failed", "tool", tool.ID, "err", err)
			return next, nil
		}
		return next, err
	})
}

// resetState handles POST /api/tools/{tool}/reset.
func (s *Server) resetState(w http.ResponseWriter, r *http.Request) {
	s.updateVisit(w, r, func(ctx context.Context, key string, tool catalog.Tool, cur *domain.State) (*domain.State, error) {
		if cur == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
		}
		return s.Engine.Reset(ctx, cur)
	})
}

type visitFunc func(ctx context.Context, key string, tool catalog.Tool, cur *domain.State) (*domain.State, error)

// updateVisit runs fn on the caller's visit under the visit lock and writes
// the resulting state. On error the state is still saved but the error wins.
func (s *Server) updateVisit(w http.ResponseWriter, r *http.Request, fn visitFunc) {
	tool, err := s.lookupTool(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bid, err := s.browserID(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	key := session.Key(bid, tool.ID)

	var resp visitResponse
	_, err = s.Visits.Update(r.Context(), key, func(ctx context.Context, cur *domain.State) (*domain.State, error) {
		next, err := fn(ctx, key, tool, cur)
		if err != nil || next == nil {
			return next, err
		}
		resp = newVisitResponse(tool, next)
		return next, nil
	})
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no visit for this tool"})
	case err != nil:
		s.writeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}
