package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/aretw0/tooldeck/pkg/session"
	"github.com/aretw0/tooldeck/pkg/view"
)

// actionField carries a group edit ("add:stops", "remove:stops:1")
// instead of a submission.
const actionField = "_action"

func toolPath(id string) string {
	return "/tools/" + id
}

// index handles GET /.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	page := view.IndexPage{
		Categories: s.Engine.Catalog().Categories(),
		Version:    s.version,
	}
	s.render(w, http.StatusOK, func(w io.Writer) error { return s.pages.Index(w, page) })
}

// showTool handles GET /tools/{tool}. The first visit mounts the tool and
// fetches its options; later visits render the stored state so options are
// fetched once per visit. ?fresh starts over.
func (s *Server) showTool(w http.ResponseWriter, r *http.Request) {
	tool, err := s.lookupTool(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	bid, err := s.browserID(w, r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	fresh := r.URL.Query().Has("fresh")

	var page view.ToolPage
	_, err = s.Visits.Update(r.Context(), session.Key(bid, tool.ID), func(ctx context.Context, cur *domain.State) (*domain.State, error) {
		if cur == nil || fresh {
			mounted, err := s.Engine.Mount(ctx, session.Key(bid, tool.ID), tool.ID)
			if err != nil {
				return nil, err
			}
			cur = mounted
		}
		page = view.NewToolPage(tool, toolPath(tool.ID), cur, nil)
		return cur, nil
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, http.StatusOK, func(w io.Writer) error { return s.pages.Tool(w, page) })
}

// postTool handles POST /tools/{tool}: a submission, or a group edit when
// the form posts an action. Accepted posts redirect back to the page.
// A rejected submission re-renders the draft with inline errors.
func (s *Server) postTool(w http.ResponseWriter, r *http.Request) {
	tool, err := s.lookupTool(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, errors.Join(errBadRequest, err))
		return
	}
	values, err := sanitize(schema.Decode(tool.Form, r.PostForm))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	bid, err := s.browserID(w, r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	key := session.Key(bid, tool.ID)
	action := r.PostForm.Get(actionField)

	var rejected *view.ToolPage
	_, err = s.Visits.Update(r.Context(), key, func(ctx context.Context, cur *domain.State) (*domain.State, error) {
		if cur == nil {
			mounted, err := s.Engine.Mount(ctx, key, tool.ID)
			if err != nil {
				return nil, err
			}
			cur = mounted
		}
		if action != "" {
			next, _, err := s.Engine.Edit(ctx, cur, values, action)
			return next, err
		}
		next, err := s.Engine.Submit(ctx, cur, values)
		return s.settle(tool, next, err, &rejected)
	})

	switch {
	case rejected != nil:
		s.render(w, http.StatusUnprocessableEntity, func(w io.Writer) error { return s.pages.Tool(w, *rejected) })
	case errors.Is(err, domain.ErrInvalidTransition):
		// A second submit while the first is in flight lands here.
		s.logger.Debug("post ignored", "tool", tool.ID, "err", err)
		http.Redirect(w, r, toolPath(tool.ID), http.StatusSeeOther)
	case err != nil:
		s.renderError(w, r, err)
	default:
		http.Redirect(w, r, toolPath(tool.ID), http.StatusSeeOther)
	}
}

// settle interprets a Submit outcome for the page flow. Validation errors
// build the rejected page; transform failures already left a notice on the
// state, so they are logged and swallowed.
func (s *Server) settle(tool catalog.Tool, next *domain.State, err error, rejected **view.ToolPage) (*domain.State, error) {
	if err == nil || next == nil {
		return next, err
	}
	if errs := schema.ValidationErrors(err); errs != nil {
		page := view.NewToolPage(tool, toolPath(tool.ID), next, schema.FieldErrors(err))
		*rejected = &page
		return next, nil
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		return next, err
	}
	s.logger.Warn("submit failed", "tool", tool.ID, "err", err)
	return next, nil
}

// resetTool handles POST /tools/{tool}/reset.
func (s *Server) resetTool(w http.ResponseWriter, r *http.Request) {
	tool, err := s.lookupTool(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	bid, err := s.browserID(w, r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	_, err = s.Visits.Update(r.Context(), session.Key(bid, tool.ID), func(ctx context.Context, cur *domain.State) (*domain.State, error) {
		if cur == nil {
			return nil, nil
		}
		return s.Engine.Reset(ctx, cur)
	})
	if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		s.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, toolPath(tool.ID), http.StatusSeeOther)
}
