package http

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

const (
	// VisitHeader lets API clients without cookies name their own visitor id.
	// It must be a UUID.
	VisitHeader = "X-Visit-ID"

	cookieName = "tooldeck"
	browserKey = "browser_id"
)

// browserID returns the visitor id for r, issuing a signed cookie on first
// contact. It must run before the response header is written.
func (s *Server) browserID(w http.ResponseWriter, r *http.Request) (string, error) {
	if id := r.Header.Get(VisitHeader); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return "", fmt.Errorf("%w: %s must be a UUID", errBadRequest, VisitHeader)
		}
		return parsed.String(), nil
	}

	// A cookie that fails to decode (rotated secret) yields a fresh session.
	sess, _ := s.cookies.Get(r, cookieName)
	if id, ok := sess.Values[browserKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	sess.Values[browserKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("save identity cookie: %w", err)
	}
	return id, nil
}
