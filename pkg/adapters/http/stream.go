package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/session"
)

// StreamManager fans phase changes out to server-sent event subscribers,
// keyed by visit.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for a visit. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(key string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan<- string]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[key]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, key)
				}
			}
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber of a visit. Slow subscribers
// with a full buffer miss the message.
func (sm *StreamManager) Broadcast(key string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[key] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse client buffer full, dropping message", "visit", key)
		}
	}
}

// Subscribers reports the number of listeners on a visit.
func (sm *StreamManager) Subscribers(key string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[key])
}

// Hooks returns lifecycle hooks that broadcast every phase change to the
// visit it belongs to. Install them on the engine serving this server.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseChange: func(_ context.Context, ev *domain.PhaseEvent) {
			data, err := json.Marshal(ev)
			if err != nil {
				sm.logger.Error("encode phase event", "err", err)
				return
			}
			sm.Broadcast(ev.SessionID, string(data))
		},
	}
}

// subscribeEvents handles GET /api/tools/{tool}/events (SSE). Each phase
// change of the caller's visit arrives as a "phase" event.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
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
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("subscribeEvents: streaming not supported")
		return
	}

	key := session.Key(bid, tool.ID)
	ch, cancel := s.Streams.Subscribe(key)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("sse subscribed", "visit", key)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected", "visit", key)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: phase\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
