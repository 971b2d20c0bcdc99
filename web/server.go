// Package web exposes the running engine over HTTP: a JSON status
// snapshot, a reserve/release demo API, and a Prometheus scrape endpoint.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kisy/maapd/model"
	"github.com/kisy/maapd/pkg/maap"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// notificationLogSize bounds how many past notifications /api/status can
// report, so a client that never polls doesn't make the server hold an
// unbounded history.
const notificationLogSize = 64

// Server serves a read/write HTTP view of a *maap.Engine. The engine is
// reentrantly-unsafe, so every handler takes mu before touching it — the
// same lock the host loop must hold for its own HandlePacket/HandleTimer
// calls. The host loop is also the sole consumer of the engine's
// notification queue (it must drain it every tick to keep the queue from
// growing), so Server keeps its own bounded log of recent notifications,
// fed by RecordNotification, rather than draining the queue itself.
type Server struct {
	mu     *sync.Mutex
	engine *maap.Engine

	recent []model.NotificationView
}

// NewServer builds a Server over engine, synchronized by mu.
func NewServer(engine *maap.Engine, mu *sync.Mutex) *Server {
	return &Server{engine: engine, mu: mu}
}

// RecordNotification appends n to the server's recent-notification log.
// Callers must already hold mu (the host loop does, while draining the
// engine's notification queue).
func (s *Server) RecordNotification(n maap.Notify) {
	s.recent = append(s.recent, model.NotificationView{
		Kind:   n.Kind.String(),
		ID:     n.ID,
		Start:  n.Start.String(),
		Count:  n.Count,
		State:  n.State.String(),
		Reason: n.Reason.String(),
	})
	if len(s.recent) > notificationLogSize {
		s.recent = s.recent[len(s.recent)-notificationLogSize:]
	}
}

// RegisterHandlers wires every route onto the default ServeMux.
func (s *Server) RegisterHandlers() {
	http.HandleFunc("/api/status", s.handleStatus)
	http.HandleFunc("/api/ranges", s.handleRanges)
	http.HandleFunc("/api/ranges/release", s.handleRelease)
	http.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.EngineSnapshot{
		SrcMAC:    s.engine.SrcMAC().String(),
		PoolBase:  s.engine.Pool().Base.String(),
		PoolLen:   s.engine.Pool().Len,
		FetchedAt: time.Now(),
	}
	for _, rg := range s.engine.Ranges() {
		snap.Ranges = append(snap.Ranges, model.RangeView{
			ID:     rg.ID(),
			State:  rg.State().String(),
			Start:  rg.Interval().Low.String(),
			Count:  rg.Interval().Length(),
			Sender: fmt.Sprintf("%v", rg.Sender()),
		})
	}
	snap.Notifications = s.recent
	s.recent = nil
	writeJSON(w, snap)
}

func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req model.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	id := s.engine.Reserve("web", req.Length)
	s.mu.Unlock()

	if id < 0 {
		http.Error(w, "invalid length", http.StatusBadRequest)
		return
	}
	writeJSON(w, model.ReserveResponse{ID: id})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "missing or invalid id", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	rc := s.engine.Release("web", id)
	s.mu.Unlock()

	if rc != 0 {
		http.Error(w, "unknown range id", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
