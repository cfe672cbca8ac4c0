package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aarch64sim/aarch64sim/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// handleSessions handles POST /api/v1/sessions (create).
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.MaxCycles == 0 {
		req.MaxCycles = 10_000_000
	}

	id, sess, err := s.sessions.Create(req.Path, req.MaxCycles)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status := sess.Status(id)
	writeJSON(w, http.StatusCreated, LoadResponse{SessionID: id, CreatedAt: status.UpdatedAt})
}

// handleSessionRoute dispatches /api/v1/sessions/{id}[/action].
func (s *Server) handleSessionRoute(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, sess.Status(id))
	case action == "" && r.Method == http.MethodDelete:
		s.sessions.Delete(id)
		w.WriteHeader(http.StatusNoContent)
	case action == "step" && r.Method == http.MethodPost:
		s.handleStep(w, r, id, sess)
	case action == "run" && r.Method == http.MethodPost:
		s.handleRun(w, r, id, sess)
	case action == "registers" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, sess.Registers())
	case action == "memory" && r.Method == http.MethodGet:
		s.handleMemory(w, r, sess)
	case action == "output" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"output": sess.DrainOutput()})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, id string, sess *service.Session) {
	var req StepRequest
	json.NewDecoder(r.Body).Decode(&req)
	if req.Count <= 0 {
		req.Count = 1
	}
	if err := sess.Step(req.Count); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.broadcaster.BroadcastState(id, map[string]interface{}{"pc": sess.Status(id).PC})
	writeJSON(w, http.StatusOK, sess.Status(id))
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, id string, sess *service.Session) {
	var req struct {
		MaxCycles uint64 `json:"maxCycles"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if req.MaxCycles == 0 {
		req.MaxCycles = 10_000_000
	}
	sess.Run(req.MaxCycles)
	if out := sess.DrainOutput(); out != "" {
		s.broadcaster.BroadcastOutput(id, out)
	}
	s.broadcaster.BroadcastExecutionEvent(id, "halted", nil)
	writeJSON(w, http.StatusOK, sess.Status(id))
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	q := r.URL.Query()
	addr, length := parseHexQuery(q.Get("address")), parseIntQuery(q.Get("length"), 64)

	data, err := sess.ReadMemory(addr, length)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, MemoryResponse{Address: addr, HexData: hex.EncodeToString(data)})
}

func parseHexQuery(s string) uint64 {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, _ := strconv.ParseUint(s, 16, 64)
	return v
}

func parseIntQuery(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
