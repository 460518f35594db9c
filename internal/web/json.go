package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sweeney/trap-sensor/internal/status"
)

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	writeJSON(w, http.StatusOK, status.FormatJSON(snap))
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap := s.tracker.Snapshot()
	d, ok := snap.Device(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, []byte(`{"error":"unknown device"}`))
		return
	}
	writeJSON(w, http.StatusOK, status.FormatDevice(snap, d))
}

func writeJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
