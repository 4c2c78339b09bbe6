package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sugawarayuuta/sonnet"

	"github.com/meenmo/latent/store"
	"github.com/meenmo/latent/utils"
)

type nodeResponse struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"` // percent
	DF   float64 `json:"df"`
}

type curveSummary struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Kind           string    `json:"kind"`
	SettlementDate string    `json:"settlement_date"`
	DayCount       string    `json:"day_count"`
	Pillars        int       `json:"pillars"`
	CreatedAt      time.Time `json:"created_at"`
}

type curveResponse struct {
	curveSummary
	Nodes []nodeResponse `json:"nodes"`
}

type rateResponse struct {
	Name         string  `json:"name"`
	Date         string  `json:"date"`
	Rate         float64 `json:"rate"` // percent
	DF           float64 `json:"df"`
	ForwardPrice float64 `json:"forward_price,omitempty"`
}

func summarize(snap store.Snapshot) curveSummary {
	return curveSummary{
		ID:             snap.ID,
		Name:           snap.Name,
		Kind:           string(snap.Kind),
		SettlementDate: utils.FormatDate(snap.Settlement),
		DayCount:       snap.DayCount,
		Pillars:        len(snap.Nodes),
		CreatedAt:      snap.CreatedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "curved",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.daemon == nil {
		s.writeError(w, http.StatusServiceUnavailable, "daemon not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"interrupted": s.daemon.Interrupted(),
		"next_run":    s.daemon.NextRun(time.Now()),
		"stats":       s.daemon.Stats(),
	})
}

func (s *Server) handleListCurves(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list curves")
		s.writeError(w, http.StatusInternalServerError, "failed to list curves")
		return
	}
	out := make([]curveSummary, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, summarize(snap))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) (store.Snapshot, bool) {
	name := chi.URLParam(r, "name")
	snap, err := s.store.Latest(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "curve not found: "+name)
		return store.Snapshot{}, false
	}
	if err != nil {
		s.log.Error().Err(err).Str("curve", name).Msg("Failed to load curve")
		s.writeError(w, http.StatusInternalServerError, "failed to load curve")
		return store.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) handleGetCurve(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest(w, r)
	if !ok {
		return
	}
	resp := curveResponse{curveSummary: summarize(snap)}
	for _, n := range snap.Nodes {
		resp.Nodes = append(resp.Nodes, nodeResponse{
			Date: utils.FormatDate(n.Date),
			Rate: utils.RoundTo(n.Rate*100, 10),
			DF:   utils.RoundTo(n.DF, 12),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurveRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := utils.ParseDate(q.Get("date"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	var spot float64
	if raw := q.Get("spot"); raw != "" {
		spot, err = strconv.ParseFloat(raw, 64)
		if err != nil || spot <= 0 {
			s.writeError(w, http.StatusBadRequest, "spot must be a positive number")
			return
		}
	}

	snap, ok := s.latest(w, r)
	if !ok {
		return
	}
	c, err := snap.Curve()
	if err != nil {
		s.log.Error().Err(err).Str("curve", snap.Name).Msg("Failed to rebuild curve")
		s.writeError(w, http.StatusInternalServerError, "failed to rebuild curve")
		return
	}

	resp := rateResponse{
		Name: snap.Name,
		Date: utils.FormatDate(date),
		Rate: utils.RoundTo(c.Rate(date)*100, 10),
		DF:   utils.RoundTo(c.DF(date), 12),
	}
	if spot > 0 {
		resp.ForwardPrice = utils.RoundTo(c.ForwardPrice(spot, date), 10)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	b, err := sonnet.Marshal(data)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(b, '\n'))
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
