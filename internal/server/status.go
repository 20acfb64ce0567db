package server

import (
	"net/http"
	"time"

	"gonum.org/v1/gonum/stat"
)

type statusResponse struct {
	Running          bool    `json:"running"`
	LastUpdate       *string `json:"last_update,omitempty"`
	NextUpdate       *string `json:"next_update,omitempty"`
	Interval         int     `json:"interval"`
	ForexInterval    int     `json:"forex_interval"`
	LastForexUpdate  *string `json:"last_forex_update,omitempty"`
	AvgChangePercent float64 `json:"avg_change_percent"`
	WatchlistSize    int     `json:"watchlist_size"`
}

// handleStatus serves GET /status. avg_change_percent and watchlist_size
// supplement the scheduler's own status with the mean daily change across
// the whole watchlist, computed fresh on each call rather than cached.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sched := s.scheduler.Status()

	resp := statusResponse{
		Running:          sched.Running,
		Interval:         sched.Interval,
		ForexInterval:    sched.ForexInterval,
		LastUpdate:       formatTimePtr(sched.LastUpdate),
		NextUpdate:       formatTimePtr(sched.NextUpdate),
		LastForexUpdate:  formatTimePtr(sched.LastForexUpdate),
		AvgChangePercent: 0,
	}

	if prices, err := s.store.GetLatestPrices(nil, nil); err == nil && len(prices) > 0 {
		changes := make([]float64, len(prices))
		for i, p := range prices {
			changes[i] = p.ChangePercent
		}
		resp.AvgChangePercent = round2(stat.Mean(changes, nil))
		resp.WatchlistSize = len(prices)
	}

	writeJSON(w, http.StatusOK, resp)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func round2(v float64) float64 {
	sign := 1.0
	if v < 0 {
		sign = -1.0
	}
	return float64(int64(v*100+sign*0.5)) / 100
}

// handleRefresh serves POST /refresh: fires an on-demand tick for all
// classes and returns immediately. The scheduler applies the same
// overlap-drop rule as a scheduled tick, so this is always safe to call.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.scheduler.TriggerRefresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}
