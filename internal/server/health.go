package server

import (
	"net/http"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type healthResponse struct {
	Store         string  `json:"store"`
	SchedulerUp   bool    `json:"scheduler_running"`
	CPUPercent    float64 `json:"cpu_percent,omitempty"`
	MemoryUsedMB  uint64  `json:"memory_used_mb,omitempty"`
	MemoryTotalMB uint64  `json:"memory_total_mb,omitempty"`
}

// handleHealth serves GET /health: 200 if the store is healthy, 503
// otherwise. Host resource figures are best-effort diagnostics, not part
// of the health verdict itself.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Store: "ok", SchedulerUp: s.scheduler.Status().Running}

	status := http.StatusOK
	if err := s.store.HealthCheck(r.Context()); err != nil {
		resp.Store = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if percents, err := cpu.PercentWithContext(r.Context(), 0, false); err == nil && len(percents) > 0 {
		resp.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		resp.MemoryUsedMB = vm.Used / (1024 * 1024)
		resp.MemoryTotalMB = vm.Total / (1024 * 1024)
	}

	writeJSON(w, status, resp)
}
