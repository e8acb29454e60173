// README: Dispatch handlers for running a cycle and reading cycle and travel-time diagnostics.
package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridematch/internal/maps"
	"ridematch/internal/modules/dispatch"
)

// CycleRunner is the dispatch service as seen by the HTTP layer.
type CycleRunner interface {
	RunCycle(ctx context.Context, date string) (*dispatch.CycleResult, error)
	LastResult() *dispatch.CycleResult
	TravelTimeStats() maps.Stats
}

type DispatchHandler struct {
	dispatch CycleRunner
}

func NewDispatchHandler(svc CycleRunner) *DispatchHandler {
	return &DispatchHandler{dispatch: svc}
}

type runCycleReq struct {
	// Date is YYYY-MM-DD; empty uses the configured service day.
	Date string `json:"date"`
}

func (h *DispatchHandler) RunCycle(c *gin.Context) {
	var req runCycleReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	res, err := h.dispatch.RunCycle(c.Request.Context(), req.Date)
	if err != nil {
		log.Printf("[DISPATCH] cycle request failed: %v", err)
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *DispatchHandler) LastCycle(c *gin.Context) {
	res := h.dispatch.LastResult()
	if res == nil {
		writeError(c, http.StatusNotFound, "no cycle has run yet")
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *DispatchHandler) TravelTimeStats(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.dispatch.TravelTimeStats())
}
