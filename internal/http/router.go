// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridematch/internal/http/handlers"
	"ridematch/internal/http/middleware"
)

func NewRouter(dispatchService handlers.CycleRunner) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	dispatchHandler := handlers.NewDispatchHandler(dispatchService)
	r.POST("/api/dispatch/cycles", dispatchHandler.RunCycle)
	r.GET("/api/dispatch/cycles/last", dispatchHandler.LastCycle)
	r.GET("/api/dispatch/traveltime/stats", dispatchHandler.TravelTimeStats)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}
