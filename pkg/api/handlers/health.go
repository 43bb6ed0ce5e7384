// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/sagaline/sagaline/pkg/api/response"
	"github.com/sagaline/sagaline/pkg/runtime"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	dispatcher *runtime.Dispatcher
	started    time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(dispatcher *runtime.Dispatcher) *HealthHandler {
	return &HealthHandler{
		dispatcher: dispatcher,
		started:    time.Now().UTC(),
	}
}

// Health handles the /health endpoint (liveness probe).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles the /ready endpoint (readiness probe). The process is ready
// once the dispatcher hosts at least one saga type.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher != nil && len(h.dispatcher.SagaNames()) > 0 {
		response.JSON(w, http.StatusOK, map[string]bool{
			"ready": true,
		})
	} else {
		response.JSON(w, http.StatusServiceUnavailable, map[string]bool{
			"ready": false,
		})
	}
}

// Status handles the /status endpoint (detailed status).
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	var sagas []string
	if h.dispatcher != nil {
		sagas = h.dispatcher.SagaNames()
		sort.Strings(sagas)
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"sagas":          sagas,
	})
}
