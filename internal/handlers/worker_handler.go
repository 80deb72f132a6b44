package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/interfaces"
)

// WorkerHandler exposes external worker triggering.
type WorkerHandler struct {
	worker interfaces.Worker
	logger arbor.ILogger
}

// NewWorkerHandler creates a worker handler.
func NewWorkerHandler(worker interfaces.Worker, logger arbor.ILogger) *WorkerHandler {
	return &WorkerHandler{worker: worker, logger: logger}
}

// RunHandler handles POST /api/worker/run: one synchronous worker
// invocation, reporting which job was touched and what happened to it.
func (h *WorkerHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := h.worker.RunOnce(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Worker run failed")
		writeError(w, http.StatusInternalServerError, "worker run failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
