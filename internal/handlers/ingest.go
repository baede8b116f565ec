package handlers

import (
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rustcentral/behavior-api/internal/models"
)

// ProcessEvents handles POST /api/v1/process/events
// @Summary Process Telemetry Events
// @Description Runs a batch of player telemetry through the behavior-analysis pipeline
// @Tags Processing
// @Accept json
// @Produce json
// @Security ServerToken
// @Param body body models.EventBatch true "Event batch"
// @Success 200 {object} models.ProcessResponse
// @Failure 400 {object} map[string]interface{} "Bad Request"
// @Failure 500 {object} map[string]interface{} "Internal Error"
// @Router /process/events [post]
func (h *Handler) ProcessEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	defer r.Body.Close()

	batch, err := models.DecodeBatch(body)
	if err != nil {
		h.logger.Warnw("Invalid request body", "requestId", requestID, "error", err)
		h.jsonResponse(w, http.StatusBadRequest, map[string]interface{}{
			"success":   false,
			"error":     "Invalid JSON in request body",
			"requestId": requestID,
		})
		return
	}

	summary, err := h.processor.Process(r.Context(), batch.Events)
	if err != nil {
		h.logger.Errorw("Batch processing failed", "requestId", requestID, "error", err)
		h.jsonResponse(w, http.StatusInternalServerError, map[string]interface{}{
			"success":   false,
			"error":     err.Error(),
			"requestId": requestID,
		})
		return
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	h.jsonResponse(w, http.StatusOK, models.ProcessResponse{
		Success:           true,
		EventsReceived:    summary.EventsReceived,
		EventsStored:      summary.EventsStored,
		EventsSkipped:     summary.EventsSkipped,
		PlayersUpdated:    summary.PlayersUpdated,
		DetectionsCreated: summary.DetectionsCreated,
		ProcessingTimeMs:  math.Round(elapsed*100) / 100,
		RequestID:         requestID,
	})
}
