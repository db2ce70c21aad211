package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/services"
	"github.com/username/playerstatements/backend/src/utils"
)

type BatchHandler struct {
	batchService services.BatchService
}

func NewBatchHandler(service services.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: service,
	}
}

type initBatchRequest struct {
	Quarter        int                   `json:"quarter"`
	Year           int                   `json:"year"`
	EstimatedTotal int                   `json:"estimatedTotal"`
	Metadata       *models.BatchMetadata `json:"metadata"`
}

type saveChunkRequest struct {
	BatchID  string                        `json:"batchId"`
	Activity []models.ActivityStatementRow `json:"activity"`
	Metadata *models.BatchMetadata         `json:"metadata,omitempty"`
	ChunkSeq *int                          `json:"chunkSeq,omitempty"`
}

type finalizeBatchRequest struct {
	BatchID   string                  `json:"batchId"`
	DateRange *models.StatementPeriod `json:"dateRange,omitempty"`
}

// HandleInitBatch opens a new generation batch and stores its shared
// metadata.
func (h *BatchHandler) HandleInitBatch(w http.ResponseWriter, r *http.Request) {
	var req initBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.L.Warn("Failed to decode init batch request", "error", err)
		utils.SendJSONError(w, "invalid JSON request body", http.StatusBadRequest)
		return
	}

	batchID, err := h.batchService.InitBatch(req.Quarter, req.Year, req.EstimatedTotal, req.Metadata)
	if err != nil {
		h.sendBatchError(w, err)
		return
	}
	utils.SendJSON(w, map[string]interface{}{"success": true, "batchId": batchID}, http.StatusOK)
}

// HandleSaveChunk appends one chunk of activity rows to an open batch.
func (h *BatchHandler) HandleSaveChunk(w http.ResponseWriter, r *http.Request) {
	var req saveChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.L.Warn("Failed to decode save chunk request", "error", err)
		utils.SendJSONError(w, "invalid JSON request body", http.StatusBadRequest)
		return
	}

	result, err := h.batchService.SaveChunk(req.BatchID, req.Activity, req.Metadata, req.ChunkSeq)
	if err != nil {
		h.sendBatchError(w, err)
		return
	}
	utils.SendJSON(w, map[string]interface{}{"success": true, "savedCount": result.SavedCount, "alreadySaved": result.AlreadySaved}, http.StatusOK)
}

// HandleFinalizeBatch closes a batch, replacing the advisory estimate with
// the authoritative stored-row count.
func (h *BatchHandler) HandleFinalizeBatch(w http.ResponseWriter, r *http.Request) {
	var req finalizeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.L.Warn("Failed to decode finalize batch request", "error", err)
		utils.SendJSONError(w, "invalid JSON request body", http.StatusBadRequest)
		return
	}

	result, err := h.batchService.FinalizeBatch(req.BatchID, req.DateRange)
	if err != nil {
		h.sendBatchError(w, err)
		return
	}
	utils.SendJSON(w, map[string]interface{}{"success": true, "batchId": result.BatchID, "authoritativeTotal": result.AuthoritativeTotal}, http.StatusOK)
}

// HandleGetBatch returns one batch with its persisted players decrypted.
func (h *BatchHandler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("id")

	batch, err := h.batchService.GetBatch(batchID)
	if err != nil {
		h.sendBatchError(w, err)
		return
	}
	players, err := h.batchService.GetBatchPlayers(batchID)
	if err != nil {
		h.sendBatchError(w, err)
		return
	}

	payload := map[string]interface{}{"success": true, "batch": batch, "players": players}

	// Batch payloads are large and immutable once finalized, so conditional
	// requests save the rendering collaborator a full re-download.
	currentETag, etagErr := utils.GenerateETag(payload)
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else if etagErr != nil {
		logger.L.Warn("Proceeding without ETag check", "batchID", batchID, "error", etagErr)
	}

	utils.SendJSON(w, payload, http.StatusOK)
}

// HandleListBatches lists all generation batches, newest first.
func (h *BatchHandler) HandleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.batchService.ListBatches()
	if err != nil {
		h.sendBatchError(w, err)
		return
	}
	if batches == nil {
		batches = []models.GenerationBatch{}
	}
	utils.SendJSON(w, map[string]interface{}{"success": true, "batches": batches}, http.StatusOK)
}

func (h *BatchHandler) sendBatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrBatchNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrMissingActivityRows),
		errors.Is(err, services.ErrMissingBatchMetadata):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrChunkSaveFailed):
		logger.L.Error("Chunk save failed", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
	default:
		logger.L.Error("Internal error in batch operation", "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
	}
}
