package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/playerstatements/backend/src/config"
	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/security/validation"
	"github.com/username/playerstatements/backend/src/services"
	"github.com/username/playerstatements/backend/src/utils"
)

type NoPlayHandler struct {
	noPlayService services.NoPlayService
}

func NewNoPlayHandler(service services.NoPlayService) *NoPlayHandler {
	return &NoPlayHandler{
		noPlayService: service,
	}
}

func (h *NoPlayHandler) HandleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.noPlayService.ListNoPlayBatches()
	if err != nil {
		logger.L.Error("Error listing no-play batches", "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
		return
	}
	if batches == nil {
		batches = []models.NoPlayBatch{}
	}
	utils.SendJSON(w, map[string]interface{}{"success": true, "batches": batches}, http.StatusOK)
}

func (h *NoPlayHandler) HandleGetAccounts(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("id")

	players, err := h.noPlayService.GetNoPlayAccounts(batchID)
	if err != nil {
		logger.L.Error("Error fetching no-play accounts", "batchID", batchID, "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
		return
	}
	if players == nil {
		players = []models.NoPlayPlayer{}
	}
	utils.SendJSON(w, map[string]interface{}{"success": true, "players": players}, http.StatusOK)
}

// HandleExportAccounts streams a batch's accounts as CSV for the mailing
// house. Cell values pass through formula-injection sanitizing since the file
// is opened in Excel downstream.
func (h *NoPlayHandler) HandleExportAccounts(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("id")

	players, err := h.noPlayService.GetNoPlayAccounts(batchID)
	if err != nil {
		logger.L.Error("Error exporting no-play accounts", "batchID", batchID, "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"no_play_accounts_%s.csv\"", batchID))

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Account Number", "No Play Status", "Is Email"}); err != nil {
		logger.L.Error("Error writing CSV header", "batchID", batchID, "error", err)
		return
	}
	for _, player := range players {
		isEmail := "FALSE"
		if player.IsEmail {
			isEmail = "TRUE"
		}
		record := []string{
			validation.SanitizeForFormulaInjection(player.Account),
			validation.SanitizeForFormulaInjection(player.NoPlayStatus),
			isEmail,
		}
		if err := writer.Write(record); err != nil {
			logger.L.Error("Error writing CSV record", "batchID", batchID, "error", err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		logger.L.Error("Error flushing CSV export", "batchID", batchID, "error", err)
	}
}

// HandleUpdateIsEmail ingests a member-contact CSV and updates is_email flags
// on no-play players. ?dryRun=true reports what would change without writing.
func (h *NoPlayHandler) HandleUpdateIsEmail(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	dryRun := r.URL.Query().Get("dryRun") == "true"

	result, err := h.noPlayService.UpdateIsEmailFromCSV(file, dryRun)
	if err != nil {
		if errors.Is(err, services.ErrParsingFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Error updating is_email flags", "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]interface{}{"success": true, "result": result}, http.StatusOK)
}
