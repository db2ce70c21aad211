package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/processors"
	"github.com/username/playerstatements/backend/src/services"
	"github.com/username/playerstatements/backend/src/utils"
)

type StatementHandler struct {
	statementService services.StatementService
}

func NewStatementHandler(service services.StatementService) *StatementHandler {
	return &StatementHandler{
		statementService: service,
	}
}

// HandleAnnotate runs aggregation and matching over the three datasets in one
// request. With ?account= it extracts a single annotated player instead of
// returning the full set.
func (h *StatementHandler) HandleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req services.AnnotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.L.Warn("Failed to decode annotate request", "error", err)
		utils.SendJSONError(w, "invalid JSON request body", http.StatusBadRequest)
		return
	}

	if account := r.URL.Query().Get("account"); account != "" {
		player, err := h.statementService.AnnotateAccount(req, account)
		if err != nil {
			h.sendAnnotateError(w, err)
			return
		}
		utils.SendJSON(w, map[string]interface{}{"success": true, "player": player}, http.StatusOK)
		return
	}

	result, err := h.statementService.Annotate(req)
	if err != nil {
		h.sendAnnotateError(w, err)
		return
	}
	utils.SendJSON(w, map[string]interface{}{"success": true, "players": result.Players, "quarterly": result.Quarterly}, http.StatusOK)
}

func (h *StatementHandler) sendAnnotateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrMissingActivityRows),
		errors.Is(err, services.ErrMissingPreCommitmentPlayers),
		errors.Is(err, services.ErrMissingCashlessData),
		errors.Is(err, processors.ErrNoMonthlyData):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, processors.ErrAccountNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	default:
		logger.L.Error("Internal error during annotation", "error", err)
		utils.SendJSONError(w, "An internal error occurred during annotation.", http.StatusInternalServerError)
	}
}
