package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/irpfolio/src/logger"
	"github.com/username/irpfolio/src/services"
	"github.com/username/irpfolio/src/utils"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func sendJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// HandleGenerateReport runs the consolidation/tax report for a user,
// institution and date range.
// GET /api/report?user_id=1&institution=XP&start=2023-01-01&end=2023-12-31[&categories=stocks,fiis]
func (h *ReportHandler) HandleGenerateReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	userID, err := strconv.ParseInt(query.Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		sendJSONError(w, "invalid or missing user_id", http.StatusBadRequest)
		return
	}
	start, err := utils.ParseDate(query.Get("start"))
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := utils.ParseDate(query.Get("end"))
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := services.ReportRequest{
		UserID:      userID,
		Institution: query.Get("institution"),
		StartDate:   start,
		EndDate:     end,
	}
	if raw := query.Get("categories"); raw != "" {
		req.Categories = strings.Split(raw, ",")
	}

	result, err := h.reportService.GenerateReport(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingInstitution),
			errors.Is(err, services.ErrInvalidDateRange),
			errors.Is(err, services.ErrUnknownCategory):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			logger.L.Error("Report generation failed", "error", err, "userID", userID)
			sendJSONError(w, "failed to generate report", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Failed to encode report response", "error", err, "reportID", result.ID)
	}
}
