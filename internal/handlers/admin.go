package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/models"
	"roofing-estimator/internal/services"
)

const adminLeadsPrefix = "/api/admin/leads/"

// AdminHandler обслуживает CRM панель: список лидов, статусы, заметки, выгрузка.
type AdminHandler struct {
	leads LeadService
	log   *logger.Logger
}

// NewAdminHandler создает обработчик админки
func NewAdminHandler(leads LeadService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{leads: leads, log: log}
}

// RequireAdminToken пропускает запросы с заголовком Authorization: Bearer <token>.
// Пустой token означает, что админка выключена.
func RequireAdminToken(token string, log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			writeErrorResponse(w, http.StatusServiceUnavailable, "Admin API is disabled")
			return
		}

		provided := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			if log != nil {
				log.WithField("client_ip", services.ExtractClientIP(r)).Warn("Rejected admin request")
			}
			writeErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next(w, r)
	}
}

// ListLeads возвращает лиды с последними сметами
func (h *AdminHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filter, err := parseLeadFilter(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	leads, err := h.leads.ListLeadsWithEstimates(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list leads")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"leads":  leads,
		"count":  len(leads),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// ExportLeads выгружает лиды в CSV с учетом тех же фильтров
func (h *AdminHandler) ExportLeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filter, err := parseLeadFilter(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	leads, err := h.leads.ListLeadsWithEstimates(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to export leads")
		return
	}

	filename := fmt.Sprintf("leads-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := services.WriteLeadsCSV(w, leads); err != nil {
		h.log.WithError(err).Error("Failed to write leads csv")
	}
}

// Stats возвращает сводку по воронке
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	stats, err := h.leads.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get lead stats")
		return
	}

	writeJSONResponse(w, http.StatusOK, stats)
}

// GetLead возвращает лид с последней сметой
func (h *AdminHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := extractUUIDFromPath(r.URL.Path, adminLeadsPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	lead, err := h.leads.GetLeadWithEstimate(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get lead")
		return
	}

	writeJSONResponse(w, http.StatusOK, lead)
}

// UpdateStatus меняет статус лида
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := extractUUIDFromPath(r.URL.Path, adminLeadsPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	var req models.UpdateLeadStatusRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.leads.UpdateLeadStatus(r.Context(), id, req); err != nil {
		writeServiceError(w, h.log, err, "Failed to update lead status")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": req.Status,
	})
}

// UpdateNotes заменяет заметки по лиду
func (h *AdminHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := extractUUIDFromPath(r.URL.Path, adminLeadsPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	var req models.UpdateLeadNotesRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.leads.UpdateLeadNotes(r.Context(), id, req.Notes); err != nil {
		writeServiceError(w, h.log, err, "Failed to update lead notes")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"id":    id,
		"notes": req.Notes,
	})
}

// DeleteLead удаляет лид со сметами
func (h *AdminHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := extractUUIDFromPath(r.URL.Path, adminLeadsPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	if err := h.leads.DeleteLead(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete lead")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseLeadFilter(r *http.Request) (models.LeadFilter, error) {
	q := r.URL.Query()
	filter := models.LeadFilter{Search: q.Get("q")}

	if raw := q.Get("status"); raw != "" {
		status := models.LeadStatus(raw)
		if !status.Valid() {
			return filter, fmt.Errorf("invalid status: %s", raw)
		}
		filter.Status = &status
	}

	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		return filter, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset

	return filter, nil
}
