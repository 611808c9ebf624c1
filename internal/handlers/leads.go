package handlers

import (
	"net/http"

	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/models"
)

// LeadHandler принимает заявки клиентов из публичного калькулятора
type LeadHandler struct {
	leads LeadService
	log   *logger.Logger
}

// NewLeadHandler создает обработчик заявок
func NewLeadHandler(leads LeadService, log *logger.Logger) *LeadHandler {
	return &LeadHandler{leads: leads, log: log}
}

// Submit сохраняет заявку вместе со сметой
func (h *LeadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.SubmitLeadRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateRoofGeometry(req.RoofData); msg != "" {
		writeErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	resp, err := h.leads.SubmitLead(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to submit lead")
		return
	}

	writeJSONResponse(w, http.StatusCreated, resp)
}

// ManualQuote сохраняет запрос ручной оценки
func (h *LeadHandler) ManualQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.ManualQuoteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.leads.RequestManualQuote(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to submit manual quote request")
		return
	}

	writeJSONResponse(w, http.StatusCreated, resp)
}
