package handlers

import (
	"math"
	"net/http"

	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/models"
)

// EstimateHandler обслуживает публичный калькулятор: адрес, данные крыши, смета, рассрочка.
type EstimateHandler struct {
	engine    EstimateEngine
	geocoder  Geocoder
	roofData  RoofDataProvider
	financing FinancingCalculator
	log       *logger.Logger
}

// NewEstimateHandler создает обработчик калькулятора
func NewEstimateHandler(engine EstimateEngine, geocoder Geocoder, roofData RoofDataProvider, financing FinancingCalculator, log *logger.Logger) *EstimateHandler {
	return &EstimateHandler{
		engine:    engine,
		geocoder:  geocoder,
		roofData:  roofData,
		financing: financing,
		log:       log,
	}
}

// Geocode переводит адрес в координаты
func (h *EstimateHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.GeocodeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.geocoder.Geocode(r.Context(), req.Address)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to geocode address")
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// RoofData возвращает геометрию крыши по координатам.
// Отсутствие данных Solar API не ошибка: клиент получает solarApiAvailable=false.
func (h *EstimateHandler) RoofData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.RoofDataRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if math.Abs(req.Lat) > 90 || math.Abs(req.Lng) > 180 {
		writeErrorResponse(w, http.StatusBadRequest, "Coordinates are out of range")
		return
	}

	result := h.roofData.GetRoofData(r.Context(), req.Lat, req.Lng)
	h.log.WithFields(map[string]interface{}{
		"lat":       req.Lat,
		"lng":       req.Lng,
		"solar_api": result.SolarAPIAvailable,
	}).Debug("Roof data resolved")

	writeJSONResponse(w, http.StatusOK, result)
}

// Calculate считает три пакета цен по геометрии крыши
func (h *EstimateHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.CalculateEstimateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateRoofGeometry(req.RoofData); msg != "" {
		writeErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	writeJSONResponse(w, http.StatusOK, h.engine.Quote(req.RoofData))
}

// Tiers возвращает таблицу пакетов
func (h *EstimateHandler) Tiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"tiers": h.engine.Tiers(),
	})
}

// Financing: GET отдает доступные сроки, POST считает платежи по ценам пакетов.
func (h *EstimateHandler) Financing(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"terms": h.financing.Terms(),
		})
	case http.MethodPost:
		var req models.FinancingRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}

		resp, err := h.financing.Options(req.Pricing, req.Months)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to calculate financing")
			return
		}
		writeJSONResponse(w, http.StatusOK, resp)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// validateRoofGeometry проверяет входную геометрию, пустая строка означает успех.
func validateRoofGeometry(g models.RoofGeometry) string {
	switch {
	case math.IsNaN(g.TotalRoofArea) || math.IsInf(g.TotalRoofArea, 0):
		return "totalRoofArea must be a finite number"
	case g.TotalRoofArea < 0:
		return "totalRoofArea must not be negative"
	case g.AveragePitch < 0:
		return "averagePitch must not be negative"
	case g.EaveLength < 0 || g.RidgeValleyLength < 0:
		return "edge lengths must not be negative"
	}
	return ""
}
