package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus представляет статус лида в воронке продаж
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQuoted    LeadStatus = "quoted"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
)

// Valid проверяет, что статус лида допустим
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQuoted, LeadStatusWon, LeadStatusLost:
		return true
	}
	return false
}

// EstimateStatus представляет статус сметы
type EstimateStatus string

const (
	EstimateStatusPending     EstimateStatus = "pending"
	EstimateStatusManualQuote EstimateStatus = "manual_quote"
	EstimateStatusCompleted   EstimateStatus = "completed"
)

// Lead представляет контакт клиента
type Lead struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      *string    `json:"name,omitempty" db:"name"`
	Email     *string    `json:"email,omitempty" db:"email"`
	Phone     *string    `json:"phone,omitempty" db:"phone"`
	Address   string     `json:"address" db:"address"`
	Latitude  string     `json:"latitude,omitempty" db:"latitude"`
	Longitude string     `json:"longitude,omitempty" db:"longitude"`
	Status    LeadStatus `json:"status" db:"status"`
	Notes     *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// Estimate представляет сохраненную смету по лиду
type Estimate struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	LeadID            uuid.UUID      `json:"leadId" db:"lead_id"`
	TotalRoofArea     float64        `json:"totalRoofArea" db:"total_roof_area"`
	AveragePitch      int            `json:"averagePitch" db:"average_pitch"`
	EaveLength        int            `json:"eaveLength" db:"eave_length"`
	RidgeValleyLength int            `json:"ridgeValleyLength" db:"ridge_valley_length"`
	AdjustedArea      int64          `json:"adjustedArea" db:"adjusted_area"`
	HasPitchSurcharge bool           `json:"hasPitchSurcharge" db:"has_pitch_surcharge"`
	GoodPrice         int64          `json:"goodPrice" db:"good_price"`
	BetterPrice       int64          `json:"betterPrice" db:"better_price"`
	BestPrice         int64          `json:"bestPrice" db:"best_price"`
	SelectedTier      *TierName      `json:"selectedTier,omitempty" db:"selected_tier"`
	Status            EstimateStatus `json:"status" db:"status"`
	SatelliteImageURL *string        `json:"satelliteImageUrl,omitempty" db:"satellite_image_url"`
	SolarAPIAvailable bool           `json:"solarApiAvailable" db:"solar_api_available"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
}

// LeadWithEstimate объединяет лид и его последнюю смету (если есть)
type LeadWithEstimate struct {
	Lead     Lead      `json:"lead"`
	Estimate *Estimate `json:"estimate,omitempty"`
}

// ContactInfo содержит контактные данные клиента
type ContactInfo struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   string  `json:"address"`
	Latitude  string  `json:"latitude"`
	Longitude string  `json:"longitude"`
}

// SubmitLeadRequest представляет заявку клиента с данными крыши
type SubmitLeadRequest struct {
	ContactInfo
	RoofData     RoofGeometry `json:"roofData"`
	SelectedTier *TierName    `json:"selectedTier,omitempty"`
}

// SubmitLeadResponse представляет ответ на заявку
type SubmitLeadResponse struct {
	LeadID     uuid.UUID      `json:"leadId"`
	EstimateID uuid.UUID      `json:"estimateId"`
	Estimate   EstimateResult `json:"estimate"`
}

// ManualQuoteRequest представляет запрос ручной оценки, когда спутниковых данных нет
type ManualQuoteRequest struct {
	ContactInfo
}

// ManualQuoteResponse представляет ответ на запрос ручной оценки
type ManualQuoteResponse struct {
	LeadID  uuid.UUID `json:"leadId"`
	Message string    `json:"message"`
}

// UpdateLeadStatusRequest представляет запрос на смену статуса лида
// ExpectedStatus, если задан, должен совпадать с текущим статусом, иначе смена отклоняется.
type UpdateLeadStatusRequest struct {
	Status         LeadStatus  `json:"status"`
	ExpectedStatus *LeadStatus `json:"expectedStatus,omitempty"`
}

// UpdateLeadNotesRequest представляет запрос на изменение заметок
type UpdateLeadNotesRequest struct {
	Notes string `json:"notes"`
}

// LeadFilter задает фильтры списка лидов
type LeadFilter struct {
	Status *LeadStatus
	Search string
	Limit  int
	Offset int
}

// LeadStats представляет сводку для панели администратора
type LeadStats struct {
	TotalLeads int64 `json:"totalLeads"`
	NewLeads   int64 `json:"newLeads"`
	WonLeads   int64 `json:"wonLeads"`
	WonRevenue int64 `json:"wonRevenue"`
}
