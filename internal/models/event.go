package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип события в Kafka
type EventType string

const (
	EventTypeLeadCreated              EventType = "lead.created"
	EventTypeLeadManualQuoteRequested EventType = "lead.manual_quote_requested"
	EventTypeLeadStatusChanged        EventType = "lead.status_changed"
)

// Event представляет конверт события
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent создает событие с сериализованными данными
func NewEvent(eventType EventType, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// DecodeData разбирает данные события в dest
func (e *Event) DecodeData(dest interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.ID)
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("failed to decode event %s data: %w", e.ID, err)
	}
	return nil
}

// LeadCreatedData данные события lead.created
type LeadCreatedData struct {
	LeadID     uuid.UUID      `json:"leadId"`
	EstimateID uuid.UUID      `json:"estimateId"`
	Contact    ContactInfo    `json:"contact"`
	Estimate   EstimateResult `json:"estimate"`
}

// LeadManualQuoteData данные события lead.manual_quote_requested
type LeadManualQuoteData struct {
	LeadID  uuid.UUID   `json:"leadId"`
	Contact ContactInfo `json:"contact"`
}

// LeadStatusChangedData данные события lead.status_changed
type LeadStatusChangedData struct {
	LeadID    uuid.UUID  `json:"leadId"`
	OldStatus LeadStatus `json:"oldStatus"`
	NewStatus LeadStatus `json:"newStatus"`
}
