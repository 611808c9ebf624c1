package kafka

import (
	"encoding/json"
	"fmt"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует события лидов в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает синхронного продюсера
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")

	topics := cfg.Topics
	return &Producer{
		producer: producer,
		log:      log,
		topics:   &topics,
	}, nil
}

// PublishLeadCreated публикует событие о новой заявке со сметой
func (p *Producer) PublishLeadCreated(data models.LeadCreatedData) error {
	return p.publish(models.EventTypeLeadCreated, data.LeadID, data)
}

// PublishManualQuoteRequested публикует событие о запросе ручной оценки
func (p *Producer) PublishManualQuoteRequested(data models.LeadManualQuoteData) error {
	return p.publish(models.EventTypeLeadManualQuoteRequested, data.LeadID, data)
}

// PublishLeadStatusChanged публикует смену статуса лида
func (p *Producer) PublishLeadStatusChanged(leadID uuid.UUID, oldStatus, newStatus models.LeadStatus) error {
	return p.publish(models.EventTypeLeadStatusChanged, leadID, models.LeadStatusChangedData{
		LeadID:    leadID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
}

func (p *Producer) publish(eventType models.EventType, leadID uuid.UUID, data interface{}) error {
	event, err := models.NewEvent(eventType, data)
	if err != nil {
		return err
	}
	return p.publishEvent(p.topics.Leads, leadID.String(), event)
}

// publishEvent отправляет событие в топик. Ключ сообщения держит события одного лида в одной партиции.
func (p *Producer) publishEvent(topic, key string, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send event %s: %w", event.Type, err)
	}

	p.log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"topic":      topic,
		"partition":  partition,
		"offset":     offset,
	}).Debug("Event published")

	return nil
}

// Close закрывает продюсера
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
