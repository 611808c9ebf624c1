package services

import (
	"context"
	"fmt"
	"strings"

	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/models"

	"github.com/dustin/go-humanize"
)

// Notification сообщение владельцу бизнеса
type Notification struct {
	Title   string
	Content string
}

// Notifier доставляет уведомления владельцу (почта, мессенджер и т.п.).
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier пишет уведомления в лог
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier создает notifier поверх логгера
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify записывает уведомление в лог
func (n *LogNotifier) Notify(ctx context.Context, msg Notification) error {
	n.log.WithFields(map[string]interface{}{
		"title":   msg.Title,
		"content": msg.Content,
	}).Info("Owner notification")
	return nil
}

// NotificationService форматирует уведомления о лидах и передает их Notifier.
type NotificationService struct {
	notifier Notifier
	log      *logger.Logger
}

// NewNotificationService создает сервис уведомлений
func NewNotificationService(notifier Notifier, log *logger.Logger) *NotificationService {
	return &NotificationService{notifier: notifier, log: log}
}

// NotifyLeadCreated отправляет уведомление о новой заявке со сметой
func (s *NotificationService) NotifyLeadCreated(ctx context.Context, data models.LeadCreatedData) error {
	if err := s.notifier.Notify(ctx, FormatLeadCreated(data)); err != nil {
		return fmt.Errorf("failed to notify about lead %s: %w", data.LeadID, err)
	}
	return nil
}

// NotifyManualQuote отправляет уведомление о запросе ручной оценки
func (s *NotificationService) NotifyManualQuote(ctx context.Context, data models.LeadManualQuoteData) error {
	if err := s.notifier.Notify(ctx, FormatManualQuote(data)); err != nil {
		return fmt.Errorf("failed to notify about manual quote %s: %w", data.LeadID, err)
	}
	return nil
}

// HandleEvent обрабатывает события лидов из Kafka
func (s *NotificationService) HandleEvent(ctx context.Context, event *models.Event) error {
	switch event.Type {
	case models.EventTypeLeadCreated:
		var data models.LeadCreatedData
		if err := event.DecodeData(&data); err != nil {
			return err
		}
		return s.NotifyLeadCreated(ctx, data)
	case models.EventTypeLeadManualQuoteRequested:
		var data models.LeadManualQuoteData
		if err := event.DecodeData(&data); err != nil {
			return err
		}
		return s.NotifyManualQuote(ctx, data)
	default:
		s.log.WithField("event_type", event.Type).Debug("Event does not require owner notification")
		return nil
	}
}

// FormatLeadCreated формирует текст уведомления о новой заявке
func FormatLeadCreated(data models.LeadCreatedData) Notification {
	est := data.Estimate
	surcharge := "No"
	if est.HasPitchSurcharge {
		surcharge = fmt.Sprintf("Yes (%d%%)", int(RoundHalfUp(PitchSurcharge*100)))
	}

	var b strings.Builder
	b.WriteString("New lead received!\n\n")
	writeContact(&b, data.Contact)
	b.WriteString("\nRoof Analysis:\n")
	fmt.Fprintf(&b, "- Total Area: %s sq ft\n", humanize.Comma(int64(RoundHalfUp(est.RoofData.TotalRoofArea))))
	fmt.Fprintf(&b, "- Pitch: %d/12\n", est.RoofData.AveragePitch)
	fmt.Fprintf(&b, "- Pitch Surcharge: %s\n", surcharge)
	b.WriteString("\nEstimated Prices:\n")
	fmt.Fprintf(&b, "- Good (3-Tab): $%s\n", humanize.Comma(est.Pricing.Good))
	fmt.Fprintf(&b, "- Better (Architectural): $%s\n", humanize.Comma(est.Pricing.Better))
	fmt.Fprintf(&b, "- Best (Premium): $%s", humanize.Comma(est.Pricing.Best))

	return Notification{Title: "New Roofing Lead", Content: b.String()}
}

// FormatManualQuote формирует текст уведомления о запросе ручной оценки
func FormatManualQuote(data models.LeadManualQuoteData) Notification {
	var b strings.Builder
	b.WriteString("New manual quote request!\n\n")
	writeContact(&b, data.Contact)
	b.WriteString("\nNote: Satellite data was not available for this property. Manual inspection required.")

	return Notification{Title: "Manual Quote Request", Content: b.String()}
}

func writeContact(b *strings.Builder, c models.ContactInfo) {
	b.WriteString("Contact Information:\n")
	fmt.Fprintf(b, "- Name: %s\n", orNotProvided(c.Name))
	fmt.Fprintf(b, "- Email: %s\n", orNotProvided(c.Email))
	fmt.Fprintf(b, "- Phone: %s\n", orNotProvided(c.Phone))
	b.WriteString("\nProperty:\n")
	fmt.Fprintf(b, "- Address: %s\n", c.Address)
}

func orNotProvided(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "Not provided"
	}
	return *v
}
