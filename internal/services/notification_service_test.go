package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"roofing-estimator/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

type failingNotifier struct{}

func (failingNotifier) Notify(ctx context.Context, n Notification) error {
	return errors.New("smtp down")
}

func sampleLeadCreated() models.LeadCreatedData {
	return models.LeadCreatedData{
		LeadID:     uuid.New(),
		EstimateID: uuid.New(),
		Contact: models.ContactInfo{
			Name:    strPtr("Jane Doe"),
			Phone:   strPtr("555-0100"),
			Address: "1 Main St, Springfield",
		},
		Estimate: models.EstimateResult{
			RoofData:          models.RoofGeometry{TotalRoofArea: 2000, AveragePitch: 8},
			AdjustedArea:      2200,
			HasPitchSurcharge: true,
			Pricing:           models.TierPricing{Good: 12100, Better: 14520, Best: 18150},
		},
	}
}

func TestFormatLeadCreated(t *testing.T) {
	n := FormatLeadCreated(sampleLeadCreated())

	if n.Title != "New Roofing Lead" {
		t.Fatalf("unexpected title %q", n.Title)
	}
	for _, want := range []string{
		"- Name: Jane Doe",
		"- Email: Not provided",
		"- Phone: 555-0100",
		"- Address: 1 Main St, Springfield",
		"- Total Area: 2,000 sq ft",
		"- Pitch: 8/12",
		"- Pitch Surcharge: Yes (10%)",
		"- Good (3-Tab): $12,100",
		"- Better (Architectural): $14,520",
		"- Best (Premium): $18,150",
	} {
		if !strings.Contains(n.Content, want) {
			t.Fatalf("expected %q in notification:\n%s", want, n.Content)
		}
	}
}

func TestFormatLeadCreated_NoSurcharge(t *testing.T) {
	data := sampleLeadCreated()
	data.Estimate.HasPitchSurcharge = false

	if n := FormatLeadCreated(data); !strings.Contains(n.Content, "- Pitch Surcharge: No") {
		t.Fatalf("expected no surcharge line:\n%s", n.Content)
	}
}

func TestFormatManualQuote(t *testing.T) {
	n := FormatManualQuote(models.LeadManualQuoteData{
		LeadID:  uuid.New(),
		Contact: models.ContactInfo{Email: strPtr("a@b.co"), Address: "9 Elm St"},
	})

	if n.Title != "Manual Quote Request" {
		t.Fatalf("unexpected title %q", n.Title)
	}
	if !strings.Contains(n.Content, "- Email: a@b.co") || !strings.Contains(n.Content, "Manual inspection required.") {
		t.Fatalf("unexpected content:\n%s", n.Content)
	}
}

func TestFormatLeadCreated_ThousandsSeparators(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		13200:   "13,200",
		1234567: "1,234,567",
		-4500:   "-4,500",
		-1234:   "-1,234",

		math.MaxInt64: "9,223,372,036,854,775,807",
		math.MinInt64: "-9,223,372,036,854,775,808",
	}
	for in, want := range cases {
		if got := humanize.Comma(in); got != want {
			t.Fatalf("Comma(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestNotificationService_HandleEvent(t *testing.T) {
	notifier := &recordingNotifier{}
	service := NewNotificationService(notifier, newTestLogger())

	created, err := models.NewEvent(models.EventTypeLeadCreated, sampleLeadCreated())
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	manual, err := models.NewEvent(models.EventTypeLeadManualQuoteRequested, models.LeadManualQuoteData{
		LeadID:  uuid.New(),
		Contact: models.ContactInfo{Phone: strPtr("555-0100"), Address: "9 Elm St"},
	})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	status, err := models.NewEvent(models.EventTypeLeadStatusChanged, models.LeadStatusChangedData{LeadID: uuid.New()})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}

	for _, ev := range []models.Event{created, manual, status} {
		ev := ev
		if err := service.HandleEvent(context.Background(), &ev); err != nil {
			t.Fatalf("handle %s: %v", ev.Type, err)
		}
	}

	if len(notifier.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifier.sent))
	}
	if notifier.sent[0].Title != "New Roofing Lead" || notifier.sent[1].Title != "Manual Quote Request" {
		t.Fatalf("unexpected notifications: %+v", notifier.sent)
	}
}

func TestNotificationService_HandleEvent_BadPayload(t *testing.T) {
	service := NewNotificationService(&recordingNotifier{}, newTestLogger())

	ev := &models.Event{ID: uuid.New(), Type: models.EventTypeLeadCreated}
	if err := service.HandleEvent(context.Background(), ev); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestNotificationService_NotifierError(t *testing.T) {
	service := NewNotificationService(failingNotifier{}, newTestLogger())

	err := service.NotifyLeadCreated(context.Background(), sampleLeadCreated())
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected wrapped notifier error, got %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(newTestLogger())
	if err := n.Notify(context.Background(), Notification{Title: "t", Content: "c"}); err != nil {
		t.Fatalf("log notifier must not fail: %v", err)
	}
}
