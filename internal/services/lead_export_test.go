package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"roofing-estimator/internal/models"

	"github.com/google/uuid"
)

func TestWriteLeadsCSV(t *testing.T) {
	created := time.Date(2024, 3, 5, 14, 30, 0, 0, time.FixedZone("EST", -5*3600))
	tier := models.TierBetter

	leads := []models.LeadWithEstimate{
		{
			Lead: models.Lead{
				ID:        uuid.MustParse("11111111-1111-1111-1111-111111111111"),
				Name:      strPtr(`Jane "JJ" Doe`),
				Email:     strPtr("jane@example.com"),
				Address:   "1 Main St, Springfield",
				Status:    models.LeadStatusWon,
				Notes:     strPtr("wants, commas"),
				CreatedAt: created,
			},
			Estimate: &models.Estimate{
				TotalRoofArea: 2000.5,
				AveragePitch:  8,
				GoodPrice:     12100,
				BetterPrice:   14520,
				BestPrice:     18150,
				SelectedTier:  &tier,
			},
		},
		{
			Lead: models.Lead{
				ID:        uuid.MustParse("22222222-2222-2222-2222-222222222222"),
				Phone:     strPtr("555-0100"),
				Address:   "9 Elm St",
				Status:    models.LeadStatusNew,
				CreatedAt: created,
			},
			Estimate: &models.Estimate{Status: models.EstimateStatusManualQuote},
		},
		{
			Lead: models.Lead{
				ID:        uuid.MustParse("33333333-3333-3333-3333-333333333333"),
				Name:      strPtr("No Estimate"),
				Address:   "3 Oak St",
				Status:    models.LeadStatusLost,
				CreatedAt: created,
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteLeadsCSV(&buf, leads); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}
	if len(records[0]) != 13 || records[0][0] != "ID" || records[0][12] != "Notes" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	first := records[1]
	if first[1] != `Jane "JJ" Doe` || first[12] != "wants, commas" {
		t.Fatalf("quoting not preserved: %v", first)
	}
	if first[6] != "2000.5" || first[7] != "8/12" || first[8] != "12100" || first[9] != "14520" || first[10] != "18150" {
		t.Fatalf("unexpected estimate cells: %v", first)
	}
	if first[11] != "2024-03-05T19:30:00Z" {
		t.Fatalf("expected UTC timestamp, got %q", first[11])
	}

	manual := records[2]
	for i := 6; i <= 10; i++ {
		if manual[i] != "" {
			t.Fatalf("expected empty estimate cell %d for manual quote, got %q", i, manual[i])
		}
	}
	if manual[3] != "555-0100" || manual[1] != "" {
		t.Fatalf("unexpected contact cells: %v", manual)
	}

	if records[3][5] != "lost" || records[3][8] != "" {
		t.Fatalf("unexpected row without estimate: %v", records[3])
	}
}

func TestWriteLeadsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLeadsCSV(&buf, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if got := buf.String(); got != "ID,Name,Email,Phone,Address,Status,Roof Area (sq ft),Pitch,Good Price,Better Price,Best Price,Created At,Notes\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
