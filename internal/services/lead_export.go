package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"roofing-estimator/internal/models"
)

var leadCSVHeader = []string{
	"ID", "Name", "Email", "Phone", "Address", "Status",
	"Roof Area (sq ft)", "Pitch", "Good Price", "Better Price", "Best Price",
	"Created At", "Notes",
}

// WriteLeadsCSV выгружает лиды в CSV для панели администратора.
// Пустые поля сметы остаются пустыми, экранирование кавычек делает encoding/csv.
func WriteLeadsCSV(w io.Writer, leads []models.LeadWithEstimate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(leadCSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, item := range leads {
		lead := item.Lead
		row := []string{
			lead.ID.String(),
			deref(lead.Name),
			deref(lead.Email),
			deref(lead.Phone),
			lead.Address,
			string(lead.Status),
			"", "", "", "", "",
			lead.CreatedAt.UTC().Format(time.RFC3339),
			deref(lead.Notes),
		}

		if est := item.Estimate; est != nil {
			if est.TotalRoofArea > 0 {
				row[6] = strconv.FormatFloat(est.TotalRoofArea, 'f', -1, 64)
			}
			if est.AveragePitch > 0 {
				row[7] = fmt.Sprintf("%d/12", est.AveragePitch)
			}
			row[8] = priceCell(est.GoodPrice)
			row[9] = priceCell(est.BetterPrice)
			row[10] = priceCell(est.BestPrice)
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for lead %s: %w", lead.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func priceCell(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
