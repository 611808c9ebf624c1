package services

import (
	"fmt"

	"roofing-estimator/internal/models"
)

// QuoteDisclaimer сопровождает каждое предложение без изменений.
const QuoteDisclaimer = "Estimates are based on satellite data and may vary. " +
	"Final price is subject to onsite inspection. " +
	"Additional costs may apply for tear-off, decking repairs, or complex roof features. " +
	"Eave and ridge/valley lengths are approximate."

// BuildQuote собирает карточки пакетов и расшифровку расчета для показа клиенту.
// Цены берутся из результата расчета как есть.
func BuildQuote(result models.EstimateResult, tiers []models.PricingTier, edgeLengthsEstimated bool) models.Quote {
	cards := make([]models.TierQuote, 0, len(tiers))
	for _, tier := range tiers {
		cards = append(cards, models.TierQuote{
			Name:        tier.Name,
			Label:       tier.Label,
			Description: tier.Description,
			Warranty:    tier.Warranty,
			Price:       result.Pricing.Get(tier.Name),
		})
	}

	surcharge := 0
	if result.HasPitchSurcharge {
		surcharge = int(RoundHalfUp(PitchSurcharge * 100))
	}

	return models.Quote{
		Estimate: result,
		Tiers:    cards,
		Breakdown: models.QuoteBreakdown{
			BaseArea:                result.RoofData.TotalRoofArea,
			WasteArea:               RoundHalfUp(result.RoofData.TotalRoofArea * WasteFactor),
			AdjustedArea:            result.AdjustedArea,
			Squares:                 RoundHalfUp(float64(result.AdjustedArea) / SquareFeetPerSquare),
			Pitch:                   fmt.Sprintf("%d/12", result.RoofData.AveragePitch),
			PitchSurchargePercent:   surcharge,
			EaveLength:              result.RoofData.EaveLength,
			RidgeValleyLength:       result.RoofData.RidgeValleyLength,
			EdgeLengthsApproximated: edgeLengthsEstimated,
		},
		Disclaimer: QuoteDisclaimer,
	}
}

// Quote дополняет геометрию оценочными кромками, считает цены и собирает предложение.
func (s *PricingService) Quote(roof models.RoofGeometry) models.Quote {
	completed, derived := CompleteGeometry(roof)
	result := s.CalculatePricing(completed)
	return BuildQuote(result, s.tiers, derived)
}
