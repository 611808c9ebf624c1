package services

import (
	"math"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/models"
)

const (
	// WasteFactor доля материала на подрезку и отходы
	WasteFactor = 0.10
	// PitchSurcharge надбавка за крутой уклон
	PitchSurcharge = 0.10
	// PitchThreshold уклон (x/12), выше которого применяется надбавка
	PitchThreshold = 6
	// SquareFeetPerSquare площадь одного кровельного квадрата
	SquareFeetPerSquare = 100
)

func intPtr(v int) *int { return &v }

// DefaultTiers возвращает таблицу пакетов с базовыми ценами в порядке good, better, best.
func DefaultTiers() []models.PricingTier {
	return []models.PricingTier{
		{
			Name:             models.TierGood,
			Label:            "Good",
			Description:      "3-Tab Shingles",
			ShortDescription: "3-Tab",
			PricePerSquare:   500,
			Warranty: models.Warranty{
				ShingleYears: 25,
				WindSpeed:    60,
				Workmanship:  "Standard workmanship warranty",
			},
		},
		{
			Name:             models.TierBetter,
			Label:            "Better",
			Description:      "Architectural Shingles",
			ShortDescription: "Architectural",
			PricePerSquare:   600,
			Warranty: models.Warranty{
				ShingleYears: 30,
				WindSpeed:    130,
				Workmanship:  "Extended workmanship warranty",
			},
		},
		{
			Name:             models.TierBest,
			Label:            "Best",
			Description:      "Premium/Metal Roofing",
			ShortDescription: "Premium",
			PricePerSquare:   750,
			Warranty: models.Warranty{
				ShingleYears: 50,
				WindSpeed:    160,
				Workmanship:  "Lifetime workmanship warranty",
				FullStart:    intPtr(20),
			},
		},
	}
}

// PricingService считает цены трех пакетов по геометрии крыши.
// Таблица пакетов фиксируется при создании, сервис безопасен для конкурентного использования.
type PricingService struct {
	tiers []models.PricingTier
}

// NewPricingService создаёт сервис с ценами за квадрат из конфигурации.
// Нулевые или отрицательные значения заменяются базовыми ценами.
func NewPricingService(cfg *config.PricingConfig) *PricingService {
	tiers := DefaultTiers()
	if cfg != nil {
		override := map[models.TierName]float64{
			models.TierGood:   cfg.GoodPerSquare,
			models.TierBetter: cfg.BetterPerSquare,
			models.TierBest:   cfg.BestPerSquare,
		}
		for i := range tiers {
			if price := override[tiers[i].Name]; price > 0 {
				tiers[i].PricePerSquare = price
			}
		}
	}
	return &PricingService{tiers: tiers}
}

// Tiers возвращает копию таблицы пакетов
func (s *PricingService) Tiers() []models.PricingTier {
	out := make([]models.PricingTier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// Tier возвращает пакет по имени
func (s *PricingService) Tier(name models.TierName) (models.PricingTier, bool) {
	for _, t := range s.tiers {
		if t.Name == name {
			return t, true
		}
	}
	return models.PricingTier{}, false
}

// CalculatePricing применяет коэффициент отходов, надбавку за уклон и цены пакетов.
// Функция чистая: без ошибок и побочных эффектов, для любых входных данных.
func (s *PricingService) CalculatePricing(roof models.RoofGeometry) models.EstimateResult {
	adjustedArea := RoundHalfUp(roof.TotalRoofArea * (1 + WasteFactor))

	hasPitchSurcharge := roof.AveragePitch > PitchThreshold
	multiplier := 1.0
	if hasPitchSurcharge {
		multiplier = 1 + PitchSurcharge
	}

	squares := adjustedArea / SquareFeetPerSquare

	var pricing models.TierPricing
	for _, tier := range s.tiers {
		price := int64(RoundHalfUp(squares * tier.PricePerSquare * multiplier))
		switch tier.Name {
		case models.TierGood:
			pricing.Good = price
		case models.TierBetter:
			pricing.Better = price
		case models.TierBest:
			pricing.Best = price
		}
	}

	return models.EstimateResult{
		RoofData:          roof,
		AdjustedArea:      int64(adjustedArea),
		HasPitchSurcharge: hasPitchSurcharge,
		Pricing:           pricing,
	}
}

// RoundHalfUp округляет к ближайшему целому, половины вверх (2.5 -> 3, -2.5 -> -2).
func RoundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
