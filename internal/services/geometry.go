package services

import (
	"math"

	"roofing-estimator/internal/models"
)

const (
	eavePerimeterFactor = 4
	ridgeValleyFactor   = 0.20
)

// CalculateEaveLength оценивает длину свесов как периметр квадрата той же площади.
func CalculateEaveLength(totalArea float64) int {
	if totalArea <= 0 {
		return 0
	}
	return int(RoundHalfUp(math.Sqrt(totalArea) * eavePerimeterFactor))
}

// CalculateValleyRidgeLength оценивает коньки и ендовы как 20% длины свесов.
func CalculateValleyRidgeLength(eaveLength int) int {
	return int(RoundHalfUp(float64(eaveLength) * ridgeValleyFactor))
}

// EstimateEdgeLengths возвращает обе оценки по площади
func EstimateEdgeLengths(totalArea float64) models.EdgeLengths {
	eave := CalculateEaveLength(totalArea)
	return models.EdgeLengths{
		EaveLength:        eave,
		RidgeValleyLength: CalculateValleyRidgeLength(eave),
	}
}

// CompleteGeometry заполняет только отсутствующие (нулевые) длины кромок.
// Переданные измерения никогда не перезаписываются. Второй результат сообщает,
// была ли использована эвристика.
func CompleteGeometry(g models.RoofGeometry) (models.RoofGeometry, bool) {
	derived := false
	if g.EaveLength <= 0 {
		g.EaveLength = CalculateEaveLength(g.TotalRoofArea)
		derived = true
	}
	if g.RidgeValleyLength <= 0 {
		g.RidgeValleyLength = CalculateValleyRidgeLength(g.EaveLength)
		derived = true
	}
	return g, derived
}
