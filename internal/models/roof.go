package models

// RoofGeometry описывает измерения крыши, из которых считается смета.
// Площадь в квадратных футах, уклон в дюймах подъема на 12 дюймов, длины в линейных футах.
type RoofGeometry struct {
	TotalRoofArea     float64 `json:"totalRoofArea"`
	AveragePitch      int     `json:"averagePitch"`
	EaveLength        int     `json:"eaveLength"`
	RidgeValleyLength int     `json:"ridgeValleyLength"`
	SatelliteImageURL string  `json:"satelliteImageUrl,omitempty"`
	SolarAPIAvailable bool    `json:"solarApiAvailable"`
}

// EdgeLengths представляет оценочные длины кромок крыши
type EdgeLengths struct {
	EaveLength        int `json:"eaveLength"`
	RidgeValleyLength int `json:"ridgeValleyLength"`
}

// GeocodeResult представляет результат геокодирования адреса
type GeocodeResult struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formattedAddress"`
}

// RoofDataResult представляет ответ сервиса данных о крыше.
// RoofData равен nil, если Solar API недоступен и нужна ручная оценка.
type RoofDataResult struct {
	SolarAPIAvailable bool          `json:"solarApiAvailable"`
	RoofData          *RoofGeometry `json:"roofData"`
	SatelliteImageURL string        `json:"satelliteImageUrl,omitempty"`
}

// GeocodeRequest представляет запрос на геокодирование
type GeocodeRequest struct {
	Address string `json:"address"`
}

// RoofDataRequest представляет запрос данных о крыше по координатам
type RoofDataRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
