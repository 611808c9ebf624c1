package models

// TierName идентифицирует пакет материалов
type TierName string

const (
	TierGood   TierName = "good"
	TierBetter TierName = "better"
	TierBest   TierName = "best"
)

// TierOrder задает фиксированный порядок пакетов во всех ответах.
var TierOrder = []TierName{TierGood, TierBetter, TierBest}

// Valid проверяет, что имя пакета известно
func (t TierName) Valid() bool {
	switch t {
	case TierGood, TierBetter, TierBest:
		return true
	}
	return false
}

// Warranty описывает гарантийные условия пакета
type Warranty struct {
	ShingleYears int    `json:"shingleYears"`
	WindSpeed    int    `json:"windSpeed"`
	Workmanship  string `json:"workmanship"`
	FullStart    *int   `json:"fullStart,omitempty"`
}

// PricingTier описывает пакет материалов и его цену за квадрат
type PricingTier struct {
	Name             TierName `json:"name"`
	Label            string   `json:"label"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"shortDescription"`
	PricePerSquare   float64  `json:"pricePerSquare"`
	Warranty         Warranty `json:"warranty"`
}

// TierPricing содержит итоговые цены в целых долларах
type TierPricing struct {
	Good   int64 `json:"good"`
	Better int64 `json:"better"`
	Best   int64 `json:"best"`
}

// Get возвращает цену пакета. Для неизвестного имени возвращает 0.
func (p TierPricing) Get(name TierName) int64 {
	switch name {
	case TierGood:
		return p.Good
	case TierBetter:
		return p.Better
	case TierBest:
		return p.Best
	}
	return 0
}

// EstimateResult представляет результат расчета сметы
type EstimateResult struct {
	RoofData          RoofGeometry `json:"roofData"`
	AdjustedArea      int64        `json:"adjustedArea"`
	HasPitchSurcharge bool         `json:"hasPitchSurcharge"`
	Pricing           TierPricing  `json:"pricing"`
}

// CalculateEstimateRequest представляет запрос на расчет сметы
type CalculateEstimateRequest struct {
	RoofData RoofGeometry `json:"roofData"`
}

// TierQuote представляет карточку пакета в предложении клиенту
type TierQuote struct {
	Name        TierName `json:"name"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Warranty    Warranty `json:"warranty"`
	Price       int64    `json:"price"`
}

// QuoteBreakdown раскладывает расчет по шагам для отображения
type QuoteBreakdown struct {
	BaseArea                float64 `json:"baseArea"`
	WasteArea               float64 `json:"wasteArea"`
	AdjustedArea            int64   `json:"adjustedArea"`
	Squares                 float64 `json:"squares"`
	Pitch                   string  `json:"pitch"`
	PitchSurchargePercent   int     `json:"pitchSurchargePercent"`
	EaveLength              int     `json:"eaveLength"`
	RidgeValleyLength       int     `json:"ridgeValleyLength"`
	EdgeLengthsApproximated bool    `json:"edgeLengthsApproximated"`
}

// Quote представляет полное предложение по трем пакетам
type Quote struct {
	Estimate   EstimateResult `json:"estimate"`
	Tiers      []TierQuote    `json:"tiers"`
	Breakdown  QuoteBreakdown `json:"breakdown"`
	Disclaimer string         `json:"disclaimer"`
}

// FinancingTerm описывает срок рассрочки и годовую ставку
type FinancingTerm struct {
	Months int     `json:"months"`
	APR    float64 `json:"apr"`
}

// FinancingOption представляет расчет рассрочки для одного пакета
type FinancingOption struct {
	Tier           TierName `json:"tier"`
	Principal      int64    `json:"principal"`
	Months         int      `json:"months"`
	APR            float64  `json:"apr"`
	MonthlyPayment string   `json:"monthlyPayment"`
	TotalCost      string   `json:"totalCost"`
	TotalInterest  string   `json:"totalInterest"`
}

// FinancingRequest представляет запрос расчета рассрочки
type FinancingRequest struct {
	Pricing TierPricing `json:"pricing"`
	Months  int         `json:"months"`
}

// FinancingResponse представляет ответ с вариантами рассрочки
type FinancingResponse struct {
	Term    FinancingTerm     `json:"term"`
	Options []FinancingOption `json:"options"`
}
