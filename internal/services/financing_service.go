package services

import (
	"fmt"

	"roofing-estimator/internal/apperror"
	"roofing-estimator/internal/models"

	"github.com/shopspring/decimal"
)

type financingTerm struct {
	months int
	apr    decimal.Decimal
}

var financingTerms = []financingTerm{
	{months: 12, apr: decimal.Zero},
	{months: 24, apr: decimal.RequireFromString("5.99")},
	{months: 36, apr: decimal.RequireFromString("7.99")},
	{months: 48, apr: decimal.RequireFromString("9.99")},
	{months: 60, apr: decimal.RequireFromString("11.99")},
}

var (
	hundred       = decimal.NewFromInt(100)
	monthsPerYear = decimal.NewFromInt(12)
)

// FinancingService считает ежемесячные платежи по фиксированным программам рассрочки.
type FinancingService struct{}

// NewFinancingService создаёт сервис рассрочки
func NewFinancingService() *FinancingService {
	return &FinancingService{}
}

// Terms возвращает доступные программы
func (s *FinancingService) Terms() []models.FinancingTerm {
	out := make([]models.FinancingTerm, 0, len(financingTerms))
	for _, t := range financingTerms {
		out = append(out, models.FinancingTerm{Months: t.months, APR: t.apr.InexactFloat64()})
	}
	return out
}

// MonthlyPayment считает аннуитетный платеж P*r*(1+r)^n / ((1+r)^n - 1), r = APR/100/12.
// Для нулевой ставки платеж равен P/n. Результат округлен до центов.
func MonthlyPayment(principal, apr decimal.Decimal, months int) decimal.Decimal {
	if months <= 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(months))
	if apr.IsZero() {
		return principal.Div(n).Round(2)
	}

	r := apr.Div(hundred).Div(monthsPerYear)
	factor := decimal.NewFromInt(1).Add(r).Pow(n)
	return principal.Mul(r).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1))).Round(2)
}

// Options считает рассрочку для всех трех пакетов на выбранный срок.
func (s *FinancingService) Options(pricing models.TierPricing, months int) (*models.FinancingResponse, error) {
	term, ok := findTerm(months)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unsupported financing term: %d months", months), nil)
	}

	options := make([]models.FinancingOption, 0, len(models.TierOrder))
	for _, tier := range models.TierOrder {
		amount := pricing.Get(tier)
		if amount < 0 {
			return nil, apperror.Validation(fmt.Sprintf("price for %s must not be negative", tier), nil)
		}

		principal := decimal.NewFromInt(amount)
		payment := MonthlyPayment(principal, term.apr, term.months)

		total := payment.Mul(decimal.NewFromInt(int64(term.months)))
		if term.apr.IsZero() {
			total = principal
		}
		interest := total.Sub(principal)

		options = append(options, models.FinancingOption{
			Tier:           tier,
			Principal:      amount,
			Months:         term.months,
			APR:            term.apr.InexactFloat64(),
			MonthlyPayment: payment.StringFixed(2),
			TotalCost:      total.StringFixed(2),
			TotalInterest:  interest.StringFixed(2),
		})
	}

	return &models.FinancingResponse{
		Term:    models.FinancingTerm{Months: term.months, APR: term.apr.InexactFloat64()},
		Options: options,
	}, nil
}

func findTerm(months int) (financingTerm, bool) {
	for _, t := range financingTerms {
		if t.months == months {
			return t, true
		}
	}
	return financingTerm{}, false
}
