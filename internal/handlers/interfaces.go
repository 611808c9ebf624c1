package handlers

import (
	"context"
	"time"

	"roofing-estimator/internal/models"
	"roofing-estimator/internal/services"

	"github.com/google/uuid"
)

// ----- Estimates -----

type EstimateEngine interface {
	Tiers() []models.PricingTier
	Quote(roof models.RoofGeometry) models.Quote
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.GeocodeResult, error)
}

type RoofDataProvider interface {
	GetRoofData(ctx context.Context, lat, lng float64) *models.RoofDataResult
}

type FinancingCalculator interface {
	Terms() []models.FinancingTerm
	Options(pricing models.TierPricing, months int) (*models.FinancingResponse, error)
}

// ----- Leads -----

type LeadService interface {
	SubmitLead(ctx context.Context, req *models.SubmitLeadRequest) (*models.SubmitLeadResponse, error)
	RequestManualQuote(ctx context.Context, req *models.ManualQuoteRequest) (*models.ManualQuoteResponse, error)
	GetLeadWithEstimate(ctx context.Context, id uuid.UUID) (*models.LeadWithEstimate, error)
	ListLeadsWithEstimates(ctx context.Context, filter models.LeadFilter) ([]models.LeadWithEstimate, error)
	UpdateLeadStatus(ctx context.Context, id uuid.UUID, req models.UpdateLeadStatusRequest) error
	UpdateLeadNotes(ctx context.Context, id uuid.UUID, notes string) error
	DeleteLead(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*models.LeadStats, error)
}

// ----- Rate limit -----

// MiddlewareLimiter описывает контракт для rate limiter.
type MiddlewareLimiter interface {
	Allow(ctx context.Context, scope, clientKey string) (services.RateDecision, error)
	Enabled() bool
}

// RateLimitStatusProvider расширяет интерфейс для эндпоинта статуса.
type RateLimitStatusProvider interface {
	MiddlewareLimiter
	Usage(ctx context.Context, scope, clientKey string) (int64, int64, *time.Time, error)
	Limit() int64
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
