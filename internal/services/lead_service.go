package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"roofing-estimator/internal/apperror"
	"roofing-estimator/internal/database"
	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/models"
	"roofing-estimator/internal/redis"

	"github.com/google/uuid"
)

const (
	// ManualQuoteMessage возвращается клиенту после запроса ручной оценки
	ManualQuoteMessage = "Your manual quote request has been submitted. We will contact you within 24 hours."

	errMissingContact = "Please provide at least one contact method (name, email, or phone)"

	leadCacheTTL     = 5 * time.Minute
	statsCacheTTL    = time.Minute
	defaultLeadLimit = 100
	maxLeadLimit     = 500
)

var statsCacheKey = redis.GenerateKey(redis.KeyPrefixStats, "leads")

// LeadEventPublisher публикует события лидов (реализуется kafka.Producer).
type LeadEventPublisher interface {
	PublishLeadCreated(data models.LeadCreatedData) error
	PublishManualQuoteRequested(data models.LeadManualQuoteData) error
	PublishLeadStatusChanged(leadID uuid.UUID, oldStatus, newStatus models.LeadStatus) error
}

// leadCache кеш карточек лидов и статистики (реализуется redis.Client).
type leadCache interface {
	jsonCache
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// LeadService управляет заявками клиентов и их сметами
type LeadService struct {
	db            *database.DB
	log           *logger.Logger
	pricing       *PricingService
	cache         leadCache
	events        LeadEventPublisher
	notifications *NotificationService
}

// NewLeadService создает сервис лидов.
// redisClient и events могут быть nil. Без events владелец уведомляется напрямую через notifications.
func NewLeadService(db *database.DB, log *logger.Logger, pricing *PricingService, redisClient *redis.Client, events LeadEventPublisher, notifications *NotificationService) *LeadService {
	s := &LeadService{
		db:            db,
		log:           log,
		pricing:       pricing,
		events:        events,
		notifications: notifications,
	}
	if redisClient != nil {
		s.cache = redisClient
	}
	return s
}

// SubmitLead сохраняет заявку со сметой, рассчитанной по переданной геометрии.
func (s *LeadService) SubmitLead(ctx context.Context, req *models.SubmitLeadRequest) (*models.SubmitLeadResponse, error) {
	contact, err := normalizeContact(req.ContactInfo)
	if err != nil {
		return nil, err
	}
	if req.SelectedTier != nil && !req.SelectedTier.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid tier: %s", *req.SelectedTier), nil)
	}
	if req.RoofData.TotalRoofArea < 0 || req.RoofData.AveragePitch < 0 {
		return nil, apperror.Validation("roof area and pitch must not be negative", nil)
	}

	roof, _ := CompleteGeometry(req.RoofData)
	estimate := s.pricing.CalculatePricing(roof)

	now := time.Now()
	lead := newLead(contact, now)
	record := &models.Estimate{
		ID:                uuid.New(),
		LeadID:            lead.ID,
		TotalRoofArea:     roof.TotalRoofArea,
		AveragePitch:      roof.AveragePitch,
		EaveLength:        roof.EaveLength,
		RidgeValleyLength: roof.RidgeValleyLength,
		AdjustedArea:      estimate.AdjustedArea,
		HasPitchSurcharge: estimate.HasPitchSurcharge,
		GoodPrice:         estimate.Pricing.Good,
		BetterPrice:       estimate.Pricing.Better,
		BestPrice:         estimate.Pricing.Best,
		SelectedTier:      req.SelectedTier,
		Status:            models.EstimateStatusPending,
		SatelliteImageURL: nonEmpty(roof.SatelliteImageURL),
		SolarAPIAvailable: roof.SolarAPIAvailable,
		CreatedAt:         now,
	}

	if err := s.insertLeadWithEstimate(ctx, lead, record); err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"lead_id":     lead.ID,
		"estimate_id": record.ID,
		"area":        roof.TotalRoofArea,
		"better":      estimate.Pricing.Better,
	}).Info("Lead submitted")

	s.invalidateStats(ctx)
	s.announceLeadCreated(ctx, models.LeadCreatedData{
		LeadID:     lead.ID,
		EstimateID: record.ID,
		Contact:    contact,
		Estimate:   estimate,
	})

	return &models.SubmitLeadResponse{
		LeadID:     lead.ID,
		EstimateID: record.ID,
		Estimate:   estimate,
	}, nil
}

// RequestManualQuote сохраняет заявку без спутниковых данных для ручной оценки.
func (s *LeadService) RequestManualQuote(ctx context.Context, req *models.ManualQuoteRequest) (*models.ManualQuoteResponse, error) {
	contact, err := normalizeContact(req.ContactInfo)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lead := newLead(contact, now)
	record := &models.Estimate{
		ID:                uuid.New(),
		LeadID:            lead.ID,
		Status:            models.EstimateStatusManualQuote,
		SolarAPIAvailable: false,
		CreatedAt:         now,
	}

	if err := s.insertLeadWithEstimate(ctx, lead, record); err != nil {
		return nil, err
	}

	s.log.WithField("lead_id", lead.ID).Info("Manual quote requested")

	s.invalidateStats(ctx)
	s.announceManualQuote(ctx, models.LeadManualQuoteData{LeadID: lead.ID, Contact: contact})

	return &models.ManualQuoteResponse{
		LeadID:  lead.ID,
		Message: ManualQuoteMessage,
	}, nil
}

func (s *LeadService) insertLeadWithEstimate(ctx context.Context, lead *models.Lead, est *models.Estimate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	leadQuery := `
		INSERT INTO leads (id, name, email, phone, address, latitude, longitude, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, leadQuery, lead.ID, lead.Name, lead.Email, lead.Phone, lead.Address,
		lead.Latitude, lead.Longitude, lead.Status, lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	estimateQuery := `
		INSERT INTO estimates (id, lead_id, total_roof_area, average_pitch, eave_length, ridge_valley_length, adjusted_area,
		                       has_pitch_surcharge, good_price, better_price, best_price, selected_tier, status,
		                       satellite_image_url, solar_api_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = tx.ExecContext(ctx, estimateQuery, est.ID, est.LeadID, est.TotalRoofArea, est.AveragePitch, est.EaveLength,
		est.RidgeValleyLength, est.AdjustedArea, est.HasPitchSurcharge, est.GoodPrice, est.BetterPrice, est.BestPrice,
		est.SelectedTier, est.Status, est.SatelliteImageURL, est.SolarAPIAvailable, est.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create estimate: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const leadWithEstimateColumns = `
	l.id, l.name, l.email, l.phone, l.address, COALESCE(l.latitude, ''), COALESCE(l.longitude, ''),
	l.status, l.notes, l.created_at, l.updated_at,
	e.id, e.total_roof_area, e.average_pitch, e.eave_length, e.ridge_valley_length, e.adjusted_area,
	e.has_pitch_surcharge, e.good_price, e.better_price, e.best_price, e.selected_tier, e.status,
	e.satellite_image_url, e.solar_api_available, e.created_at`

const latestEstimateJoin = `
	LEFT JOIN LATERAL (
		SELECT * FROM estimates WHERE lead_id = l.id ORDER BY created_at DESC LIMIT 1
	) e ON TRUE`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLeadWithEstimate(row rowScanner) (*models.LeadWithEstimate, error) {
	var (
		item      models.LeadWithEstimate
		estID     uuid.NullUUID
		area      sql.NullFloat64
		pitch     sql.NullInt64
		eave      sql.NullInt64
		ridge     sql.NullInt64
		adjusted  sql.NullInt64
		surcharge sql.NullBool
		good      sql.NullInt64
		better    sql.NullInt64
		best      sql.NullInt64
		tier      sql.NullString
		estStatus sql.NullString
		imageURL  sql.NullString
		solar     sql.NullBool
		estAt     sql.NullTime
	)

	lead := &item.Lead
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Address, &lead.Latitude, &lead.Longitude,
		&lead.Status, &lead.Notes, &lead.CreatedAt, &lead.UpdatedAt,
		&estID, &area, &pitch, &eave, &ridge, &adjusted, &surcharge, &good, &better, &best,
		&tier, &estStatus, &imageURL, &solar, &estAt,
	)
	if err != nil {
		return nil, err
	}

	if estID.Valid {
		est := &models.Estimate{
			ID:                estID.UUID,
			LeadID:            lead.ID,
			TotalRoofArea:     area.Float64,
			AveragePitch:      int(pitch.Int64),
			EaveLength:        int(eave.Int64),
			RidgeValleyLength: int(ridge.Int64),
			AdjustedArea:      adjusted.Int64,
			HasPitchSurcharge: surcharge.Bool,
			GoodPrice:         good.Int64,
			BetterPrice:       better.Int64,
			BestPrice:         best.Int64,
			Status:            models.EstimateStatus(estStatus.String),
			SolarAPIAvailable: solar.Bool,
			CreatedAt:         estAt.Time,
		}
		if tier.Valid {
			name := models.TierName(tier.String)
			est.SelectedTier = &name
		}
		if imageURL.Valid {
			est.SatelliteImageURL = &imageURL.String
		}
		item.Estimate = est
	}

	return &item, nil
}

// GetLeadWithEstimate возвращает лид с последней сметой
func (s *LeadService) GetLeadWithEstimate(ctx context.Context, id uuid.UUID) (*models.LeadWithEstimate, error) {
	key := redis.GenerateKey(redis.KeyPrefixLead, id.String())
	if s.cache != nil {
		var cached models.LeadWithEstimate
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	query := `SELECT ` + leadWithEstimateColumns + ` FROM leads l` + latestEstimateJoin + ` WHERE l.id = $1`

	item, err := scanLeadWithEstimate(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("lead not found", err)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, item, leadCacheTTL); err != nil {
			s.log.WithError(err).WithField("lead_id", id).Warn("Failed to cache lead")
		}
	}

	return item, nil
}

// ListLeadsWithEstimates возвращает лиды (новые первыми) с последней сметой
func (s *LeadService) ListLeadsWithEstimates(ctx context.Context, filter models.LeadFilter) ([]models.LeadWithEstimate, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, apperror.Validation(fmt.Sprintf("invalid status: %s", *filter.Status), nil)
		}
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", len(args)))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(COALESCE(l.name, '')) LIKE $%d OR LOWER(COALESCE(l.email, '')) LIKE $%d OR COALESCE(l.phone, '') LIKE $%d OR LOWER(l.address) LIKE $%d)",
			n, n, n, n))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLeadLimit
	}
	if limit > maxLeadLimit {
		limit = maxLeadLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + leadWithEstimateColumns + ` FROM leads l` + latestEstimateJoin
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY l.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]models.LeadWithEstimate, 0)
	for rows.Next() {
		item, err := scanLeadWithEstimate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}

	return leads, nil
}

// UpdateLeadStatus меняет статус лида. Администратор может выставить любой допустимый статус.
// Если лид успел сменить статус после того, как админ его открыл, возвращается KindConflict.
func (s *LeadService) UpdateLeadStatus(ctx context.Context, id uuid.UUID, req models.UpdateLeadStatusRequest) error {
	status := req.Status
	if !status.Valid() {
		return apperror.Validation(fmt.Sprintf("invalid status: %s", status), nil)
	}
	if req.ExpectedStatus != nil && !req.ExpectedStatus.Valid() {
		return apperror.Validation(fmt.Sprintf("invalid expected status: %s", *req.ExpectedStatus), nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current models.LeadStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM leads WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("lead not found", err)
		}
		return fmt.Errorf("failed to get lead status: %w", err)
	}

	if req.ExpectedStatus != nil && *req.ExpectedStatus != current {
		return apperror.Conflict(fmt.Sprintf("lead status is %s, expected %s", current, *req.ExpectedStatus), nil)
	}
	if current == status {
		return nil
	}

	_, err = tx.ExecContext(ctx, `UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update lead status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"lead_id":    id,
		"old_status": current,
		"new_status": status,
	}).Info("Lead status updated")

	s.invalidateLead(ctx, id)
	if s.events != nil {
		if err := s.events.PublishLeadStatusChanged(id, current, status); err != nil {
			s.log.WithError(err).WithField("lead_id", id).Error("Failed to publish lead status changed event")
		}
	}

	return nil
}

// UpdateLeadNotes заменяет заметки по лиду
func (s *LeadService) UpdateLeadNotes(ctx context.Context, id uuid.UUID, notes string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE leads SET notes = $1, updated_at = $2 WHERE id = $3`, notes, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update lead notes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("lead not found", nil)
	}

	s.log.WithField("lead_id", id).Info("Lead notes updated")
	s.invalidateLead(ctx, id)
	return nil
}

// DeleteLead удаляет лид вместе со сметами
func (s *LeadService) DeleteLead(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM estimates WHERE lead_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete estimates: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("lead not found", nil)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithField("lead_id", id).Info("Lead deleted")
	s.invalidateLead(ctx, id)
	return nil
}

// Stats возвращает сводку: всего, новых, выигранных и выручку по выигранным (цена пакета Better).
func (s *LeadService) Stats(ctx context.Context) (*models.LeadStats, error) {
	if s.cache != nil {
		var cached models.LeadStats
		if err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE l.status = 'new'),
		       COUNT(*) FILTER (WHERE l.status = 'won'),
		       COALESCE(SUM(e.better_price) FILTER (WHERE l.status = 'won'), 0)
		FROM leads l` + latestEstimateJoin

	var stats models.LeadStats
	err := s.db.QueryRowContext(ctx, query).Scan(&stats.TotalLeads, &stats.NewLeads, &stats.WonLeads, &stats.WonRevenue)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead stats: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, statsCacheTTL); err != nil {
			s.log.WithError(err).Warn("Failed to cache lead stats")
		}
	}

	return &stats, nil
}

func (s *LeadService) announceLeadCreated(ctx context.Context, data models.LeadCreatedData) {
	if s.events != nil {
		if err := s.events.PublishLeadCreated(data); err != nil {
			s.log.WithError(err).WithField("lead_id", data.LeadID).Error("Failed to publish lead created event")
		}
		return
	}
	if s.notifications != nil {
		if err := s.notifications.NotifyLeadCreated(ctx, data); err != nil {
			s.log.WithError(err).WithField("lead_id", data.LeadID).Error("Failed to send admin notification")
		}
	}
}

func (s *LeadService) announceManualQuote(ctx context.Context, data models.LeadManualQuoteData) {
	if s.events != nil {
		if err := s.events.PublishManualQuoteRequested(data); err != nil {
			s.log.WithError(err).WithField("lead_id", data.LeadID).Error("Failed to publish manual quote event")
		}
		return
	}
	if s.notifications != nil {
		if err := s.notifications.NotifyManualQuote(ctx, data); err != nil {
			s.log.WithError(err).WithField("lead_id", data.LeadID).Error("Failed to send admin notification")
		}
	}
}

func (s *LeadService) invalidateLead(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, redis.GenerateKey(redis.KeyPrefixLead, id.String())); err != nil {
		s.log.WithError(err).WithField("lead_id", id).Warn("Failed to invalidate lead cache")
	}
	s.invalidateStats(ctx)
}

func (s *LeadService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, redis.KeyPrefixStats); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate stats cache")
	}
}

// normalizeContact обрезает пробелы и проверяет контактные данные.
func normalizeContact(c models.ContactInfo) (models.ContactInfo, error) {
	c.Name = trimmedOrNil(c.Name)
	c.Email = trimmedOrNil(c.Email)
	c.Phone = trimmedOrNil(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Latitude = strings.TrimSpace(c.Latitude)
	c.Longitude = strings.TrimSpace(c.Longitude)

	if c.Name == nil && c.Email == nil && c.Phone == nil {
		return c, apperror.Validation(errMissingContact, nil)
	}
	if c.Email != nil {
		if _, err := mail.ParseAddress(*c.Email); err != nil {
			return c, apperror.Validation("invalid email address", err)
		}
	}
	if c.Address == "" {
		return c, apperror.Validation("address is required", nil)
	}
	return c, nil
}

func newLead(c models.ContactInfo, now time.Time) *models.Lead {
	return &models.Lead{
		ID:        uuid.New(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Status:    models.LeadStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
