package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roofing-estimator/internal/apperror"
	"roofing-estimator/internal/models"

	"github.com/google/uuid"
)

type stubLeadService struct {
	err error

	submitted      *models.SubmitLeadRequest
	manual         *models.ManualQuoteRequest
	filter         models.LeadFilter
	leads          []models.LeadWithEstimate
	lead           *models.LeadWithEstimate
	stats          *models.LeadStats
	statusID       uuid.UUID
	status         models.LeadStatus
	expectedStatus *models.LeadStatus
	notesID        uuid.UUID
	notes          string
	deletedID      uuid.UUID
	listInvoked    int
}

func (s *stubLeadService) SubmitLead(ctx context.Context, req *models.SubmitLeadRequest) (*models.SubmitLeadResponse, error) {
	s.submitted = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.SubmitLeadResponse{LeadID: uuid.New(), EstimateID: uuid.New()}, nil
}

func (s *stubLeadService) RequestManualQuote(ctx context.Context, req *models.ManualQuoteRequest) (*models.ManualQuoteResponse, error) {
	s.manual = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.ManualQuoteResponse{LeadID: uuid.New(), Message: "submitted"}, nil
}

func (s *stubLeadService) GetLeadWithEstimate(ctx context.Context, id uuid.UUID) (*models.LeadWithEstimate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.lead, nil
}

func (s *stubLeadService) ListLeadsWithEstimates(ctx context.Context, filter models.LeadFilter) ([]models.LeadWithEstimate, error) {
	s.listInvoked++
	s.filter = filter
	return s.leads, s.err
}

func (s *stubLeadService) UpdateLeadStatus(ctx context.Context, id uuid.UUID, req models.UpdateLeadStatusRequest) error {
	s.statusID, s.status, s.expectedStatus = id, req.Status, req.ExpectedStatus
	return s.err
}

func (s *stubLeadService) UpdateLeadNotes(ctx context.Context, id uuid.UUID, notes string) error {
	s.notesID, s.notes = id, notes
	return s.err
}

func (s *stubLeadService) DeleteLead(ctx context.Context, id uuid.UUID) error {
	s.deletedID = id
	return s.err
}

func (s *stubLeadService) Stats(ctx context.Context) (*models.LeadStats, error) {
	return s.stats, s.err
}

func TestLeadHandler_Submit(t *testing.T) {
	svc := &stubLeadService{}
	h := NewLeadHandler(svc, testLogger())

	body := `{"name":"Jane","email":"jane@example.com","address":"1 Main St","latitude":"39.78","longitude":"-89.65",
		"roofData":{"totalRoofArea":2000,"averagePitch":8},"selectedTier":"better"}`
	rr := httptest.NewRecorder()
	h.Submit(rr, httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	req := svc.submitted
	if req == nil || req.Name == nil || *req.Name != "Jane" || req.Address != "1 Main St" {
		t.Fatalf("embedded contact info not decoded: %+v", req)
	}
	if req.RoofData.TotalRoofArea != 2000 || req.SelectedTier == nil || *req.SelectedTier != models.TierBetter {
		t.Fatalf("roof data not decoded: %+v", req)
	}

	var resp models.SubmitLeadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.LeadID == uuid.Nil {
		t.Fatalf("unexpected response %s err=%v", rr.Body.String(), err)
	}
}

func TestLeadHandler_Submit_Errors(t *testing.T) {
	h := NewLeadHandler(&stubLeadService{err: apperror.Validation("Please provide at least one contact method (name, email, or phone)", nil)}, testLogger())

	rr := httptest.NewRecorder()
	h.Submit(rr, httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{"address":"1 Main St"}`)))
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "at least one contact method") {
		t.Fatalf("expected 400 with contact message, got %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Submit(rr, httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{"address":"x","roofData":{"totalRoofArea":-1}}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative area, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Submit(rr, httptest.NewRequest(http.MethodGet, "/api/leads", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestLeadHandler_ManualQuote(t *testing.T) {
	svc := &stubLeadService{}
	h := NewLeadHandler(svc, testLogger())

	rr := httptest.NewRecorder()
	h.ManualQuote(rr, httptest.NewRequest(http.MethodPost, "/api/leads/manual-quote", strings.NewReader(`{"phone":"555-0100","address":"9 Elm St"}`)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if svc.manual == nil || svc.manual.Phone == nil || *svc.manual.Phone != "555-0100" {
		t.Fatalf("contact not forwarded: %+v", svc.manual)
	}
	if !strings.Contains(rr.Body.String(), `"message":"submitted"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestLeadHandler_ManualQuote_InternalError(t *testing.T) {
	h := NewLeadHandler(&stubLeadService{err: context.DeadlineExceeded}, testLogger())

	rr := httptest.NewRecorder()
	h.ManualQuote(rr, httptest.NewRequest(http.MethodPost, "/api/leads/manual-quote", strings.NewReader(`{"phone":"1","address":"x"}`)))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "deadline") {
		t.Fatalf("internal error details must not leak: %s", rr.Body.String())
	}
}
