package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	apperrors "telehealth/pkg/errors"
	"telehealth/pkg/logger"
	"telehealth/pkg/model"
	"telehealth/pkg/timeofday"
)

type mockSlotService struct {
	gotReq *model.SlotsRequest
	slots  []model.Slot
	err    error
}

func (m *mockSlotService) Available(ctx context.Context, req *model.SlotsRequest) ([]model.Slot, error) {
	m.gotReq = req
	return m.slots, m.err
}

func (m *mockSlotService) Generate(ctx context.Context, therapistID int64, date string) ([]model.Slot, error) {
	return m.slots, m.err
}

func serve(svc *mockSlotService, target, body string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewSlotsHandler(svc, logger.Discard()).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return rec
}

func TestAvailable_ReturnsRawArray(t *testing.T) {
	svc := &mockSlotService{slots: []model.Slot{
		{Start: timeofday.MustParse("09:00"), End: timeofday.MustParse("09:45")},
	}}

	rec := serve(svc, "/available-slots", `{"therapistId":"5","selectedDate":"2025-03-10"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotReq.TherapistID.Value != 5 {
		t.Errorf("string therapist id should decode, got %+v", svc.gotReq.TherapistID)
	}

	var got []map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["start"] != "09:00" || got[0]["end"] != "09:45" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestAvailable_EmptyIsArray(t *testing.T) {
	rec := serve(&mockSlotService{slots: []model.Slot{}}, "/available-slots", `{"therapistId":5,"selectedDate":"2025-03-11"}`)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestAvailable_Grouped(t *testing.T) {
	svc := &mockSlotService{slots: []model.Slot{
		{Start: timeofday.MustParse("09:00"), End: timeofday.MustParse("09:45")},
		{Start: timeofday.MustParse("17:00"), End: timeofday.MustParse("17:45")},
	}}
	rec := serve(svc, "/available-slots?grouped=true", `{"therapistId":5,"selectedDate":"2025-03-10"}`)

	var got struct {
		Slots   []model.Slot `json:"slots"`
		Grouped struct {
			Morning []model.Slot `json:"morning"`
			Evening []model.Slot `json:"evening"`
		} `json:"grouped"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Slots) != 2 || len(got.Grouped.Morning) != 1 || len(got.Grouped.Evening) != 1 {
		t.Errorf("unexpected grouped body %+v", got)
	}
}

func TestAvailable_Errors(t *testing.T) {
	rec := serve(&mockSlotService{}, "/available-slots", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", rec.Code)
	}

	rec = serve(&mockSlotService{err: apperrors.Validation("Invalid date format", nil)}, "/available-slots", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
