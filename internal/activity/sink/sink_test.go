package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"telehealth/pkg/kafka"
	"telehealth/pkg/logger"
	"telehealth/pkg/model"
)

type mockRepository struct {
	seen map[string]bool
	err  error
}

func (m *mockRepository) Insert(ctx context.Context, entry *model.ActivityLog) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[entry.EventID] {
		return false, nil
	}
	m.seen[entry.EventID] = true
	return true, nil
}

func message(t *testing.T, v any) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().WithKey("9").WithJSON(v).WithEventID("hdr-id").Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return msg
}

func TestHandle(t *testing.T) {
	repo := &mockRepository{seen: map[string]bool{}}
	s := New(repo, logger.Discard())

	event := model.ActivityEvent{
		ID:           "evt-1",
		UserID:       9,
		ActivityType: model.ActivitySessionBooked,
		IPAddress:    "203.0.113.7",
		DeviceInfo:   "Unknown",
		LoggedAt:     time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 2; i++ {
		if err := s.Handle(context.Background(), message(t, event)); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}
	if len(repo.seen) != 1 {
		t.Errorf("redelivery should be stored once, got %v", repo.seen)
	}
}

func TestHandle_FallsBackToHeaderID(t *testing.T) {
	repo := &mockRepository{seen: map[string]bool{}}
	s := New(repo, logger.Discard())

	if err := s.Handle(context.Background(), message(t, model.ActivityEvent{UserID: 9, ActivityType: "X"})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !repo.seen["hdr-id"] {
		t.Errorf("expected header id to be used, got %v", repo.seen)
	}
}

func TestHandle_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		repo *mockRepository
		msg  kafka.Message
		want kafka.ErrorType
	}{
		{"garbage", &mockRepository{}, kafka.Message{Value: []byte("{")}, kafka.ErrorTypePermanent},
		{"incomplete", &mockRepository{}, message(t, model.ActivityEvent{ID: "x"}), kafka.ErrorTypePermanent},
		{"store down", &mockRepository{err: errors.New("server selection timeout")}, message(t, model.ActivityEvent{ID: "x", UserID: 1, ActivityType: "X"}), kafka.ErrorTypeTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.repo, logger.Discard()).Handle(context.Background(), tt.msg)
			if kafka.ClassifyError(err) != tt.want {
				t.Errorf("expected type %d, got %v", tt.want, err)
			}
		})
	}
}
