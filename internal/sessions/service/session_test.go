package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sessionerrors "telehealth/internal/sessions/errors"
	"telehealth/internal/sessions/repository"
	"telehealth/internal/sessions/validator"
	"telehealth/pkg/auth"
	"telehealth/pkg/config"
	apperrors "telehealth/pkg/errors"
	"telehealth/pkg/logger"
	"telehealth/pkg/model"
	"telehealth/pkg/timeofday"
)

// memRepository stores sessions in memory and enforces the same uniqueness
// rule as the partial index on active sessions.
type memRepository struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*model.Session

	// skipPrecheck makes FindActiveBySlot always miss so that concurrent
	// bookings reach Create together.
	skipPrecheck bool
}

func newMemRepository() *memRepository {
	return &memRepository{sessions: map[string]*model.Session{}}
}

func (m *memRepository) put(s *model.Session) *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s.ID = fmt.Sprintf("65f1c2a9e4b0a1b2c3d4%04x", m.seq)
	s.Active = s.Status.Active()
	cp := *s
	m.sessions[s.ID] = &cp
	return s
}

func (m *memRepository) Create(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sessions {
		if e.Active && e.TherapistID == s.TherapistID && e.ScheduledDate == s.ScheduledDate && e.StartTime == s.StartTime {
			return sessionerrors.ErrDuplicate
		}
	}
	m.seq++
	s.ID = fmt.Sprintf("65f1c2a9e4b0a1b2c3d4%04x", m.seq)
	s.Active = s.Status.Active()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, sessionerrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepository) FindActiveBySlot(ctx context.Context, therapistID int64, date string, start timeofday.TimeOfDay) (*model.Session, error) {
	if m.skipPrecheck {
		return nil, sessionerrors.ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Active && s.TherapistID == therapistID && s.ScheduledDate == date && s.StartTime == start {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sessionerrors.ErrNotFound
}

func (m *memRepository) FindByTherapistAndDate(ctx context.Context, therapistID int64, date string) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Session
	for _, s := range m.sessions {
		if s.TherapistID == therapistID && s.ScheduledDate == date {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepository) ListActiveDates(ctx context.Context, therapistID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sessions {
		if s.Active && s.TherapistID == therapistID {
			out = append(out, s.ScheduledDate)
		}
	}
	return out, nil
}

func (m *memRepository) Transition(ctx context.Context, id string, from []model.SessionStatus, to model.SessionStatus, upd repository.TransitionUpdate) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, sessionerrors.ErrNotFound
	}
	allowed := false
	for _, f := range from {
		if s.Status == f {
			allowed = true
		}
	}
	if !allowed {
		cp := *s
		return &cp, fmt.Errorf("%w: %s", sessionerrors.ErrStatusConflict, s.Status)
	}
	s.Status = to
	s.Active = to.Active()
	if upd.MeetingRoomID != "" {
		s.MeetingRoomID = upd.MeetingRoomID
	}
	if upd.CompletedAt != nil {
		at := *upd.CompletedAt
		s.CompletedAt = &at
	}
	cp := *s
	return &cp, nil
}

func (m *memRepository) FindAccepted(ctx context.Context, upToDate string) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Session
	for _, s := range m.sessions {
		if s.Status == model.StatusAccepted && s.ScheduledDate <= upToDate {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepository) ListByParticipant(ctx context.Context, f repository.ParticipantFilter) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Session
	for _, s := range m.sessions {
		if s.HasParticipant(f.UserID) && (f.Status == "" || s.Status == f.Status) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepository) CountByParticipant(ctx context.Context, f repository.ParticipantFilter) (int64, error) {
	list, _ := m.ListByParticipant(ctx, f)
	return int64(len(list)), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.SessionEvent
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, e model.SessionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

type recordingActivity struct {
	mu     sync.Mutex
	events []model.ActivityEvent
}

func (a *recordingActivity) Record(ctx context.Context, e model.ActivityEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

var (
	therapist5 = auth.Actor{ID: 5, Role: auth.RoleTherapist}
	therapist6 = auth.Actor{ID: 6, Role: auth.RoleTherapist}
	patient9   = auth.Actor{ID: 9, Role: auth.RolePatient}
	patient10  = auth.Actor{ID: 10, Role: auth.RolePatient}
	admin      = auth.Actor{ID: 1, Role: auth.RoleAdmin}
)

func newTestService(repo *memRepository) (*sessionService, *recordingNotifier, *recordingActivity) {
	log := logger.Discard()
	n := &recordingNotifier{}
	a := &recordingActivity{}
	svc := &sessionService{
		repo:      repo,
		validator: validator.NewSessionValidator(log),
		notifier:  n,
		activity:  a,
		cfg: &config.Config{
			Log:          log,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Location:     time.UTC,
		},
		now: time.Now,
	}
	return svc, n, a
}

func bookingRequest() *model.BookingRequest {
	return &model.BookingRequest{
		TherapistID:  model.NewID(5),
		PatientID:    model.NewID(9),
		SelectedDate: "2025-03-10",
		StartTime:    "09:00",
		EndTime:      "09:45",
	}
}

func TestBook_Scenario(t *testing.T) {
	svc, notifier, activity := newTestService(newMemRepository())

	session, err := svc.Book(context.Background(), patient9, bookingRequest())
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if session.Status != model.StatusPending {
		t.Errorf("expected pending, got %s", session.Status)
	}
	if session.SessionType != model.SessionTypeVideoCall {
		t.Errorf("expected default video_call, got %s", session.SessionType)
	}
	if session.ScheduledDate != "2025-03-10" || session.StartTime.String() != "09:00" {
		t.Errorf("unexpected session %+v", session)
	}
	if len(notifier.events) != 1 || notifier.events[0].RecipientID != 5 {
		t.Errorf("therapist should be notified, got %+v", notifier.events)
	}
	if len(activity.events) != 1 || activity.events[0].ActivityType != model.ActivitySessionBooked || activity.events[0].UserID != 9 {
		t.Errorf("booking activity not recorded: %+v", activity.events)
	}

	_, err = svc.Book(context.Background(), patient9, bookingRequest())
	appErr := apperrors.AsAppError(err)
	if appErr.StatusCode() != 409 || appErr.Message != "Slot already booked" {
		t.Errorf("expected 409 Slot already booked, got %d %q", appErr.StatusCode(), appErr.Message)
	}
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	repo := newMemRepository()
	repo.skipPrecheck = true
	svc, _, _ := newTestService(repo)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Book(context.Background(), admin, bookingRequest())
		}(i)
	}
	close(start)
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperrors.HasCode(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != attempts-1 {
		t.Errorf("expected exactly one success, got %d successes and %d conflicts", successes, conflicts)
	}
}

func TestBook_CancelledSlotCanBeRebooked(t *testing.T) {
	repo := newMemRepository()
	svc, _, _ := newTestService(repo)

	first, err := svc.Book(context.Background(), patient9, bookingRequest())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), patient9, first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Book(context.Background(), patient9, bookingRequest()); err != nil {
		t.Errorf("a cancelled session must free the slot: %v", err)
	}
}

func TestBook_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *model.BookingRequest)
		wantMsg string
	}{
		{"missing therapist", func(r *model.BookingRequest) { r.TherapistID = model.FlexibleID{} }, "Missing required fields"},
		{"missing date", func(r *model.BookingRequest) { r.SelectedDate = "" }, "Missing required fields"},
		{"blank end", func(r *model.BookingRequest) { r.EndTime = "  " }, "Missing required fields"},
		{"non numeric patient", func(r *model.BookingRequest) { r.PatientID = model.FlexibleID{Present: true} }, "Invalid therapist or patient ID"},
		{"negative therapist", func(r *model.BookingRequest) { r.TherapistID = model.NewID(-5) }, "Invalid therapist or patient ID"},
		{"bad date", func(r *model.BookingRequest) { r.SelectedDate = "2025-13-40" }, "Invalid date format"},
		{"inverted", func(r *model.BookingRequest) { r.StartTime, r.EndTime = "10:00", "09:00" }, "End time must be after start time"},
		{"equal", func(r *model.BookingRequest) { r.EndTime = "09:00" }, "End time must be after start time"},
		{"bad time", func(r *model.BookingRequest) { r.StartTime = "nine" }, "Invalid time format"},
		{"unknown type", func(r *model.BookingRequest) { r.SessionType = "smoke signals" }, "Session validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(newMemRepository())
			req := bookingRequest()
			tt.mutate(req)

			_, err := svc.Book(context.Background(), patient9, req)
			appErr := apperrors.AsAppError(err)
			if appErr.StatusCode() != 400 || appErr.Message != tt.wantMsg {
				t.Errorf("expected 400 %q, got %d %q", tt.wantMsg, appErr.StatusCode(), appErr.Message)
			}
		})
	}
}

func TestBook_AcceptsISODateAndSeconds(t *testing.T) {
	svc, _, _ := newTestService(newMemRepository())
	req := bookingRequest()
	req.SelectedDate = "2025-03-10T00:00:00.000Z"
	req.StartTime = "09:00:30"
	req.SessionType = "Audio Call"

	session, err := svc.Book(context.Background(), patient9, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ScheduledDate != "2025-03-10" || session.StartTime.String() != "09:00" || session.SessionType != model.SessionTypeAudioCall {
		t.Errorf("unexpected normalization %+v", session)
	}
}

func TestBook_Authorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   auth.Actor
		wantErr bool
	}{
		{"patient for self", patient9, false},
		{"admin on behalf", admin, false},
		{"another patient", patient10, true},
		{"therapist", therapist5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(newMemRepository())
			_, err := svc.Book(context.Background(), tt.actor, bookingRequest())
			if tt.wantErr != apperrors.HasCode(err, apperrors.CodeForbidden) {
				t.Errorf("unexpected result %v", err)
			}
		})
	}
}

func TestBook_NotifierFailureKeepsBooking(t *testing.T) {
	repo := newMemRepository()
	svc, notifier, _ := newTestService(repo)
	notifier.err = errors.New("kafka unavailable")

	session, err := svc.Book(context.Background(), patient9, bookingRequest())
	if err != nil {
		t.Fatalf("notification failure must not fail the booking: %v", err)
	}
	if _, err := repo.FindByID(context.Background(), session.ID); err != nil {
		t.Errorf("booking should be stored: %v", err)
	}
}

func seed(repo *memRepository, status model.SessionStatus, date, start, end string) *model.Session {
	return repo.put(&model.Session{
		TherapistID:   5,
		PatientID:     9,
		ScheduledDate: date,
		StartTime:     timeofday.MustParse(start),
		EndTime:       timeofday.MustParse(end),
		Status:        status,
		SessionType:   model.SessionTypeVideoCall,
	})
}

func TestTransitions(t *testing.T) {
	type op func(s *sessionService, actor auth.Actor, id string) (*model.Session, error)
	accept := func(s *sessionService, a auth.Actor, id string) (*model.Session, error) { return s.Accept(context.Background(), a, id) }
	decline := func(s *sessionService, a auth.Actor, id string) (*model.Session, error) { return s.Decline(context.Background(), a, id) }
	cancel := func(s *sessionService, a auth.Actor, id string) (*model.Session, error) { return s.Cancel(context.Background(), a, id) }
	complete := func(s *sessionService, a auth.Actor, id string) (*model.Session, error) { return s.Complete(context.Background(), a, id) }

	tests := []struct {
		name     string
		from     model.SessionStatus
		op       op
		actor    auth.Actor
		want     model.SessionStatus
		wantCode string
	}{
		{"accept pending", model.StatusPending, accept, therapist5, model.StatusAccepted, ""},
		{"decline pending", model.StatusPending, decline, therapist5, model.StatusDeclined, ""},
		{"patient cancels pending", model.StatusPending, cancel, patient9, model.StatusCancelled, ""},
		{"therapist cancels accepted", model.StatusAccepted, cancel, therapist5, model.StatusCancelled, ""},
		{"complete accepted", model.StatusAccepted, complete, therapist5, model.StatusCompleted, ""},
		{"admin completes", model.StatusAccepted, complete, admin, model.StatusCompleted, ""},
		{"decline accepted", model.StatusAccepted, decline, therapist5, "", apperrors.CodeConflict},
		{"accept completed", model.StatusCompleted, accept, therapist5, "", apperrors.CodeConflict},
		{"complete pending", model.StatusPending, complete, therapist5, "", apperrors.CodeConflict},
		{"cancel declined", model.StatusDeclined, cancel, patient9, "", apperrors.CodeConflict},
		{"cancel cancelled", model.StatusCancelled, cancel, patient9, "", apperrors.CodeConflict},
		{"patient accepts", model.StatusPending, accept, patient9, "", apperrors.CodeForbidden},
		{"other therapist declines", model.StatusPending, decline, therapist6, "", apperrors.CodeForbidden},
		{"stranger cancels", model.StatusPending, cancel, patient10, "", apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepository()
			svc, _, _ := newTestService(repo)
			s := seed(repo, tt.from, "2025-03-10", "09:00", "09:45")

			got, err := tt.op(svc, tt.actor, s.ID)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				stored, _ := repo.FindByID(context.Background(), s.ID)
				if stored.Status != tt.from {
					t.Errorf("status must not change on refusal, got %s", stored.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Status)
			}
		})
	}
}

func TestAccept_AssignsMeetingRoom(t *testing.T) {
	repo := newMemRepository()
	svc, notifier, _ := newTestService(repo)
	s := seed(repo, model.StatusPending, "2025-03-10", "09:00", "09:45")

	got, err := svc.Accept(context.Background(), therapist5, s.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	prefix := "therapy-" + s.ID + "-"
	if !strings.HasPrefix(got.MeetingRoomID, prefix) || len(got.MeetingRoomID) != len(prefix)+36 {
		t.Errorf("unexpected meeting room id %q", got.MeetingRoomID)
	}
	if len(notifier.events) != 1 || notifier.events[0].RecipientID != 9 || notifier.events[0].Message != "Your therapy session has been accepted." {
		t.Errorf("patient should be told, got %+v", notifier.events)
	}
}

func TestCancel_NotifiesOtherParty(t *testing.T) {
	tests := []struct {
		name  string
		actor auth.Actor
		want  []int64
	}{
		{"patient cancels", patient9, []int64{5}},
		{"therapist cancels", therapist5, []int64{9}},
		{"admin cancels", admin, []int64{5, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepository()
			svc, notifier, activity := newTestService(repo)
			s := seed(repo, model.StatusAccepted, "2025-03-10", "09:00", "09:45")

			if _, err := svc.Cancel(context.Background(), tt.actor, s.ID); err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if len(notifier.events) != len(tt.want) {
				t.Fatalf("expected %d notifications, got %+v", len(tt.want), notifier.events)
			}
			for i, e := range notifier.events {
				if e.RecipientID != tt.want[i] || e.Message != "A therapy session has been cancelled." {
					t.Errorf("unexpected notification %+v", e)
				}
			}
			if len(activity.events) != 1 || activity.events[0].ActivityType != model.ActivitySessionCancelled || activity.events[0].UserID != tt.actor.ID {
				t.Errorf("cancel activity not recorded: %+v", activity.events)
			}
		})
	}
}

func TestTransition_UnknownSession(t *testing.T) {
	svc, _, _ := newTestService(newMemRepository())

	_, err := svc.Accept(context.Background(), therapist5, "65f1c2a9e4b0a1b2c3d4ffff")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	_, err = svc.Accept(context.Background(), therapist5, "17")
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAutoComplete(t *testing.T) {
	repo := newMemRepository()
	svc, notifier, _ := newTestService(repo)

	past := seed(repo, model.StatusAccepted, "2025-03-10", "09:00", "09:45")
	endedToday := seed(repo, model.StatusAccepted, "2025-03-12", "08:00", "08:45")
	laterToday := seed(repo, model.StatusAccepted, "2025-03-12", "15:00", "15:45")
	future := seed(repo, model.StatusAccepted, "2025-03-13", "09:00", "09:45")
	pending := seed(repo, model.StatusPending, "2025-03-10", "11:00", "11:45")

	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	n, err := svc.AutoComplete(context.Background(), now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 completions, got %d", n)
	}

	want := map[string]model.SessionStatus{
		past.ID:       model.StatusCompleted,
		endedToday.ID: model.StatusCompleted,
		laterToday.ID: model.StatusAccepted,
		future.ID:     model.StatusAccepted,
		pending.ID:    model.StatusPending,
	}
	snapshot := func() map[string]model.SessionStatus {
		out := map[string]model.SessionStatus{}
		for id := range want {
			s, _ := repo.FindByID(context.Background(), id)
			out[id] = s.Status
		}
		return out
	}
	first := snapshot()
	for id, status := range want {
		if first[id] != status {
			t.Errorf("session %s: expected %s, got %s", id, status, first[id])
		}
	}
	done, _ := repo.FindByID(context.Background(), past.ID)
	if done.CompletedAt == nil || !done.CompletedAt.Equal(now) {
		t.Errorf("completedAt should be stamped with the sweep time, got %v", done.CompletedAt)
	}
	if len(notifier.events) != 2 {
		t.Errorf("expected a notification per completion, got %d", len(notifier.events))
	}

	n, err = svc.AutoComplete(context.Background(), now)
	if err != nil || n != 0 {
		t.Errorf("second sweep should be a no-op, got %d %v", n, err)
	}
	second := snapshot()
	for id := range want {
		if first[id] != second[id] {
			t.Errorf("session %s changed on second sweep", id)
		}
	}
}

func TestGetByID_HidesOtherSessions(t *testing.T) {
	repo := newMemRepository()
	svc, _, _ := newTestService(repo)
	s := seed(repo, model.StatusPending, "2025-03-10", "09:00", "09:45")

	if _, err := svc.GetByID(context.Background(), patient9, s.ID); err != nil {
		t.Errorf("participant should read the session: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), patient10, s.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("stranger should get not found, got %v", err)
	}
}

func TestListMine(t *testing.T) {
	repo := newMemRepository()
	svc, _, _ := newTestService(repo)
	seed(repo, model.StatusPending, "2025-03-10", "09:00", "09:45")
	seed(repo, model.StatusAccepted, "2025-03-11", "09:00", "09:45")

	all, total, err := svc.ListMine(context.Background(), patient9, "", 0, 0)
	if err != nil || len(all) != 2 || total != 2 {
		t.Errorf("expected two sessions, got %d/%d %v", len(all), total, err)
	}
	pending, _, err := svc.ListMine(context.Background(), therapist5, "Pending", 10, 0)
	if err != nil || len(pending) != 1 {
		t.Errorf("expected one pending session, got %d %v", len(pending), err)
	}
	if _, _, err := svc.ListMine(context.Background(), patient9, "lost", 10, 0); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for unknown status, got %v", err)
	}
}
