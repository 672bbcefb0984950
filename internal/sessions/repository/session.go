package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sessionerrors "telehealth/internal/sessions/errors"
	"telehealth/pkg/config"
	"telehealth/pkg/model"
	"telehealth/pkg/timeofday"
)

const (
	CollectionName = "Sessions"
)

// TransitionUpdate carries the fields a status change stamps alongside the
// new status. Zero values are left untouched.
type TransitionUpdate struct {
	MeetingRoomID string
	CompletedAt   *time.Time
}

// ParticipantFilter selects the sessions a user takes part in.
type ParticipantFilter struct {
	UserID int64
	Status model.SessionStatus
	Limit  int
	Offset int64
}

type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindActiveBySlot(ctx context.Context, therapistID int64, date string, start timeofday.TimeOfDay) (*model.Session, error)
	FindByTherapistAndDate(ctx context.Context, therapistID int64, date string) ([]*model.Session, error)
	ListActiveDates(ctx context.Context, therapistID int64) ([]string, error)
	Transition(ctx context.Context, id string, from []model.SessionStatus, to model.SessionStatus, upd TransitionUpdate) (*model.Session, error)
	FindAccepted(ctx context.Context, upToDate string) ([]*model.Session, error)
	ListByParticipant(ctx context.Context, f ParticipantFilter) ([]*model.Session, error)
	CountByParticipant(ctx context.Context, f ParticipantFilter) (int64, error)
}

type mongoSessionRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMongoSessionRepository(cfg *config.Config) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout leaves a SessionContext untouched so availability deletion can
// read sessions inside its transaction.
func (r *mongoSessionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Create inserts s. The partial unique index on active sessions turns a
// second booking of the same slot into ErrDuplicate, whichever request
// reaches the server first.
func (r *mongoSessionRepository) Create(ctx context.Context, s *model.Session) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	s.CreatedAt = now
	s.UpdatedAt = now
	s.Active = s.Status.Active()

	result, err := r.collection.InsertOne(ctx, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: therapist %d on %s at %s", sessionerrors.ErrDuplicate, s.TherapistID, s.ScheduledDate, s.StartTime)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		s.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", sessionerrors.ErrInvalidID, id)
	}

	var s model.Session
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", sessionerrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &s, nil
}

func (r *mongoSessionRepository) FindActiveBySlot(ctx context.Context, therapistID int64, date string, start timeofday.TimeOfDay) (*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"therapist_id":   therapistID,
		"scheduled_date": date,
		"start_time":     start,
		"active":         true,
	}

	var s model.Session
	if err := r.collection.FindOne(ctx, filter).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: therapist %d on %s at %s", sessionerrors.ErrNotFound, therapistID, date, start)
		}
		return nil, fmt.Errorf("failed to find session by slot: %w", err)
	}
	return &s, nil
}

func (r *mongoSessionRepository) FindByTherapistAndDate(ctx context.Context, therapistID int64, date string) ([]*model.Session, error) {
	return r.find(ctx, bson.M{
		"therapist_id":   therapistID,
		"scheduled_date": date,
	}, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
}

// ListActiveDates returns one scheduled date per active session, so a date
// appears as often as it is booked.
func (r *mongoSessionRepository) ListActiveDates(ctx context.Context, therapistID int64) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"scheduled_date": 1})
	sessions, err := r.find(ctx, bson.M{"therapist_id": therapistID, "active": true}, opts)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(sessions))
	for _, s := range sessions {
		dates = append(dates, s.ScheduledDate)
	}
	return dates, nil
}

// Transition moves a session to status to, but only while its current status
// is one of from. The status check and the write are a single server-side
// operation.
func (r *mongoSessionRepository) Transition(ctx context.Context, id string, from []model.SessionStatus, to model.SessionStatus, upd TransitionUpdate) (*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", sessionerrors.ErrInvalidID, id)
	}

	set := bson.M{
		"status":     to,
		"active":     to.Active(),
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	if upd.MeetingRoomID != "" {
		set["meeting_room_id"] = upd.MeetingRoomID
	}
	if upd.CompletedAt != nil {
		set["completed_at"] = upd.CompletedAt.UTC().Truncate(time.Millisecond)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": from},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var s model.Session
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&s)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update session status: %w", err)
	}

	current, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	return current, fmt.Errorf("%w: %s is %s", sessionerrors.ErrStatusConflict, id, current.Status)
}

// FindAccepted returns accepted sessions scheduled on or before upToDate.
// Dates are stored as YYYY-MM-DD so they compare lexically.
func (r *mongoSessionRepository) FindAccepted(ctx context.Context, upToDate string) ([]*model.Session, error) {
	return r.find(ctx, bson.M{
		"status":         model.StatusAccepted,
		"scheduled_date": bson.M{"$lte": upToDate},
	}, options.Find().SetSort(bson.D{{Key: "scheduled_date", Value: 1}, {Key: "end_time", Value: 1}}))
}

func participantQuery(f ParticipantFilter) bson.M {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"therapist_id": f.UserID},
			bson.M{"patient_id": f.UserID},
		},
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func (r *mongoSessionRepository) ListByParticipant(ctx context.Context, f ParticipantFilter) ([]*model.Session, error) {
	opts := options.Find().
		SetLimit(int64(f.Limit)).
		SetSkip(f.Offset).
		SetSort(bson.D{{Key: "scheduled_date", Value: -1}, {Key: "start_time", Value: -1}})
	return r.find(ctx, participantQuery(f), opts)
}

func (r *mongoSessionRepository) CountByParticipant(ctx context.Context, f ParticipantFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, participantQuery(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (r *mongoSessionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []*model.Session{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}
