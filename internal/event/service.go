package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/event/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-community-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/fanout"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

var tracer = otel.Tracer("github.com/ovaphlow/pitchfork/service-community-go/internal/event")

// DefaultRecentLimit is the size of the recent-events projection.
const DefaultRecentLimit = 7

var (
	ErrEventNotFound         = fmt.Errorf("event %w", apperror.ErrNotFound)
	ErrNoEventsForOwner      = fmt.Errorf("events for owner %w", apperror.ErrNotFound)
	ErrParticipationNotFound = fmt.Errorf("participation %w", apperror.ErrNotFound)
	ErrAlreadyJoined         = fmt.Errorf("participation %w", apperror.ErrConflict)

	ErrEmptyUpdate   = apperror.Field("body", "no fields provided for update")
	ErrNoValidFields = apperror.Field("body", "no valid fields provided for update")
)

// EventStore is the event persistence the engine needs.
type EventStore interface {
	Find(ctx context.Context, q entity.Query) ([]entity.Event, error)
	Get(ctx context.Context, id string) (*entity.Event, error)
	Create(ctx context.Context, e *entity.Event) error
	Update(ctx context.Context, id string, p entity.Patch) (*entity.Event, error)
	Delete(ctx context.Context, id string) error
}

// ParticipationStore is the participation persistence the engine needs.
type ParticipationStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]entity.Participation, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	Create(ctx context.Context, p *entity.Participation) error
	Delete(ctx context.Context, eventID, userID string) error
	DeleteByEvent(ctx context.Context, eventID string) (int64, error)
}

// Service composes event read-models and owns event writes.
type Service struct {
	events         EventStore
	participations ParticipationStore
	profiles       user.ProfileReader
	logger         *zap.SugaredLogger
	limit          int
}

func NewService(events EventStore, participations ParticipationStore, profiles user.ProfileReader, logger *zap.SugaredLogger) *Service {
	return &Service{
		events:         events,
		participations: participations,
		profiles:       profiles,
		logger:         logger,
		limit:          fanout.DefaultLimit,
	}
}

// ListAll returns every event joined to its organizer, oldest first.
// An empty store yields an empty slice.
func (s *Service) ListAll(ctx context.Context) ([]entity.View, error) {
	ctx, span := tracer.Start(ctx, "event.ListAll")
	defer span.End()

	events, err := s.events.Find(ctx, entity.Query{})
	if err != nil {
		s.logger.Errorw("list events failed", "err", err)
		return nil, err
	}
	profiles := s.resolve(ctx, organizerIDs(events))
	views := make([]entity.View, len(events))
	for i, e := range events {
		views[i] = toView(e, profiles)
	}
	return views, nil
}

// ListByOwner returns the events organized by ownerID. Unlike ListAll an
// empty result is ErrNoEventsForOwner.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]entity.View, error) {
	ctx, span := tracer.Start(ctx, "event.ListByOwner")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", ownerID))

	events, err := s.events.Find(ctx, entity.Query{OwnerID: ownerID})
	if err != nil {
		s.logger.Errorw("list owner events failed", "user_id", ownerID, "err", err)
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNoEventsForOwner
	}
	profiles := s.resolve(ctx, organizerIDs(events))
	views := make([]entity.View, len(events))
	for i, e := range events {
		views[i] = toView(e, profiles)
	}
	return views, nil
}

// ListAllWithParticipants returns every event with its full participant list.
// Participant lookups run concurrently, one per event. A participant whose
// profile does not resolve is kept with empty username and image.
func (s *Service) ListAllWithParticipants(ctx context.Context) ([]entity.DetailView, error) {
	ctx, span := tracer.Start(ctx, "event.ListAllWithParticipants")
	defer span.End()

	events, err := s.events.Find(ctx, entity.Query{})
	if err != nil {
		s.logger.Errorw("list events failed", "err", err)
		return nil, err
	}

	lists := fanout.Map(ctx, events, s.limit, func(ctx context.Context, e entity.Event) ([]entity.Participation, error) {
		return s.participations.ListByEvent(ctx, e.ID)
	})

	ids := organizerIDs(events)
	for i, res := range lists {
		if res.Err != nil {
			s.logger.Warnw("list participations failed", "event_id", events[i].ID, "err", res.Err)
			continue
		}
		for _, p := range res.Value {
			ids = append(ids, p.UserID)
		}
	}
	profiles := s.resolve(ctx, ids)

	views := make([]entity.DetailView, len(events))
	for i, e := range events {
		participants := make([]entity.Participant, 0, len(lists[i].Value))
		for _, p := range lists[i].Value {
			pr, ok := profiles[p.UserID]
			if !ok {
				s.logger.Warnw("participant unresolved", "event_id", e.ID, "user_id", p.UserID)
			}
			participants = append(participants, entity.Participant{
				UserID:   p.UserID,
				Username: pr.Username,
				Image:    pr.Image,
			})
		}
		views[i] = entity.DetailView{View: toView(e, profiles), Participants: participants}
	}
	return views, nil
}

// ListRecentWithCounts returns at most limit events, newest first, each with
// its participation count. limit <= 0 means DefaultRecentLimit.
func (s *Service) ListRecentWithCounts(ctx context.Context, limit int) ([]entity.Summary, error) {
	ctx, span := tracer.Start(ctx, "event.ListRecentWithCounts")
	defer span.End()

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	events, err := s.events.Find(ctx, entity.Query{Limit: uint(limit), NewestFirst: true})
	if err != nil {
		s.logger.Errorw("list recent events failed", "err", err)
		return nil, err
	}

	counts := fanout.Map(ctx, events, s.limit, func(ctx context.Context, e entity.Event) (int, error) {
		return s.participations.CountByEvent(ctx, e.ID)
	})

	out := make([]entity.Summary, len(events))
	for i, e := range events {
		if counts[i].Err != nil {
			s.logger.Warnw("count participations failed", "event_id", e.ID, "err", counts[i].Err)
		}
		out[i] = entity.Summary{IDEvent: e.ID, EventName: e.Name, NbParticipants: counts[i].Value}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Event, error) {
	e, err := s.events.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Errorw("get event failed", "event_id", id, "err", err)
		return nil, err
	}
	return e, nil
}

// Create persists a new event owned by ownerID. Both the self-service and
// the admin route end here; only the source of ownerID differs.
func (s *Service) Create(ctx context.Context, ownerID string, f entity.Fields, image string) (*entity.Event, error) {
	ctx, span := tracer.Start(ctx, "event.Create")
	defer span.End()

	if strings.TrimSpace(ownerID) == "" {
		return nil, apperror.Field(FieldUserID, "userId is required")
	}
	now := time.Now().UTC()
	e := &entity.Event{
		ID:          utilities.NewSnowflakeID(),
		UserID:      ownerID,
		Name:        f.Name,
		Description: f.Description,
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
		Location:    f.Location,
		Image:       image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.events.Create(ctx, e); err != nil {
		s.logger.Errorw("create event failed", "user_id", ownerID, "err", err)
		return nil, err
	}
	s.logger.Infow("event created", "event_id", e.ID, "user_id", ownerID)
	return e, nil
}

// UpdatePartial applies the recognized fields of raw, plus image when a new
// file was supplied. Nothing is written when raw carries no usable field,
// whether or not an image was sent.
func (s *Service) UpdatePartial(ctx context.Context, id string, raw map[string]string, image string) (*entity.Event, error) {
	ctx, span := tracer.Start(ctx, "event.UpdatePartial")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id))

	if len(raw) == 0 {
		return nil, ErrEmptyUpdate
	}
	patch, err := buildPatch(raw)
	if err != nil {
		return nil, err
	}
	// a new image alone does not make an update
	if patch.IsEmpty() {
		return nil, ErrNoValidFields
	}
	if image != "" {
		patch.Image = &image
	}

	e, err := s.events.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Errorw("update event failed", "event_id", id, "err", err)
		return nil, err
	}
	return e, nil
}

// Delete removes an event after its participations. The two deletes are not
// atomic; a failure between them leaves orphaned participations behind.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "event.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id))

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	n, err := s.participations.DeleteByEvent(ctx, id)
	if err != nil {
		s.logger.Errorw("delete participations failed", "event_id", id, "err", err)
		return err
	}

	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warnw("event vanished during delete", "event_id", id, "participations_removed", n)
			return ErrEventNotFound
		}
		s.logger.Errorw("delete event failed", "event_id", id, "participations_removed", n, "err", err)
		return err
	}
	s.logger.Infow("event deleted", "event_id", id, "participations_removed", n)
	return nil
}

// Join records callerID as a participant of eventID.
func (s *Service) Join(ctx context.Context, callerID, eventID string) (*entity.Participation, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}
	p := &entity.Participation{
		ID:        utilities.NewSnowflakeID(),
		EventID:   eventID,
		UserID:    callerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.participations.Create(ctx, p); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, ErrAlreadyJoined
		}
		s.logger.Errorw("join event failed", "event_id", eventID, "user_id", callerID, "err", err)
		return nil, err
	}
	return p, nil
}

func (s *Service) Leave(ctx context.Context, callerID, eventID string) error {
	if err := s.participations.Delete(ctx, eventID, callerID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return ErrParticipationNotFound
		}
		s.logger.Errorw("leave event failed", "event_id", eventID, "user_id", callerID, "err", err)
		return err
	}
	return nil
}

// resolve fetches profiles in one batch. On failure every reference is
// treated as unresolved.
func (s *Service) resolve(ctx context.Context, ids []string) map[string]userentity.Profile {
	if len(ids) == 0 {
		return map[string]userentity.Profile{}
	}
	profiles, err := s.profiles.ProfilesByIDs(ctx, ids)
	if err != nil {
		s.logger.Warnw("resolve profiles failed", "ids", len(ids), "err", err)
		return map[string]userentity.Profile{}
	}
	return profiles
}

func organizerIDs(events []entity.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.UserID
	}
	return ids
}

// toView leaves the organizer fields nil when the organizer is unresolved.
func toView(e entity.Event, profiles map[string]userentity.Profile) entity.View {
	v := entity.View{
		IDEvent:     e.ID,
		EventName:   e.Name,
		Description: e.Description,
		EventImage:  e.Image,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		Location:    e.Location,
	}
	if p, ok := profiles[e.UserID]; ok {
		v.UserName = &p.Username
		v.UserImage = &p.Image
	}
	return v
}
