package event_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/event"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/event/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/testkit"
	userentity "github.com/ovaphlow/pitchfork/service-community-go/internal/user/entity"
)

type fakeEvents struct {
	mu     sync.Mutex
	events map[string]entity.Event
	writes int
	err    error
}

func newFakeEvents(events ...entity.Event) *fakeEvents {
	f := &fakeEvents{events: map[string]entity.Event{}}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEvents) Find(_ context.Context, q entity.Query) ([]entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []entity.Event{}
	for _, e := range f.events {
		if q.OwnerID == "" || e.UserID == q.OwnerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if q.NewestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if q.Limit > 0 && uint(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeEvents) Get(_ context.Context, id string) (*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEvents) Create(_ context.Context, e *entity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.events[e.ID] = *e
	return nil
}

func (f *fakeEvents) Update(_ context.Context, id string, p entity.Patch) (*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	e, ok := f.events[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Image != nil {
		e.Image = *p.Image
	}
	f.events[id] = e
	return &e, nil
}

func (f *fakeEvents) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if _, ok := f.events[id]; !ok {
		return apperror.ErrNotFound
	}
	delete(f.events, id)
	return nil
}

type fakeParticipations struct {
	mu      sync.Mutex
	rows    []entity.Participation
	writes  int
	failFor map[string]bool
}

func (f *fakeParticipations) ListByEvent(_ context.Context, eventID string) ([]entity.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[eventID] {
		return nil, errors.New("connection reset")
	}
	var out []entity.Participation
	for _, p := range f.rows {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParticipations) CountByEvent(ctx context.Context, eventID string) (int, error) {
	rows, err := f.ListByEvent(ctx, eventID)
	return len(rows), err
}

func (f *fakeParticipations) Create(_ context.Context, p *entity.Participation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.EventID == p.EventID && r.UserID == p.UserID {
			return fmt.Errorf("insert participation: %w", apperror.ErrConflict)
		}
	}
	f.writes++
	f.rows = append(f.rows, *p)
	return nil
}

func (f *fakeParticipations) Delete(_ context.Context, eventID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.EventID == eventID && r.UserID == userID {
			f.writes++
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return apperror.ErrNotFound
}

func (f *fakeParticipations) DeleteByEvent(_ context.Context, eventID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	kept := f.rows[:0]
	var n int64
	for _, r := range f.rows {
		if r.EventID == eventID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func mkEvent(id, owner string, offset time.Duration) entity.Event {
	return entity.Event{
		ID:          id,
		UserID:      owner,
		Name:        "Event " + id,
		Description: "about " + id,
		StartDate:   base.Add(24 * time.Hour),
		EndDate:     base.Add(48 * time.Hour),
		Location:    "Tunis",
		Image:       id + ".png",
		CreatedAt:   base.Add(offset),
		UpdatedAt:   base.Add(offset),
	}
}

// fixture: event E organized by U1 with participants U2 and U3; U3 was deleted.
func newFixture() (*event.Service, *fakeEvents, *fakeParticipations, *testkit.Profiles) {
	events := newFakeEvents(mkEvent("E", "U1", 0))
	parts := &fakeParticipations{rows: []entity.Participation{
		{ID: "p1", EventID: "E", UserID: "U2", CreatedAt: base},
		{ID: "p2", EventID: "E", UserID: "U3", CreatedAt: base.Add(time.Minute)},
	}}
	profiles := testkit.NewProfiles(
		userentity.Profile{ID: "U1", Username: "organizer", Image: "u1.png"},
		userentity.Profile{ID: "U2", Username: "bob", Image: "u2.png"},
		userentity.Profile{ID: "U3", Username: "carol", Image: "u3.png"},
	)
	profiles.Delete("U3")
	svc := event.NewService(events, parts, profiles, zap.NewNop().Sugar())
	return svc, events, parts, profiles
}

func TestListAllWithParticipantsNullFillsDanglingParticipant(t *testing.T) {
	svc, _, _, _ := newFixture()

	views, err := svc.ListAllWithParticipants(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, "E", v.IDEvent)
	require.NotNil(t, v.UserName)
	assert.Equal(t, "organizer", *v.UserName)
	assert.Equal(t, []entity.Participant{
		{UserID: "U2", Username: "bob", Image: "u2.png"},
		{UserID: "U3", Username: "", Image: ""},
	}, v.Participants)
}

func TestListAllWithParticipantsDegradesPerEvent(t *testing.T) {
	svc, events, parts, _ := newFixture()
	_ = events.Create(context.Background(), ptr(mkEvent("F", "U1", time.Hour)))
	parts.rows = append(parts.rows, entity.Participation{ID: "p3", EventID: "F", UserID: "U2"})
	parts.failFor = map[string]bool{"E": true}

	views, err := svc.ListAllWithParticipants(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "E", views[0].IDEvent)
	assert.Empty(t, views[0].Participants)
	assert.NotNil(t, views[0].Participants)
	assert.Len(t, views[1].Participants, 1)
}

func TestListAllWithParticipantsProfileOutage(t *testing.T) {
	svc, _, _, profiles := newFixture()
	profiles.Err = errors.New("users unavailable")

	views, err := svc.ListAllWithParticipants(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].UserName)
	assert.Len(t, views[0].Participants, 2)
	for _, p := range views[0].Participants {
		assert.Empty(t, p.Username)
		assert.Empty(t, p.Image)
	}
}

func TestListAllWithParticipantsBatchesProfiles(t *testing.T) {
	svc, _, _, profiles := newFixture()
	_, err := svc.ListAllWithParticipants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, profiles.Calls)
}

func TestListAllBaseQueryFailure(t *testing.T) {
	svc, events, _, _ := newFixture()
	events.err = errors.New("db down")

	_, err := svc.ListAll(context.Background())
	assert.Error(t, err)
	_, err = svc.ListAllWithParticipants(context.Background())
	assert.Error(t, err)
}

func TestListAllOrganizerUnresolved(t *testing.T) {
	svc, events, _, _ := newFixture()
	_ = events.Create(context.Background(), ptr(mkEvent("G", "gone", time.Hour)))

	views, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "E", views[0].IDEvent)
	assert.Equal(t, "u1.png", *views[0].UserImage)
	assert.Equal(t, "G", views[1].IDEvent)
	assert.Nil(t, views[1].UserName)
	assert.Nil(t, views[1].UserImage)
}

func TestListAllEmptyVersusListByOwnerEmpty(t *testing.T) {
	svc := event.NewService(newFakeEvents(), &fakeParticipations{}, testkit.NewProfiles(), zap.NewNop().Sugar())

	views, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)

	_, err = svc.ListByOwner(context.Background(), "U1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, err, event.ErrNoEventsForOwner)
}

func TestListByOwnerFilters(t *testing.T) {
	svc, events, _, _ := newFixture()
	_ = events.Create(context.Background(), ptr(mkEvent("other", "U2", time.Hour)))

	views, err := svc.ListByOwner(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "E", views[0].IDEvent)
}

func TestListRecentWithCounts(t *testing.T) {
	var evs []entity.Event
	for i := range 9 {
		evs = append(evs, mkEvent(fmt.Sprintf("e%d", i), "U1", time.Duration(i)*time.Hour))
	}
	parts := &fakeParticipations{rows: []entity.Participation{
		{ID: "a", EventID: "e8", UserID: "U2"},
		{ID: "b", EventID: "e8", UserID: "missing-user"},
		{ID: "c", EventID: "e7", UserID: "U2"},
		{ID: "d", EventID: "e0", UserID: "U2"},
	}}
	svc := event.NewService(newFakeEvents(evs...), parts, testkit.NewProfiles(), zap.NewNop().Sugar())

	got, err := svc.ListRecentWithCounts(context.Background(), event.DefaultRecentLimit)
	require.NoError(t, err)
	require.Len(t, got, 7)

	for i, s := range got {
		assert.Equal(t, fmt.Sprintf("e%d", 8-i), s.IDEvent)
	}
	assert.Equal(t, 2, got[0].NbParticipants)
	assert.Equal(t, 1, got[1].NbParticipants)
	assert.Equal(t, 0, got[2].NbParticipants)
}

func TestListRecentWithCountsFailedCountIsZero(t *testing.T) {
	svc, _, parts, _ := newFixture()
	parts.failFor = map[string]bool{"E": true}

	got, err := svc.ListRecentWithCounts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].NbParticipants)
}

func TestDeleteCascades(t *testing.T) {
	svc, events, parts, _ := newFixture()
	parts.rows = append(parts.rows, entity.Participation{ID: "p9", EventID: "other", UserID: "U2"})

	require.NoError(t, svc.Delete(context.Background(), "E"))

	_, err := events.Get(context.Background(), "E")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	left, _ := parts.ListByEvent(context.Background(), "E")
	assert.Empty(t, left)
	other, _ := parts.ListByEvent(context.Background(), "other")
	assert.Len(t, other, 1)
}

func TestDeleteWithoutParticipations(t *testing.T) {
	svc, _, parts, _ := newFixture()
	parts.rows = nil
	assert.NoError(t, svc.Delete(context.Background(), "E"))
}

func TestDeleteMissingEventWritesNothing(t *testing.T) {
	svc, events, parts, _ := newFixture()

	err := svc.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Zero(t, events.writes)
	assert.Zero(t, parts.writes)
}

func TestUpdatePartialRejectsBeforeWriting(t *testing.T) {
	svc, events, _, _ := newFixture()

	tests := []struct {
		name string
		raw  map[string]string
		want error
	}{
		{"empty body", map[string]string{}, event.ErrEmptyUpdate},
		{"nil body", nil, event.ErrEmptyUpdate},
		{"only unrecognized", map[string]string{"color": "red", "lieu": "x"}, event.ErrNoValidFields},
		{"only blank values", map[string]string{"name": "  "}, event.ErrNoValidFields},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdatePartial(context.Background(), "E", tt.raw, "")
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
	assert.Zero(t, events.writes)
}

func TestUpdatePartialSingleField(t *testing.T) {
	svc, events, _, _ := newFixture()
	before, _ := events.Get(context.Background(), "E")

	got, err := svc.UpdatePartial(context.Background(), "E", map[string]string{"location": "Sousse", "bogus": "1"}, "")
	require.NoError(t, err)

	assert.Equal(t, "Sousse", got.Location)
	assert.Equal(t, before.Name, got.Name)
	assert.Equal(t, before.Description, got.Description)
	assert.Equal(t, before.StartDate, got.StartDate)
	assert.Equal(t, before.EndDate, got.EndDate)
	assert.Equal(t, before.Image, got.Image)
}

func TestUpdatePartialImageNeedsAFieldAlongside(t *testing.T) {
	svc, events, _, _ := newFixture()

	_, err := svc.UpdatePartial(context.Background(), "E", map[string]string{"lieu": "x"}, "new.png")
	assert.ErrorIs(t, err, event.ErrNoValidFields)
	_, err = svc.UpdatePartial(context.Background(), "E", map[string]string{"name": " "}, "new.png")
	assert.ErrorIs(t, err, event.ErrNoValidFields)
	assert.Zero(t, events.writes)

	stored, _ := events.Get(context.Background(), "E")
	assert.NotEqual(t, "new.png", stored.Image)

	got, err := svc.UpdatePartial(context.Background(), "E", map[string]string{"name": "Renamed", "lieu": "x"}, "new.png")
	require.NoError(t, err)
	assert.Equal(t, "new.png", got.Image)
	assert.Equal(t, "Renamed", got.Name)
}

func TestUpdatePartialDates(t *testing.T) {
	svc, _, _, _ := newFixture()

	got, err := svc.UpdatePartial(context.Background(), "E", map[string]string{"startDate": "2026-04-01"}, "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), got.StartDate)

	_, err = svc.UpdatePartial(context.Background(), "E", map[string]string{"endDate": "tomorrow"}, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdatePartialMissingEvent(t *testing.T) {
	svc, _, _, _ := newFixture()
	_, err := svc.UpdatePartial(context.Background(), "nope", map[string]string{"name": "x"}, "")
	assert.ErrorIs(t, err, event.ErrEventNotFound)
}

func TestCreate(t *testing.T) {
	svc, events, _, _ := newFixture()
	f, err := event.ParseFields(map[string]string{
		"name": "Hackathon", "description": "48h", "startDate": "2026-05-01", "endDate": "2026-05-03", "location": "Sfax",
	}, "poster.png")
	require.NoError(t, err)

	e, err := svc.Create(context.Background(), "U2", f, "poster.png")
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "U2", e.UserID)

	stored, err := events.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", stored.Name)
	assert.Equal(t, "poster.png", stored.Image)

	_, err = svc.Create(context.Background(), "", f, "poster.png")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestJoinAndLeave(t *testing.T) {
	svc, _, parts, _ := newFixture()
	ctx := context.Background()

	_, err := svc.Join(ctx, "U4", "E")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "U4", "E")
	assert.ErrorIs(t, err, event.ErrAlreadyJoined)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.Join(ctx, "U4", "missing")
	assert.ErrorIs(t, err, event.ErrEventNotFound)

	require.NoError(t, svc.Leave(ctx, "U4", "E"))
	assert.ErrorIs(t, svc.Leave(ctx, "U4", "E"), event.ErrParticipationNotFound)

	n, _ := parts.CountByEvent(ctx, "E")
	assert.Equal(t, 2, n)
}

func ptr[T any](v T) *T { return &v }
