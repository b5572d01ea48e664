package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crewlog/internal/queue"
	"crewlog/internal/roster"
)

type mapStore struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func newMapStore() *mapStore { return &mapStore{values: map[string]string{}} }

func (s *mapStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func (s *mapStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

type recordingSink struct {
	saved []Record
	err   error
}

func (s *recordingSink) Save(_ context.Context, rec Record) (Record, error) {
	if s.err != nil {
		return Record{}, s.err
	}
	rec.ID = "rec-" + rec.Plate
	rec.Status = StatusPending
	s.saved = append(s.saved, rec)
	return rec, nil
}

type formFixture struct {
	svc   *FormService
	store *mapStore
	sink  *recordingSink
	queue *queue.InMemory
	clock *time.Time
}

func newFormFixture() *formFixture {
	now := time.Date(2024, 10, 12, 9, 40, 5, 0, time.UTC)
	f := &formFixture{store: newMapStore(), sink: &recordingSink{}, queue: queue.NewInMemory(4), clock: &now}
	f.svc = NewFormService(roster.Default().Crew(), f.sink, f.queue, func() time.Time { return *f.clock }, time.UTC, zap.NewNop())
	return f
}

func TestFormService_OpenCreatesDraftOnce(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()

	d, err := f.svc.Open(ctx, f.store)
	require.NoError(t, err)
	require.Len(t, d.Crew, 6)
	for _, m := range d.Crew {
		assert.Equal(t, Absent, m.Presence)
	}
	first := d.CapturedAt

	*f.clock = f.clock.Add(10 * time.Minute)
	d, err = f.svc.Open(ctx, f.store)
	require.NoError(t, err)
	assert.True(t, first.Equal(d.CapturedAt), "reopening must keep the load-time timestamp")
}

func TestFormService_ToggleUnknownID(t *testing.T) {
	f := newFormFixture()
	_, err := f.svc.Toggle(context.Background(), f.store, 99)
	assert.ErrorIs(t, err, ErrUnknownCrewID)
}

func TestFormService_SubmitConfirm(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()

	_, err := f.svc.Open(ctx, f.store)
	require.NoError(t, err)
	*f.clock = f.clock.Add(15 * time.Minute)

	d, err := f.svc.Toggle(ctx, f.store, 3)
	require.NoError(t, err)
	assert.Equal(t, Present, d.Crew[2].Presence)

	rec, err := f.svc.Submit(ctx, f.store, driver(), "ghjk12", nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-12 09:40:05", rec.Timestamp)
	assert.Equal(t, []string{"Osvaldo Ojeda"}, rec.PresentCrew)
	assert.Equal(t, "GHJK12", rec.Plate)
	assert.Empty(t, f.sink.saved, "nothing is saved before confirmation")

	saved, err := f.svc.Confirm(ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, "rec-GHJK12", saved.ID)
	require.Len(t, f.sink.saved, 1)

	cctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	msgs, err := f.queue.Consume(cctx)
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, SubmissionMessage, msg.Type)
	assert.Equal(t, "rec-GHJK12", string(msg.Body))

	_, err = f.svc.Confirm(ctx, f.store)
	assert.ErrorIs(t, err, ErrNoPending)

	d, err = f.svc.Open(ctx, f.store)
	require.NoError(t, err)
	assert.False(t, d.Attendance().AnyPresent(), "confirmation resets the form")
}

func TestFormService_SubmitWithoutDraft(t *testing.T) {
	f := newFormFixture()
	_, err := f.svc.Submit(context.Background(), f.store, driver(), "AB12", nil)
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestFormService_SubmitValidationFails(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()
	_, err := f.svc.Open(ctx, f.store)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.store, driver(), " ", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(PlateRequired))
	assert.True(t, verr.Has(NoCrewPresent))

	_, err = f.svc.Confirm(ctx, f.store)
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestFormService_SinkFailureKeepsPending(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()
	_, err := f.svc.Open(ctx, f.store)
	require.NoError(t, err)
	_, err = f.svc.Toggle(ctx, f.store, 1)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.store, driver(), "AB12", nil)
	require.NoError(t, err)

	f.sink.err = errors.New("db down")
	_, err = f.svc.Confirm(ctx, f.store)
	require.Error(t, err)

	f.sink.err = nil
	saved, err := f.svc.Confirm(ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, []string{"Daniel Alvaro Delgado"}, saved.PresentCrew)
}

func TestFormService_Cancel(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()
	_, err := f.svc.Open(ctx, f.store)
	require.NoError(t, err)
	_, err = f.svc.Toggle(ctx, f.store, 2)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.store, driver(), "AB12", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, f.store))
	_, err = f.svc.Confirm(ctx, f.store)
	assert.ErrorIs(t, err, ErrNoPending)

	d, err := f.svc.Open(ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, Present, d.Crew[1].Presence, "cancel keeps the draft")
}

func TestFormService_StoreErrorsSurface(t *testing.T) {
	f := newFormFixture()
	f.store.setErr = errors.New("redis unavailable")
	_, err := f.svc.Open(context.Background(), f.store)
	assert.ErrorContains(t, err, "redis unavailable")
}

func confirmOnce(t *testing.T, f *formFixture, crewID int) Record {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Toggle(ctx, f.store, crewID)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.store, driver(), "AB12", nil)
	require.NoError(t, err)
	saved, err := f.svc.Confirm(ctx, f.store)
	require.NoError(t, err)
	return saved
}

func TestFormService_ConfirmOutlivesFullQueue(t *testing.T) {
	f := newFormFixture()
	for i := 0; i < 10; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			confirmOnce(t, f, 1)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("confirmation %d blocked", i+1)
		}
	}
	assert.Len(t, f.sink.saved, 10)
}

func TestFormService_TimestampInLocation(t *testing.T) {
	santiago, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)
	now := time.Date(2024, 10, 12, 13, 5, 0, 0, time.UTC)
	f := newFormFixture()
	f.svc = NewFormService(roster.Default().Crew(), f.sink, nil, func() time.Time { return now }, santiago, zap.NewNop())
	ctx := context.Background()

	d, err := f.svc.Open(ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-12 10:05:00", d.CapturedAt.In(santiago).Format(TimestampLayout))

	rec := confirmOnce(t, f, 2)
	assert.Equal(t, "2024-10-12 10:05:00", rec.Timestamp)
}

func TestFormService_Reset(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()
	_, err := f.svc.Toggle(ctx, f.store, 3)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.store, driver(), "AB12", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Reset(ctx, f.store))
	assert.Empty(t, f.store.values)
	_, err = f.svc.Confirm(ctx, f.store)
	assert.ErrorIs(t, err, ErrNoPending)
	_, err = f.svc.Submit(ctx, f.store, driver(), "AB12", nil)
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestFormService_DraftFromEarlierDayDiscarded(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()
	_, err := f.svc.Toggle(ctx, f.store, 3)
	require.NoError(t, err)

	*f.clock = f.clock.Add(24 * time.Hour)
	_, err = f.svc.Submit(ctx, f.store, driver(), "AB12", nil)
	assert.ErrorIs(t, err, ErrNoDraft)

	d, err := f.svc.Open(ctx, f.store)
	require.NoError(t, err)
	assert.False(t, d.Attendance().AnyPresent())
	assert.True(t, f.clock.Equal(d.CapturedAt))
}

func TestLogSink_Save(t *testing.T) {
	sink := NewLogSink(zap.NewNop())
	sink.now = func() time.Time { return time.Date(2024, 10, 12, 12, 0, 0, 0, time.FixedZone("CLT", -3*3600)) }

	rec, err := sink.Save(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.NotEqual(t, "rec-1", rec.ID)
	assert.Len(t, rec.ID, 36)
	assert.Equal(t, StatusPending, rec.Status)
	require.NotNil(t, rec.CreatedAt)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.Equal(t, 15, rec.CreatedAt.Hour())
}
