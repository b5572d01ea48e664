package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crewlog/internal/queue"
	"crewlog/internal/roster"
	"crewlog/pkg/logger"
)

// SubmissionMessage is the queue message type published for confirmed records.
const SubmissionMessage = "submission"

const (
	draftKey   = "form_draft"
	pendingKey = "form_pending"
)

var (
	ErrNoDraft       = errors.New("form not opened")
	ErrNoPending     = errors.New("no submission awaiting confirmation")
	ErrUnknownCrewID = errors.New("crew member not found")
)

// Store is the per-device key/value slot the form state lives in.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Sink receives confirmed records.
type Sink interface {
	Save(ctx context.Context, rec Record) (Record, error)
}

// Publisher announces confirmed records to background workers.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// DraftMember is one crew toggle on the open form.
type DraftMember struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Presence Presence `json:"presence"`
}

// Draft is the open form: the load-time timestamp and the crew toggles.
type Draft struct {
	CapturedAt time.Time     `json:"captured_at"`
	Crew       []DraftMember `json:"crew"`
}

// Attendance converts the toggles into the validator's input shape.
func (d Draft) Attendance() CrewAttendance {
	att := make(CrewAttendance, len(d.Crew))
	for _, m := range d.Crew {
		att[m.Name] = m.Presence
	}
	return att
}

// FormService runs the crew form: open, toggle, submit, confirm.
type FormService struct {
	crew      []roster.CrewMember
	validator *Validator
	sink      Sink
	publisher Publisher
	now       func() time.Time
	loc       *time.Location
	logger    *zap.Logger
}

// NewFormService wires the form workflow. A nil publisher skips queue announcements.
// Timestamps and the draft's calendar day are taken in loc.
func NewFormService(crew []roster.CrewMember, sink Sink, publisher Publisher, now func() time.Time, loc *time.Location, log *zap.Logger) *FormService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &FormService{
		crew:      append([]roster.CrewMember(nil), crew...),
		validator: NewValidator(crew),
		sink:      sink,
		publisher: publisher,
		now:       now,
		loc:       loc,
		logger:    logger.Or(log).With(zap.String(logger.FieldOperation, "form")),
	}
}

// Open returns the current draft, creating one with every member Absent
// and the timestamp captured now if none exists for today.
func (s *FormService) Open(ctx context.Context, st Store) (Draft, error) {
	d, ok, err := s.loadDraft(ctx, st)
	if err != nil || ok {
		return d, err
	}

	d = Draft{CapturedAt: s.now().In(s.loc), Crew: make([]DraftMember, 0, len(s.crew))}
	for _, m := range s.crew {
		d.Crew = append(d.Crew, DraftMember{ID: m.ID, Name: m.Name, Presence: Absent})
	}
	if err := saveJSON(ctx, st, draftKey, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Toggle flips one crew member on the draft.
func (s *FormService) Toggle(ctx context.Context, st Store, crewID int) (Draft, error) {
	d, err := s.Open(ctx, st)
	if err != nil {
		return Draft{}, err
	}
	found := false
	for i := range d.Crew {
		if d.Crew[i].ID == crewID {
			d.Crew[i].Presence = d.Crew[i].Presence.Toggle()
			found = true
			break
		}
	}
	if !found {
		return Draft{}, fmt.Errorf("%w: %d", ErrUnknownCrewID, crewID)
	}
	if err := saveJSON(ctx, st, draftKey, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Submit validates the draft and parks the record until the driver confirms it.
// The record keeps the timestamp captured when the form was opened.
func (s *FormService) Submit(ctx context.Context, st Store, driver Driver, plate string, aux *AuxiliaryInput) (Record, error) {
	d, ok, err := s.loadDraft(ctx, st)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrNoDraft
	}

	rec, err := s.validator.Validate(FormInput{
		CapturedAt:     d.CapturedAt.In(s.loc),
		Driver:         driver,
		Plate:          plate,
		CrewAttendance: d.Attendance(),
		Auxiliary:      aux,
	})
	if err != nil {
		return Record{}, err
	}
	if err := saveJSON(ctx, st, pendingKey, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Confirm hands the pending record to the sink and resets the form.
// When the sink fails the pending record stays in place for a retry.
func (s *FormService) Confirm(ctx context.Context, st Store) (Record, error) {
	var pending Record
	ok, err := loadJSON(ctx, st, pendingKey, &pending)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrNoPending
	}

	saved, err := s.sink.Save(ctx, pending)
	if err != nil {
		return Record{}, fmt.Errorf("failed to save attendance record: %w", err)
	}

	log := s.logger.With(zap.String(logger.FieldRecordID, saved.ID), zap.String(logger.FieldRUT, saved.Driver.RUT))
	for _, key := range []string{pendingKey, draftKey} {
		if err := st.Remove(ctx, key); err != nil {
			log.Warn("failed to clear form state", zap.String("key", key), zap.Error(err))
		}
	}

	if s.publisher != nil {
		msg := queue.Message{Type: SubmissionMessage, Body: []byte(saved.ID)}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			log.Warn("queue publish failed", zap.Error(err))
		}
	}
	log.Info("attendance record confirmed", zap.String(logger.FieldPlate, saved.Plate))
	return saved, nil
}

// Cancel drops the record awaiting confirmation and keeps the draft.
func (s *FormService) Cancel(ctx context.Context, st Store) error {
	return st.Remove(ctx, pendingKey)
}

// Reset discards the draft and any record awaiting confirmation. It runs
// whenever the device changes hands.
func (s *FormService) Reset(ctx context.Context, st Store) error {
	for _, key := range []string{pendingKey, draftKey} {
		if err := st.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	return nil
}

// loadDraft reads today's draft. A draft opened on an earlier day is
// discarded along with its pending record.
func (s *FormService) loadDraft(ctx context.Context, st Store) (Draft, bool, error) {
	var d Draft
	ok, err := loadJSON(ctx, st, draftKey, &d)
	if err != nil || !ok {
		return d, ok, err
	}
	if !sameDay(d.CapturedAt.In(s.loc), s.now().In(s.loc)) {
		if err := s.Reset(ctx, st); err != nil {
			return Draft{}, false, err
		}
		return Draft{}, false, nil
	}
	return d, true, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func loadJSON(ctx context.Context, st Store, key string, v any) (bool, error) {
	raw, ok, err := st.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func saveJSON(ctx context.Context, st Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := st.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
