package tably

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Session is the engine for one open table: the canonical record
// store, the sort/filter criteria, the realtime channel, and the edit
// paths. Its lifetime is scoped to the current table — switching
// tables discards the store wholesale and reloads.
type Session struct {
	svc    RecordService
	store  *RecordStore
	sf     *SortFilter
	rt     *Reconciler
	log    *slog.Logger
	notice func(string)

	mu      sync.RWMutex
	tableID int64
	fields  []Field
	views   []View

	// per-section error values; a failed fetch never propagates
	// globally and retry is caller-initiated
	errFields  error
	errRecords error
	errViews   error
}

func NewSession(svc RecordService, cfg Config) (*Session, error) {
	if svc == nil {
		return nil, errors.New("record service is required")
	}

	cfg.setDefaults()

	s := &Session{
		svc:    svc,
		store:  NewRecordStore(cfg.Logger),
		log:    cfg.Logger,
		notice: cfg.Notice,
	}

	s.sf = NewSortFilter(s.store, s.loadRecords, cfg.Logger)
	s.rt = NewReconciler(s.store, cfg.Transport, cfg.Logger)

	return s, nil
}

func (s *Session) loadRecords(ctx context.Context, params QueryParams) ([]Record, error) {
	s.mu.RLock()
	tableID := s.tableID
	s.mu.RUnlock()

	if tableID == 0 {
		return nil, ErrNoOpenTable
	}

	records, err := s.svc.ListRecords(ctx, tableID, params)

	s.mu.Lock()
	s.errRecords = err
	s.mu.Unlock()

	return records, err
}

// OpenTable makes the table current: the previous realtime channel is
// closed, the store is discarded and refetched, and a fresh channel
// opens. Fields, records and views are loaded independently; each
// failure is captured in its own error slot.
func (s *Session) OpenTable(ctx context.Context, tableID int64) error {
	if err := s.rt.Close(); err != nil && !errors.Is(err, ErrChannelClosed) {
		s.log.Warn("could not close previous realtime channel", "err", err)
	}

	s.mu.Lock()
	s.tableID = tableID
	s.fields = nil
	s.views = nil
	s.errFields = nil
	s.errRecords = nil
	s.errViews = nil
	s.mu.Unlock()

	s.store.ReplaceAll(nil)

	fields, err := s.svc.ListFields(ctx, tableID)
	s.mu.Lock()
	s.fields = fields
	s.errFields = err
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("could not load fields", "table_id", tableID, "err", err)
	}

	if err := s.sf.Reload(ctx); err != nil {
		s.log.Warn("could not load records", "table_id", tableID, "err", err)
	}

	views, err := s.svc.ListViews(ctx, tableID)
	s.mu.Lock()
	s.views = views
	s.errViews = err
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("could not load views", "table_id", tableID, "err", err)
	}

	if err := s.rt.Open(ctx, tableID); err != nil {
		s.log.Warn("could not open realtime channel", "table_id", tableID, "err", err)
		return err
	}

	return nil
}

// Close shuts the realtime channel and clears the open table.
func (s *Session) Close() error {
	err := s.rt.Close()

	s.mu.Lock()
	s.tableID = 0
	s.fields = nil
	s.views = nil
	s.mu.Unlock()

	s.store.ReplaceAll(nil)

	if err != nil && !errors.Is(err, ErrChannelClosed) {
		return err
	}

	return nil
}

func (s *Session) TableID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tableID
}

func (s *Session) Store() *RecordStore {
	return s.store
}

func (s *Session) Channel() *Reconciler {
	return s.rt
}

func (s *Session) Fields() []Field {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Field, len(s.fields))
	copy(out, s.fields)

	return out
}

func (s *Session) Views() []View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]View, len(s.views))
	copy(out, s.views)

	return out
}

// Errors returns the per-section error slots: fields, records, views.
func (s *Session) Errors() (fields, records, views error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.errFields, s.errRecords, s.errViews
}

func (s *Session) SetSort(ctx context.Context, fieldID int64, direction Direction) error {
	return s.sf.SetSort(ctx, fieldID, direction)
}

func (s *Session) SetFilter(ctx context.Context, fieldID int64, value string) error {
	return s.sf.SetFilter(ctx, fieldID, value)
}

func (s *Session) Params() QueryParams {
	return s.sf.Params()
}

// ApplyView applies a persisted view's criteria: the first sort and
// the first filter when present, clearing either when the view has
// none. The single-criterion model is a product simplification.
func (s *Session) ApplyView(ctx context.Context, cfg ViewConfig) error {
	if len(cfg.Sorts) > 0 {
		first := cfg.Sorts[0]
		if err := s.SetSort(ctx, first.FieldID, first.Direction); err != nil {
			return err
		}
	} else if err := s.SetSort(ctx, 0, Ascending); err != nil {
		return err
	}

	if len(cfg.Filters) > 0 {
		first := cfg.Filters[0]
		return s.SetFilter(ctx, first.FieldID, first.Value)
	}

	return s.SetFilter(ctx, 0, "")
}

func (s *Session) field(fieldID int64) (Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.fields {
		if f.ID == fieldID {
			return f, nil
		}
	}

	return Field{}, errors.Wrapf(ErrFieldNotFound, "field %d", fieldID)
}

// UpdateValue is the inline-edit path: the raw edit string is coerced
// to the field's slot, folded into the record's complete value set,
// and shipped as one whole-record update. The server's record replaces
// the local one.
func (s *Session) UpdateValue(ctx context.Context, recordID, fieldID int64, raw string) error {
	f, err := s.field(fieldID)
	if err != nil {
		return err
	}

	rec, ok := s.store.Get(recordID)
	if !ok {
		return errors.Wrapf(ErrRecordNotFound, "record %d", recordID)
	}

	coerced, err := Coerce(f, raw)
	if err != nil {
		return err
	}

	payload := FullPayload(rec, s.Fields())
	payload.Set(fieldID, nativeValue(f, &coerced))

	updated, err := s.svc.UpdateRecord(ctx, recordID, payload)
	if err != nil {
		s.mu.Lock()
		s.errRecords = err
		s.mu.Unlock()
		return err
	}

	s.store.Upsert(updated)
	return nil
}

// CreateRecord coerces one raw edit string per field and posts the new
// record. The created record is appended to the store.
func (s *Session) CreateRecord(ctx context.Context, values map[int64]string) (Record, error) {
	s.mu.RLock()
	tableID := s.tableID
	s.mu.RUnlock()

	if tableID == 0 {
		return Record{}, ErrNoOpenTable
	}

	payload := NewUpdatePayload()
	for fieldID, raw := range values {
		f, err := s.field(fieldID)
		if err != nil {
			return Record{}, err
		}

		coerced, err := Coerce(f, raw)
		if err != nil {
			return Record{}, err
		}

		payload.Set(fieldID, nativeValue(f, &coerced))
	}

	created, err := s.svc.CreateRecord(ctx, tableID, payload)
	if err != nil {
		s.mu.Lock()
		s.errRecords = err
		s.mu.Unlock()
		return Record{}, err
	}

	s.store.Upsert(created)
	return created, nil
}

func (s *Session) DeleteRecord(ctx context.Context, recordID int64) error {
	if err := s.svc.DeleteRecord(ctx, recordID); err != nil {
		s.mu.Lock()
		s.errRecords = err
		s.mu.Unlock()
		return err
	}

	s.store.Remove(recordID)
	return nil
}

// MoveEvent is the calendar drag path: the start field is updated and,
// when an end field is configured, the end field is either moved with
// the event or explicitly cleared when the drag collapsed a multi-day
// event to a single day.
func (s *Session) MoveEvent(ctx context.Context, cfg ViewConfig, recordID int64, newStart time.Time, newEnd *time.Time) error {
	startField, err := s.field(cfg.DateFieldID)
	if err != nil {
		return err
	}

	rec, ok := s.store.Get(recordID)
	if !ok {
		return errors.Wrapf(ErrRecordNotFound, "record %d", recordID)
	}

	payload := FullPayload(rec, s.Fields())

	start := RecordValue{FieldID: startField.ID, Datetime: &newStart}
	payload.Set(startField.ID, nativeValue(startField, &start))

	if cfg.EndDateFieldID != 0 {
		endField, err := s.field(cfg.EndDateFieldID)
		if err != nil {
			return err
		}

		if newEnd != nil {
			end := RecordValue{FieldID: endField.ID, Datetime: newEnd}
			payload.Set(endField.ID, nativeValue(endField, &end))
		} else {
			payload.Set(endField.ID, nil)
		}
	}

	updated, err := s.svc.UpdateRecord(ctx, recordID, payload)
	if err != nil {
		s.mu.Lock()
		s.errRecords = err
		s.mu.Unlock()
		return err
	}

	s.store.Upsert(updated)
	return nil
}

// Grid, Kanban, Calendar and Gallery project the current store
// snapshot; they re-derive from scratch on every call.

func (s *Session) Grid(cfg ViewConfig) (*GridModel, error) {
	return ProjectGrid(s.store.All(), s.Fields(), cfg)
}

func (s *Session) Kanban(cfg ViewConfig) (*KanbanBoard, error) {
	return ProjectKanban(s.store.All(), s.Fields(), cfg)
}

func (s *Session) Calendar(cfg ViewConfig) (*CalendarModel, error) {
	return ProjectCalendar(s.store.All(), s.Fields(), cfg)
}

func (s *Session) Gallery(cfg ViewConfig) (*GalleryModel, error) {
	return ProjectGallery(s.store.All(), s.Fields(), cfg)
}

// Board projects the kanban view and wraps it in a drag reconciler
// sharing this session's store and service.
func (s *Session) Board(cfg ViewConfig) (*KanbanDrag, error) {
	board, err := s.Kanban(cfg)
	if err != nil {
		return nil, err
	}

	return NewKanbanDrag(board, s.Fields(), s.store, s.svc, s.log, s.notice), nil
}
