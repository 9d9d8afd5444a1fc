package tably

import (
	"log/slog"
	"sync"

	"github.com/tidwall/btree"
)

type ChangeKind uint8

const (
	ChangeReload ChangeKind = iota + 1
	ChangeUpsert
	ChangeRemove
)

func (ck ChangeKind) String() string {
	switch ck {
	case ChangeReload:
		return "reload"
	case ChangeUpsert:
		return "upsert"
	case ChangeRemove:
		return "remove"
	}

	return "invalid"
}

// Change describes a single store mutation. RecordID is zero for a
// full reload.
type Change struct {
	Kind     ChangeKind
	RecordID int64
}

type storedRecord struct {
	seq uint64
	fp  uint64
	rec Record
}

func bySequence(a, b interface{}) bool {
	i1, i2 := a.(*storedRecord), b.(*storedRecord)
	return i1.seq < i2.seq
}

const storedCastPanic = "how could the ordered index hold anything but *storedRecord"

// RecordStore is the canonical cache of all records for the currently
// open table. Every mutation is whole-record; there is no field-level
// patch operation, matching the wire contract. Mutations notify all
// current subscribers synchronously before returning, so a re-render
// triggered by a notification always sees the post-mutation state.
type RecordStore struct {
	mu      sync.RWMutex
	seq     uint64
	ord     *btree.BTree
	byID    map[int64]*storedRecord
	subs    map[int]func(Change)
	nextSub int
	log     *slog.Logger
}

func NewRecordStore(log *slog.Logger) *RecordStore {
	if log == nil {
		log = slog.Default()
	}

	return &RecordStore{
		ord:  btree.NewNonConcurrent(bySequence),
		byID: make(map[int64]*storedRecord),
		subs: make(map[int]func(Change)),
		log:  log,
	}
}

// Subscribe registers a change listener and returns its unsubscribe
// func. Listeners run synchronously inside the mutating call.
func (s *RecordStore) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *RecordStore) notify(c Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// ReplaceAll discards the store contents and installs records in the
// given order. Used on table open and after every sort/filter change.
func (s *RecordStore) ReplaceAll(records []Record) {
	s.mu.Lock()
	s.ord = btree.NewNonConcurrent(bySequence)
	s.byID = make(map[int64]*storedRecord, len(records))
	s.seq = 0

	for i := range records {
		rec := records[i].clone()
		if existing, ok := s.byID[rec.ID]; ok {
			// duplicate id in the page: last one wins, position kept
			existing.rec = rec
			existing.fp = rec.fingerprint()
			continue
		}

		s.seq++
		sr := &storedRecord{seq: s.seq, fp: rec.fingerprint(), rec: rec}
		s.byID[rec.ID] = sr
		s.ord.Set(sr)
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReload})
}

// Upsert creates the record or replaces the prior record wholesale.
// A replace keeps the record's insertion position. Replaying a
// byte-identical record is a no-op and does not notify.
func (s *RecordStore) Upsert(rec Record) {
	cp := rec.clone()
	fp := cp.fingerprint()

	s.mu.Lock()
	if existing, ok := s.byID[cp.ID]; ok {
		if existing.fp == fp {
			s.mu.Unlock()
			return
		}

		existing.rec = cp
		existing.fp = fp
		s.mu.Unlock()
		s.notify(Change{Kind: ChangeUpsert, RecordID: cp.ID})
		return
	}

	s.seq++
	sr := &storedRecord{seq: s.seq, fp: fp, rec: cp}
	s.byID[cp.ID] = sr
	s.ord.Set(sr)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeUpsert, RecordID: cp.ID})
}

// Remove deletes the record by id. Removing an absent id is a no-op.
func (s *RecordStore) Remove(id int64) bool {
	s.mu.Lock()
	sr, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	delete(s.byID, id)
	s.ord.Delete(sr)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeRemove, RecordID: id})
	return true
}

// Get returns a copy of the record by id.
func (s *RecordStore) Get(id int64) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}

	return sr.rec.clone(), true
}

// All returns copies of every record in insertion order.
func (s *RecordStore) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.byID))
	s.ord.Ascend(nil, func(item interface{}) bool {
		sr, ok := item.(*storedRecord)
		if !ok {
			panic(storedCastPanic)
		}

		out = append(out, sr.rec.clone())
		return true
	})

	return out
}

func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byID)
}
