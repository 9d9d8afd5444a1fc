package tably

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// ChannelState is the push channel's lifecycle state. Transitions:
// disconnected -> connecting -> open -> (error|closed) -> disconnected.
type ChannelState uint8

const (
	StateDisconnected ChannelState = iota
	StateConnecting
	StateOpen
	StateError
	StateClosed
)

func (cs ChannelState) String() string {
	switch cs {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	}

	return "invalid"
}

const (
	EventRecordCreated = "created"
	EventRecordUpdated = "updated"
	EventRecordDeleted = "deleted"
)

// RealtimeMessage is the push channel's wire shape. created and
// updated carry a full record; deleted carries only the record id.
type RealtimeMessage struct {
	Type     string  `json:"type"`
	TableID  int64   `json:"table_id"`
	Record   *Record `json:"record,omitempty"`
	RecordID int64   `json:"record_id,omitempty"`
}

// MessageSource delivers raw push messages in arrival order. Next
// blocks until a message arrives or the source is closed.
type MessageSource interface {
	Next() ([]byte, error)
	Close() error
}

// Transport opens a push channel scoped to one table. The concrete
// wire mechanics live behind this interface; only the message contract
// above is part of the engine.
type Transport interface {
	Connect(ctx context.Context, tableID int64) (MessageSource, error)
}

// Reconciler merges out-of-band push events into the record store. It
// keeps at most one channel open; opening a channel for a new table
// force-closes the previous one first. Events are applied in arrival
// order with last-applied-wins semantics — there is no version check,
// so an out-of-order duplicate can overwrite a newer local edit. That
// gap is inherited from the wire contract, not corrected here.
type Reconciler struct {
	store *RecordStore
	tr    Transport
	log   *slog.Logger

	mu      sync.Mutex
	state   ChannelState
	tableID int64
	src     MessageSource
	done    chan struct{}
	closing bool
}

func NewReconciler(store *RecordStore, tr Transport, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}

	return &Reconciler{store: store, tr: tr, log: log, state: StateDisconnected}
}

func (r *Reconciler) State() ChannelState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

func (r *Reconciler) TableID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tableID
}

// Open connects the channel for the table and starts applying events.
// Any previously open channel is closed first — never two concurrent
// channels for one client.
func (r *Reconciler) Open(ctx context.Context, tableID int64) error {
	if err := r.Close(); err != nil && !errors.Is(err, ErrChannelClosed) {
		return err
	}

	r.mu.Lock()
	r.state = StateConnecting
	r.tableID = tableID
	r.closing = false
	r.mu.Unlock()

	src, err := r.tr.Connect(ctx, tableID)
	if err != nil {
		r.mu.Lock()
		r.state = StateDisconnected
		r.tableID = 0
		r.mu.Unlock()
		return errors.Wrapf(err, "could not open realtime channel for table %d", tableID)
	}

	done := make(chan struct{})

	r.mu.Lock()
	r.src = src
	r.done = done
	r.state = StateOpen
	r.mu.Unlock()

	r.log.Info("realtime channel open", "table_id", tableID)

	go r.run(src, tableID, done)

	return nil
}

func (r *Reconciler) run(src MessageSource, tableID int64, done chan struct{}) {
	defer close(done)

	for {
		raw, err := src.Next()
		if err != nil {
			r.mu.Lock()
			deliberate := r.closing
			if deliberate {
				r.state = StateClosed
			} else {
				r.state = StateError
			}
			r.src = nil
			r.mu.Unlock()

			if !deliberate {
				r.log.Warn("realtime channel dropped", "table_id", tableID, "err", err)
			}
			return
		}

		r.Apply(raw)
	}
}

// Close transitions an open channel to closed and back to
// disconnected. Closing an already-closed channel returns
// ErrChannelClosed.
func (r *Reconciler) Close() error {
	r.mu.Lock()
	src := r.src
	done := r.done
	if src == nil {
		r.state = StateDisconnected
		r.tableID = 0
		r.mu.Unlock()
		return ErrChannelClosed
	}

	r.closing = true
	r.tableID = 0
	r.mu.Unlock()

	err := src.Close()
	if done != nil {
		<-done
	}

	r.mu.Lock()
	r.state = StateDisconnected
	r.mu.Unlock()

	if err != nil {
		return errors.Wrap(err, "could not close realtime channel")
	}

	return nil
}

// Apply parses one raw push message and merges it into the store.
// Malformed messages and messages scoped to another table are logged
// and dropped; they never terminate the channel.
func (r *Reconciler) Apply(raw []byte) {
	var msg RealtimeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.log.Warn("malformed realtime message dropped", "err", err)
		return
	}

	r.mu.Lock()
	current := r.tableID
	r.mu.Unlock()

	if current != 0 && msg.TableID != current {
		r.log.Warn("realtime message for another table dropped",
			"message_table_id", msg.TableID, "open_table_id", current)
		return
	}

	switch msg.Type {
	case EventRecordCreated, EventRecordUpdated:
		// created is idempotent: a re-delivered id becomes a no-op
		// replace, never a duplicate insert. updated on an absent id
		// is treated as a create.
		if msg.Record == nil {
			r.log.Warn("realtime message without record payload dropped", "type", msg.Type)
			return
		}
		if err := msg.Record.validate(); err != nil {
			r.log.Warn("realtime record payload rejected", "err", err)
			return
		}
		r.store.Upsert(*msg.Record)
	case EventRecordDeleted:
		if msg.RecordID == 0 {
			r.log.Warn("realtime delete without record id dropped")
			return
		}
		r.store.Remove(msg.RecordID)
	default:
		r.log.Warn("realtime message with unknown type dropped", "type", msg.Type)
	}
}
