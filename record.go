package tably

import (
	"encoding/json"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

// RecordValue is one field's stored value. Exactly one typed slot is
// populated; a value with no populated slot means "no value for this
// field".
type RecordValue struct {
	FieldID    int64           `json:"field_id"`
	Text       *string         `json:"value_text,omitempty"`
	Number     *float64        `json:"value_number,omitempty"`
	Boolean    *bool           `json:"value_boolean,omitempty"`
	Datetime   *time.Time      `json:"value_datetime,omitempty"`
	Structured json.RawMessage `json:"value_json,omitempty"`
}

func (rv *RecordValue) Empty() bool {
	return rv.Text == nil &&
		rv.Number == nil &&
		rv.Boolean == nil &&
		rv.Datetime == nil &&
		len(rv.Structured) == 0
}

// Slot reports which typed slot is populated.
func (rv *RecordValue) Slot() Slot {
	switch {
	case rv.Text != nil:
		return SlotText
	case rv.Number != nil:
		return SlotNumber
	case rv.Boolean != nil:
		return SlotBoolean
	case rv.Datetime != nil:
		return SlotDatetime
	case len(rv.Structured) > 0:
		return SlotStructured
	}

	return SlotNone
}

// Record is one row. Values hold at most one RecordValue per field id.
type Record struct {
	ID     int64         `json:"id"`
	Values []RecordValue `json:"values"`
}

// Value returns the record's value for the field, or nil when the
// record has none.
func (r *Record) Value(fieldID int64) *RecordValue {
	for i := range r.Values {
		if r.Values[i].FieldID == fieldID {
			return &r.Values[i]
		}
	}

	return nil
}

// validate enforces the no-duplicate-field invariant.
func (r *Record) validate() error {
	seen := make(map[int64]struct{}, len(r.Values))
	for i := range r.Values {
		id := r.Values[i].FieldID
		if _, ok := seen[id]; ok {
			return errors.Wrapf(ErrDuplicateFieldValue, "record %d field %d", r.ID, id)
		}
		seen[id] = struct{}{}
	}

	return nil
}

func (r *Record) clone() Record {
	var cp Record
	if err := copier.CopyWithOption(&cp, r, copier.Option{DeepCopy: true}); err != nil {
		panic("could not copy record: " + err.Error())
	}

	return cp
}

// fingerprint hashes the serialized record. Two records with the same
// fingerprint are treated as identical by the store.
func (r *Record) fingerprint() uint64 {
	b, err := json.Marshal(r)
	if err != nil {
		return 0
	}

	return xxhash.Sum64(b)
}

// nativeValue extracts the value a record holds for the field in the
// shape the update payload expects for that field's slot.
func nativeValue(f Field, rv *RecordValue) interface{} {
	if rv == nil || rv.Empty() {
		return nil
	}

	switch f.Type.Slot() {
	case SlotText:
		if rv.Text == nil {
			return nil
		}
		return *rv.Text
	case SlotNumber:
		if rv.Number == nil {
			return nil
		}
		return *rv.Number
	case SlotBoolean:
		if rv.Boolean == nil {
			return nil
		}
		return *rv.Boolean
	case SlotDatetime:
		if rv.Datetime == nil {
			return nil
		}
		return rv.Datetime.Format(time.RFC3339)
	case SlotStructured:
		if len(rv.Structured) == 0 {
			return nil
		}
		return json.RawMessage(rv.Structured)
	case SlotNone:
	}

	return nil
}
