package tably

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordIDs(records []Record) []int64 {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func Test_RecordStore_ReplaceAll(t *testing.T) {
	t.Run("installs records in the given order", func(t *testing.T) {
		s := NewRecordStore(nil)
		s.ReplaceAll([]Record{seedRecord(3), seedRecord(1), seedRecord(2)})

		assert.Equal(t, []int64{3, 1, 2}, recordIDs(s.All()))
		assert.Equal(t, 3, s.Len())
	})

	t.Run("discards prior contents", func(t *testing.T) {
		s := NewRecordStore(nil)
		s.ReplaceAll([]Record{seedRecord(1), seedRecord(2)})
		s.ReplaceAll([]Record{seedRecord(9)})

		assert.Equal(t, []int64{9}, recordIDs(s.All()))
	})

	t.Run("duplicate id in the page: last wins, position kept", func(t *testing.T) {
		s := NewRecordStore(nil)
		s.ReplaceAll([]Record{
			seedRecord(1, textValue(1, "first")),
			seedRecord(2),
			seedRecord(1, textValue(1, "second")),
		})

		assert.Equal(t, []int64{1, 2}, recordIDs(s.All()))

		rec, ok := s.Get(1)
		require.True(t, ok)
		assert.Equal(t, "second", *rec.Value(1).Text)
	})

	t.Run("notifies a reload", func(t *testing.T) {
		s := NewRecordStore(nil)

		var got []Change
		s.Subscribe(func(c Change) { got = append(got, c) })

		s.ReplaceAll([]Record{seedRecord(1)})

		require.Len(t, got, 1)
		assert.Equal(t, ChangeReload, got[0].Kind)
		assert.Zero(t, got[0].RecordID)
	})
}

func Test_RecordStore_Upsert(t *testing.T) {
	t.Run("insert appends", func(t *testing.T) {
		s := NewRecordStore(nil)
		s.ReplaceAll([]Record{seedRecord(1), seedRecord(2)})
		s.Upsert(seedRecord(3))

		assert.Equal(t, []int64{1, 2, 3}, recordIDs(s.All()))
	})

	t.Run("replace keeps insertion position", func(t *testing.T) {
		s := NewRecordStore(nil)
		s.ReplaceAll([]Record{seedRecord(1), seedRecord(2), seedRecord(3)})
		s.Upsert(seedRecord(2, textValue(1, "changed")))

		assert.Equal(t, []int64{1, 2, 3}, recordIDs(s.All()))

		rec, ok := s.Get(2)
		require.True(t, ok)
		assert.Equal(t, "changed", *rec.Value(1).Text)
	})

	t.Run("identical replay is silent", func(t *testing.T) {
		s := NewRecordStore(nil)
		rec := seedRecord(1, textValue(1, "same"))
		s.Upsert(rec)

		var notified int
		s.Subscribe(func(Change) { notified++ })

		s.Upsert(seedRecord(1, textValue(1, "same")))
		assert.Zero(t, notified)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("subscriber observes post mutation state", func(t *testing.T) {
		s := NewRecordStore(nil)

		var seen string
		s.Subscribe(func(c Change) {
			rec, ok := s.Get(c.RecordID)
			require.True(t, ok)
			seen = *rec.Value(1).Text
		})

		s.Upsert(seedRecord(1, textValue(1, "visible")))
		assert.Equal(t, "visible", seen)
	})

	t.Run("stored record is isolated from the caller", func(t *testing.T) {
		s := NewRecordStore(nil)
		rec := seedRecord(1, textValue(1, "original"))
		s.Upsert(rec)

		*rec.Values[0].Text = "mutated"

		got, ok := s.Get(1)
		require.True(t, ok)
		assert.Equal(t, "original", *got.Value(1).Text)
	})
}

func Test_RecordStore_Remove(t *testing.T) {
	t.Run("removes and notifies", func(t *testing.T) {
		s := NewRecordStore(nil)
		s.ReplaceAll([]Record{seedRecord(1), seedRecord(2)})

		var got []Change
		s.Subscribe(func(c Change) { got = append(got, c) })

		assert.True(t, s.Remove(1))
		assert.Equal(t, []int64{2}, recordIDs(s.All()))
		require.Len(t, got, 1)
		assert.Equal(t, Change{Kind: ChangeRemove, RecordID: 1}, got[0])
	})

	t.Run("absent id is a silent no-op", func(t *testing.T) {
		s := NewRecordStore(nil)
		s.ReplaceAll([]Record{seedRecord(1)})

		var notified int
		s.Subscribe(func(Change) { notified++ })

		assert.False(t, s.Remove(99))
		assert.Zero(t, notified)
		assert.Equal(t, 1, s.Len())
	})
}

func Test_RecordStore_Subscribe(t *testing.T) {
	s := NewRecordStore(nil)

	var first, second int
	unsubscribe := s.Subscribe(func(Change) { first++ })
	s.Subscribe(func(Change) { second++ })

	s.Upsert(seedRecord(1))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)

	unsubscribe()
	s.Upsert(seedRecord(2))
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}
