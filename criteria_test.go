package tably

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	records []Record
	err     error
	calls   []QueryParams
}

func (l *stubLoader) load(_ context.Context, params QueryParams) ([]Record, error) {
	l.calls = append(l.calls, params)
	return l.records, l.err
}

func Test_QueryParams_Values(t *testing.T) {
	t.Run("no criteria means no parameters", func(t *testing.T) {
		assert.Empty(t, QueryParams{}.Values())
	})

	t.Run("sort encodes field and direction", func(t *testing.T) {
		p := QueryParams{Sort: &SortSpec{FieldID: 7, Direction: Descending}}
		v := p.Values()

		assert.Equal(t, "7", v.Get("sort_by_field_id"))
		assert.Equal(t, "desc", v.Get("sort_direction"))
		assert.Empty(t, v.Get("filter_by_field_id"))
	})

	t.Run("filter encodes field and value", func(t *testing.T) {
		p := QueryParams{Filter: &FilterSpec{FieldID: 3, Value: "urgent"}}
		v := p.Values()

		assert.Equal(t, "3", v.Get("filter_by_field_id"))
		assert.Equal(t, "urgent", v.Get("filter_value"))
	})
}

func Test_SortFilter_SetSort(t *testing.T) {
	t.Run("installs the spec and reloads", func(t *testing.T) {
		store := NewRecordStore(nil)
		loader := &stubLoader{records: []Record{seedRecord(1)}}
		sf := NewSortFilter(store, loader.load, nil)

		require.NoError(t, sf.SetSort(context.Background(), 7, Descending))

		require.Len(t, loader.calls, 1)
		require.NotNil(t, loader.calls[0].Sort)
		assert.Equal(t, int64(7), loader.calls[0].Sort.FieldID)
		assert.Equal(t, Descending, loader.calls[0].Sort.Direction)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("unknown direction falls back to ascending", func(t *testing.T) {
		sf := NewSortFilter(NewRecordStore(nil), (&stubLoader{}).load, nil)
		require.NoError(t, sf.SetSort(context.Background(), 7, Direction("sideways")))

		require.NotNil(t, sf.Params().Sort)
		assert.Equal(t, Ascending, sf.Params().Sort.Direction)
	})

	t.Run("zero field id clears the sort", func(t *testing.T) {
		loader := &stubLoader{}
		sf := NewSortFilter(NewRecordStore(nil), loader.load, nil)

		require.NoError(t, sf.SetSort(context.Background(), 7, Ascending))
		require.NoError(t, sf.SetSort(context.Background(), 0, Ascending))

		assert.Nil(t, sf.Params().Sort)
		require.Len(t, loader.calls, 2)
		assert.Nil(t, loader.calls[1].Sort)
	})
}

func Test_SortFilter_SetFilter(t *testing.T) {
	t.Run("installs and clears", func(t *testing.T) {
		loader := &stubLoader{}
		sf := NewSortFilter(NewRecordStore(nil), loader.load, nil)

		require.NoError(t, sf.SetFilter(context.Background(), 3, "urgent"))
		require.NotNil(t, sf.Params().Filter)
		assert.Equal(t, "urgent", sf.Params().Filter.Value)

		require.NoError(t, sf.SetFilter(context.Background(), 3, ""))
		assert.Nil(t, sf.Params().Filter)
	})

	t.Run("sort and filter combine in one query", func(t *testing.T) {
		loader := &stubLoader{}
		sf := NewSortFilter(NewRecordStore(nil), loader.load, nil)

		require.NoError(t, sf.SetSort(context.Background(), 7, Ascending))
		require.NoError(t, sf.SetFilter(context.Background(), 3, "urgent"))

		last := loader.calls[len(loader.calls)-1]
		require.NotNil(t, last.Sort)
		require.NotNil(t, last.Filter)
	})
}

func Test_SortFilter_Reload(t *testing.T) {
	t.Run("failed fetch leaves the store untouched", func(t *testing.T) {
		store := NewRecordStore(nil)
		store.ReplaceAll([]Record{seedRecord(1), seedRecord(2)})

		loader := &stubLoader{err: errors.New("boom")}
		sf := NewSortFilter(store, loader.load, nil)

		err := sf.Reload(context.Background())
		require.Error(t, err)
		assert.Equal(t, []int64{1, 2}, recordIDs(store.All()))
	})

	t.Run("successful fetch replaces wholesale", func(t *testing.T) {
		store := NewRecordStore(nil)
		store.ReplaceAll([]Record{seedRecord(1)})

		loader := &stubLoader{records: []Record{seedRecord(8), seedRecord(9)}}
		sf := NewSortFilter(store, loader.load, nil)

		require.NoError(t, sf.Reload(context.Background()))
		assert.Equal(t, []int64{8, 9}, recordIDs(store.All()))
	})
}
