package tably

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ProjectCalendar(t *testing.T) {
	due := dateField(1, "Due")
	title := textField(2, "Name")
	fields := []Field{due, title}

	cfg := ViewConfig{DateFieldID: 1, EventTitleFieldID: 2}

	t.Run("one event per record with a resolvable start", func(t *testing.T) {
		records := []Record{
			seedRecord(10, datetimeValue(1, mustTime(dateOnlyLayout, "2024-03-01")), textValue(2, "kickoff")),
			seedRecord(11, textValue(2, "no date")),
			seedRecord(12, datetimeValue(1, mustTime(dateOnlyLayout, "2024-03-05"))),
		}

		cal, err := ProjectCalendar(records, fields, cfg)
		require.NoError(t, err)

		require.Len(t, cal.Events, 2)
		assert.Equal(t, int64(10), cal.Events[0].RecordID)
		assert.Equal(t, "kickoff", cal.Events[0].Title)
		assert.Equal(t, int64(12), cal.Events[1].RecordID)
	})

	t.Run("title falls back to the record id", func(t *testing.T) {
		records := []Record{
			seedRecord(12, datetimeValue(1, mustTime(dateOnlyLayout, "2024-03-05"))),
		}

		cal, err := ProjectCalendar(records, fields, cfg)
		require.NoError(t, err)

		require.Len(t, cal.Events, 1)
		assert.Equal(t, "Record 12", cal.Events[0].Title)
	})

	t.Run("numeric title formats", func(t *testing.T) {
		points := numberField(3, "Points")
		records := []Record{
			seedRecord(10, datetimeValue(1, mustTime(dateOnlyLayout, "2024-03-01")), numberValue(3, 7)),
		}

		cal, err := ProjectCalendar(records, []Field{due, points}, ViewConfig{DateFieldID: 1, EventTitleFieldID: 3})
		require.NoError(t, err)

		require.Len(t, cal.Events, 1)
		assert.Equal(t, "7", cal.Events[0].Title)
	})

	t.Run("textual starts parse when the date field is text typed", func(t *testing.T) {
		textDue := textField(4, "When")
		records := []Record{
			seedRecord(10, textValue(4, "2024-03-01"), textValue(2, "parsed")),
			seedRecord(11, textValue(4, "whenever"), textValue(2, "skipped")),
		}

		cal, err := ProjectCalendar(records, []Field{textDue, title}, ViewConfig{DateFieldID: 4, EventTitleFieldID: 2})
		require.NoError(t, err)

		require.Len(t, cal.Events, 1)
		assert.Equal(t, "parsed", cal.Events[0].Title)
	})

	t.Run("all day when start and end are pure dates", func(t *testing.T) {
		end := dateField(5, "Until")
		records := []Record{
			seedRecord(10,
				datetimeValue(1, mustTime(dateOnlyLayout, "2024-03-01")),
				datetimeValue(5, mustTime(dateOnlyLayout, "2024-03-03")),
				textValue(2, "offsite"),
			),
		}

		cal, err := ProjectCalendar(records, []Field{due, end, title},
			ViewConfig{DateFieldID: 1, EndDateFieldID: 5, EventTitleFieldID: 2})
		require.NoError(t, err)

		require.Len(t, cal.Events, 1)
		assert.True(t, cal.Events[0].AllDay)
		require.NotNil(t, cal.Events[0].End)
		assert.Equal(t, mustTime(dateOnlyLayout, "2024-03-03"), *cal.Events[0].End)
	})

	t.Run("timestamp typed start is never all day", func(t *testing.T) {
		created := Field{ID: 6, Name: "Created", Type: FieldTypeCreatedTime}
		records := []Record{
			seedRecord(10, datetimeValue(6, mustTime(time.RFC3339, "2024-03-01T09:15:00Z")), textValue(2, "standup")),
		}

		cal, err := ProjectCalendar(records, []Field{created, title},
			ViewConfig{DateFieldID: 6, EventTitleFieldID: 2})
		require.NoError(t, err)

		require.Len(t, cal.Events, 1)
		assert.False(t, cal.Events[0].AllDay)
	})

	t.Run("missing configuration is not renderable", func(t *testing.T) {
		_, err := ProjectCalendar(nil, fields, ViewConfig{DateFieldID: 1})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrViewNotRenderable))

		_, err = ProjectCalendar(nil, fields, ViewConfig{DateFieldID: 404, EventTitleFieldID: 2})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrViewNotRenderable))
	})
}
