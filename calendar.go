package tably

import (
	"fmt"
	"strconv"
	"time"
)

type CalendarEvent struct {
	RecordID int64
	Title    string
	Start    time.Time
	End      *time.Time
	AllDay   bool
}

// CalendarModel holds exactly the records whose start value resolved
// to a non-empty time. Records with an empty start never appear.
type CalendarModel struct {
	DateField  Field
	TitleField Field
	Events     []CalendarEvent
}

// eventTime resolves a value into a point in time, falling back from
// the datetime slot to a parseable text value.
func eventTime(rv *RecordValue) (time.Time, bool) {
	if rv == nil {
		return time.Time{}, false
	}

	if rv.Datetime != nil {
		return *rv.Datetime, true
	}

	if rv.Text != nil {
		return parseEditedTime(*rv.Text)
	}

	return time.Time{}, false
}

func eventTitle(f Field, rv *RecordValue, recordID int64) string {
	if rv != nil {
		switch {
		case rv.Text != nil && *rv.Text != "":
			return *rv.Text
		case rv.Number != nil:
			return strconv.FormatFloat(*rv.Number, 'f', -1, 64)
		case len(rv.Structured) > 0:
			return string(rv.Structured)
		}
	}

	return fmt.Sprintf("Record %d", recordID)
}

// ProjectCalendar derives the calendar render model. An event is all
// day iff the date field is a pure date type and either no end field
// is configured or the end field is a pure date type too.
func ProjectCalendar(records []Record, fields []Field, cfg ViewConfig) (*CalendarModel, error) {
	if cfg.DateFieldID == 0 || cfg.EventTitleFieldID == 0 {
		return nil, notRenderable("calendar view requires date_field_id and event_title_field_id")
	}

	byID := fieldIndex(fields)

	dateField, ok := byID[cfg.DateFieldID]
	if !ok {
		return nil, notRenderable(fmt.Sprintf("date field %d is invalid or not found", cfg.DateFieldID))
	}

	titleField, ok := byID[cfg.EventTitleFieldID]
	if !ok {
		return nil, notRenderable(fmt.Sprintf("title field %d is invalid or not found", cfg.EventTitleFieldID))
	}

	var endField *Field
	if cfg.EndDateFieldID != 0 {
		if f, found := byID[cfg.EndDateFieldID]; found {
			endField = &f
		}
	}

	allDay := dateField.Type.pureDate() && (endField == nil || endField.Type.pureDate())

	model := &CalendarModel{DateField: dateField, TitleField: titleField}

	for i := range records {
		rec := &records[i]

		start, found := eventTime(rec.Value(dateField.ID))
		if !found {
			continue
		}

		ev := CalendarEvent{
			RecordID: rec.ID,
			Title:    eventTitle(titleField, rec.Value(titleField.ID), rec.ID),
			Start:    start,
			AllDay:   allDay,
		}

		if endField != nil {
			if end, ok := eventTime(rec.Value(endField.ID)); ok {
				ev.End = &end
			}
		}

		model.Events = append(model.Events, ev)
	}

	return model, nil
}
