package tably

import (
	"encoding/json"
	"time"
)

func strPtr(s string) *string        { return &s }
func numPtr(n float64) *float64      { return &n }
func boolPtr(b bool) *bool           { return &b }
func timePtr(t time.Time) *time.Time { return &t }

func textValue(fieldID int64, s string) RecordValue {
	return RecordValue{FieldID: fieldID, Text: strPtr(s)}
}

func numberValue(fieldID int64, n float64) RecordValue {
	return RecordValue{FieldID: fieldID, Number: numPtr(n)}
}

func boolValue(fieldID int64, b bool) RecordValue {
	return RecordValue{FieldID: fieldID, Boolean: boolPtr(b)}
}

func datetimeValue(fieldID int64, t time.Time) RecordValue {
	return RecordValue{FieldID: fieldID, Datetime: timePtr(t)}
}

func structuredValue(fieldID int64, raw string) RecordValue {
	return RecordValue{FieldID: fieldID, Structured: json.RawMessage(raw)}
}

func seedRecord(id int64, values ...RecordValue) Record {
	return Record{ID: id, Values: values}
}

func textField(id int64, name string) Field {
	return Field{ID: id, Name: name, Type: FieldTypeText}
}

func numberField(id int64, name string) Field {
	return Field{ID: id, Name: name, Type: FieldTypeNumber}
}

func boolField(id int64, name string) Field {
	return Field{ID: id, Name: name, Type: FieldTypeBoolean}
}

func dateField(id int64, name string) Field {
	return Field{ID: id, Name: name, Type: FieldTypeDate}
}

func selectField(id int64, name string, choices ...string) Field {
	return Field{
		ID:      id,
		Name:    name,
		Type:    FieldTypeSingleSelect,
		Options: &FieldOptions{Choices: choices},
	}
}

func attachmentField(id int64, name string) Field {
	return Field{ID: id, Name: name, Type: FieldTypeAttachment}
}

func mustTime(layout, raw string) time.Time {
	t, err := time.Parse(layout, raw)
	if err != nil {
		panic(err)
	}
	return t
}
