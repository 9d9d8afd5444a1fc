package tably

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// FieldType is a closed set of field kinds. Every switch over it is
// exhaustive; there is no "unsupported type" branch to fall into.
type FieldType uint8

const (
	FieldTypeInvalid FieldType = iota
	FieldTypeText
	FieldTypeNumber
	FieldTypeBoolean
	FieldTypeDate
	FieldTypeSingleSelect
	FieldTypeMultiSelect
	FieldTypeEmail
	FieldTypeURL
	FieldTypePhoneNumber
	FieldTypeFormula
	FieldTypeAttachment
	FieldTypeLinkToRecord
	FieldTypeCreatedTime
	FieldTypeLastModifiedTime
)

// Slot is the storage slot a field type occupies inside a RecordValue.
type Slot uint8

const (
	SlotNone Slot = iota
	SlotText
	SlotNumber
	SlotBoolean
	SlotDatetime
	SlotStructured
)

var fieldTypeTags = map[FieldType]string{
	FieldTypeText:             "text",
	FieldTypeNumber:           "number",
	FieldTypeBoolean:          "boolean",
	FieldTypeDate:             "date",
	FieldTypeSingleSelect:     "singleSelect",
	FieldTypeMultiSelect:      "multiSelect",
	FieldTypeEmail:            "email",
	FieldTypeURL:              "url",
	FieldTypePhoneNumber:      "phoneNumber",
	FieldTypeFormula:          "formula",
	FieldTypeAttachment:       "attachment",
	FieldTypeLinkToRecord:     "linkToRecord",
	FieldTypeCreatedTime:      "createdTime",
	FieldTypeLastModifiedTime: "lastModifiedTime",
}

var fieldTypesByTag = func() map[string]FieldType {
	m := make(map[string]FieldType, len(fieldTypeTags))
	for ft, tag := range fieldTypeTags {
		m[tag] = ft
	}
	return m
}()

func ParseFieldType(tag string) (FieldType, error) {
	ft, ok := fieldTypesByTag[tag]
	if !ok {
		return FieldTypeInvalid, errors.Wrapf(ErrUnknownFieldType, "tag %q", tag)
	}

	return ft, nil
}

func (ft FieldType) String() string {
	if tag, ok := fieldTypeTags[ft]; ok {
		return tag
	}

	return "invalid"
}

func (ft FieldType) MarshalJSON() ([]byte, error) {
	tag, ok := fieldTypeTags[ft]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFieldType, "value %d", ft)
	}

	return []byte(strconv.Quote(tag)), nil
}

func (ft *FieldType) UnmarshalJSON(b []byte) error {
	tag, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.Wrap(ErrUnknownFieldType, err.Error())
	}

	parsed, err := ParseFieldType(tag)
	if err != nil {
		return err
	}

	*ft = parsed
	return nil
}

// Slot returns the storage slot for the field type. The assignment is
// fixed by the wire contract and must not drift.
func (ft FieldType) Slot() Slot {
	switch ft {
	case FieldTypeText, FieldTypeEmail, FieldTypeURL, FieldTypePhoneNumber, FieldTypeSingleSelect:
		return SlotText
	case FieldTypeNumber, FieldTypeFormula:
		return SlotNumber
	case FieldTypeBoolean:
		return SlotBoolean
	case FieldTypeDate, FieldTypeCreatedTime, FieldTypeLastModifiedTime:
		return SlotDatetime
	case FieldTypeMultiSelect, FieldTypeLinkToRecord, FieldTypeAttachment:
		return SlotStructured
	case FieldTypeInvalid:
		return SlotNone
	}

	return SlotNone
}

// pureDate reports whether the type carries a calendar date with no time
// component. Drives the all-day flag on calendar events.
func (ft FieldType) pureDate() bool {
	return ft == FieldTypeDate
}

type FieldOptions struct {
	Choices       []string `json:"choices,omitempty"`
	LinkedTableID int64    `json:"linked_table_id,omitempty"`
	FormulaString string   `json:"formula_string,omitempty"`
}

// Field is a typed column definition. Immutable from the engine's
// perspective; schema administration happens elsewhere.
type Field struct {
	ID      int64         `json:"id"`
	Name    string        `json:"name"`
	Type    FieldType     `json:"type"`
	Options *FieldOptions `json:"options,omitempty"`
}

func (f Field) choices() []string {
	if f.Options == nil {
		return nil
	}

	return f.Options.Choices
}

const dateOnlyLayout = "2006-01-02"

func parseEditedTime(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}

	if t, err := time.Parse(dateOnlyLayout, raw); err == nil {
		return t, true
	}

	return time.Time{}, false
}

// Coerce converts a raw edited string into the stored value for the
// field's slot. Unparseable scalar input coerces to "no value" rather
// than an error; only structured input that is not valid json fails.
func Coerce(f Field, raw string) (RecordValue, error) {
	rv := RecordValue{FieldID: f.ID}

	switch f.Type.Slot() {
	case SlotText:
		if strings.TrimSpace(raw) == "" {
			return rv, nil
		}
		rv.Text = &raw
	case SlotNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return rv, nil
		}
		rv.Number = &n
	case SlotBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			v := true
			rv.Boolean = &v
		case "false":
			v := false
			rv.Boolean = &v
		}
	case SlotDatetime:
		if t, ok := parseEditedTime(strings.TrimSpace(raw)); ok {
			rv.Datetime = &t
		}
	case SlotStructured:
		if strings.TrimSpace(raw) == "" {
			return rv, nil
		}
		if !gjson.Valid(raw) {
			return rv, errors.Wrapf(ErrInvalidStructuredValue, "field %d", f.ID)
		}
		rv.Structured = []byte(raw)
	case SlotNone:
	}

	return rv, nil
}

// UncategorizedKey is the synthetic kanban column for records with no
// usable stack value.
const UncategorizedKey = "Uncategorized"

// GroupKey derives the kanban column key for a record's stack value.
// ok == false means the record belongs to the Uncategorized column.
// The derivation is a pure function of (Field, RecordValue); the drag
// reconciler relies on it matching the projector exactly.
func GroupKey(f Field, rv *RecordValue) (string, bool) {
	if rv == nil || rv.Empty() {
		return "", false
	}

	switch f.Type.Slot() {
	case SlotText:
		if rv.Text == nil || strings.TrimSpace(*rv.Text) == "" {
			return "", false
		}
		return *rv.Text, true
	case SlotBoolean:
		if rv.Boolean == nil {
			return "", false
		}
		return strconv.FormatBool(*rv.Boolean), true
	case SlotNumber:
		if rv.Number == nil {
			return "", false
		}
		return strconv.FormatFloat(*rv.Number, 'f', -1, 64), true
	case SlotDatetime, SlotStructured, SlotNone:
		// not stackable
		return "", false
	}

	return "", false
}

// ColumnValue converts a kanban column key back into the stored stack
// value. Moving into Uncategorized clears single-select and text
// fields; an unparseable key for a boolean or number field also clears.
func ColumnValue(f Field, key string) RecordValue {
	rv := RecordValue{FieldID: f.ID}

	if f.Type == FieldTypeBoolean {
		switch strings.ToLower(key) {
		case "true":
			v := true
			rv.Boolean = &v
		case "false":
			v := false
			rv.Boolean = &v
		}
		return rv
	}

	if key == UncategorizedKey && (f.Type == FieldTypeSingleSelect || f.Type == FieldTypeText) {
		return rv
	}

	if f.Type.Slot() == SlotNumber {
		if n, err := strconv.ParseFloat(key, 64); err == nil {
			rv.Number = &n
		}
		return rv
	}

	if f.Type.Slot() == SlotText {
		rv.Text = &key
	}

	return rv
}

// Less orders two record values of the field's slot. Empty values sort
// first. This is only a client-visible hint; authoritative ordering is
// server-side.
func Less(f Field, a, b *RecordValue) bool {
	ae := a == nil || a.Empty()
	be := b == nil || b.Empty()
	if ae || be {
		return ae && !be
	}

	switch f.Type.Slot() {
	case SlotText:
		return deref(a.Text) < deref(b.Text)
	case SlotNumber:
		return derefFloat(a.Number) < derefFloat(b.Number)
	case SlotBoolean:
		return !derefBool(a.Boolean) && derefBool(b.Boolean)
	case SlotDatetime:
		if a.Datetime == nil || b.Datetime == nil {
			return a.Datetime == nil && b.Datetime != nil
		}
		return a.Datetime.Before(*b.Datetime)
	case SlotStructured:
		return string(a.Structured) < string(b.Structured)
	case SlotNone:
	}

	return false
}

// DisplayValue renders a record value as a human-readable cell string.
// Shared by grid rows, kanban cards and gallery cards.
func DisplayValue(f Field, rv *RecordValue) string {
	if rv == nil {
		return "N/A"
	}

	switch f.Type {
	case FieldTypeText, FieldTypeEmail, FieldTypeURL, FieldTypePhoneNumber, FieldTypeSingleSelect:
		return deref(rv.Text)
	case FieldTypeNumber:
		if rv.Number == nil {
			return ""
		}
		return strconv.FormatFloat(*rv.Number, 'f', -1, 64)
	case FieldTypeBoolean:
		if rv.Boolean == nil {
			return ""
		}
		return strconv.FormatBool(*rv.Boolean)
	case FieldTypeDate, FieldTypeCreatedTime, FieldTypeLastModifiedTime:
		if rv.Datetime == nil {
			return ""
		}
		return rv.Datetime.Format(dateOnlyLayout)
	case FieldTypeMultiSelect, FieldTypeLinkToRecord:
		return joinStructured(rv.Structured)
	case FieldTypeAttachment:
		n := structuredLen(rv.Structured)
		if n == 0 {
			return "0 files"
		}
		return strconv.Itoa(n) + " file(s)"
	case FieldTypeFormula:
		if rv.Number != nil {
			return strconv.FormatFloat(*rv.Number, 'f', -1, 64)
		}
		return deref(rv.Text)
	case FieldTypeInvalid:
	}

	return ""
}

func joinStructured(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return parsed.String()
	}

	var parts []string
	parsed.ForEach(func(_, v gjson.Result) bool {
		parts = append(parts, v.String())
		return true
	})

	return strings.Join(parts, ", ")
}

func structuredLen(raw []byte) int {
	if len(raw) == 0 {
		return 0
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return 0
	}

	return len(parsed.Array())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}
