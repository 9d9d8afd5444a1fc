package tably

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

type ViewType uint8

const (
	ViewTypeInvalid ViewType = iota
	ViewTypeGrid
	ViewTypeForm
	ViewTypeKanban
	ViewTypeCalendar
	ViewTypeGallery
)

var viewTypeTags = map[ViewType]string{
	ViewTypeGrid:     "grid",
	ViewTypeForm:     "form",
	ViewTypeKanban:   "kanban",
	ViewTypeCalendar: "calendar",
	ViewTypeGallery:  "gallery",
}

var viewTypesByTag = func() map[string]ViewType {
	m := make(map[string]ViewType, len(viewTypeTags))
	for vt, tag := range viewTypeTags {
		m[tag] = vt
	}
	return m
}()

var ErrUnknownViewType = errors.New("unknown view type tag")

func ParseViewType(tag string) (ViewType, error) {
	vt, ok := viewTypesByTag[tag]
	if !ok {
		return ViewTypeInvalid, errors.Wrapf(ErrUnknownViewType, "tag %q", tag)
	}

	return vt, nil
}

func (vt ViewType) String() string {
	if tag, ok := viewTypeTags[vt]; ok {
		return tag
	}

	return "invalid"
}

func (vt ViewType) MarshalJSON() ([]byte, error) {
	tag, ok := viewTypeTags[vt]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownViewType, "value %d", vt)
	}

	return []byte(strconv.Quote(tag)), nil
}

func (vt *ViewType) UnmarshalJSON(b []byte) error {
	tag, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.Wrap(ErrUnknownViewType, err.Error())
	}

	parsed, err := ParseViewType(tag)
	if err != nil {
		return err
	}

	*vt = parsed
	return nil
}

type CardWidth string

const (
	CardWidthSmall  CardWidth = "small"
	CardWidthMedium CardWidth = "medium"
	CardWidthLarge  CardWidth = "large"
)

// FormFieldConfig is part of persisted form-view configs. Forms are
// rendered by an external collaborator; the keys are parsed so a saved
// form view round-trips intact.
type FormFieldConfig struct {
	FieldID    int64  `json:"field_id"`
	Label      string `json:"label,omitempty"`
	HelpText   string `json:"help_text,omitempty"`
	IsRequired bool   `json:"is_required,omitempty"`
	Order      int    `json:"order"`
}

// ViewConfig is the persisted, server-side view configuration. It is
// loaded as an opaque blob and interpreted entirely by the projectors;
// which keys matter depends on the view type.
type ViewConfig struct {
	VisibleFieldIDs []int64      `json:"visible_field_ids,omitempty"`
	FieldOrder      []int64      `json:"field_order,omitempty"`
	Sorts           []SortSpec   `json:"sorts,omitempty"`
	Filters         []FilterSpec `json:"filters,omitempty"`

	// kanban
	StackByFieldID int64    `json:"stack_by_field_id,omitempty"`
	ColumnOrder    []string `json:"column_order,omitempty"`
	CardFields     []int64  `json:"card_fields,omitempty"`

	// calendar
	DateFieldID       int64 `json:"date_field_id,omitempty"`
	EndDateFieldID    int64 `json:"end_date_field_id,omitempty"`
	EventTitleFieldID int64 `json:"event_title_field_id,omitempty"`

	// gallery
	CoverFieldID        int64     `json:"cover_field_id,omitempty"`
	CardVisibleFieldIDs []int64   `json:"card_visible_field_ids,omitempty"`
	CardWidth           CardWidth `json:"card_width,omitempty"`

	// form
	Title            string            `json:"title,omitempty"`
	Description      string            `json:"description,omitempty"`
	FormFields       []FormFieldConfig `json:"form_fields,omitempty"`
	SubmitButtonText string            `json:"submit_button_text,omitempty"`
}

// View is a persisted projection description for one table.
type View struct {
	ID      int64      `json:"id"`
	TableID int64      `json:"table_id"`
	Name    string     `json:"name"`
	Type    ViewType   `json:"type"`
	Config  ViewConfig `json:"config"`
}

var ErrViewConfigInvalid = errors.New("view config could not be decoded")

// ParseViewConfig decodes a persisted config blob.
func ParseViewConfig(raw []byte) (ViewConfig, error) {
	var cfg ViewConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ViewConfig{}, errors.Wrap(ErrViewConfigInvalid, err.Error())
	}

	if cfg.CardWidth == "" {
		cfg.CardWidth = CardWidthMedium
	}

	return cfg, nil
}
