package tably

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Cover is a gallery card's cover image. Either URL is set, or
// Placeholder carries a human-readable reason why no image could be
// resolved — a card never renders a blank cover cell.
type Cover struct {
	URL         string
	Alt         string
	Placeholder string
}

type CardValue struct {
	FieldID int64
	Name    string
	Display string
	// Missing marks a configured field id with no field definition.
	Missing bool
}

type GalleryCard struct {
	RecordID int64
	Cover    Cover
	Values   []CardValue
}

type GalleryModel struct {
	CardWidth CardWidth
	Cards     []GalleryCard
}

const (
	coverPlaceholderDefault = "Cover image placeholder"
	coverNotAttachment      = "Cover field is not an attachment type"
	coverNoAttachments      = "No attachments in cover field"
	coverFirstNotImage      = "First attachment is not an image"
)

// resolveCover applies the cover rules: only attachment fields
// qualify, and only when the first attachment's declared content type
// is an image.
func resolveCover(rec *Record, fields map[int64]Field, coverFieldID int64) Cover {
	if coverFieldID == 0 {
		return Cover{Placeholder: coverPlaceholderDefault}
	}

	f, ok := fields[coverFieldID]
	if !ok || f.Type != FieldTypeAttachment {
		return Cover{Placeholder: coverNotAttachment}
	}

	rv := rec.Value(coverFieldID)
	if rv == nil || len(rv.Structured) == 0 {
		return Cover{Placeholder: coverNoAttachments}
	}

	attachments := gjson.ParseBytes(rv.Structured)
	if !attachments.IsArray() || len(attachments.Array()) == 0 {
		return Cover{Placeholder: coverNoAttachments}
	}

	first := attachments.Array()[0]
	contentType := first.Get("content_type").String()
	if !strings.HasPrefix(contentType, "image/") {
		return Cover{Placeholder: coverFirstNotImage}
	}

	return Cover{
		URL: first.Get("url").String(),
		Alt: first.Get("original_filename").String(),
	}
}

// ProjectGallery derives the gallery render model. Visible card fields
// keep their configured order; a configured field id with no matching
// definition renders an explicit "not found" marker rather than being
// skipped.
func ProjectGallery(records []Record, fields []Field, cfg ViewConfig) (*GalleryModel, error) {
	byID := fieldIndex(fields)

	width := cfg.CardWidth
	if width == "" {
		width = CardWidthMedium
	}

	model := &GalleryModel{CardWidth: width, Cards: make([]GalleryCard, 0, len(records))}

	for i := range records {
		rec := &records[i]

		card := GalleryCard{
			RecordID: rec.ID,
			Cover:    resolveCover(rec, byID, cfg.CoverFieldID),
		}

		for _, fieldID := range cfg.CardVisibleFieldIDs {
			f, ok := byID[fieldID]
			if !ok {
				card.Values = append(card.Values, CardValue{
					FieldID: fieldID,
					Display: unknownFieldMarker(fieldID),
					Missing: true,
				})
				continue
			}

			card.Values = append(card.Values, CardValue{
				FieldID: fieldID,
				Name:    f.Name,
				Display: DisplayValue(f, rec.Value(fieldID)),
			})
		}

		model.Cards = append(model.Cards, card)
	}

	return model, nil
}
