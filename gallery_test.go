package tably

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ProjectGallery_Cover(t *testing.T) {
	files := attachmentField(1, "Files")
	name := textField(2, "Name")
	fields := []Field{files, name}

	t.Run("first image attachment becomes the cover", func(t *testing.T) {
		records := []Record{
			seedRecord(10, structuredValue(1, `[
				{"url": "https://cdn.example.com/a.png", "content_type": "image/png", "original_filename": "a.png"},
				{"url": "https://cdn.example.com/b.pdf", "content_type": "application/pdf"}
			]`)),
		}

		model, err := ProjectGallery(records, fields, ViewConfig{CoverFieldID: 1})
		require.NoError(t, err)

		require.Len(t, model.Cards, 1)
		cover := model.Cards[0].Cover
		assert.Equal(t, "https://cdn.example.com/a.png", cover.URL)
		assert.Equal(t, "a.png", cover.Alt)
		assert.Empty(t, cover.Placeholder)
	})

	t.Run("no cover field configured", func(t *testing.T) {
		model, err := ProjectGallery([]Record{seedRecord(10)}, fields, ViewConfig{})
		require.NoError(t, err)

		assert.Equal(t, "Cover image placeholder", model.Cards[0].Cover.Placeholder)
	})

	t.Run("cover field is not an attachment", func(t *testing.T) {
		model, err := ProjectGallery([]Record{seedRecord(10)}, fields, ViewConfig{CoverFieldID: 2})
		require.NoError(t, err)

		assert.Equal(t, "Cover field is not an attachment type", model.Cards[0].Cover.Placeholder)
	})

	t.Run("record has no attachments", func(t *testing.T) {
		records := []Record{
			seedRecord(10),
			seedRecord(11, structuredValue(1, `[]`)),
		}

		model, err := ProjectGallery(records, fields, ViewConfig{CoverFieldID: 1})
		require.NoError(t, err)

		assert.Equal(t, "No attachments in cover field", model.Cards[0].Cover.Placeholder)
		assert.Equal(t, "No attachments in cover field", model.Cards[1].Cover.Placeholder)
	})

	t.Run("first attachment is not an image", func(t *testing.T) {
		records := []Record{
			seedRecord(10, structuredValue(1, `[
				{"url": "https://cdn.example.com/b.pdf", "content_type": "application/pdf"},
				{"url": "https://cdn.example.com/a.png", "content_type": "image/png"}
			]`)),
		}

		model, err := ProjectGallery(records, fields, ViewConfig{CoverFieldID: 1})
		require.NoError(t, err)

		// only the first attachment counts
		assert.Equal(t, "First attachment is not an image", model.Cards[0].Cover.Placeholder)
	})
}

func Test_ProjectGallery_Cards(t *testing.T) {
	fields := []Field{textField(2, "Name"), numberField(3, "Points")}

	t.Run("card values keep configured order", func(t *testing.T) {
		records := []Record{seedRecord(10, textValue(2, "alpha"), numberValue(3, 5))}

		cfg := ViewConfig{CardVisibleFieldIDs: []int64{3, 2}}
		model, err := ProjectGallery(records, fields, cfg)
		require.NoError(t, err)

		require.Len(t, model.Cards, 1)
		values := model.Cards[0].Values
		require.Len(t, values, 2)
		assert.Equal(t, "Points", values[0].Name)
		assert.Equal(t, "5", values[0].Display)
		assert.Equal(t, "Name", values[1].Name)
		assert.Equal(t, "alpha", values[1].Display)
	})

	t.Run("configured field with no definition renders a marker", func(t *testing.T) {
		records := []Record{seedRecord(10, textValue(2, "alpha"))}

		cfg := ViewConfig{CardVisibleFieldIDs: []int64{2, 777}}
		model, err := ProjectGallery(records, fields, cfg)
		require.NoError(t, err)

		values := model.Cards[0].Values
		require.Len(t, values, 2)
		assert.True(t, values[1].Missing)
		assert.Equal(t, "Field ID 777 not found", values[1].Display)
	})

	t.Run("card width defaults to medium", func(t *testing.T) {
		model, err := ProjectGallery(nil, fields, ViewConfig{})
		require.NoError(t, err)
		assert.Equal(t, CardWidthMedium, model.CardWidth)

		model, err = ProjectGallery(nil, fields, ViewConfig{CardWidth: CardWidthLarge})
		require.NoError(t, err)
		assert.Equal(t, CardWidthLarge, model.CardWidth)
	})
}
