package tably

import (
	"fmt"

	"github.com/pkg/errors"
)

// The projectors are pure derivations: (store snapshot, fields, view
// config) in, render model out. They never mutate their inputs and a
// configuration problem yields a wrapped ErrViewNotRenderable, never a
// panic — the caller renders an inline error panel from it.

func fieldIndex(fields []Field) map[int64]Field {
	m := make(map[int64]Field, len(fields))
	for _, f := range fields {
		m[f.ID] = f
	}

	return m
}

type GridCell struct {
	FieldID int64
	Display string
	// Unknown marks a value whose field id has no definition in the
	// current table. Rendered as an explicit error marker, never
	// silently dropped.
	Unknown bool
}

type GridRow struct {
	RecordID int64
	Cells    []GridCell
}

// GridModel is the identity projection: one row per record, one cell
// per visible field, no grouping.
type GridModel struct {
	Fields []Field
	Rows   []GridRow
}

// gridFields applies visible_field_ids and field_order to the table's
// declared fields. Both keys are optional.
func gridFields(fields []Field, cfg ViewConfig) []Field {
	byID := fieldIndex(fields)

	visible := fields
	if len(cfg.VisibleFieldIDs) > 0 {
		visible = visible[:0:0]
		for _, id := range cfg.VisibleFieldIDs {
			if f, ok := byID[id]; ok {
				visible = append(visible, f)
			}
		}
	}

	if len(cfg.FieldOrder) == 0 {
		return visible
	}

	pos := make(map[int64]int, len(cfg.FieldOrder))
	for i, id := range cfg.FieldOrder {
		pos[id] = i
	}

	ordered := make([]Field, len(visible))
	copy(ordered, visible)
	// stable insertion sort; field lists are small
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0; j-- {
			a, aok := pos[ordered[j-1].ID]
			b, bok := pos[ordered[j].ID]
			if bok && (!aok || b < a) {
				ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
				continue
			}
			break
		}
	}

	return ordered
}

// ProjectGrid derives the grid render model.
func ProjectGrid(records []Record, fields []Field, cfg ViewConfig) (*GridModel, error) {
	byID := fieldIndex(fields)
	visible := gridFields(fields, cfg)

	model := &GridModel{Fields: visible, Rows: make([]GridRow, 0, len(records))}

	for i := range records {
		rec := &records[i]
		row := GridRow{RecordID: rec.ID, Cells: make([]GridCell, 0, len(visible))}

		for _, f := range visible {
			row.Cells = append(row.Cells, GridCell{
				FieldID: f.ID,
				Display: DisplayValue(f, rec.Value(f.ID)),
			})
		}

		for j := range rec.Values {
			if _, ok := byID[rec.Values[j].FieldID]; !ok {
				row.Cells = append(row.Cells, GridCell{
					FieldID: rec.Values[j].FieldID,
					Display: unknownFieldMarker(rec.Values[j].FieldID),
					Unknown: true,
				})
			}
		}

		model.Rows = append(model.Rows, row)
	}

	return model, nil
}

func unknownFieldMarker(fieldID int64) string {
	return fmt.Sprintf("Field ID %d not found", fieldID)
}

func notRenderable(reason string) error {
	return errors.Wrap(ErrViewNotRenderable, reason)
}
