package tably

import "fmt"

type KanbanColumn struct {
	Key     string
	Records []Record
}

func (c *KanbanColumn) indexOf(recordID int64) int {
	for i := range c.Records {
		if c.Records[i].ID == recordID {
			return i
		}
	}

	return -1
}

// KanbanBoard groups records into columns keyed by the stack-by
// field's value. Every input record lands in exactly one column; the
// Uncategorized column is present iff at least one record has no
// usable stack value.
type KanbanBoard struct {
	StackField Field
	CardFields []int64
	Columns    []KanbanColumn
}

func (b *KanbanBoard) Column(key string) *KanbanColumn {
	for i := range b.Columns {
		if b.Columns[i].Key == key {
			return &b.Columns[i]
		}
	}

	return nil
}

// locate finds the column and index currently holding the record.
func (b *KanbanBoard) locate(recordID int64) (*KanbanColumn, int) {
	for i := range b.Columns {
		if idx := b.Columns[i].indexOf(recordID); idx != -1 {
			return &b.Columns[i], idx
		}
	}

	return nil, -1
}

// ProjectKanban derives the kanban render model. Column ordering:
// explicit column_order from the config if present, else the stack
// field's declared choices when it is a single select, else first-seen
// order of encountered keys.
func ProjectKanban(records []Record, fields []Field, cfg ViewConfig) (*KanbanBoard, error) {
	if cfg.StackByFieldID == 0 {
		return nil, notRenderable("kanban view requires a stack_by_field_id")
	}

	byID := fieldIndex(fields)
	stackField, ok := byID[cfg.StackByFieldID]
	if !ok {
		return nil, notRenderable(fmt.Sprintf("stack-by field %d is invalid or not found", cfg.StackByFieldID))
	}

	var keys []string
	explicit := false
	switch {
	case len(cfg.ColumnOrder) > 0:
		keys = append(keys, cfg.ColumnOrder...)
		explicit = true
	case stackField.Type == FieldTypeSingleSelect && len(stackField.choices()) > 0:
		keys = append(keys, stackField.choices()...)
		explicit = true
	}

	buckets := make(map[string][]Record, len(keys)+1)
	for _, k := range keys {
		buckets[k] = nil
	}

	var uncategorized []Record
	for i := range records {
		rec := records[i]
		key, categorized := GroupKey(stackField, rec.Value(stackField.ID))
		if !categorized || key == UncategorizedKey {
			uncategorized = append(uncategorized, rec)
			continue
		}

		if _, known := buckets[key]; !known {
			if explicit {
				// a value outside the configured columns still has to
				// land somewhere
				uncategorized = append(uncategorized, rec)
				continue
			}
			keys = append(keys, key)
		}

		buckets[key] = append(buckets[key], rec)
	}

	board := &KanbanBoard{
		StackField: stackField,
		CardFields: cfg.CardFields,
		Columns:    make([]KanbanColumn, 0, len(keys)+1),
	}

	_, uncategorizedConfigured := buckets[UncategorizedKey]
	if uncategorizedConfigured {
		buckets[UncategorizedKey] = append(buckets[UncategorizedKey], uncategorized...)
	}

	for _, k := range keys {
		board.Columns = append(board.Columns, KanbanColumn{Key: k, Records: buckets[k]})
	}

	if len(uncategorized) > 0 && !uncategorizedConfigured {
		board.Columns = append(board.Columns, KanbanColumn{Key: UncategorizedKey, Records: uncategorized})
	}

	return board, nil
}
