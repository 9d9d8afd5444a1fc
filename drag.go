package tably

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// DropTarget is what a dragged kanban card was released onto: either a
// column itself, or another card whose column becomes the target.
type DropTarget struct {
	ColumnKey string
	RecordID  int64
}

func ColumnTarget(key string) DropTarget {
	return DropTarget{ColumnKey: key}
}

func CardTarget(recordID int64) DropTarget {
	return DropTarget{RecordID: recordID}
}

// KanbanDrag applies local optimistic card moves on a projected board.
// A same-column drop is a pure local reorder. A cross-column drop
// splices the card into the destination, writes the optimistic state
// into the board, and issues exactly one full-record update with the
// new stack value — derived by the same coercion the projector uses,
// so what is displayed never diverges from what is persisted.
//
// Each optimistic move records its inverse; when the backend rejects
// the update the inverse runs and a notice is surfaced through the
// configured callback.
type KanbanDrag struct {
	board  *KanbanBoard
	fields []Field
	store  *RecordStore
	svc    RecordUpdater
	log    *slog.Logger
	notice func(string)
}

func NewKanbanDrag(board *KanbanBoard, fields []Field, store *RecordStore, svc RecordUpdater, log *slog.Logger, notice func(string)) *KanbanDrag {
	if log == nil {
		log = slog.Default()
	}
	if notice == nil {
		notice = func(string) {}
	}

	return &KanbanDrag{
		board:  board,
		fields: fields,
		store:  store,
		svc:    svc,
		log:    log,
		notice: notice,
	}
}

func (d *KanbanDrag) Board() *KanbanBoard {
	return d.board
}

// resolveTarget maps a drop target onto a column and the index the
// card should land at. Dropping on a column itself lands at its end.
func (d *KanbanDrag) resolveTarget(target DropTarget) (*KanbanColumn, int, error) {
	if target.ColumnKey != "" {
		col := d.board.Column(target.ColumnKey)
		if col == nil {
			return nil, 0, errors.Wrapf(ErrColumnNotFound, "key %q", target.ColumnKey)
		}
		return col, len(col.Records), nil
	}

	col, idx := d.board.locate(target.RecordID)
	if col == nil {
		return nil, 0, errors.Wrapf(ErrColumnNotFound, "no column holds record %d", target.RecordID)
	}

	return col, idx, nil
}

// Drop handles a card release. The returned error is nil for a purely
// local reorder; for a cross-column move it reports the backend
// commit's outcome after any rollback has already been applied.
func (d *KanbanDrag) Drop(ctx context.Context, recordID int64, target DropTarget) error {
	source, sourceIdx := d.board.locate(recordID)
	if source == nil {
		return errors.Wrapf(ErrRecordNotFound, "record %d is not on the board", recordID)
	}

	dest, destIdx, err := d.resolveTarget(target)
	if err != nil {
		return err
	}

	if source == dest {
		if target.ColumnKey != "" {
			// dropped on own column, not on a card: move to the end
			destIdx = len(source.Records) - 1
		}
		source.Records = arrayMove(source.Records, sourceIdx, destIdx)
		return nil
	}

	moved := source.Records[sourceIdx]
	source.Records = append(source.Records[:sourceIdx], source.Records[sourceIdx+1:]...)
	if destIdx > len(dest.Records) {
		destIdx = len(dest.Records)
	}
	dest.Records = append(dest.Records[:destIdx], append([]Record{moved}, dest.Records[destIdx:]...)...)

	// compensation for a failed commit
	sourceKey, destKey := source.Key, dest.Key
	revert := func() {
		dst := d.board.Column(destKey)
		src := d.board.Column(sourceKey)
		if dst == nil || src == nil {
			return
		}
		if idx := dst.indexOf(moved.ID); idx != -1 {
			dst.Records = append(dst.Records[:idx], dst.Records[idx+1:]...)
		}
		at := sourceIdx
		if at > len(src.Records) {
			at = len(src.Records)
		}
		src.Records = append(src.Records[:at], append([]Record{moved}, src.Records[at:]...)...)
	}

	updated, err := d.commit(ctx, moved, dest.Key)
	if err != nil {
		revert()
		d.notice(fmt.Sprintf("Could not move record %d to %q; the move was undone.", recordID, dest.Key))
		return errors.Wrapf(err, "cross-column move of record %d failed", recordID)
	}

	d.store.Upsert(updated)
	return nil
}

// commit issues the single field update for a cross-column move. The
// stack value is coerced from the destination column key per the stack
// field's declared type; moving into Uncategorized clears the field.
func (d *KanbanDrag) commit(ctx context.Context, rec Record, destKey string) (Record, error) {
	stack := d.board.StackField
	payload := FullPayload(rec, d.fields)

	newValue := ColumnValue(stack, destKey)
	payload.Set(stack.ID, nativeValue(stack, &newValue))

	return d.svc.UpdateRecord(ctx, rec.ID, payload)
}

// arrayMove repositions one element of the slice, in place semantics.
func arrayMove(records []Record, from, to int) []Record {
	if from < 0 || from >= len(records) {
		return records
	}
	if to < 0 {
		to = 0
	}
	if to >= len(records) {
		to = len(records) - 1
	}
	if from == to {
		return records
	}

	moved := records[from]
	records = append(records[:from], records[from+1:]...)
	records = append(records[:to], append([]Record{moved}, records[to:]...)...)

	return records
}
