package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/storage"
)

// ErrNotFound is returned when no record carries the requested id.
var ErrNotFound = errors.New("record not found")

// Ledger manages the list of finished work records stored under the
// records key. Every mutation loads the list, changes it and writes it
// back whole.
type Ledger struct {
	store *storage.Store
	now   func() time.Time
}

// New returns a ledger backed by st.
func New(st *storage.Store) *Ledger {
	return &Ledger{store: st, now: time.Now}
}

// Add assigns a fresh id and appends the record. Ids derive from the
// creation instant in milliseconds but stay strictly increasing even when
// two records land in the same millisecond or the clock steps backwards.
func (l *Ledger) Add(rec model.WorkRecord) (model.WorkRecord, error) {
	records, err := l.store.Records()
	if err != nil {
		return model.WorkRecord{}, err
	}
	id := l.now().UnixMilli()
	for _, r := range records {
		if r.ID >= id {
			id = r.ID + 1
		}
	}
	rec.ID = id
	records = append(records, rec)
	if err := l.store.SaveRecords(records); err != nil {
		return model.WorkRecord{}, err
	}
	return rec, nil
}

// Update merges the non-nil patch fields into the record with the given id
// and returns the merged record.
func (l *Ledger) Update(id int64, patch model.RecordPatch) (model.WorkRecord, error) {
	records, err := l.store.Records()
	if err != nil {
		return model.WorkRecord{}, err
	}
	for i := range records {
		if records[i].ID == id {
			patch.Apply(&records[i])
			if err := l.store.SaveRecords(records); err != nil {
				return model.WorkRecord{}, err
			}
			return records[i], nil
		}
	}
	return model.WorkRecord{}, fmt.Errorf("record %d: %w", id, ErrNotFound)
}

// Delete removes the record with the given id.
func (l *Ledger) Delete(id int64) error {
	records, err := l.store.Records()
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == id {
			records = append(records[:i], records[i+1:]...)
			return l.store.SaveRecords(records)
		}
	}
	return fmt.Errorf("record %d: %w", id, ErrNotFound)
}

// DeleteAll removes every record.
func (l *Ledger) DeleteAll() error {
	return l.store.SaveRecords([]model.WorkRecord{})
}

// All returns every record ordered by ascending id.
func (l *Ledger) All() ([]model.WorkRecord, error) {
	records, err := l.store.Records()
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// ByDate returns the records for one ISO date, newest first: descending
// start time, ties broken by descending id.
func (l *Ledger) ByDate(date string) ([]model.WorkRecord, error) {
	records, err := l.store.Records()
	if err != nil {
		return nil, err
	}
	var out []model.WorkRecord
	for _, r := range records {
		if r.Date == date {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime > out[j].StartTime
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// TotalMinutes sums the durations of all records on date.
func (l *Ledger) TotalMinutes(date string) (int, error) {
	return l.sumMinutes(date, func(model.WorkRecord) bool { return true })
}

// TotalMinutesExcluding sums the durations on date, skipping records of
// the excluded type.
func (l *Ledger) TotalMinutesExcluding(date, excludedType string) (int, error) {
	return l.sumMinutes(date, func(r model.WorkRecord) bool { return r.Type != excludedType })
}

func (l *Ledger) sumMinutes(date string, include func(model.WorkRecord) bool) (int, error) {
	records, err := l.store.Records()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range records {
		if r.Date == date && include(r) {
			total += int(r.Duration)
		}
	}
	return total, nil
}
