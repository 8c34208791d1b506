package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) CreateEvent(_ context.Context, e attendance.Event) (attendance.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.events[e.ID] = &e
	return e, nil
}

func (repo *attendanceRepository) GetEventByID(_ context.Context, id string) (attendance.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if e, ok := repo.db.events[id]; ok {
		return *e, nil
	}
	return attendance.Event{}, attendance.ErrEventNotFound
}

// QueryEvents returns the matching events by start time; descending unless asked otherwise.
func (repo *attendanceRepository) QueryEvents(_ context.Context, filter *attendance.EventFilter, ordering []core.DBOrdering) ([]attendance.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]attendance.Event, 0)
	for _, e := range repo.db.events {
		if filter.Match(*e) {
			events = append(events, *e)
		}
	}
	asc := len(ordering) > 0 && ordering[0].Ascending
	sort.Slice(events, func(i, j int) bool {
		if asc {
			return events[i].StartsAt.Before(events[j].StartsAt)
		}
		return events[i].StartsAt.After(events[j].StartsAt)
	})
	return events, nil
}

func (repo *attendanceRepository) UpdateEvent(_ context.Context, e attendance.Event) (attendance.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.events[e.ID]; !ok {
		return attendance.Event{}, attendance.ErrEventNotFound
	}
	repo.db.events[e.ID] = &e
	return e, nil
}

func (repo *attendanceRepository) DeleteEvent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.events[id]; !ok {
		return attendance.ErrEventNotFound
	}
	delete(repo.db.events, id)
	for key, r := range repo.db.records {
		if r.EventID == id {
			delete(repo.db.records, key)
		}
	}
	return nil
}

func (repo *attendanceRepository) UpsertRecord(_ context.Context, r attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := r.EventID + "/" + r.MemberID
	if existing, ok := repo.db.records[key]; ok {
		r.ID = existing.ID
	}
	repo.db.records[key] = &r
	return r, nil
}

func (repo *attendanceRepository) QueryEventRecords(_ context.Context, eventID string) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]attendance.Record, 0)
	for _, r := range repo.db.records {
		if r.EventID == eventID {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].MemberID < records[j].MemberID })
	return records, nil
}

// QueryMemberRecords returns the member's records of events starting within [from, to]. Zero bounds are open.
func (repo *attendanceRepository) QueryMemberRecords(_ context.Context, memberID string, from, to time.Time) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]attendance.Record, 0)
	for _, r := range repo.db.records {
		if r.MemberID != memberID {
			continue
		}
		e, ok := repo.db.events[r.EventID]
		if !ok {
			continue
		}
		if (!from.IsZero() && e.StartsAt.Before(from)) || (!to.IsZero() && e.StartsAt.After(to)) {
			continue
		}
		records = append(records, *r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RecordedAt.Before(records[j].RecordedAt) })
	return records, nil
}
