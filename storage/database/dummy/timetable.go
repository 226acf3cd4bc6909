package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/timetable"
)

type timetableRepository struct {
	db *DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *DB) timetable.Repository {
	return &timetableRepository{db: db}
}

var timetableOrdering = map[string]comparator[timetable.Timetable]{
	"owner_key":  func(a, b timetable.Timetable) int { return cmpString(a.OwnerKey, b.OwnerKey) },
	"owner_name": func(a, b timetable.Timetable) int { return cmpString(a.OwnerName, b.OwnerName) },
	"updated_at": func(a, b timetable.Timetable) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

func cloneTimetable(tt timetable.Timetable) timetable.Timetable {
	tt.Entries = append([]timetable.Entry{}, tt.Entries...)
	return tt
}

func (repo *timetableRepository) SaveTimetable(_ context.Context, tt timetable.Timetable, _ ...core.DBExecutor) (timetable.Timetable, error) {
	repo.db.timetable.Lock()
	defer repo.db.timetable.Unlock()

	if old, ok := repo.db.timetable.find(func(o timetable.Timetable) bool {
		return o.Kind == tt.Kind && o.OwnerKey == tt.OwnerKey
	}); ok {
		tt.ID = old.ID
		tt.CreatedAt = old.CreatedAt
	}
	repo.db.timetable.rows[tt.ID] = cloneTimetable(tt)
	return tt, nil
}

func (repo *timetableRepository) GetTimetable(_ context.Context, filter timetable.GetFilter, _ ...core.DBExecutor) (timetable.Timetable, error) {
	repo.db.timetable.RLock()
	defer repo.db.timetable.RUnlock()

	switch {
	case filter.ID != "":
		if tt, ok := repo.db.timetable.rows[filter.ID]; ok {
			return cloneTimetable(tt), nil
		}
	case filter.Kind != "" && filter.OwnerKey != "":
		if tt, ok := repo.db.timetable.find(func(o timetable.Timetable) bool {
			return o.Kind == filter.Kind && o.OwnerKey == filter.OwnerKey
		}); ok {
			return cloneTimetable(tt), nil
		}
	}
	return timetable.Timetable{}, timetable.ErrNotFound
}

func (repo *timetableRepository) QueryTimetables(_ context.Context, filter *timetable.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]timetable.Timetable, error) {
	repo.db.timetable.RLock()
	defer repo.db.timetable.RUnlock()

	if filter == nil {
		filter = &timetable.QueryFilter{}
	}
	tts := repo.db.timetable.filter(func(tt timetable.Timetable) bool {
		if filter.Kind != "" && tt.Kind != filter.Kind {
			return false
		}
		if filter.OwnerKeys != nil && !core.ContainsString(filter.OwnerKeys, tt.OwnerKey) {
			return false
		}
		return true
	})
	for i := range tts {
		tts[i] = cloneTimetable(tts[i])
	}

	sortRows(tts, ordering, timetableOrdering, timetableOrdering["owner_key"])
	return tts, nil
}

func (repo *timetableRepository) DeleteTimetable(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.timetable.Lock()
	defer repo.db.timetable.Unlock()

	if _, ok := repo.db.timetable.rows[id]; !ok {
		return timetable.ErrNotFound
	}
	delete(repo.db.timetable.rows, id)
	return nil
}
