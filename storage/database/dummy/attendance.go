package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

var (
	recordOrdering = map[string]comparator[attendance.Record]{
		"date":         func(a, b attendance.Record) int { return cmpString(a.Date, b.Date) },
		"student_name": func(a, b attendance.Record) int { return cmpString(a.StudentName, b.StudentName) },
		"class":        func(a, b attendance.Record) int { return cmpString(a.Class, b.Class) },
		"status":       func(a, b attendance.Record) int { return cmpString(a.Status, b.Status) },
		"marked_at":    func(a, b attendance.Record) int { return cmpTime(a.MarkedAt, b.MarkedAt) },
	}
	teacherRecordOrdering = map[string]comparator[attendance.TeacherRecord]{
		"date":         func(a, b attendance.TeacherRecord) int { return cmpString(a.Date, b.Date) },
		"teacher_name": func(a, b attendance.TeacherRecord) int { return cmpString(a.TeacherName, b.TeacherName) },
		"status":       func(a, b attendance.TeacherRecord) int { return cmpString(a.Status, b.Status) },
		"marked_at":    func(a, b attendance.TeacherRecord) int { return cmpTime(a.MarkedAt, b.MarkedAt) },
	}
)

func (repo *attendanceRepository) UpsertRecords(_ context.Context, recs []attendance.Record, _ ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	saved := make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		if old, ok := repo.db.attendance.find(func(r attendance.Record) bool {
			return r.Date == rec.Date && r.StudentID == rec.StudentID
		}); ok {
			rec.ID = old.ID
		}
		repo.db.attendance.rows[rec.ID] = rec
		saved = append(saved, rec)
	}
	return saved, nil
}

func (repo *attendanceRepository) GetRecord(_ context.Context, id string, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	if rec, ok := repo.db.attendance.rows[id]; ok {
		return rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	if filter == nil {
		filter = &attendance.QueryFilter{}
	}
	recs := repo.db.attendance.filter(func(r attendance.Record) bool {
		if filter.Date != "" && r.Date != filter.Date {
			return false
		}
		if !inRange(r.Date, filter.From, filter.To) {
			return false
		}
		if filter.Class != "" && r.Class != filter.Class {
			return false
		}
		if filter.StudentIDs != nil && !core.ContainsString(filter.StudentIDs, r.StudentID) {
			return false
		}
		if filter.Status != "" && r.Status != filter.Status {
			return false
		}
		return true
	})

	sortRows(recs, ordering, recordOrdering, func(a, b attendance.Record) int {
		if c := cmpString(b.Date, a.Date); c != 0 {
			return c
		}
		return cmpString(a.StudentName, b.StudentName)
	})
	return recs, nil
}

func (repo *attendanceRepository) DeleteRecord(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	if _, ok := repo.db.attendance.rows[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.attendance.rows, id)
	return nil
}

func (repo *attendanceRepository) UpsertTeacherRecords(_ context.Context, recs []attendance.TeacherRecord, _ ...core.DBExecutor) ([]attendance.TeacherRecord, error) {
	repo.db.teacherAttendance.Lock()
	defer repo.db.teacherAttendance.Unlock()

	saved := make([]attendance.TeacherRecord, 0, len(recs))
	for _, rec := range recs {
		if old, ok := repo.db.teacherAttendance.find(func(r attendance.TeacherRecord) bool {
			return r.Date == rec.Date && r.TeacherID == rec.TeacherID
		}); ok {
			rec.ID = old.ID
		}
		repo.db.teacherAttendance.rows[rec.ID] = rec
		saved = append(saved, rec)
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryTeacherRecords(_ context.Context, filter *attendance.TeacherQueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]attendance.TeacherRecord, error) {
	repo.db.teacherAttendance.RLock()
	defer repo.db.teacherAttendance.RUnlock()

	if filter == nil {
		filter = &attendance.TeacherQueryFilter{}
	}
	recs := repo.db.teacherAttendance.filter(func(r attendance.TeacherRecord) bool {
		if filter.Date != "" && r.Date != filter.Date {
			return false
		}
		if !inRange(r.Date, filter.From, filter.To) {
			return false
		}
		if filter.TeacherIDs != nil && !core.ContainsString(filter.TeacherIDs, r.TeacherID) {
			return false
		}
		if filter.Status != "" && r.Status != filter.Status {
			return false
		}
		return true
	})

	sortRows(recs, ordering, teacherRecordOrdering, func(a, b attendance.TeacherRecord) int {
		if c := cmpString(b.Date, a.Date); c != 0 {
			return c
		}
		return cmpString(a.TeacherName, b.TeacherName)
	})
	return recs, nil
}
