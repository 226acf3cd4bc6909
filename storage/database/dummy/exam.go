package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/exam"
)

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db}
}

var (
	scheduleOrdering = map[string]comparator[exam.Schedule]{
		"exam_date": func(a, b exam.Schedule) int {
			if c := cmpString(a.ExamDate, b.ExamDate); c != 0 {
				return c
			}
			return cmpString(a.StartTime, b.StartTime)
		},
		"class":       func(a, b exam.Schedule) int { return cmpString(a.Class, b.Class) },
		"course_name": func(a, b exam.Schedule) int { return cmpString(a.CourseName, b.CourseName) },
	}
	marksOrdering = map[string]comparator[exam.Marks]{
		"student_name": func(a, b exam.Marks) int { return cmpString(a.StudentName, b.StudentName) },
		"course_name":  func(a, b exam.Marks) int { return cmpString(a.CourseName, b.CourseName) },
		"entered_at":   func(a, b exam.Marks) int { return cmpTime(a.EnteredAt, b.EnteredAt) },
	}
)

func (repo *examRepository) CreateSchedule(_ context.Context, s exam.Schedule, _ ...core.DBExecutor) (exam.Schedule, error) {
	repo.db.examSchedule.Lock()
	defer repo.db.examSchedule.Unlock()

	repo.db.examSchedule.rows[s.ID] = s
	return s, nil
}

func (repo *examRepository) GetSchedule(_ context.Context, id string, _ ...core.DBExecutor) (exam.Schedule, error) {
	repo.db.examSchedule.RLock()
	defer repo.db.examSchedule.RUnlock()

	if s, ok := repo.db.examSchedule.rows[id]; ok {
		return s, nil
	}
	return exam.Schedule{}, exam.ErrScheduleNotFound
}

func (repo *examRepository) QuerySchedules(_ context.Context, filter *exam.ScheduleFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]exam.Schedule, error) {
	repo.db.examSchedule.RLock()
	defer repo.db.examSchedule.RUnlock()

	if filter == nil {
		filter = &exam.ScheduleFilter{}
	}
	schedules := repo.db.examSchedule.filter(func(s exam.Schedule) bool {
		return (filter.Class == "" || s.Class == filter.Class) && inRange(s.ExamDate, filter.From, filter.To)
	})
	sortRows(schedules, ordering, scheduleOrdering, scheduleOrdering["exam_date"])
	return schedules, nil
}

func (repo *examRepository) DeleteSchedule(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.examSchedule.Lock()
	defer repo.db.examSchedule.Unlock()

	if _, ok := repo.db.examSchedule.rows[id]; !ok {
		return exam.ErrScheduleNotFound
	}
	delete(repo.db.examSchedule.rows, id)
	return nil
}

func (repo *examRepository) UpsertMarks(_ context.Context, marks []exam.Marks, _ ...core.DBExecutor) ([]exam.Marks, error) {
	repo.db.examMarks.Lock()
	defer repo.db.examMarks.Unlock()

	saved := make([]exam.Marks, 0, len(marks))
	for _, m := range marks {
		if old, ok := repo.db.examMarks.find(func(o exam.Marks) bool {
			return o.CourseID == m.CourseID && o.StudentID == m.StudentID
		}); ok {
			m.ID = old.ID
		}
		repo.db.examMarks.rows[m.ID] = m
		saved = append(saved, m)
	}
	return saved, nil
}

func (repo *examRepository) QueryMarks(_ context.Context, filter *exam.MarksFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]exam.Marks, error) {
	repo.db.examMarks.RLock()
	defer repo.db.examMarks.RUnlock()

	if filter == nil {
		filter = &exam.MarksFilter{}
	}
	marks := repo.db.examMarks.filter(func(m exam.Marks) bool {
		if filter.CourseID != "" && m.CourseID != filter.CourseID {
			return false
		}
		if filter.Class != "" && m.Class != filter.Class {
			return false
		}
		if filter.StudentIDs != nil && !core.ContainsString(filter.StudentIDs, m.StudentID) {
			return false
		}
		return true
	})
	sortRows(marks, ordering, marksOrdering, func(a, b exam.Marks) int {
		if c := cmpString(a.StudentName, b.StudentName); c != 0 {
			return c
		}
		return cmpString(a.CourseName, b.CourseName)
	})
	return marks, nil
}
