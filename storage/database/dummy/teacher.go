package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/teacher"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db}
}

var teacherOrdering = map[string]comparator[teacher.Teacher]{
	"name":        func(a, b teacher.Teacher) int { return cmpString(a.Name, b.Name) },
	"employee_id": func(a, b teacher.Teacher) int { return cmpString(a.EmployeeID, b.EmployeeID) },
	"department":  func(a, b teacher.Teacher) int { return cmpString(a.Department, b.Department) },
	"subject":     func(a, b teacher.Teacher) int { return cmpString(a.Subject, b.Subject) },
	"created_at":  func(a, b teacher.Teacher) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func (repo *teacherRepository) CreateTeacher(_ context.Context, t teacher.Teacher, _ ...core.DBExecutor) (teacher.Teacher, error) {
	repo.db.teacher.Lock()
	defer repo.db.teacher.Unlock()

	if _, taken := repo.db.teacher.find(func(o teacher.Teacher) bool { return o.EmployeeID == t.EmployeeID }); taken {
		return teacher.Teacher{}, teacher.ErrEmployeeIDExists
	}
	repo.db.teacher.rows[t.ID] = t
	return t, nil
}

func (repo *teacherRepository) GetTeacher(_ context.Context, filter teacher.GetFilter, _ ...core.DBExecutor) (teacher.Teacher, error) {
	repo.db.teacher.RLock()
	defer repo.db.teacher.RUnlock()

	var match func(t teacher.Teacher) bool
	switch {
	case filter.ID != "":
		if t, ok := repo.db.teacher.rows[filter.ID]; ok {
			return t, nil
		}
		return teacher.Teacher{}, teacher.ErrNotFound
	case filter.UserID != "":
		match = func(t teacher.Teacher) bool { return t.UserID == filter.UserID }
	case filter.EmployeeID != "":
		match = func(t teacher.Teacher) bool { return t.EmployeeID == filter.EmployeeID }
	default:
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	if t, ok := repo.db.teacher.find(match); ok {
		return t, nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) QueryTeachers(_ context.Context, filter *teacher.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]teacher.Teacher, error) {
	repo.db.teacher.RLock()
	defer repo.db.teacher.RUnlock()

	if filter == nil {
		filter = &teacher.QueryFilter{}
	}
	teachers := repo.db.teacher.filter(func(t teacher.Teacher) bool {
		if filter.Search != "" && !containsFold(filter.Search, t.Name, t.Email, t.EmployeeID) {
			return false
		}
		if filter.Department != "" && cmpString(t.Department, filter.Department) != 0 {
			return false
		}
		if filter.Subject != "" && cmpString(t.Subject, filter.Subject) != 0 {
			return false
		}
		if filter.IsActive != nil && t.IsActive != *filter.IsActive {
			return false
		}
		return true
	})

	sortRows(teachers, ordering, teacherOrdering, teacherOrdering["name"])
	return teachers, nil
}

func (repo *teacherRepository) UpdateTeacher(_ context.Context, t teacher.Teacher, _ ...core.DBExecutor) (teacher.Teacher, error) {
	repo.db.teacher.Lock()
	defer repo.db.teacher.Unlock()

	orig, ok := repo.db.teacher.rows[t.ID]
	if !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	t.CreatedAt = orig.CreatedAt
	repo.db.teacher.rows[t.ID] = t
	return t, nil
}

func (repo *teacherRepository) DeleteTeacher(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.teacher.Lock()
	defer repo.db.teacher.Unlock()

	if _, ok := repo.db.teacher.rows[id]; !ok {
		return teacher.ErrNotFound
	}
	delete(repo.db.teacher.rows, id)
	return nil
}

func (repo *teacherRepository) CountTeachers(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.teacher.RLock()
	defer repo.db.teacher.RUnlock()
	return len(repo.db.teacher.rows), nil
}
