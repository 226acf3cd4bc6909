package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

var studentOrdering = map[string]comparator[student.Student]{
	"name":        func(a, b student.Student) int { return cmpString(a.Name, b.Name) },
	"class":       func(a, b student.Student) int { return cmpString(a.Class, b.Class) },
	"roll_number": func(a, b student.Student) int { return cmpString(a.RollNumber, b.RollNumber) },
	"status":      func(a, b student.Student) int { return cmpString(a.Status, b.Status) },
	"created_at":  func(a, b student.Student) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	if repo.rollNumberTaken(s) {
		return student.Student{}, student.ErrRollNumberExists
	}
	repo.db.student.rows[s.ID] = s
	return s, nil
}

// rollNumberTaken mirrors the unique (class, roll_number) constraint. The caller holds the lock.
func (repo *studentRepository) rollNumberTaken(s student.Student) bool {
	_, taken := repo.db.student.find(func(o student.Student) bool {
		return o.ID != s.ID && o.Class == s.Class && o.RollNumber == s.RollNumber
	})
	return taken
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	switch {
	case filter.ID != "":
		if s, ok := repo.db.student.rows[filter.ID]; ok {
			return s, nil
		}
	case filter.UserID != "":
		if s, ok := repo.db.student.find(func(s student.Student) bool { return s.UserID == filter.UserID }); ok {
			return s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	if filter == nil {
		filter = &student.QueryFilter{}
	}
	students := repo.db.student.filter(func(s student.Student) bool {
		if filter.StudentIDs != nil && !core.ContainsString(filter.StudentIDs, s.ID) {
			return false
		}
		if filter.Search != "" && !containsFold(filter.Search, s.Name, s.Email, s.RollNumber) {
			return false
		}
		if filter.Class != "" && s.Class != filter.Class {
			return false
		}
		if filter.Status != "" && s.Status != filter.Status {
			return false
		}
		if filter.ParentID != "" && s.ParentID != filter.ParentID {
			return false
		}
		return true
	})

	sortRows(students, ordering, studentOrdering, studentOrdering["name"])
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	orig, ok := repo.db.student.rows[s.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.rollNumberTaken(s) {
		return student.Student{}, student.ErrRollNumberExists
	}
	s.CreatedAt = orig.CreatedAt
	repo.db.student.rows[s.ID] = s
	return s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	if _, ok := repo.db.student.rows[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.student.rows, id)
	return nil
}

func (repo *studentRepository) CheckRollNumber(_ context.Context, class, rollNumber, excludedID string, _ ...core.DBExecutor) error {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	_, taken := repo.db.student.find(func(s student.Student) bool {
		return s.ID != excludedID && s.Class == class && s.RollNumber == rollNumber
	})
	if taken {
		return student.ErrRollNumberExists
	}
	return nil
}

func (repo *studentRepository) UnlinkParent(_ context.Context, parentID string, _ ...core.DBExecutor) error {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	for id, s := range repo.db.student.rows {
		if s.ParentID == parentID {
			s.ParentID = ""
			repo.db.student.rows[id] = s
		}
	}
	return nil
}
