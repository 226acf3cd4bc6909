package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

var courseOrdering = map[string]comparator[course.Course]{
	"name":       func(a, b course.Course) int { return cmpString(a.Name, b.Name) },
	"code":       func(a, b course.Course) int { return cmpString(a.Code, b.Code) },
	"class":      func(a, b course.Course) int { return cmpString(a.Class, b.Class) },
	"created_at": func(a, b course.Course) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func cloneCourse(c course.Course) course.Course {
	c.EnrolledStudents = append([]string{}, c.EnrolledStudents...)
	return c
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, taken := repo.db.course.find(func(o course.Course) bool { return o.Code == c.Code }); taken {
		return course.Course{}, course.ErrCodeExists
	}
	repo.db.course.rows[c.ID] = cloneCourse(c)
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.rows[id]; ok {
		return cloneCourse(c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByCode(_ context.Context, code string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.find(func(o course.Course) bool { return o.Code == code }); ok {
		return cloneCourse(c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if filter == nil {
		filter = &course.QueryFilter{}
	}
	courses := repo.db.course.filter(func(c course.Course) bool {
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			return false
		}
		if filter.Class != "" && c.Class != filter.Class {
			return false
		}
		if filter.Classes != nil && !core.ContainsString(filter.Classes, c.Class) {
			return false
		}
		if filter.Active != nil && c.Active != *filter.Active {
			return false
		}
		if filter.Search != "" && !containsFold(filter.Search, c.Name, c.Code) {
			return false
		}
		return true
	})
	for i := range courses {
		courses[i] = cloneCourse(courses[i])
	}

	sortRows(courses, ordering, courseOrdering, courseOrdering["name"])
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	orig, ok := repo.db.course.rows[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if _, taken := repo.db.course.find(func(o course.Course) bool { return o.ID != c.ID && o.Code == c.Code }); taken {
		return course.Course{}, course.ErrCodeExists
	}
	c.CreatedAt = orig.CreatedAt
	repo.db.course.rows[c.ID] = cloneCourse(c)
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.rows[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.course.rows, id)

	repo.db.assignment.Lock()
	for aid, a := range repo.db.assignment.rows {
		if a.CourseID == id {
			delete(repo.db.assignment.rows, aid)
		}
	}
	repo.db.assignment.Unlock()

	repo.db.material.Lock()
	for mid, m := range repo.db.material.rows {
		if m.CourseID == id {
			delete(repo.db.material.rows, mid)
		}
	}
	repo.db.material.Unlock()

	repo.db.submission.Lock()
	for sid, s := range repo.db.submission.rows {
		if s.CourseID == id {
			delete(repo.db.submission.rows, sid)
		}
	}
	repo.db.submission.Unlock()
	return nil
}

// Assignments

func (repo *courseRepository) CreateAssignment(_ context.Context, a course.Assignment, _ ...core.DBExecutor) (course.Assignment, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	repo.db.assignment.rows[a.ID] = a
	return a, nil
}

func (repo *courseRepository) GetAssignment(_ context.Context, id string, _ ...core.DBExecutor) (course.Assignment, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	if a, ok := repo.db.assignment.rows[id]; ok {
		return a, nil
	}
	return course.Assignment{}, course.ErrAssignmentNotFound
}

func (repo *courseRepository) QueryAssignments(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Assignment, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	assignments := repo.db.assignment.filter(func(a course.Assignment) bool { return a.CourseID == courseID })
	sortRows(assignments, nil, nil, func(a, b course.Assignment) int { return cmpTime(a.DueDate, b.DueDate) })
	return assignments, nil
}

func (repo *courseRepository) UpdateAssignment(_ context.Context, a course.Assignment, _ ...core.DBExecutor) (course.Assignment, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	orig, ok := repo.db.assignment.rows[a.ID]
	if !ok {
		return course.Assignment{}, course.ErrAssignmentNotFound
	}
	a.CourseID = orig.CourseID
	a.CreatedAt = orig.CreatedAt
	repo.db.assignment.rows[a.ID] = a
	return a, nil
}

func (repo *courseRepository) DeleteAssignment(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	if _, ok := repo.db.assignment.rows[id]; !ok {
		return course.ErrAssignmentNotFound
	}
	delete(repo.db.assignment.rows, id)

	repo.db.submission.Lock()
	defer repo.db.submission.Unlock()
	for sid, s := range repo.db.submission.rows {
		if s.AssignmentID == id {
			delete(repo.db.submission.rows, sid)
		}
	}
	return nil
}

// Materials

func (repo *courseRepository) CreateMaterial(_ context.Context, m course.Material, _ ...core.DBExecutor) (course.Material, error) {
	repo.db.material.Lock()
	defer repo.db.material.Unlock()

	repo.db.material.rows[m.ID] = m
	return m, nil
}

func (repo *courseRepository) GetMaterial(_ context.Context, id string, _ ...core.DBExecutor) (course.Material, error) {
	repo.db.material.RLock()
	defer repo.db.material.RUnlock()

	if m, ok := repo.db.material.rows[id]; ok {
		return m, nil
	}
	return course.Material{}, course.ErrMaterialNotFound
}

func (repo *courseRepository) QueryMaterials(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Material, error) {
	repo.db.material.RLock()
	defer repo.db.material.RUnlock()

	materials := repo.db.material.filter(func(m course.Material) bool { return m.CourseID == courseID })
	sortRows(materials, nil, nil, func(a, b course.Material) int { return cmpTime(b.UploadedAt, a.UploadedAt) })
	return materials, nil
}

func (repo *courseRepository) DeleteMaterial(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.material.Lock()
	defer repo.db.material.Unlock()

	if _, ok := repo.db.material.rows[id]; !ok {
		return course.ErrMaterialNotFound
	}
	delete(repo.db.material.rows, id)
	return nil
}

// Submissions

func (repo *courseRepository) SaveSubmission(_ context.Context, s course.Submission, _ ...core.DBExecutor) (course.Submission, error) {
	repo.db.submission.Lock()
	defer repo.db.submission.Unlock()

	if old, ok := repo.db.submission.find(func(o course.Submission) bool {
		return o.AssignmentID == s.AssignmentID && o.StudentID == s.StudentID
	}); ok {
		s.ID = old.ID
	}
	repo.db.submission.rows[s.ID] = s
	return s, nil
}

func matchSubmission(filter *course.SubmissionFilter) func(s course.Submission) bool {
	return func(s course.Submission) bool {
		if filter == nil {
			return true
		}
		if filter.ID != "" && s.ID != filter.ID {
			return false
		}
		if filter.AssignmentID != "" && s.AssignmentID != filter.AssignmentID {
			return false
		}
		if filter.CourseID != "" && s.CourseID != filter.CourseID {
			return false
		}
		if filter.StudentIDs != nil && !core.ContainsString(filter.StudentIDs, s.StudentID) {
			return false
		}
		return true
	}
}

func (repo *courseRepository) GetSubmission(_ context.Context, filter course.SubmissionFilter, _ ...core.DBExecutor) (course.Submission, error) {
	repo.db.submission.RLock()
	defer repo.db.submission.RUnlock()

	if s, ok := repo.db.submission.find(matchSubmission(&filter)); ok {
		return s, nil
	}
	return course.Submission{}, course.ErrSubmissionNotFound
}

func (repo *courseRepository) QuerySubmissions(_ context.Context, filter *course.SubmissionFilter, _ ...core.DBExecutor) ([]course.Submission, error) {
	repo.db.submission.RLock()
	defer repo.db.submission.RUnlock()

	subs := repo.db.submission.filter(matchSubmission(filter))
	sortRows(subs, nil, nil, func(a, b course.Submission) int { return cmpTime(b.SubmittedAt, a.SubmittedAt) })
	return subs, nil
}
