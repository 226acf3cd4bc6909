package course

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/teacher"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("course")
	ErrAssignmentNotFound = core.NewNotFoundError("assignment")
	ErrMaterialNotFound   = core.NewNotFoundError("material")
	ErrSubmissionNotFound = core.NewNotFoundError("submission")
	ErrCodeExists         = errors.New("a course with this code already exists")

	errNotCourseTeacher = core.NewForbiddenError("only the course teacher or an admin can do this")
	errNotEnrolled      = core.NewForbiddenError("you are not enrolled in this course")
	errAlreadyGraded    = core.NewConflictError("this submission has already been graded")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		// GetCourseByCode returns ErrNotFound when no course has `code`.
		GetCourseByCode(ctx context.Context, code string, exec ...core.DBExecutor) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Course.Name or Course.Code.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// DeleteCourse deletes the course along with its assignments, materials and submissions.
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
		GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
		// QueryAssignments lists the assignments of the course, by due date.
		QueryAssignments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
		// DeleteAssignment deletes the assignment and its submissions.
		DeleteAssignment(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
		GetMaterial(ctx context.Context, id string, exec ...core.DBExecutor) (Material, error)
		QueryMaterials(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Material, error)
		DeleteMaterial(ctx context.Context, id string, exec ...core.DBExecutor) error

		// SaveSubmission inserts `s` or replaces the submission of the same (AssignmentID, StudentID).
		SaveSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		// GetSubmission returns the first submission matching the filter, or ErrSubmissionNotFound.
		GetSubmission(ctx context.Context, filter SubmissionFilter, exec ...core.DBExecutor) (Submission, error)
		QuerySubmissions(ctx context.Context, filter *SubmissionFilter, exec ...core.DBExecutor) ([]Submission, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Detail(ctx context.Context, id string) (Detail, error)
		Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id string) error
		Enroll(ctx context.Context, id string, e Enroll) (Course, error)
		// CanManage reports whether `usr` is an admin or the teacher of `c`.
		CanManage(ctx context.Context, c Course, usr user.User) (bool, error)

		CreateAssignment(ctx context.Context, courseID string, na NewAssignment, by user.User) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment, ua UpdateAssignment, by user.User) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string, by user.User) error

		CreateMaterial(ctx context.Context, courseID string, nm NewMaterial, by user.User) (Material, error)
		DeleteMaterial(ctx context.Context, id string, by user.User) error

		Submit(ctx context.Context, assignmentID string, ns NewSubmission, by user.User) (Submission, error)
		Submissions(ctx context.Context, filter *SubmissionFilter) ([]Submission, error)
		GradeSubmission(ctx context.Context, id string, g Grade, by user.User) (Submission, error)
	}

	service struct {
		repo        Repository
		teacherRepo teacher.Repository
		studentRepo student.Repository
		tx          core.TxRunner
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, teacherRepo teacher.Repository, studentRepo student.Repository, tx core.TxRunner) Service {
	return &service{
		repo:        repo,
		teacherRepo: teacherRepo,
		studentRepo: studentRepo,
		tx:          tx,
	}
}

// teacherName resolves the name of the teacher `id`; an unknown teacher is a validation error.
func (svc *service) teacherName(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	t, err := svc.teacherRepo.GetTeacher(ctx, teacher.GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == teacher.ErrNotFound {
			return "", core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "teacher not found"})
		}
		return "", errors.Wrap(err, "finding teacher")
	}
	return t.Name, nil
}

func (svc *service) checkCode(ctx context.Context, code, excludedID string) error {
	c, err := svc.repo.GetCourseByCode(ctx, code)
	switch {
	case err == nil && c.ID != excludedID:
		return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	case err != nil && errors.Cause(err) != ErrNotFound:
		return errors.Wrap(err, "checking course code")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.checkCode(ctx, nc.Code, ""); err != nil {
		return Course{}, err
	}
	name, err := svc.teacherName(ctx, nc.TeacherID)
	if err != nil {
		return Course{}, err
	}

	active := true
	if nc.Active != nil {
		active = *nc.Active
	}
	now := core.NowFunc().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		ID:               core.NewID(),
		Name:             nc.Name,
		Code:             nc.Code,
		Class:            nc.Class,
		Description:      nc.Description,
		TeacherID:        nc.TeacherID,
		TeacherName:      name,
		Active:           active,
		EnrolledStudents: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, core.FilterOrdering(ordering, OrderingFields))
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Detail(ctx context.Context, id string) (Detail, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Course: c}
	if d.Assignments, err = svc.repo.QueryAssignments(ctx, c.ID); err != nil {
		return Detail{}, errors.Wrap(err, "querying assignments")
	}
	if d.Materials, err = svc.repo.QueryMaterials(ctx, c.ID); err != nil {
		return Detail{}, errors.Wrap(err, "querying materials")
	}
	return d, nil
}

func (svc *service) Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error) {
	if uc.Code != c.Code {
		if err := svc.checkCode(ctx, uc.Code, c.ID); err != nil {
			return Course{}, err
		}
	}
	if uc.TeacherID != c.TeacherID {
		name, err := svc.teacherName(ctx, uc.TeacherID)
		if err != nil {
			return Course{}, err
		}
		c.TeacherID = uc.TeacherID
		c.TeacherName = name
	}
	c.Name = uc.Name
	c.Code = uc.Code
	c.Class = uc.Class
	c.Description = uc.Description
	c.Active = *uc.Active
	c.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		c, err := svc.repo.GetCourse(ctx, id, exec)
		if err != nil {
			return err
		}
		return svc.repo.DeleteCourse(ctx, c.ID, exec)
	})
}

// Enroll adds the students to the course; students already enrolled are ignored.
func (svc *service) Enroll(ctx context.Context, id string, e Enroll) (Course, error) {
	students, err := svc.studentRepo.QueryStudents(ctx, &student.QueryFilter{StudentIDs: e.StudentIDs}, nil)
	if err != nil {
		return Course{}, errors.Wrap(err, "querying students")
	}
	found := make(map[string]bool, len(students))
	for _, s := range students {
		found[s.ID] = true
	}
	for i, sid := range e.StudentIDs {
		if !found[sid] {
			return Course{}, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("student_ids[%d]", i),
				Error: "student not found",
			})
		}
	}

	var c Course
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.GetCourse(ctx, id, exec); err != nil {
			return err
		}
		for _, sid := range e.StudentIDs {
			if !core.ContainsString(c.EnrolledStudents, sid) {
				c.EnrolledStudents = append(c.EnrolledStudents, sid)
			}
		}
		c.UpdatedAt = core.NowFunc().UTC()
		c, err = svc.repo.UpdateCourse(ctx, c, exec)
		return err
	})
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

func (svc *service) CanManage(ctx context.Context, c Course, usr user.User) (bool, error) {
	if usr.IsAdmin() {
		return true, nil
	}
	if !usr.IsTeacher() || c.TeacherID == "" {
		return false, nil
	}
	t, err := svc.teacherRepo.GetTeacher(ctx, teacher.GetFilter{UserID: usr.ID})
	if err != nil {
		if errors.Cause(err) == teacher.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return t.ID == c.TeacherID, nil
}

// managedCourse returns the course `id` when `usr` can manage it.
func (svc *service) managedCourse(ctx context.Context, id string, usr user.User) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	ok, err := svc.CanManage(ctx, c, usr)
	if err != nil {
		return Course{}, err
	}
	if !ok {
		return Course{}, errNotCourseTeacher
	}
	return c, nil
}

func (svc *service) CreateAssignment(ctx context.Context, courseID string, na NewAssignment, by user.User) (Assignment, error) {
	c, err := svc.managedCourse(ctx, courseID, by)
	if err != nil {
		return Assignment{}, err
	}
	return svc.repo.CreateAssignment(ctx, Assignment{
		ID:          core.NewID(),
		CourseID:    c.ID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
		MaxMarks:    na.MaxMarks,
		CreatedBy:   by.ID,
		CreatedAt:   core.NowFunc().UTC(),
	})
}

func (svc *service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *service) UpdateAssignment(ctx context.Context, a Assignment, ua UpdateAssignment, by user.User) (Assignment, error) {
	if _, err := svc.managedCourse(ctx, a.CourseID, by); err != nil {
		return Assignment{}, err
	}
	a.Title = ua.Title
	a.Description = ua.Description
	a.DueDate = ua.DueDate
	a.MaxMarks = ua.MaxMarks
	return svc.repo.UpdateAssignment(ctx, a)
}

func (svc *service) DeleteAssignment(ctx context.Context, id string, by user.User) error {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if _, err = svc.managedCourse(ctx, a.CourseID, by); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(ctx, a.ID)
}

func (svc *service) CreateMaterial(ctx context.Context, courseID string, nm NewMaterial, by user.User) (Material, error) {
	c, err := svc.managedCourse(ctx, courseID, by)
	if err != nil {
		return Material{}, err
	}
	return svc.repo.CreateMaterial(ctx, Material{
		ID:          core.NewID(),
		CourseID:    c.ID,
		Title:       nm.Title,
		Description: nm.Description,
		Link:        nm.Link,
		Type:        nm.Type,
		UploadedBy:  by.ID,
		UploadedAt:  core.NowFunc().UTC(),
	})
}

func (svc *service) DeleteMaterial(ctx context.Context, id string, by user.User) error {
	m, err := svc.repo.GetMaterial(ctx, id)
	if err != nil {
		return err
	}
	if _, err = svc.managedCourse(ctx, m.CourseID, by); err != nil {
		return err
	}
	return svc.repo.DeleteMaterial(ctx, m.ID)
}

// Submit saves the work of the student `by`, replacing their previous submission unless it was graded.
func (svc *service) Submit(ctx context.Context, assignmentID string, ns NewSubmission, by user.User) (Submission, error) {
	s, err := svc.studentRepo.GetStudent(ctx, student.GetFilter{UserID: by.ID})
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Submission{}, errNotEnrolled
		}
		return Submission{}, errors.Wrap(err, "finding student")
	}
	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	c, err := svc.repo.GetCourse(ctx, a.CourseID)
	if err != nil {
		return Submission{}, err
	}
	if c.Class != s.Class && !core.ContainsString(c.EnrolledStudents, s.ID) {
		return Submission{}, errNotEnrolled
	}

	now := core.NowFunc().UTC()
	sub := Submission{
		ID:           core.NewID(),
		AssignmentID: a.ID,
		CourseID:     c.ID,
		StudentID:    s.ID,
		StudentName:  s.Name,
		Link:         ns.Link,
		SubmittedAt:  now,
		Status:       SubmissionSubmitted,
	}
	if now.After(a.DueDate) {
		sub.Status = SubmissionLate
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		prev, err := svc.repo.GetSubmission(ctx, SubmissionFilter{AssignmentID: a.ID, StudentIDs: []string{s.ID}}, exec)
		switch {
		case err == nil && prev.Status == SubmissionGraded:
			return errAlreadyGraded
		case err == nil:
			sub.ID = prev.ID
		case errors.Cause(err) != ErrSubmissionNotFound:
			return err
		}
		sub, err = svc.repo.SaveSubmission(ctx, sub, exec)
		return err
	})
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (svc *service) Submissions(ctx context.Context, filter *SubmissionFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter)
}

func (svc *service) GradeSubmission(ctx context.Context, id string, g Grade, by user.User) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, SubmissionFilter{ID: id})
	if err != nil {
		return Submission{}, err
	}
	if _, err = svc.managedCourse(ctx, sub.CourseID, by); err != nil {
		return Submission{}, err
	}
	a, err := svc.repo.GetAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if *g.Marks > a.MaxMarks {
		return Submission{}, core.NewValidationError(nil, core.FieldError{
			Field: "marks",
			Error: fmt.Sprintf("marks must be %v or less", a.MaxMarks),
		})
	}

	marks := *g.Marks
	sub.Marks = &marks
	sub.Feedback = g.Feedback
	sub.Status = SubmissionGraded
	return svc.repo.SaveSubmission(ctx, sub)
}
