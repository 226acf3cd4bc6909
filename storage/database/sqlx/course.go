package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
)

const (
	courseColumns = `id, name, code, class, description, teacher_id, teacher_name, active, enrolled_students,
	created_at, updated_at`
	assignmentColumns = `id, course_id, title, description, due_date, max_marks, created_by, created_at`
	materialColumns   = `id, course_id, title, description, link, type, uploaded_by, uploaded_at`
	submissionColumns = `id, assignment_id, course_id, student_id, student_name, link, submitted_at, status, marks, feedback`
)

type courseRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	Code             string         `db:"code"`
	Class            string         `db:"class"`
	Description      string         `db:"description"`
	TeacherID        string         `db:"teacher_id"`
	TeacherName      string         `db:"teacher_name"`
	Active           bool           `db:"active"`
	EnrolledStudents pq.StringArray `db:"enrolled_students"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func toCourseRow(c course.Course) courseRow {
	enrolled := c.EnrolledStudents
	if enrolled == nil {
		enrolled = []string{}
	}
	return courseRow{
		ID:               c.ID,
		Name:             c.Name,
		Code:             c.Code,
		Class:            c.Class,
		Description:      c.Description,
		TeacherID:        c.TeacherID,
		TeacherName:      c.TeacherName,
		Active:           c.Active,
		EnrolledStudents: pq.StringArray(enrolled),
		CreatedAt:        c.CreatedAt.UTC(),
		UpdatedAt:        c.UpdatedAt.UTC(),
	}
}

func (row courseRow) course() course.Course {
	enrolled := []string(row.EnrolledStudents)
	if enrolled == nil {
		enrolled = []string{}
	}
	return course.Course{
		ID:               row.ID,
		Name:             row.Name,
		Code:             row.Code,
		Class:            row.Class,
		Description:      row.Description,
		TeacherID:        row.TeacherID,
		TeacherName:      row.TeacherName,
		Active:           row.Active,
		EnrolledStudents: enrolled,
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

type assignmentRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     time.Time `db:"due_date"`
	MaxMarks    float64   `db:"max_marks"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row assignmentRow) assignment() course.Assignment {
	a := course.Assignment(row)
	a.DueDate, a.CreatedAt = a.DueDate.UTC(), a.CreatedAt.UTC()
	return a
}

type materialRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Link        string    `db:"link"`
	Type        string    `db:"type"`
	UploadedBy  string    `db:"uploaded_by"`
	UploadedAt  time.Time `db:"uploaded_at"`
}

func (row materialRow) material() course.Material {
	m := course.Material(row)
	m.UploadedAt = m.UploadedAt.UTC()
	return m
}

type submissionRow struct {
	ID           string       `db:"id"`
	AssignmentID string       `db:"assignment_id"`
	CourseID     string       `db:"course_id"`
	StudentID    string       `db:"student_id"`
	StudentName  string       `db:"student_name"`
	Link         string       `db:"link"`
	SubmittedAt  time.Time    `db:"submitted_at"`
	Status       string       `db:"status"`
	Marks        null.Float64 `db:"marks"`
	Feedback     string       `db:"feedback"`
}

func (row submissionRow) submission() course.Submission {
	return course.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		CourseID:     row.CourseID,
		StudentID:    row.StudentID,
		StudentName:  row.StudentName,
		Link:         row.Link,
		SubmittedAt:  row.SubmittedAt.UTC(),
		Status:       row.Status,
		Marks:        row.Marks.Ptr(),
		Feedback:     row.Feedback,
	}
}

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{repository{db: db}}
}

func trapCodeExists(err error, msg string) error {
	if isUniqueViolation(err, "course_code_key") {
		return course.ErrCodeExists
	}
	return trapNoRows(err, course.ErrNotFound, msg)
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	row := toCourseRow(c)
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO course (`+courseColumns+`)
		VALUES (:id, :name, :code, :class, :description, :teacher_id, :teacher_name, :active, :enrolled_students,
			:created_at, :updated_at)`,
		row)
	if err != nil {
		return course.Course{}, trapCodeExists(err, "inserting course")
	}
	return row.course(), nil
}

func (repo *courseRepository) getCourse(ctx context.Context, exec []core.DBExecutor, cond, arg string) (course.Course, error) {
	var row courseRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+courseColumns+` FROM course WHERE `+cond, arg); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "getting course")
	}
	return row.course(), nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	return repo.getCourse(ctx, exec, "id = ?", id)
}

func (repo *courseRepository) GetCourseByCode(ctx context.Context, code string, exec ...core.DBExecutor) (course.Course, error) {
	return repo.getCourse(ctx, exec, "code = ?", code)
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	var w where
	if filter != nil {
		if filter.TeacherID != "" {
			w.add("teacher_id = ?", filter.TeacherID)
		}
		if filter.Class != "" {
			w.add("class = ?", filter.Class)
		}
		if filter.Classes != nil {
			w.add("class = ANY(?)", pq.StringArray(filter.Classes))
		}
		if filter.Active != nil {
			w.add("active = ?", *filter.Active)
		}
		if filter.Search != "" {
			w.search(filter.Search, "name", "code")
		}
	}

	var rows []courseRow
	query := `SELECT ` + courseColumns + ` FROM course` + w.String() + orderBy(ordering, "name ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	in := toCourseRow(c)
	var row courseRow
	err := get(ctx, repo.ext(exec), &row, `
		UPDATE course SET
			name = ?, code = ?, class = ?, description = ?, teacher_id = ?, teacher_name = ?, active = ?,
			enrolled_students = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+courseColumns,
		in.Name, in.Code, in.Class, in.Description, in.TeacherID, in.TeacherName, in.Active,
		in.EnrolledStudents, in.UpdatedAt, in.ID)
	if err != nil {
		return course.Course{}, trapCodeExists(err, "updating course")
	}
	return row.course(), nil
}

// DeleteCourse relies on ON DELETE CASCADE for assignments, materials and submissions.
func (repo *courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM course WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) CreateAssignment(ctx context.Context, a course.Assignment, exec ...core.DBExecutor) (course.Assignment, error) {
	a.DueDate, a.CreatedAt = a.DueDate.UTC(), a.CreatedAt.UTC()
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO assignment (`+assignmentColumns+`)
		VALUES (:id, :course_id, :title, :description, :due_date, :max_marks, :created_by, :created_at)`,
		assignmentRow(a))
	if err != nil {
		return course.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo *courseRepository) GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (course.Assignment, error) {
	var row assignmentRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+assignmentColumns+` FROM assignment WHERE id = ?`, id); err != nil {
		return course.Assignment{}, trapNoRows(err, course.ErrAssignmentNotFound, "getting assignment")
	}
	return row.assignment(), nil
}

func (repo *courseRepository) QueryAssignments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Assignment, error) {
	var rows []assignmentRow
	err := selectAll(ctx, repo.ext(exec), &rows,
		`SELECT `+assignmentColumns+` FROM assignment WHERE course_id = ? ORDER BY due_date ASC`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]course.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.assignment())
	}
	return assignments, nil
}

func (repo *courseRepository) UpdateAssignment(ctx context.Context, a course.Assignment, exec ...core.DBExecutor) (course.Assignment, error) {
	var row assignmentRow
	err := get(ctx, repo.ext(exec), &row, `
		UPDATE assignment SET title = ?, description = ?, due_date = ?, max_marks = ?
		WHERE id = ?
		RETURNING `+assignmentColumns,
		a.Title, a.Description, a.DueDate.UTC(), a.MaxMarks, a.ID)
	if err != nil {
		return course.Assignment{}, trapNoRows(err, course.ErrAssignmentNotFound, "updating assignment")
	}
	return row.assignment(), nil
}

func (repo *courseRepository) DeleteAssignment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM assignment WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n == 0 {
		return course.ErrAssignmentNotFound
	}
	return nil
}

func (repo *courseRepository) CreateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (course.Material, error) {
	m.UploadedAt = m.UploadedAt.UTC()
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO material (`+materialColumns+`)
		VALUES (:id, :course_id, :title, :description, :link, :type, :uploaded_by, :uploaded_at)`,
		materialRow(m))
	if err != nil {
		return course.Material{}, errors.Wrap(err, "inserting material")
	}
	return m, nil
}

func (repo *courseRepository) GetMaterial(ctx context.Context, id string, exec ...core.DBExecutor) (course.Material, error) {
	var row materialRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+materialColumns+` FROM material WHERE id = ?`, id); err != nil {
		return course.Material{}, trapNoRows(err, course.ErrMaterialNotFound, "getting material")
	}
	return row.material(), nil
}

func (repo *courseRepository) QueryMaterials(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Material, error) {
	var rows []materialRow
	err := selectAll(ctx, repo.ext(exec), &rows,
		`SELECT `+materialColumns+` FROM material WHERE course_id = ? ORDER BY uploaded_at DESC`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	materials := make([]course.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.material())
	}
	return materials, nil
}

func (repo *courseRepository) DeleteMaterial(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM material WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if n == 0 {
		return course.ErrMaterialNotFound
	}
	return nil
}

func (repo *courseRepository) SaveSubmission(ctx context.Context, s course.Submission, exec ...core.DBExecutor) (course.Submission, error) {
	var row submissionRow
	err := get(ctx, repo.ext(exec), &row, `
		INSERT INTO submission (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (assignment_id, student_id) DO UPDATE SET
			student_name = EXCLUDED.student_name, link = EXCLUDED.link, submitted_at = EXCLUDED.submitted_at,
			status = EXCLUDED.status, marks = EXCLUDED.marks, feedback = EXCLUDED.feedback
		RETURNING `+submissionColumns,
		s.ID, s.AssignmentID, s.CourseID, s.StudentID, s.StudentName, s.Link, s.SubmittedAt.UTC(), s.Status,
		null.Float64FromPtr(s.Marks), s.Feedback)
	if err != nil {
		return course.Submission{}, errors.Wrap(err, "saving submission")
	}
	return row.submission(), nil
}

func submissionWhere(filter *course.SubmissionFilter) where {
	var w where
	if filter == nil {
		return w
	}
	if filter.ID != "" {
		w.add("id = ?", filter.ID)
	}
	if filter.AssignmentID != "" {
		w.add("assignment_id = ?", filter.AssignmentID)
	}
	if filter.CourseID != "" {
		w.add("course_id = ?", filter.CourseID)
	}
	if filter.StudentIDs != nil {
		w.add("student_id = ANY(?)", pq.StringArray(filter.StudentIDs))
	}
	return w
}

func (repo *courseRepository) GetSubmission(ctx context.Context, filter course.SubmissionFilter, exec ...core.DBExecutor) (course.Submission, error) {
	w := submissionWhere(&filter)
	var row submissionRow
	query := `SELECT ` + submissionColumns + ` FROM submission` + w.String() + ` ORDER BY submitted_at DESC LIMIT 1`
	if err := get(ctx, repo.ext(exec), &row, query, w.args...); err != nil {
		return course.Submission{}, trapNoRows(err, course.ErrSubmissionNotFound, "getting submission")
	}
	return row.submission(), nil
}

func (repo *courseRepository) QuerySubmissions(ctx context.Context, filter *course.SubmissionFilter, exec ...core.DBExecutor) ([]course.Submission, error) {
	w := submissionWhere(filter)
	var rows []submissionRow
	query := `SELECT ` + submissionColumns + ` FROM submission` + w.String() + ` ORDER BY submitted_at DESC`
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]course.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.submission())
	}
	return subs, nil
}
