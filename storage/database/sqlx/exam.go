package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/exam"
)

const (
	scheduleColumns = `id, course_name, class, exam_name, exam_date, start_time, end_time, venue, created_at`
	marksColumns    = `id, course_id, course_name, student_id, student_name, class, exam1, exam2, exam3,
	entered_by, entered_at`
)

// ordering a schedule by date breaks ties on the start time
var scheduleOrderExprs = map[string]string{"exam_date": "exam_date || start_time"}

type scheduleRow struct {
	ID         string    `db:"id"`
	CourseName string    `db:"course_name"`
	Class      string    `db:"class"`
	ExamName   string    `db:"exam_name"`
	ExamDate   string    `db:"exam_date"`
	StartTime  string    `db:"start_time"`
	EndTime    string    `db:"end_time"`
	Venue      string    `db:"venue"`
	CreatedAt  time.Time `db:"created_at"`
}

type marksRow struct {
	ID          string       `db:"id"`
	CourseID    string       `db:"course_id"`
	CourseName  string       `db:"course_name"`
	StudentID   string       `db:"student_id"`
	StudentName string       `db:"student_name"`
	Class       string       `db:"class"`
	Exam1       null.Float64 `db:"exam1"`
	Exam2       null.Float64 `db:"exam2"`
	Exam3       null.Float64 `db:"exam3"`
	EnteredBy   string       `db:"entered_by"`
	EnteredAt   time.Time    `db:"entered_at"`
}

func (row marksRow) marks() exam.Marks {
	return exam.Marks{
		ID:          row.ID,
		CourseID:    row.CourseID,
		CourseName:  row.CourseName,
		StudentID:   row.StudentID,
		StudentName: row.StudentName,
		Class:       row.Class,
		Exam1:       row.Exam1.Ptr(),
		Exam2:       row.Exam2.Ptr(),
		Exam3:       row.Exam3.Ptr(),
		EnteredBy:   row.EnteredBy,
		EnteredAt:   row.EnteredAt.UTC(),
	}
}

type examRepository struct {
	repository
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) exam.Repository {
	return &examRepository{repository{db: db}}
}

func (repo *examRepository) CreateSchedule(ctx context.Context, s exam.Schedule, exec ...core.DBExecutor) (exam.Schedule, error) {
	s.CreatedAt = s.CreatedAt.UTC()
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO exam_schedule (`+scheduleColumns+`)
		VALUES (:id, :course_name, :class, :exam_name, :exam_date, :start_time, :end_time, :venue, :created_at)`,
		scheduleRow(s))
	if err != nil {
		return exam.Schedule{}, errors.Wrap(err, "inserting exam schedule")
	}
	return s, nil
}

func (repo *examRepository) GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (exam.Schedule, error) {
	var row scheduleRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+scheduleColumns+` FROM exam_schedule WHERE id = ?`, id); err != nil {
		return exam.Schedule{}, trapNoRows(err, exam.ErrScheduleNotFound, "getting exam schedule")
	}
	return exam.Schedule(row), nil
}

func (repo *examRepository) QuerySchedules(ctx context.Context, filter *exam.ScheduleFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]exam.Schedule, error) {
	var w where
	if filter != nil {
		if filter.Class != "" {
			w.add("class = ?", filter.Class)
		}
		dateRange(&w, "exam_date", "", filter.From, filter.To)
	}

	var rows []scheduleRow
	query := `SELECT ` + scheduleColumns + ` FROM exam_schedule` + w.String() +
		orderBy(ordering, "exam_date ASC, start_time ASC", scheduleOrderExprs)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying exam schedules")
	}
	schedules := make([]exam.Schedule, 0, len(rows))
	for _, row := range rows {
		s := exam.Schedule(row)
		s.CreatedAt = s.CreatedAt.UTC()
		schedules = append(schedules, s)
	}
	return schedules, nil
}

func (repo *examRepository) DeleteSchedule(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM exam_schedule WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting exam schedule")
	}
	if n == 0 {
		return exam.ErrScheduleNotFound
	}
	return nil
}

func (repo *examRepository) UpsertMarks(ctx context.Context, marks []exam.Marks, exec ...core.DBExecutor) ([]exam.Marks, error) {
	saved := make([]exam.Marks, 0, len(marks))
	err := repo.inTx(ctx, exec, func(ext sqlx.ExtContext) error {
		for _, m := range marks {
			var row marksRow
			err := get(ctx, ext, &row, `
				INSERT INTO exam_marks (`+marksColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (course_id, student_id) DO UPDATE SET
					course_name = EXCLUDED.course_name, student_name = EXCLUDED.student_name, class = EXCLUDED.class,
					exam1 = EXCLUDED.exam1, exam2 = EXCLUDED.exam2, exam3 = EXCLUDED.exam3,
					entered_by = EXCLUDED.entered_by, entered_at = EXCLUDED.entered_at
				RETURNING `+marksColumns,
				m.ID, m.CourseID, m.CourseName, m.StudentID, m.StudentName, m.Class,
				null.Float64FromPtr(m.Exam1), null.Float64FromPtr(m.Exam2), null.Float64FromPtr(m.Exam3),
				m.EnteredBy, m.EnteredAt.UTC())
			if err != nil {
				return errors.Wrap(err, "upserting exam marks")
			}
			saved = append(saved, row.marks())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *examRepository) QueryMarks(ctx context.Context, filter *exam.MarksFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]exam.Marks, error) {
	var w where
	if filter != nil {
		if filter.CourseID != "" {
			w.add("course_id = ?", filter.CourseID)
		}
		if filter.Class != "" {
			w.add("class = ?", filter.Class)
		}
		if filter.StudentIDs != nil {
			w.add("student_id = ANY(?)", pq.StringArray(filter.StudentIDs))
		}
	}

	var rows []marksRow
	query := `SELECT ` + marksColumns + ` FROM exam_marks` + w.String() + orderBy(ordering, "student_name ASC, course_name ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying exam marks")
	}
	marks := make([]exam.Marks, 0, len(rows))
	for _, row := range rows {
		marks = append(marks, row.marks())
	}
	return marks, nil
}
