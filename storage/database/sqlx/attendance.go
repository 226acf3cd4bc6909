package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
)

const (
	recordColumns        = `id, date, student_id, student_name, class, status, remarks, marked_by, marked_at`
	teacherRecordColumns = `id, date, teacher_id, teacher_name, status, remarks, marked_by, marked_at`
)

type recordRow struct {
	ID          string    `db:"id"`
	Date        string    `db:"date"`
	StudentID   string    `db:"student_id"`
	StudentName string    `db:"student_name"`
	Class       string    `db:"class"`
	Status      string    `db:"status"`
	Remarks     string    `db:"remarks"`
	MarkedBy    string    `db:"marked_by"`
	MarkedAt    time.Time `db:"marked_at"`
}

type teacherRecordRow struct {
	ID          string    `db:"id"`
	Date        string    `db:"date"`
	TeacherID   string    `db:"teacher_id"`
	TeacherName string    `db:"teacher_name"`
	Status      string    `db:"status"`
	Remarks     string    `db:"remarks"`
	MarkedBy    string    `db:"marked_by"`
	MarkedAt    time.Time `db:"marked_at"`
}

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{repository{db: db}}
}

func (repo *attendanceRepository) UpsertRecords(ctx context.Context, recs []attendance.Record, exec ...core.DBExecutor) ([]attendance.Record, error) {
	saved := make([]attendance.Record, 0, len(recs))
	err := repo.inTx(ctx, exec, func(ext sqlx.ExtContext) error {
		for _, rec := range recs {
			var row recordRow
			err := get(ctx, ext, &row, `
				INSERT INTO attendance (`+recordColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (date, student_id) DO UPDATE SET
					student_name = EXCLUDED.student_name, class = EXCLUDED.class, status = EXCLUDED.status,
					remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at
				RETURNING `+recordColumns,
				rec.ID, rec.Date, rec.StudentID, rec.StudentName, rec.Class, rec.Status, rec.Remarks, rec.MarkedBy, rec.MarkedAt.UTC())
			if err != nil {
				return errors.Wrap(err, "upserting attendance")
			}
			saved = append(saved, attendance.Record(row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Record, error) {
	var row recordRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+recordColumns+` FROM attendance WHERE id = ?`, id); err != nil {
		return attendance.Record{}, trapNoRows(err, attendance.ErrNotFound, "getting attendance")
	}
	return attendance.Record(row), nil
}

// dateRange restricts ISO dates, which sort lexically.
func dateRange(w *where, col, date, from, to string) {
	if date != "" {
		w.add(col+" = ?", date)
	}
	if from != "" {
		w.add(col+" >= ?", from)
	}
	if to != "" {
		w.add(col+" <= ?", to)
	}
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendance.Record, error) {
	var w where
	if filter != nil {
		dateRange(&w, "date", filter.Date, filter.From, filter.To)
		if filter.Class != "" {
			w.add("class = ?", filter.Class)
		}
		if filter.StudentIDs != nil {
			w.add("student_id = ANY(?)", pq.StringArray(filter.StudentIDs))
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}

	var rows []recordRow
	query := `SELECT ` + recordColumns + ` FROM attendance` + w.String() + orderBy(ordering, "date DESC, student_name ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, attendance.Record(row))
	}
	return recs, nil
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM attendance WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	if n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

func (repo *attendanceRepository) UpsertTeacherRecords(ctx context.Context, recs []attendance.TeacherRecord, exec ...core.DBExecutor) ([]attendance.TeacherRecord, error) {
	saved := make([]attendance.TeacherRecord, 0, len(recs))
	err := repo.inTx(ctx, exec, func(ext sqlx.ExtContext) error {
		for _, rec := range recs {
			var row teacherRecordRow
			err := get(ctx, ext, &row, `
				INSERT INTO teacher_attendance (`+teacherRecordColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (date, teacher_id) DO UPDATE SET
					teacher_name = EXCLUDED.teacher_name, status = EXCLUDED.status, remarks = EXCLUDED.remarks,
					marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at
				RETURNING `+teacherRecordColumns,
				rec.ID, rec.Date, rec.TeacherID, rec.TeacherName, rec.Status, rec.Remarks, rec.MarkedBy, rec.MarkedAt.UTC())
			if err != nil {
				return errors.Wrap(err, "upserting teacher attendance")
			}
			saved = append(saved, attendance.TeacherRecord(row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryTeacherRecords(ctx context.Context, filter *attendance.TeacherQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendance.TeacherRecord, error) {
	var w where
	if filter != nil {
		dateRange(&w, "date", filter.Date, filter.From, filter.To)
		if filter.TeacherIDs != nil {
			w.add("teacher_id = ANY(?)", pq.StringArray(filter.TeacherIDs))
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}

	var rows []teacherRecordRow
	query := `SELECT ` + teacherRecordColumns + ` FROM teacher_attendance` + w.String() + orderBy(ordering, "date DESC, teacher_name ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying teacher attendance")
	}
	recs := make([]attendance.TeacherRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, attendance.TeacherRecord(row))
	}
	return recs, nil
}
