package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/teacher"
)

const teacherColumns = `id, user_id, name, email, employee_id, department, subject, qualification, phone, address,
	date_of_birth, is_active, created_at, updated_at`

type teacherRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	EmployeeID    string    `db:"employee_id"`
	Department    string    `db:"department"`
	Subject       string    `db:"subject"`
	Qualification string    `db:"qualification"`
	Phone         string    `db:"phone"`
	Address       string    `db:"address"`
	DateOfBirth   string    `db:"date_of_birth"`
	IsActive      bool      `db:"is_active"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (row teacherRow) teacher() teacher.Teacher {
	return teacher.Teacher(row)
}

type teacherRepository struct {
	repository
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) teacher.Repository {
	return &teacherRepository{repository{db: db}}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	t.CreatedAt, t.UpdatedAt = t.CreatedAt.UTC(), t.UpdatedAt.UTC()
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO teacher (`+teacherColumns+`)
		VALUES (:id, :user_id, :name, :email, :employee_id, :department, :subject, :qualification, :phone, :address,
			:date_of_birth, :is_active, :created_at, :updated_at)`,
		teacherRow(t))
	if err != nil {
		if isUniqueViolation(err, "teacher_employee_id_key") {
			return teacher.Teacher{}, teacher.ErrEmployeeIDExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, filter teacher.GetFilter, exec ...core.DBExecutor) (teacher.Teacher, error) {
	var (
		cond string
		arg  string
	)
	switch {
	case filter.ID != "":
		cond, arg = "id = ?", filter.ID
	case filter.UserID != "":
		cond, arg = "user_id = ?", filter.UserID
	case filter.EmployeeID != "":
		cond, arg = "employee_id = ?", filter.EmployeeID
	default:
		return teacher.Teacher{}, teacher.ErrNotFound
	}

	var row teacherRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+teacherColumns+` FROM teacher WHERE `+cond, arg); err != nil {
		return teacher.Teacher{}, trapNoRows(err, teacher.ErrNotFound, "getting teacher")
	}
	return row.teacher(), nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, filter *teacher.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]teacher.Teacher, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			w.search(filter.Search, "name", "email", "employee_id")
		}
		if filter.Department != "" {
			w.add("department ILIKE ?", filter.Department)
		}
		if filter.Subject != "" {
			w.add("subject ILIKE ?", filter.Subject)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []teacherRow
	query := `SELECT ` + teacherColumns + ` FROM teacher` + w.String() + orderBy(ordering, "name ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.teacher())
	}
	return teachers, nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	var row teacherRow
	err := get(ctx, repo.ext(exec), &row, `
		UPDATE teacher SET
			name = ?, department = ?, subject = ?, qualification = ?, phone = ?, address = ?, date_of_birth = ?,
			is_active = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+teacherColumns,
		t.Name, t.Department, t.Subject, t.Qualification, t.Phone, t.Address, t.DateOfBirth,
		t.IsActive, t.UpdatedAt.UTC(), t.ID)
	if err != nil {
		return teacher.Teacher{}, trapNoRows(err, teacher.ErrNotFound, "updating teacher")
	}
	return row.teacher(), nil
}

func (repo *teacherRepository) DeleteTeacher(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM teacher WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	if n == 0 {
		return teacher.ErrNotFound
	}
	return nil
}

func (repo *teacherRepository) CountTeachers(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var n int
	if err := get(ctx, repo.ext(exec), &n, `SELECT COUNT(*) FROM teacher`); err != nil {
		return 0, errors.Wrap(err, "counting teachers")
	}
	return n, nil
}
