package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/student"
)

const studentColumns = `id, user_id, name, email, class, roll_number, gender, phone, address, date_of_birth,
	parent_id, parent_name, parent_email, parent_phone, status, created_by, created_at, updated_at`

type studentRow struct {
	ID          string      `db:"id"`
	UserID      string      `db:"user_id"`
	Name        string      `db:"name"`
	Email       string      `db:"email"`
	Class       string      `db:"class"`
	RollNumber  string      `db:"roll_number"`
	Gender      string      `db:"gender"`
	Phone       string      `db:"phone"`
	Address     string      `db:"address"`
	DateOfBirth string      `db:"date_of_birth"`
	ParentID    null.String `db:"parent_id"`
	ParentName  string      `db:"parent_name"`
	ParentEmail string      `db:"parent_email"`
	ParentPhone string      `db:"parent_phone"`
	Status      string      `db:"status"`
	CreatedBy   string      `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:          s.ID,
		UserID:      s.UserID,
		Name:        s.Name,
		Email:       s.Email,
		Class:       s.Class,
		RollNumber:  s.RollNumber,
		Gender:      s.Gender,
		Phone:       s.Phone,
		Address:     s.Address,
		DateOfBirth: s.DateOfBirth,
		ParentID:    null.NewString(s.ParentID, s.ParentID != ""),
		ParentName:  s.ParentName,
		ParentEmail: s.ParentEmail,
		ParentPhone: s.ParentPhone,
		Status:      s.Status,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt.UTC(),
		UpdatedAt:   s.UpdatedAt.UTC(),
	}
}

func (row studentRow) student() student.Student {
	return student.Student{
		ID:          row.ID,
		UserID:      row.UserID,
		Name:        row.Name,
		Email:       row.Email,
		Class:       row.Class,
		RollNumber:  row.RollNumber,
		Gender:      row.Gender,
		Phone:       row.Phone,
		Address:     row.Address,
		DateOfBirth: row.DateOfBirth,
		ParentID:    row.ParentID.String,
		ParentName:  row.ParentName,
		ParentEmail: row.ParentEmail,
		ParentPhone: row.ParentPhone,
		Status:      row.Status,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	repository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{repository{db: db}}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO student (`+studentColumns+`)
		VALUES (:id, :user_id, :name, :email, :class, :roll_number, :gender, :phone, :address, :date_of_birth,
			:parent_id, :parent_name, :parent_email, :parent_phone, :status, :created_by, :created_at, :updated_at)`,
		toStudentRow(s))
	if err != nil {
		if isUniqueViolation(err, "student_class_roll_number_key") {
			return student.Student{}, student.ErrRollNumberExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	var (
		cond string
		arg  string
	)
	switch {
	case filter.ID != "":
		cond, arg = "id = ?", filter.ID
	case filter.UserID != "":
		cond, arg = "user_id = ?", filter.UserID
	default:
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+studentColumns+` FROM student WHERE `+cond, arg); err != nil {
		return student.Student{}, trapNoRows(err, student.ErrNotFound, "getting student")
	}
	return row.student(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	var w where
	if filter != nil {
		if filter.StudentIDs != nil {
			w.add("id = ANY(?)", pq.StringArray(filter.StudentIDs))
		}
		if filter.Search != "" {
			w.search(filter.Search, "name", "email", "roll_number")
		}
		if filter.Class != "" {
			w.add("class = ?", filter.Class)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.ParentID != "" {
			w.add("parent_id = ?", filter.ParentID)
		}
	}

	var rows []studentRow
	query := `SELECT ` + studentColumns + ` FROM student` + w.String() + orderBy(ordering, "name ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	var row studentRow
	err := get(ctx, repo.ext(exec), &row, `
		UPDATE student SET
			name = ?, class = ?, roll_number = ?, gender = ?, phone = ?, address = ?, date_of_birth = ?,
			parent_id = ?, parent_name = ?, parent_email = ?, parent_phone = ?, status = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+studentColumns,
		s.Name, s.Class, s.RollNumber, s.Gender, s.Phone, s.Address, s.DateOfBirth,
		null.NewString(s.ParentID, s.ParentID != ""), s.ParentName, s.ParentEmail, s.ParentPhone, s.Status, s.UpdatedAt.UTC(),
		s.ID)
	if err != nil {
		if isUniqueViolation(err, "student_class_roll_number_key") {
			return student.Student{}, student.ErrRollNumberExists
		}
		return student.Student{}, trapNoRows(err, student.ErrNotFound, "updating student")
	}
	return row.student(), nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM student WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo *studentRepository) CheckRollNumber(ctx context.Context, class, rollNumber, excludedID string, exec ...core.DBExecutor) error {
	var taken bool
	err := get(ctx, repo.ext(exec), &taken,
		`SELECT EXISTS (SELECT 1 FROM student WHERE class = ? AND roll_number = ? AND id <> ?)`,
		class, rollNumber, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking roll number")
	}
	if taken {
		return student.ErrRollNumberExists
	}
	return nil
}

func (repo *studentRepository) UnlinkParent(ctx context.Context, parentID string, exec ...core.DBExecutor) error {
	if _, err := execute(ctx, repo.ext(exec), `UPDATE student SET parent_id = NULL WHERE parent_id = ?`, parentID); err != nil {
		return errors.Wrap(err, "unlinking parent")
	}
	return nil
}
