package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/parent"
)

const parentColumns = `id, user_id, name, email, phone, address, relationship, created_at, updated_at`

type parentRow struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	Address      string    `db:"address"`
	Relationship string    `db:"relationship"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row parentRow) parent() parent.Parent {
	return parent.Parent(row)
}

type parentRepository struct {
	repository
}

var _ parent.Repository = (*parentRepository)(nil) // interface compliance check

func NewParentRepository(db *sqlx.DB) parent.Repository {
	return &parentRepository{repository{db: db}}
}

func (repo *parentRepository) CreateParent(ctx context.Context, p parent.Parent, exec ...core.DBExecutor) (parent.Parent, error) {
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO parent (`+parentColumns+`)
		VALUES (:id, :user_id, :name, :email, :phone, :address, :relationship, :created_at, :updated_at)`,
		parentRow(p))
	if err != nil {
		return parent.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return p, nil
}

func (repo *parentRepository) GetParent(ctx context.Context, filter parent.GetFilter, exec ...core.DBExecutor) (parent.Parent, error) {
	var (
		cond string
		arg  string
	)
	switch {
	case filter.ID != "":
		cond, arg = "id = ?", filter.ID
	case filter.UserID != "":
		cond, arg = "user_id = ?", filter.UserID
	case filter.Email != "":
		cond, arg = "email = ?", filter.Email
	default:
		return parent.Parent{}, parent.ErrNotFound
	}

	var row parentRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+parentColumns+` FROM parent WHERE `+cond, arg); err != nil {
		return parent.Parent{}, trapNoRows(err, parent.ErrNotFound, "getting parent")
	}
	return row.parent(), nil
}

func (repo *parentRepository) QueryParents(ctx context.Context, filter *parent.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]parent.Parent, error) {
	var w where
	if filter != nil && filter.Search != "" {
		w.search(filter.Search, "name", "email", "phone")
	}

	var rows []parentRow
	query := `SELECT ` + parentColumns + ` FROM parent` + w.String() + orderBy(ordering, "name ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying parents")
	}
	parents := make([]parent.Parent, 0, len(rows))
	for _, row := range rows {
		parents = append(parents, row.parent())
	}
	return parents, nil
}

func (repo *parentRepository) UpdateParent(ctx context.Context, p parent.Parent, exec ...core.DBExecutor) (parent.Parent, error) {
	var row parentRow
	err := get(ctx, repo.ext(exec), &row, `
		UPDATE parent SET name = ?, phone = ?, address = ?, relationship = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+parentColumns,
		p.Name, p.Phone, p.Address, p.Relationship, p.UpdatedAt.UTC(), p.ID)
	if err != nil {
		return parent.Parent{}, trapNoRows(err, parent.ErrNotFound, "updating parent")
	}
	return row.parent(), nil
}

func (repo *parentRepository) DeleteParent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM parent WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting parent")
	}
	if n == 0 {
		return parent.ErrNotFound
	}
	return nil
}
