package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const userColumns = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.Active(),
		Roles:        pq.StringArray(usr.Roles),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) user() user.User {
	active := row.IsActive
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     &active,
		Roles:        []string(row.Roles),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func usersFromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{repository{db: db}}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	var rows []userRow
	err := selectAll(ctx, repo.ext(exec), &rows,
		`SELECT `+userColumns+` FROM "user" WHERE (username = ? OR email = ?) AND NOT (id = ANY(?))`,
		null.NewString(username, username != ""), null.NewString(email, email != ""), pq.StringArray(ids))
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

// trapUniqueViolation maps the unique constraints of "user" to their errors.
func trapUniqueViolation(err error, msg string) error {
	switch {
	case isUniqueViolation(err, "user_username_key"):
		return user.ErrUsernameExists
	case isUniqueViolation(err, "user_email_key"):
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := toUserRow(usr)
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO "user" (`+userColumns+`)
		VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`,
		row)
	if err != nil {
		return user.User{}, trapUniqueViolation(err, "inserting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		cond string
		args []interface{}
	)
	switch {
	case filter.ID != "":
		cond, args = "id = ?", []interface{}{filter.ID}
	case filter.Username != "":
		cond, args = "username = ?", []interface{}{filter.Username}
	case filter.Email != "":
		cond, args = "email = ?", []interface{}{filter.Email}
	case len(filter.UsernameOrEmail) == 2:
		cond, args = "(username = ? OR email = ?)", []interface{}{filter.UsernameOrEmail[0], filter.UsernameOrEmail[1]}
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+userColumns+` FROM "user" WHERE `+cond+` LIMIT 1`, args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	if filter != nil {
		if filter.IDs != nil {
			w.add("id = ANY(?)", pq.StringArray(filter.IDs))
		}
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			w.search(filter.Search, "name", "username", "email")
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			prefixes := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				prefixes = append(prefixes, role+"%")
			}
			w.add("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ANY(?))", pq.StringArray(prefixes))
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	query := `SELECT ` + userColumns + ` FROM "user"` + w.String() + orderBy(ordering, "name ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return usersFromRows(rows), nil
}

// UpdateUser only saves the roles, password hash and active flag when they are set.
func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	err := get(ctx, repo.ext(exec), &row, `
		UPDATE "user" SET
			name = ?, username = ?, email = ?,
			is_active = COALESCE(?, is_active),
			roles = COALESCE(?, roles),
			password_hash = COALESCE(?, password_hash),
			updated_at = ?, last_login = ?
		WHERE id = ?
		RETURNING `+userColumns,
		usr.Name, null.NewString(usr.Username, usr.Username != ""), null.NewString(usr.Email, usr.Email != ""),
		null.BoolFromPtr(usr.IsActive),
		pq.StringArray(usr.Roles),
		null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		usr.UpdatedAt.UTC(), null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
		usr.ID)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, trapUniqueViolation(err, "updating user")
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	err := get(ctx, repo.ext(exec), &row, `
		INSERT INTO "user" (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, username = EXCLUDED.username, email = EXCLUDED.email,
			is_active = EXCLUDED.is_active, roles = EXCLUDED.roles, password_hash = EXCLUDED.password_hash,
			updated_at = EXCLUDED.updated_at
		RETURNING `+userColumns,
		usr.ID, usr.Name, null.NewString(usr.Username, usr.Username != ""), null.NewString(usr.Email, usr.Email != ""),
		usr.Active(), pq.StringArray(usr.Roles), usr.PasswordHash,
		usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()))
	if err != nil {
		return user.User{}, trapUniqueViolation(err, "saving user")
	}
	return row.user(), nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if _, err := execute(ctx, repo.ext(exec), `DELETE FROM "user" WHERE id = ANY(?)`, pq.StringArray(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
