// Package sqlxrepos implements the repositories on postgres, with sqlx and lib/pq.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

const pqUniqueViolation = "23505"

// Open wraps an opened postgres database.
func Open(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "postgres")
}

type txRunner struct {
	db *sqlx.DB
}

var _ core.TxRunner = (*txRunner)(nil)

func NewTxRunner(db *sqlx.DB) core.TxRunner {
	return &txRunner{db: db}
}

// RunInTx runs `fn` in a transaction, committed when `fn` succeeds and rolled back otherwise.
func (r *txRunner) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

type repository struct {
	db *sqlx.DB
}

// ext returns the transaction passed down by a service, or the database.
func (repo repository) ext(exec []core.DBExecutor) sqlx.ExtContext {
	if e, ok := core.GetExec(exec).(sqlx.ExtContext); ok {
		return e
	}
	return repo.db
}

// inTx runs `fn` within the caller's transaction, or within a new one.
func (repo repository) inTx(ctx context.Context, exec []core.DBExecutor, fn func(ext sqlx.ExtContext) error) error {
	if e, ok := core.GetExec(exec).(*sqlx.Tx); ok {
		return fn(e)
	}
	return NewTxRunner(repo.db).RunInTx(ctx, func(exec core.DBExecutor) error {
		return fn(exec.(*sqlx.Tx))
	})
}

func get(ctx context.Context, ext sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, ext, dest, sqlx.Rebind(sqlx.DOLLAR, query), args...)
}

func selectAll(ctx context.Context, ext sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, ext, dest, sqlx.Rebind(sqlx.DOLLAR, query), args...)
}

func execute(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	res, err := ext.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// namedExec runs a query with :named parameters bound from `arg`.
func namedExec(ctx context.Context, ext sqlx.ExtContext, query string, arg interface{}) error {
	_, err := sqlx.NamedExecContext(ctx, ext, query, arg)
	return err
}

// trapNoRows maps "no rows" to `notFound`.
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error, constraint ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return len(constraint) == 0 || core.ContainsString(constraint, pqErr.Constraint)
}

// where accumulates AND-ed conditions with `?` placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// search matches `term` case-insensitively on any of `cols`.
func (w *where) search(term string, cols ...string) {
	ors := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		ors = append(ors, col+" ILIKE ?")
		args = append(args, "%"+term+"%")
	}
	w.add("("+strings.Join(ors, " OR ")+")", args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders the (already allowed) orderings, then `deflt`.
// `exprs` maps the columns that do not sort by their raw value.
func orderBy(ordering []core.DBOrdering, deflt string, exprs map[string]string) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col := ord.Field
		if expr, ok := exprs[col]; ok {
			col = expr
		}
		clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if deflt != "" {
		clauses = append(clauses, deflt)
	}
	if len(clauses) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
