package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/library"
)

const (
	bookColumns     = `id, title, author, isbn, category, quantity, available, location, created_at, updated_at`
	issueColumns    = `id, book_id, book_title, user_id, user_name, user_role, issued_at, due_date, returned_at, status, fine`
	settingsColumns = `fine_per_day, issue_period_days, max_books_per_user, updated_at`
)

type bookRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Author    string    `db:"author"`
	ISBN      string    `db:"isbn"`
	Category  string    `db:"category"`
	Quantity  int       `db:"quantity"`
	Available int       `db:"available"`
	Location  string    `db:"location"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row bookRow) book() library.Book {
	b := library.Book(row)
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return b
}

type issueRow struct {
	ID         string    `db:"id"`
	BookID     string    `db:"book_id"`
	BookTitle  string    `db:"book_title"`
	UserID     string    `db:"user_id"`
	UserName   string    `db:"user_name"`
	UserRole   string    `db:"user_role"`
	IssuedAt   time.Time `db:"issued_at"`
	DueDate    time.Time `db:"due_date"`
	ReturnedAt null.Time `db:"returned_at"`
	Status     string    `db:"status"`
	Fine       float64   `db:"fine"`
}

func toIssueRow(is library.Issue) issueRow {
	row := issueRow{
		ID:        is.ID,
		BookID:    is.BookID,
		BookTitle: is.BookTitle,
		UserID:    is.UserID,
		UserName:  is.UserName,
		UserRole:  is.UserRole,
		IssuedAt:  is.IssuedAt.UTC(),
		DueDate:   is.DueDate.UTC(),
		Status:    is.Status,
		Fine:      is.Fine,
	}
	if is.ReturnedAt != nil {
		row.ReturnedAt = null.TimeFrom(is.ReturnedAt.UTC())
	}
	return row
}

func (row issueRow) issue() library.Issue {
	is := library.Issue{
		ID:        row.ID,
		BookID:    row.BookID,
		BookTitle: row.BookTitle,
		UserID:    row.UserID,
		UserName:  row.UserName,
		UserRole:  row.UserRole,
		IssuedAt:  row.IssuedAt.UTC(),
		DueDate:   row.DueDate.UTC(),
		Status:    row.Status,
		Fine:      row.Fine,
	}
	if row.ReturnedAt.Valid {
		returned := row.ReturnedAt.Time.UTC()
		is.ReturnedAt = &returned
	}
	return is
}

type settingsRow struct {
	FinePerDay      float64   `db:"fine_per_day"`
	IssuePeriodDays int       `db:"issue_period_days"`
	MaxBooksPerUser int       `db:"max_books_per_user"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type libraryRepository struct {
	repository
}

var _ library.Repository = (*libraryRepository)(nil) // interface compliance check

func NewLibraryRepository(db *sqlx.DB) library.Repository {
	return &libraryRepository{repository{db: db}}
}

// Books

func (repo *libraryRepository) CreateBook(ctx context.Context, b library.Book, exec ...core.DBExecutor) (library.Book, error) {
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO book (`+bookColumns+`)
		VALUES (:id, :title, :author, :isbn, :category, :quantity, :available, :location, :created_at, :updated_at)`,
		bookRow(b))
	if err != nil {
		return library.Book{}, errors.Wrap(err, "inserting book")
	}
	return b, nil
}

func (repo *libraryRepository) getBook(ctx context.Context, ext sqlx.ExtContext, id string, forUpdate bool) (library.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM book WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row bookRow
	if err := get(ctx, ext, &row, query, id); err != nil {
		return library.Book{}, trapNoRows(err, library.ErrBookNotFound, "getting book")
	}
	return row.book(), nil
}

func (repo *libraryRepository) GetBook(ctx context.Context, id string, exec ...core.DBExecutor) (library.Book, error) {
	return repo.getBook(ctx, repo.ext(exec), id, false)
}

func (repo *libraryRepository) QueryBooks(ctx context.Context, filter *library.BookFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]library.Book, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			w.search(filter.Search, "title", "author", "isbn")
		}
		if filter.Category != "" {
			w.add("category ILIKE ?", filter.Category)
		}
		if filter.Available != nil {
			if *filter.Available {
				w.add("available > 0")
			} else {
				w.add("available = 0")
			}
		}
	}

	var rows []bookRow
	query := `SELECT ` + bookColumns + ` FROM book` + w.String() + orderBy(ordering, "title ASC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying books")
	}
	books := make([]library.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.book())
	}
	return books, nil
}

func (repo *libraryRepository) UpdateBook(ctx context.Context, id string, mutate func(b *library.Book) error, exec ...core.DBExecutor) (library.Book, error) {
	var updated library.Book
	err := repo.inTx(ctx, exec, func(ext sqlx.ExtContext) error {
		b, err := repo.getBook(ctx, ext, id, true)
		if err != nil {
			return err
		}
		if err = mutate(&b); err != nil {
			return err
		}
		b.ID = id
		_, err = execute(ctx, ext, `
			UPDATE book SET
				title = ?, author = ?, isbn = ?, category = ?, quantity = ?, available = ?, location = ?, updated_at = ?
			WHERE id = ?`,
			b.Title, b.Author, b.ISBN, b.Category, b.Quantity, b.Available, b.Location, b.UpdatedAt.UTC(), id)
		if err != nil {
			return errors.Wrap(err, "updating book")
		}
		updated = b
		return nil
	})
	if err != nil {
		return library.Book{}, err
	}
	return updated, nil
}

func (repo *libraryRepository) DeleteBook(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return repo.inTx(ctx, exec, func(ext sqlx.ExtContext) error {
		b, err := repo.getBook(ctx, ext, id, true)
		if err != nil {
			return err
		}
		if b.Issued() > 0 {
			return library.ErrBookIssued
		}
		// returned issues keep no hold on the book
		if _, err = execute(ctx, ext, `DELETE FROM book_issue WHERE book_id = ?`, id); err != nil {
			return errors.Wrap(err, "deleting book issues")
		}
		if _, err = execute(ctx, ext, `DELETE FROM book WHERE id = ?`, id); err != nil {
			return errors.Wrap(err, "deleting book")
		}
		return nil
	})
}

// Issues

func (repo *libraryRepository) IssueBook(ctx context.Context, is library.Issue, maxPerUser int, exec ...core.DBExecutor) (library.Issue, error) {
	err := repo.inTx(ctx, exec, func(ext sqlx.ExtContext) error {
		// serializes the issues of one borrower until commit
		if _, err := execute(ctx, ext, `SELECT pg_advisory_xact_lock(hashtext(?))`, "book_issue:"+is.UserID); err != nil {
			return errors.Wrap(err, "locking borrower")
		}
		var held int
		if err := get(ctx, ext, &held,
			`SELECT COUNT(*) FROM book_issue WHERE user_id = ? AND returned_at IS NULL`, is.UserID); err != nil {
			return errors.Wrap(err, "counting outstanding issues")
		}
		if held >= maxPerUser {
			return library.ErrTooManyBooks
		}

		n, err := execute(ctx, ext,
			`UPDATE book SET available = available - 1, updated_at = ? WHERE id = ? AND available > 0`,
			is.IssuedAt.UTC(), is.BookID)
		if err != nil {
			return errors.Wrap(err, "taking a copy")
		}
		if n == 0 {
			if _, err = repo.getBook(ctx, ext, is.BookID, false); err != nil {
				return err
			}
			return library.ErrNotAvailable
		}
		err = namedExec(ctx, ext, `
			INSERT INTO book_issue (`+issueColumns+`)
			VALUES (:id, :book_id, :book_title, :user_id, :user_name, :user_role, :issued_at, :due_date, :returned_at,
				:status, :fine)`,
			toIssueRow(is))
		return errors.Wrap(err, "inserting issue")
	})
	if err != nil {
		return library.Issue{}, err
	}
	return is, nil
}

func (repo *libraryRepository) getIssue(ctx context.Context, ext sqlx.ExtContext, id string, forUpdate bool) (library.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM book_issue WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row issueRow
	if err := get(ctx, ext, &row, query, id); err != nil {
		return library.Issue{}, trapNoRows(err, library.ErrIssueNotFound, "getting issue")
	}
	return row.issue(), nil
}

func (repo *libraryRepository) GetIssue(ctx context.Context, id string, exec ...core.DBExecutor) (library.Issue, error) {
	return repo.getIssue(ctx, repo.ext(exec), id, false)
}

func (repo *libraryRepository) QueryIssues(ctx context.Context, filter *library.IssueFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]library.Issue, error) {
	var w where
	if filter != nil {
		if filter.UserID != "" {
			w.add("user_id = ?", filter.UserID)
		}
		if filter.BookID != "" {
			w.add("book_id = ?", filter.BookID)
		}
		if filter.Returned != nil {
			if *filter.Returned {
				w.add("returned_at IS NOT NULL")
			} else {
				w.add("returned_at IS NULL")
			}
		}
		if filter.Overdue != nil {
			if *filter.Overdue {
				w.add("(returned_at IS NULL AND due_date < ?)", filter.Now.UTC())
			} else {
				w.add("(returned_at IS NOT NULL OR due_date >= ?)", filter.Now.UTC())
			}
		}
	}

	var rows []issueRow
	query := `SELECT ` + issueColumns + ` FROM book_issue` + w.String() + orderBy(ordering, "issued_at DESC", nil)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying issues")
	}
	issues := make([]library.Issue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, row.issue())
	}
	return issues, nil
}

func (repo *libraryRepository) ReturnIssue(ctx context.Context, id string, mutate func(is *library.Issue) error, exec ...core.DBExecutor) (library.Issue, error) {
	var returned library.Issue
	err := repo.inTx(ctx, exec, func(ext sqlx.ExtContext) error {
		is, err := repo.getIssue(ctx, ext, id, true)
		if err != nil {
			return err
		}
		if is.Returned() {
			return library.ErrAlreadyReturned
		}
		if err = mutate(&is); err != nil {
			return err
		}
		is.ID = id

		row := toIssueRow(is)
		_, err = execute(ctx, ext,
			`UPDATE book_issue SET returned_at = ?, status = ?, fine = ? WHERE id = ?`,
			row.ReturnedAt, row.Status, row.Fine, id)
		if err != nil {
			return errors.Wrap(err, "updating issue")
		}
		_, err = execute(ctx, ext,
			`UPDATE book SET available = available + 1 WHERE id = ? AND available < quantity`, is.BookID)
		if err != nil {
			return errors.Wrap(err, "giving the copy back")
		}
		returned = is
		return nil
	})
	if err != nil {
		return library.Issue{}, err
	}
	return returned, nil
}

// Settings

func (repo *libraryRepository) GetSettings(ctx context.Context, exec ...core.DBExecutor) (library.Settings, error) {
	var row settingsRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+settingsColumns+` FROM library_settings WHERE id = 1`); err != nil {
		return library.Settings{}, trapNoRows(err, library.ErrSettingsNotFound, "getting library settings")
	}
	s := library.Settings(row)
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (repo *libraryRepository) SaveSettings(ctx context.Context, s library.Settings, exec ...core.DBExecutor) (library.Settings, error) {
	s.UpdatedAt = s.UpdatedAt.UTC()
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO library_settings (id, `+settingsColumns+`)
		VALUES (1, :fine_per_day, :issue_period_days, :max_books_per_user, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			fine_per_day = EXCLUDED.fine_per_day, issue_period_days = EXCLUDED.issue_period_days,
			max_books_per_user = EXCLUDED.max_books_per_user, updated_at = EXCLUDED.updated_at`,
		settingsRow(s))
	if err != nil {
		return library.Settings{}, errors.Wrap(err, "saving library settings")
	}
	return s, nil
}
