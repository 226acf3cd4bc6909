package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/library"
)

const librarySettingsKey = "library"

type libraryRepository struct {
	db *DB
}

var _ library.Repository = (*libraryRepository)(nil) // interface compliance check

func NewLibraryRepository(db *DB) library.Repository {
	return &libraryRepository{db: db}
}

var (
	bookOrdering = map[string]comparator[library.Book]{
		"title":      func(a, b library.Book) int { return cmpString(a.Title, b.Title) },
		"author":     func(a, b library.Book) int { return cmpString(a.Author, b.Author) },
		"category":   func(a, b library.Book) int { return cmpString(a.Category, b.Category) },
		"available":  func(a, b library.Book) int { return cmpInt(a.Available, b.Available) },
		"created_at": func(a, b library.Book) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	}
	issueOrdering = map[string]comparator[library.Issue]{
		"issued_at":  func(a, b library.Issue) int { return cmpTime(a.IssuedAt, b.IssuedAt) },
		"due_date":   func(a, b library.Issue) int { return cmpTime(a.DueDate, b.DueDate) },
		"book_title": func(a, b library.Issue) int { return cmpString(a.BookTitle, b.BookTitle) },
		"user_name":  func(a, b library.Issue) int { return cmpString(a.UserName, b.UserName) },
	}
)

// Books

func (repo *libraryRepository) CreateBook(_ context.Context, b library.Book, _ ...core.DBExecutor) (library.Book, error) {
	repo.db.book.Lock()
	defer repo.db.book.Unlock()

	repo.db.book.rows[b.ID] = b
	return b, nil
}

func (repo *libraryRepository) GetBook(_ context.Context, id string, _ ...core.DBExecutor) (library.Book, error) {
	repo.db.book.RLock()
	defer repo.db.book.RUnlock()

	if b, ok := repo.db.book.rows[id]; ok {
		return b, nil
	}
	return library.Book{}, library.ErrBookNotFound
}

func (repo *libraryRepository) QueryBooks(_ context.Context, filter *library.BookFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]library.Book, error) {
	repo.db.book.RLock()
	defer repo.db.book.RUnlock()

	if filter == nil {
		filter = &library.BookFilter{}
	}
	books := repo.db.book.filter(func(b library.Book) bool {
		if filter.Search != "" && !containsFold(filter.Search, b.Title, b.Author, b.ISBN) {
			return false
		}
		if filter.Category != "" && cmpString(b.Category, filter.Category) != 0 {
			return false
		}
		if filter.Available != nil && (b.Available > 0) != *filter.Available {
			return false
		}
		return true
	})
	sortRows(books, ordering, bookOrdering, bookOrdering["title"])
	return books, nil
}

func (repo *libraryRepository) UpdateBook(_ context.Context, id string, mutate func(b *library.Book) error, _ ...core.DBExecutor) (library.Book, error) {
	repo.db.book.Lock()
	defer repo.db.book.Unlock()

	b, ok := repo.db.book.rows[id]
	if !ok {
		return library.Book{}, library.ErrBookNotFound
	}
	if err := mutate(&b); err != nil {
		return library.Book{}, err
	}
	b.ID = id
	repo.db.book.rows[id] = b
	return b, nil
}

func (repo *libraryRepository) DeleteBook(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.book.Lock()
	defer repo.db.book.Unlock()

	b, ok := repo.db.book.rows[id]
	if !ok {
		return library.ErrBookNotFound
	}
	if b.Issued() > 0 {
		return library.ErrBookIssued
	}
	delete(repo.db.book.rows, id)
	return nil
}

// Issues

func (repo *libraryRepository) IssueBook(_ context.Context, is library.Issue, maxPerUser int, _ ...core.DBExecutor) (library.Issue, error) {
	repo.db.book.Lock()
	defer repo.db.book.Unlock()
	repo.db.bookIssue.Lock()
	defer repo.db.bookIssue.Unlock()

	b, ok := repo.db.book.rows[is.BookID]
	if !ok {
		return library.Issue{}, library.ErrBookNotFound
	}
	held := repo.db.bookIssue.filter(func(o library.Issue) bool { return o.UserID == is.UserID && !o.Returned() })
	if len(held) >= maxPerUser {
		return library.Issue{}, library.ErrTooManyBooks
	}
	if b.Available <= 0 {
		return library.Issue{}, library.ErrNotAvailable
	}
	b.Available--
	b.UpdatedAt = is.IssuedAt
	repo.db.book.rows[b.ID] = b
	repo.db.bookIssue.rows[is.ID] = is
	return is, nil
}

func (repo *libraryRepository) GetIssue(_ context.Context, id string, _ ...core.DBExecutor) (library.Issue, error) {
	repo.db.bookIssue.RLock()
	defer repo.db.bookIssue.RUnlock()

	if is, ok := repo.db.bookIssue.rows[id]; ok {
		return is, nil
	}
	return library.Issue{}, library.ErrIssueNotFound
}

func (repo *libraryRepository) QueryIssues(_ context.Context, filter *library.IssueFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]library.Issue, error) {
	repo.db.bookIssue.RLock()
	defer repo.db.bookIssue.RUnlock()

	if filter == nil {
		filter = &library.IssueFilter{}
	}
	issues := repo.db.bookIssue.filter(func(is library.Issue) bool {
		if filter.UserID != "" && is.UserID != filter.UserID {
			return false
		}
		if filter.BookID != "" && is.BookID != filter.BookID {
			return false
		}
		if filter.Returned != nil && is.Returned() != *filter.Returned {
			return false
		}
		if filter.Overdue != nil {
			overdue := !is.Returned() && filter.Now.After(is.DueDate)
			if overdue != *filter.Overdue {
				return false
			}
		}
		return true
	})
	sortRows(issues, ordering, issueOrdering, func(a, b library.Issue) int { return cmpTime(b.IssuedAt, a.IssuedAt) })
	return issues, nil
}

func (repo *libraryRepository) ReturnIssue(_ context.Context, id string, mutate func(is *library.Issue) error, _ ...core.DBExecutor) (library.Issue, error) {
	repo.db.book.Lock()
	defer repo.db.book.Unlock()
	repo.db.bookIssue.Lock()
	defer repo.db.bookIssue.Unlock()

	is, ok := repo.db.bookIssue.rows[id]
	if !ok {
		return library.Issue{}, library.ErrIssueNotFound
	}
	if is.Returned() {
		return library.Issue{}, library.ErrAlreadyReturned
	}
	if err := mutate(&is); err != nil {
		return library.Issue{}, err
	}
	is.ID = id
	repo.db.bookIssue.rows[id] = is

	if b, ok := repo.db.book.rows[is.BookID]; ok && b.Available < b.Quantity {
		b.Available++
		repo.db.book.rows[b.ID] = b
	}
	return is, nil
}

// Settings

func (repo *libraryRepository) GetSettings(_ context.Context, _ ...core.DBExecutor) (library.Settings, error) {
	repo.db.librarySettings.RLock()
	defer repo.db.librarySettings.RUnlock()

	if s, ok := repo.db.librarySettings.rows[librarySettingsKey]; ok {
		return s, nil
	}
	return library.Settings{}, library.ErrSettingsNotFound
}

func (repo *libraryRepository) SaveSettings(_ context.Context, s library.Settings, _ ...core.DBExecutor) (library.Settings, error) {
	repo.db.librarySettings.Lock()
	defer repo.db.librarySettings.Unlock()

	repo.db.librarySettings.rows[librarySettingsKey] = s
	return s, nil
}
