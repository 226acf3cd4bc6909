package library

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrBookNotFound     = core.NewNotFoundError("book")
	ErrIssueNotFound    = core.NewNotFoundError("issue")
	ErrSettingsNotFound = core.NewNotFoundError("library settings")
	ErrNotAvailable     = core.NewConflictError("no copy of this book is available")
	ErrAlreadyReturned  = core.NewConflictError("this book has already been returned")
	ErrBookIssued       = core.NewConflictError("this book has copies that are not returned yet")
	ErrTooManyBooks     = errors.New("the user holds the maximum number of books allowed")
)

type (
	Repository interface {
		CreateBook(ctx context.Context, b Book, exec ...core.DBExecutor) (Book, error)
		GetBook(ctx context.Context, id string, exec ...core.DBExecutor) (Book, error)
		// QueryBooks applies AND operation on available BookFilter fields.
		// BookFilter.Search does a case-insensitive match on one of Book.Title, Book.Author or Book.ISBN.
		QueryBooks(ctx context.Context, filter *BookFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Book, error)
		// UpdateBook applies `mutate` to the current state of the book and saves it, atomically.
		UpdateBook(ctx context.Context, id string, mutate func(b *Book) error, exec ...core.DBExecutor) (Book, error)
		// DeleteBook returns ErrBookIssued when some copies are not returned.
		DeleteBook(ctx context.Context, id string, exec ...core.DBExecutor) error

		// IssueBook saves `is` and takes one available copy of the book, atomically.
		// It returns ErrNotAvailable when no copy is left,
		// and ErrTooManyBooks when the borrower already holds `maxPerUser` unreturned books.
		IssueBook(ctx context.Context, is Issue, maxPerUser int, exec ...core.DBExecutor) (Issue, error)
		GetIssue(ctx context.Context, id string, exec ...core.DBExecutor) (Issue, error)
		QueryIssues(ctx context.Context, filter *IssueFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Issue, error)
		// ReturnIssue applies `mutate` to the unreturned issue and gives its copy back to the book, atomically.
		// It returns ErrAlreadyReturned when the issue was returned before.
		ReturnIssue(ctx context.Context, id string, mutate func(is *Issue) error, exec ...core.DBExecutor) (Issue, error)

		// GetSettings returns ErrSettingsNotFound when the settings were never saved.
		GetSettings(ctx context.Context, exec ...core.DBExecutor) (Settings, error)
		SaveSettings(ctx context.Context, s Settings, exec ...core.DBExecutor) (Settings, error)
	}

	Service interface {
		CreateBook(ctx context.Context, nb NewBook) (Book, error)
		QueryBooks(ctx context.Context, filter *BookFilter, ordering []core.DBOrdering) ([]Book, error)
		GetBook(ctx context.Context, id string) (Book, error)
		UpdateBook(ctx context.Context, id string, ub UpdateBook) (Book, error)
		DeleteBook(ctx context.Context, id string) error

		Issue(ctx context.Context, ni NewIssue) (Issue, error)
		QueryIssues(ctx context.Context, filter *IssueFilter, ordering []core.DBOrdering) ([]Issue, error)
		GetIssue(ctx context.Context, id string) (Issue, error)
		Return(ctx context.Context, id string) (Issue, error)

		Settings(ctx context.Context) (Settings, error)
		SaveSettings(ctx context.Context, s Settings) (Settings, error)
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo     Repository
		usrRepo  user.Repository
		defaults Settings
		broker   core.EventBroker
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrRepo user.Repository, conf *core.Config, broker core.EventBroker, logger core.Logger) Service {
	return &service{
		repo:    repo,
		usrRepo: usrRepo,
		defaults: Settings{
			FinePerDay:      conf.Library.FinePerDay,
			IssuePeriodDays: conf.Library.IssuePeriodDays,
			MaxBooksPerUser: conf.Library.MaxBooksPerUser,
		},
		broker: broker,
		logger: logger,
	}
}

func (svc *service) publish(ctx context.Context, action, id string, data interface{}, audience ...string) {
	core.PublishEvent(ctx, svc.broker, svc.logger, core.NewEvent(core.TopicLibrary, action, id, data, audience...))
}

func (svc *service) CreateBook(ctx context.Context, nb NewBook) (Book, error) {
	now := core.NowFunc().UTC()
	b, err := svc.repo.CreateBook(ctx, Book{
		ID:        core.NewID(),
		Title:     nb.Title,
		Author:    nb.Author,
		ISBN:      nb.ISBN,
		Category:  nb.Category,
		Quantity:  nb.Quantity,
		Available: nb.Quantity,
		Location:  nb.Location,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Book{}, errors.Wrap(err, "creating book")
	}
	svc.publish(ctx, core.ActionCreated, b.ID, b)
	return b, nil
}

func (svc *service) QueryBooks(ctx context.Context, filter *BookFilter, ordering []core.DBOrdering) ([]Book, error) {
	return svc.repo.QueryBooks(ctx, filter, core.FilterOrdering(ordering, BookOrderingFields))
}

func (svc *service) GetBook(ctx context.Context, id string) (Book, error) {
	return svc.repo.GetBook(ctx, id)
}

// UpdateBook edits the book. A new quantity shifts the available copies by the same delta.
func (svc *service) UpdateBook(ctx context.Context, id string, ub UpdateBook) (Book, error) {
	b, err := svc.repo.UpdateBook(ctx, id, func(b *Book) error {
		if ub.Title != "" {
			b.Title = ub.Title
		}
		if ub.Author != "" {
			b.Author = ub.Author
		}
		if ub.ISBN != "" {
			b.ISBN = ub.ISBN
		}
		if ub.Category != "" {
			b.Category = ub.Category
		}
		if ub.Location != "" {
			b.Location = ub.Location
		}
		if ub.Quantity != nil && *ub.Quantity != b.Quantity {
			if issued := b.Issued(); *ub.Quantity < issued {
				return core.NewValidationError(nil, core.FieldError{
					Field: "quantity",
					Error: fmt.Sprintf("quantity cannot be less than the %d issued copies", issued),
				})
			}
			b.Available += *ub.Quantity - b.Quantity
			b.Quantity = *ub.Quantity
		}
		b.UpdatedAt = core.NowFunc().UTC()
		return nil
	})
	if err != nil {
		return Book{}, err
	}
	svc.publish(ctx, core.ActionUpdated, b.ID, b)
	return b, nil
}

func (svc *service) DeleteBook(ctx context.Context, id string) error {
	b, err := svc.repo.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteBook(ctx, b.ID); err != nil {
		return err
	}
	svc.publish(ctx, core.ActionDeleted, b.ID, nil)
	return nil
}

// Issue lends a copy of the book to the user, within the per-user limit.
func (svc *service) Issue(ctx context.Context, ni NewIssue) (Issue, error) {
	settings, err := svc.Settings(ctx)
	if err != nil {
		return Issue{}, err
	}

	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: ni.UserID})
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Issue{}, core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "user not found"})
		}
		return Issue{}, errors.Wrap(err, "finding borrower")
	}
	b, err := svc.repo.GetBook(ctx, ni.BookID)
	if err != nil {
		if errors.Cause(err) == ErrBookNotFound {
			return Issue{}, core.NewValidationError(nil, core.FieldError{Field: "book_id", Error: "book not found"})
		}
		return Issue{}, err
	}

	now := core.NowFunc().UTC()
	due := ni.DueDate.UTC()
	if ni.DueDate.IsZero() {
		due = now.AddDate(0, 0, settings.IssuePeriodDays)
	}
	if !due.After(now) {
		return Issue{}, core.NewValidationError(nil, core.FieldError{Field: "due_date", Error: "due_date must be in the future"})
	}

	is, err := svc.repo.IssueBook(ctx, Issue{
		ID:        core.NewID(),
		BookID:    b.ID,
		BookTitle: b.Title,
		UserID:    usr.ID,
		UserName:  usr.Name,
		UserRole:  usr.MainRole(),
		IssuedAt:  now,
		DueDate:   due,
		Status:    StatusIssued,
	}, settings.MaxBooksPerUser)
	if err != nil {
		if errors.Cause(err) == ErrTooManyBooks {
			return Issue{}, core.NewConflictError(fmt.Sprintf("this user already has %d books, the maximum allowed", settings.MaxBooksPerUser))
		}
		return Issue{}, err
	}
	svc.publish(ctx, core.ActionIssued, is.ID, is, user.RoleAdmin, is.UserID)
	return is, nil
}

func (svc *service) QueryIssues(ctx context.Context, filter *IssueFilter, ordering []core.DBOrdering) ([]Issue, error) {
	now := core.NowFunc().UTC()
	filter.Now = now
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "issued_at", Ascending: false}}
	}
	issues, err := svc.repo.QueryIssues(ctx, filter, core.FilterOrdering(ordering, IssueOrderingFields))
	if err != nil {
		return nil, err
	}
	for i := range issues {
		issues[i].SetOverdue(now)
	}
	return issues, nil
}

func (svc *service) GetIssue(ctx context.Context, id string) (Issue, error) {
	is, err := svc.repo.GetIssue(ctx, id)
	if err != nil {
		return Issue{}, err
	}
	is.SetOverdue(core.NowFunc().UTC())
	return is, nil
}

// Return closes the issue, charging a fine for every started day of delay.
func (svc *service) Return(ctx context.Context, id string) (Issue, error) {
	settings, err := svc.Settings(ctx)
	if err != nil {
		return Issue{}, err
	}
	is, err := svc.repo.ReturnIssue(ctx, id, func(is *Issue) error {
		now := core.NowFunc().UTC()
		is.ReturnedAt = &now
		is.Status = StatusReturned
		is.Fine = ComputeFine(is.DueDate, now, settings.FinePerDay)
		return nil
	})
	if err != nil {
		return Issue{}, err
	}
	svc.publish(ctx, core.ActionReturned, is.ID, is, user.RoleAdmin, is.UserID)
	return is, nil
}

// Settings returns the saved settings, or the configured defaults.
func (svc *service) Settings(ctx context.Context) (Settings, error) {
	s, err := svc.repo.GetSettings(ctx)
	if err != nil {
		if errors.Cause(err) == ErrSettingsNotFound {
			return svc.defaults, nil
		}
		return Settings{}, errors.Wrap(err, "loading library settings")
	}
	return s, nil
}

func (svc *service) SaveSettings(ctx context.Context, s Settings) (Settings, error) {
	s.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.SaveSettings(ctx, s)
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	books, err := svc.repo.QueryBooks(ctx, &BookFilter{}, nil)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Titles: len(books)}
	for _, b := range books {
		stats.TotalCopies += b.Quantity
		stats.AvailableCopies += b.Available
	}

	issues, err := svc.QueryIssues(ctx, &IssueFilter{}, nil)
	if err != nil {
		return Stats{}, err
	}
	for _, is := range issues {
		if !is.Returned() {
			stats.Issued++
		}
		if is.Status == StatusOverdue {
			stats.Overdue++
		}
		stats.TotalFines += is.Fine
	}
	stats.TotalFines = core.RoundMoney(stats.TotalFines)
	return stats, nil
}
