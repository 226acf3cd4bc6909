package mongodb

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/library"
)

const (
	settingsID = "library"

	// optimistic updates of a book give up after so many conflicting writes
	maxUpdateAttempts = 5
)

type libraryRepository struct {
	books    *mongo.Collection
	issues   *mongo.Collection
	settings *mongo.Collection
}

var _ library.Repository = (*libraryRepository)(nil) // interface compliance check

// NewLibraryRepository stores the library in `db`. Transaction executors are ignored.
func NewLibraryRepository(db *mongo.Database) library.Repository {
	return &libraryRepository{
		books:    db.Collection(booksCollection),
		issues:   db.Collection(issuesCollection),
		settings: db.Collection(settingsCollection),
	}
}

func fold(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

func exactFold(term string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(term) + "$", Options: "i"}
}

// Books

func (repo *libraryRepository) CreateBook(ctx context.Context, b library.Book, _ ...core.DBExecutor) (library.Book, error) {
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	if _, err := repo.books.InsertOne(ctx, b); err != nil {
		return library.Book{}, errors.Wrap(err, "inserting book")
	}
	return b, nil
}

func (repo *libraryRepository) GetBook(ctx context.Context, id string, _ ...core.DBExecutor) (library.Book, error) {
	var b library.Book
	if err := repo.books.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return library.Book{}, library.ErrBookNotFound
		}
		return library.Book{}, errors.Wrap(err, "getting book")
	}
	return b, nil
}

func (repo *libraryRepository) QueryBooks(ctx context.Context, filter *library.BookFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]library.Book, error) {
	query := bson.M{}
	if filter != nil {
		if filter.Search != "" {
			query["$or"] = bson.A{
				bson.M{"title": fold(filter.Search)},
				bson.M{"author": fold(filter.Search)},
				bson.M{"isbn": fold(filter.Search)},
			}
		}
		if filter.Category != "" {
			query["category"] = exactFold(filter.Category)
		}
		if filter.Available != nil {
			if *filter.Available {
				query["available"] = bson.M{"$gt": 0}
			} else {
				query["available"] = bson.M{"$lte": 0}
			}
		}
	}

	opts := options.Find().SetSort(sortOf(ordering, bson.E{Key: "title", Value: 1}))
	cur, err := repo.books.Find(ctx, query, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying books")
	}
	books := []library.Book{}
	if err = cur.All(ctx, &books); err != nil {
		return nil, errors.Wrap(err, "decoding books")
	}
	return books, nil
}

// UpdateBook replaces the book only if nobody changed it since it was read, and retries otherwise.
func (repo *libraryRepository) UpdateBook(ctx context.Context, id string, mutate func(b *library.Book) error, _ ...core.DBExecutor) (library.Book, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		orig, err := repo.GetBook(ctx, id)
		if err != nil {
			return library.Book{}, err
		}
		b := orig
		if err = mutate(&b); err != nil {
			return library.Book{}, err
		}
		b.ID = id
		b.UpdatedAt = b.UpdatedAt.UTC()

		res, err := repo.books.ReplaceOne(ctx, bson.M{
			"_id":        id,
			"available":  orig.Available,
			"quantity":   orig.Quantity,
			"updated_at": orig.UpdatedAt,
		}, b)
		if err != nil {
			return library.Book{}, errors.Wrap(err, "updating book")
		}
		if res.MatchedCount == 1 {
			return b, nil
		}
	}
	return library.Book{}, errors.New("updating book: too many concurrent updates")
}

func (repo *libraryRepository) DeleteBook(ctx context.Context, id string, _ ...core.DBExecutor) error {
	res, err := repo.books.DeleteOne(ctx, bson.M{
		"_id":   id,
		"$expr": bson.M{"$eq": bson.A{"$available", "$quantity"}},
	})
	if err != nil {
		return errors.Wrap(err, "deleting book")
	}
	if res.DeletedCount == 0 {
		if _, err = repo.GetBook(ctx, id); err != nil {
			return err
		}
		return library.ErrBookIssued
	}
	return nil
}

// Issues

// IssueBook counts the borrower's books again once the issue is inserted; issues over the limit back out.
func (repo *libraryRepository) IssueBook(ctx context.Context, is library.Issue, maxPerUser int, _ ...core.DBExecutor) (library.Issue, error) {
	held, err := repo.countOutstanding(ctx, is.UserID)
	if err != nil {
		return library.Issue{}, err
	}
	if held >= maxPerUser {
		return library.Issue{}, library.ErrTooManyBooks
	}

	err = repo.books.FindOneAndUpdate(ctx,
		bson.M{"_id": is.BookID, "available": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"available": -1}, "$set": bson.M{"updated_at": is.IssuedAt.UTC()}},
	).Err()
	if err == mongo.ErrNoDocuments {
		if _, err = repo.GetBook(ctx, is.BookID); err != nil {
			return library.Issue{}, err
		}
		return library.Issue{}, library.ErrNotAvailable
	}
	if err != nil {
		return library.Issue{}, errors.Wrap(err, "taking a copy")
	}
	giveBack := func() {
		_, _ = repo.books.UpdateOne(ctx, bson.M{"_id": is.BookID}, bson.M{"$inc": bson.M{"available": 1}})
	}

	is.IssuedAt, is.DueDate = is.IssuedAt.UTC(), is.DueDate.UTC()
	if _, err = repo.issues.InsertOne(ctx, is); err != nil {
		giveBack()
		return library.Issue{}, errors.Wrap(err, "inserting issue")
	}
	if held, err = repo.countOutstanding(ctx, is.UserID); err == nil && held <= maxPerUser {
		return is, nil
	}
	_, _ = repo.issues.DeleteOne(ctx, bson.M{"_id": is.ID})
	giveBack()
	if err != nil {
		return library.Issue{}, err
	}
	return library.Issue{}, library.ErrTooManyBooks
}

func (repo *libraryRepository) GetIssue(ctx context.Context, id string, _ ...core.DBExecutor) (library.Issue, error) {
	var is library.Issue
	if err := repo.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&is); err != nil {
		if err == mongo.ErrNoDocuments {
			return library.Issue{}, library.ErrIssueNotFound
		}
		return library.Issue{}, errors.Wrap(err, "getting issue")
	}
	return is, nil
}

func notReturned() bson.M {
	return bson.M{"returned_at": bson.M{"$exists": false}}
}

func (repo *libraryRepository) QueryIssues(ctx context.Context, filter *library.IssueFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]library.Issue, error) {
	conds := bson.A{}
	if filter != nil {
		if filter.UserID != "" {
			conds = append(conds, bson.M{"user_id": filter.UserID})
		}
		if filter.BookID != "" {
			conds = append(conds, bson.M{"book_id": filter.BookID})
		}
		if filter.Returned != nil {
			conds = append(conds, bson.M{"returned_at": bson.M{"$exists": *filter.Returned}})
		}
		if filter.Overdue != nil {
			overdue := bson.M{"$and": bson.A{notReturned(), bson.M{"due_date": bson.M{"$lt": filter.Now.UTC()}}}}
			if *filter.Overdue {
				conds = append(conds, overdue)
			} else {
				conds = append(conds, bson.M{"$nor": bson.A{overdue}})
			}
		}
	}
	query := bson.M{}
	if len(conds) > 0 {
		query["$and"] = conds
	}

	opts := options.Find().SetSort(sortOf(ordering, bson.E{Key: "issued_at", Value: -1}))
	cur, err := repo.issues.Find(ctx, query, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying issues")
	}
	issues := []library.Issue{}
	if err = cur.All(ctx, &issues); err != nil {
		return nil, errors.Wrap(err, "decoding issues")
	}
	return issues, nil
}

func (repo *libraryRepository) ReturnIssue(ctx context.Context, id string, mutate func(is *library.Issue) error, _ ...core.DBExecutor) (library.Issue, error) {
	is, err := repo.GetIssue(ctx, id)
	if err != nil {
		return library.Issue{}, err
	}
	if is.Returned() {
		return library.Issue{}, library.ErrAlreadyReturned
	}
	if err = mutate(&is); err != nil {
		return library.Issue{}, err
	}
	is.ID = id

	set := bson.M{"status": is.Status, "fine": is.Fine}
	if is.ReturnedAt != nil {
		returned := is.ReturnedAt.UTC()
		is.ReturnedAt = &returned
		set["returned_at"] = returned
	}
	query := notReturned()
	query["_id"] = id
	res, err := repo.issues.UpdateOne(ctx, query, bson.M{"$set": set})
	if err != nil {
		return library.Issue{}, errors.Wrap(err, "updating issue")
	}
	if res.MatchedCount == 0 {
		return library.Issue{}, library.ErrAlreadyReturned
	}

	_, err = repo.books.UpdateOne(ctx,
		bson.M{"_id": is.BookID, "$expr": bson.M{"$lt": bson.A{"$available", "$quantity"}}},
		bson.M{"$inc": bson.M{"available": 1}})
	if err != nil {
		return library.Issue{}, errors.Wrap(err, "giving the copy back")
	}
	return is, nil
}

func (repo *libraryRepository) countOutstanding(ctx context.Context, userID string) (int, error) {
	query := notReturned()
	query["user_id"] = userID
	n, err := repo.issues.CountDocuments(ctx, query)
	if err != nil {
		return 0, errors.Wrap(err, "counting outstanding issues")
	}
	return int(n), nil
}

// Settings

func (repo *libraryRepository) GetSettings(ctx context.Context, _ ...core.DBExecutor) (library.Settings, error) {
	var s library.Settings
	if err := repo.settings.FindOne(ctx, bson.M{"_id": settingsID}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return library.Settings{}, library.ErrSettingsNotFound
		}
		return library.Settings{}, errors.Wrap(err, "getting library settings")
	}
	return s, nil
}

func (repo *libraryRepository) SaveSettings(ctx context.Context, s library.Settings, _ ...core.DBExecutor) (library.Settings, error) {
	s.UpdatedAt = s.UpdatedAt.UTC()
	_, err := repo.settings.UpdateOne(ctx,
		bson.M{"_id": settingsID},
		bson.M{"$set": s},
		options.Update().SetUpsert(true))
	if err != nil {
		return library.Settings{}, errors.Wrap(err, "saving library settings")
	}
	return s, nil
}
