// Package mongodb implements the library repository on MongoDB.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/campus/core"
)

const (
	booksCollection    = "books"
	issuesCollection   = "book_issues"
	settingsCollection = "library_settings"
)

// Open connects to the server at `uri` and returns the database `name`, with its indexes.
func Open(ctx context.Context, uri, name string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongo")
	}

	db := client.Database(name)
	_, err = db.Collection(issuesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "returned_at", Value: 1}}},
		{Keys: bson.D{{Key: "book_id", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "creating indexes")
	}
	return db, nil
}

// Close disconnects the client of `db`.
func Close(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}

// sortOf renders the (already allowed) orderings, then `deflt`.
func sortOf(ordering []core.DBOrdering, deflt bson.E) bson.D {
	sort := make(bson.D, 0, len(ordering)+1)
	for _, ord := range ordering {
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: dir})
	}
	return append(sort, deflt)
}
