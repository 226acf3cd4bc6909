package library_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/library"
	"github.com/trezcool/campus/core/user"
	eventsvc "github.com/trezcool/campus/services/events"
	logsvc "github.com/trezcool/campus/services/logger"
	dummydb "github.com/trezcool/campus/storage/database/dummy"
	"github.com/trezcool/campus/testutil"
)

func TestService_Issue_concurrentLimit(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Library.MaxBooksPerUser = 3
	logger := logsvc.NewRollbarLogger(io.Discard, conf, logsvc.ComponentAPI)
	db, err := dummydb.Open()
	require.NoError(t, err)

	usrRepo := dummydb.NewUserRepository(db)
	repo := dummydb.NewLibraryRepository(db)
	svc := library.NewService(repo, usrRepo, conf, eventsvc.NewInMemBroker(), logger)

	reader := testutil.CreateUser(t, usrRepo, "Reader", "reader", "reader@test.cd", "", []string{user.RoleStudent}, true)
	books := make([]library.Book, 0, 8)
	for i := 0; i < 8; i++ {
		books = append(books, testutil.CreateBook(t, repo, fmt.Sprintf("Book %d", i), "Fiction", 1))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		oks       int
		conflicts int
	)
	for _, b := range books {
		wg.Add(1)
		go func(bookID string) {
			defer wg.Done()
			_, err := svc.Issue(context.Background(), library.NewIssue{BookID: bookID, UserID: reader.ID})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
				return
			}
			if _, ok := errors.Cause(err).(*core.ConflictError); ok {
				conflicts++
			}
		}(b.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, oks)
	assert.Equal(t, 5, conflicts)

	issues, err := svc.QueryIssues(context.Background(), &library.IssueFilter{UserID: reader.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, issues, 3)

	available := 0
	for _, b := range books {
		b, err := svc.GetBook(context.Background(), b.ID)
		require.NoError(t, err)
		available += b.Available
	}
	assert.Equal(t, 5, available)
}
