package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/library"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/testutil"
)

func Test_libraryApi_issues(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	hero := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, repos.User, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	book := testutil.CreateBook(t, repos.Library, "Things Fall Apart", "Fiction", 1)
	adminToken := getToken(t, conf, admin)

	issueTo := func(usr user.User) (int, library.Issue) {
		req, rec := newAuthRequest(http.MethodPost, "/api/library/issues", adminToken, marchallObj(t, library.NewIssue{BookID: book.ID, UserID: usr.ID}))
		app.ServeHTTP(rec, req)
		var is library.Issue
		if rec.Code == http.StatusCreated {
			decode(t, rec, &is)
		}
		return rec.Code, is
	}
	getBook := func() library.Book {
		req, rec := newAuthRequest(http.MethodGet, "/api/library/books/"+book.ID, adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var b library.Book
		decode(t, rec, &b)
		return b
	}

	code, is := issueTo(hero)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, library.StatusIssued, is.Status)
	assert.Equal(t, "Things Fall Apart", is.BookTitle)
	assert.Equal(t, 0, getBook().Available)

	t.Run("no copy left", func(t *testing.T) {
		code, _ := issueTo(other)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("issues are private", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/library/issues/"+is.ID, getToken(t, conf, other))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/api/library/issues/"+is.ID, getToken(t, conf, hero))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/api/library/issues", getToken(t, conf, other))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("return", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/library/issues/"+is.ID+"/return", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var ret library.Issue
		decode(t, rec, &ret)
		assert.Equal(t, library.StatusReturned, ret.Status)
		assert.NotNil(t, ret.ReturnedAt)
		assert.Equal(t, 0.0, ret.Fine)
		assert.Equal(t, 1, getBook().Available)

		req, rec = newAuthRequest(http.MethodPost, "/api/library/issues/"+is.ID+"/return", adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("students cannot issue", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/library/issues", getToken(t, conf, hero), marchallObj(t, library.NewIssue{BookID: book.ID, UserID: hero.ID}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
