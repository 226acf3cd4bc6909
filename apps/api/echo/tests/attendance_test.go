package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/testutil"
)

func Test_attendanceApi(t *testing.T) {
	resetDB(t)

	teacher := testutil.CreateUser(t, repos.User, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	hero := testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", "")
	sidekickUsr := testutil.CreateUser(t, repos.User, "Sidekick", "sidekick", "sidekick@test.cd", "", []string{user.RoleStudent}, true)
	sidekick := testutil.CreateStudent(t, repos.Student, sidekickUsr, "10A", "2", "")
	otherUsr := testutil.CreateUser(t, repos.User, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, repos.Student, otherUsr, "10B", "1", "")

	teacherToken := getToken(t, conf, teacher)
	heroToken := getToken(t, conf, heroUsr)
	date := "2026-03-02"

	t.Run("students cannot mark", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/attendance/mark-all-present", heroToken, marchallObj(t, attendance.MarkAllPresent{Date: date, Class: "10A"}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mark all present", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/attendance/mark-all-present", teacherToken, marchallObj(t, attendance.MarkAllPresent{Date: date, Class: "10A"}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var recs []attendance.Record
		decode(t, rec, &recs)
		require.Len(t, recs, 2)
		for _, r := range recs {
			assert.Equal(t, attendance.StatusPresent, r.Status)
			assert.Equal(t, teacher.ID, r.MarkedBy)
			assert.Equal(t, "10A", r.Class)
		}
	})

	t.Run("re-marking replaces the day's record", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/attendance", teacherToken, marchallObj(t, attendance.BulkMark{
			Records: []attendance.NewRecord{{Date: date, StudentID: sidekick.ID, Status: attendance.StatusAbsent}},
		}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/api/attendance/stats?class=10A&date="+date, teacherToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var stats attendance.Stats
		decode(t, rec, &stats)
		assert.Equal(t, attendance.Stats{Total: 2, Present: 1, Absent: 1, Percentage: 50}, stats)
	})

	t.Run("invalid status", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/attendance", teacherToken, marchallObj(t, attendance.BulkMark{
			Records: []attendance.NewRecord{{Date: date, StudentID: hero.ID, Status: "Sleeping"}},
		}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("student sees own records only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/attendance", heroToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var recs []attendance.Record
		decode(t, rec, &recs)
		require.Len(t, recs, 1)
		assert.Equal(t, hero.ID, recs[0].StudentID)
	})
}
