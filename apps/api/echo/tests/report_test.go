package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/exam"
	"github.com/trezcool/campus/core/report"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/testutil"
)

func Test_reportApi(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	aliceUsr := testutil.CreateUser(t, repos.User, "Alice", "alice", "alice@test.cd", "", []string{user.RoleStudent}, true)
	alice := testutil.CreateStudent(t, repos.Student, aliceUsr, "10A", "1", "")
	bobUsr := testutil.CreateUser(t, repos.User, "Bob", "bob", "bob@test.cd", "", []string{user.RoleStudent}, true)
	bob := testutil.CreateStudent(t, repos.Student, bobUsr, "10A", "2", "")
	caraUsr := testutil.CreateUser(t, repos.User, "Cara", "cara", "cara@test.cd", "", []string{user.RoleStudent}, true)
	cara := testutil.CreateStudent(t, repos.Student, caraUsr, "10A", "3", "")
	danUsr := testutil.CreateUser(t, repos.User, "Dan", "dan", "dan@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, repos.Student, danUsr, "10B", "1", "")
	adminToken := getToken(t, conf, admin)

	post := func(path string, body interface{}, wantCode int) []byte {
		req, rec := newAuthRequest(http.MethodPost, path, adminToken, marchallObj(t, body))
		app.ServeHTTP(rec, req)
		require.Equal(t, wantCode, rec.Code, rec.Body.String())
		return rec.Body.Bytes()
	}
	get := func(path string, dst interface{}) {
		req, rec := newAuthRequest(http.MethodGet, path, adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, dst)
	}

	t.Run("academic", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/courses", adminToken, marchallObj(t, course.NewCourse{Name: "Mathematics", Code: "MATH10A", Class: "10A"}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var crs course.Course
		decode(t, rec, &crs)

		score := func(f float64) *float64 { return &f }
		post("/api/exams/marks", exam.BulkMarks{CourseID: crs.ID, Marks: []exam.NewMarks{
			{StudentID: alice.ID, Exam1: score(80)},
			{StudentID: bob.ID, Exam1: score(70), Exam2: score(90)},
			{StudentID: cara.ID, Exam1: score(30)},
		}}, http.StatusOK)

		var rep report.Academic
		get("/api/reports/academic?class=10A", &rep)
		require.Len(t, rep.Students, 3)

		ranks := make(map[string]int, len(rep.Students))
		for _, row := range rep.Students {
			ranks[row.StudentName] = row.Rank
		}
		assert.Equal(t, map[string]int{"Alice": 1, "Bob": 1, "Cara": 3}, ranks)
		assert.Equal(t, "F", rep.Students[2].Grade)
		assert.Equal(t, "B", rep.AverageGrade) // (80 + 80 + 30) / 3
		assert.Equal(t, 66.7, rep.PassRate)
	})

	t.Run("attendance", func(t *testing.T) {
		post("/api/attendance/mark-all-present", attendance.MarkAllPresent{Date: "2026-03-02", Class: "10A"}, http.StatusOK)
		post("/api/attendance/mark-all-present", attendance.MarkAllPresent{Date: "2026-03-03", Class: "10A"}, http.StatusOK)
		post("/api/attendance", attendance.BulkMark{Records: []attendance.NewRecord{
			{Date: "2026-03-03", StudentID: bob.ID, Status: attendance.StatusAbsent},
		}}, http.StatusOK)
		post("/api/attendance/mark-all-present", attendance.MarkAllPresent{Date: "2026-03-04", Class: "10B"}, http.StatusOK)

		var rep report.Attendance
		get("/api/reports/attendance?class=10A", &rep)
		assert.Equal(t, 2, rep.TotalDays)
		require.Len(t, rep.Students, 3)
		assert.Equal(t, "Bob", rep.Students[1].StudentName)
		assert.Equal(t, 50.0, rep.Students[1].Percentage)
		assert.Equal(t, 83.3, rep.AverageAttendance)

		var since report.Attendance
		get("/api/reports/attendance?from=2026-03-03", &since)
		assert.Equal(t, 2, since.TotalDays)
		assert.Len(t, since.Students, 4)
	})

	t.Run("admins only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/reports/academic", getToken(t, conf, aliceUsr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
