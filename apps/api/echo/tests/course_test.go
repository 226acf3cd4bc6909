package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/testutil"
)

func Test_courseApi_submissions(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacherUsr := testutil.CreateUser(t, repos.User, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	tchr := testutil.CreateTeacher(t, repos.Teacher, teacherUsr, "EMP-1")
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", "")
	otherUsr := testutil.CreateUser(t, repos.User, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateStudent(t, repos.Student, otherUsr, "10B", "1", "")

	adminToken := getToken(t, conf, admin)
	teacherToken := getToken(t, conf, teacherUsr)
	heroToken := getToken(t, conf, heroUsr)
	otherToken := getToken(t, conf, otherUsr)

	req, rec := newAuthRequest(http.MethodPost, "/api/courses", adminToken, marchallObj(t, course.NewCourse{
		Name: "Mathematics", Code: "MATH10A", Class: "10A", TeacherID: tchr.ID,
	}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var crs course.Course
	decode(t, rec, &crs)
	assert.Equal(t, "Teacher", crs.TeacherName)

	newAssignment := func(title string, due time.Time) course.Assignment {
		req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/assignments", teacherToken, marchallObj(t, course.NewAssignment{
			Title: title, DueDate: due, MaxMarks: 20,
		}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a course.Assignment
		decode(t, rec, &a)
		return a
	}
	homework := newAssignment("Homework", time.Now().UTC().AddDate(0, 0, 7))
	overdue := newAssignment("Overdue", time.Now().UTC().AddDate(0, 0, -1))

	submit := func(token, assignmentID, link string) (int, course.Submission) {
		req, rec := newAuthRequest(http.MethodPost, "/api/assignments/"+assignmentID+"/submissions", token, marchallObj(t, course.NewSubmission{Link: link}))
		app.ServeHTTP(rec, req)
		var sub course.Submission
		if rec.Code == http.StatusCreated {
			decode(t, rec, &sub)
		}
		return rec.Code, sub
	}

	var first course.Submission
	t.Run("on time", func(t *testing.T) {
		code, sub := submit(heroToken, homework.ID, "https://drive.test/hw-v1")
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, course.SubmissionSubmitted, sub.Status)
		assert.Nil(t, sub.Marks)
		first = sub
	})

	t.Run("late", func(t *testing.T) {
		code, sub := submit(heroToken, overdue.ID, "https://drive.test/late")
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, course.SubmissionLate, sub.Status)
	})

	t.Run("resubmission replaces the previous one", func(t *testing.T) {
		code, sub := submit(heroToken, homework.ID, "https://drive.test/hw-v2")
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, first.ID, sub.ID)
		assert.Equal(t, "https://drive.test/hw-v2", sub.Link)
	})

	t.Run("requires the class or an enrolment", func(t *testing.T) {
		code, _ := submit(otherToken, homework.ID, "https://drive.test/other")
		assert.Equal(t, http.StatusForbidden, code)

		req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/enroll", adminToken, marchallObj(t, course.Enroll{StudentIDs: []string{other.ID}}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		code, _ = submit(otherToken, homework.ID, "https://drive.test/other")
		assert.Equal(t, http.StatusCreated, code)
	})

	t.Run("teachers cannot submit", func(t *testing.T) {
		code, _ := submit(teacherToken, homework.ID, "https://drive.test/teacher")
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("submissions are scoped", func(t *testing.T) {
		list := func(token string) []course.Submission {
			req, rec := newAuthRequest(http.MethodGet, "/api/assignments/"+homework.ID+"/submissions", token)
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var subs []course.Submission
			decode(t, rec, &subs)
			return subs
		}
		assert.Len(t, list(teacherToken), 2)
		mine := list(heroToken)
		require.Len(t, mine, 1)
		assert.Equal(t, first.ID, mine[0].ID)
	})

	grade := func(marks float64) int {
		req, rec := newAuthRequest(http.MethodPut, "/api/submissions/"+first.ID+"/grade", teacherToken, marchallObj(t, course.Grade{Marks: &marks, Feedback: "Well done"}))
		app.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("marks bounds", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, grade(-1))
		assert.Equal(t, http.StatusBadRequest, grade(20.5))
		assert.Equal(t, http.StatusOK, grade(20))
	})

	t.Run("graded submissions are final", func(t *testing.T) {
		code, _ := submit(heroToken, homework.ID, "https://drive.test/hw-v3")
		assert.Equal(t, http.StatusConflict, code)
	})
}
