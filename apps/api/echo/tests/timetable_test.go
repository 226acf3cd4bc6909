package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/timetable"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/testutil"
)

func Test_timetableApi_mine(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	tUsr := testutil.CreateUser(t, repos.User, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	tchr := testutil.CreateTeacher(t, repos.Teacher, tUsr, "EMP-001")
	pUsr := testutil.CreateUser(t, repos.User, "Mama", "mama", "mama@test.cd", "", []string{user.RoleParent}, true)
	p := testutil.CreateParent(t, repos.Parent, pUsr)
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", p.ID)
	sisUsr := testutil.CreateUser(t, repos.User, "Sis", "sis", "sis@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, repos.Student, sisUsr, "8B", "1", p.ID)
	adminToken := getToken(t, conf, admin)

	save := func(st timetable.SaveTimetable) {
		req, rec := newAuthRequest(http.MethodPut, "/api/timetables", adminToken, marchallObj(t, st))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	save(timetable.SaveTimetable{Kind: timetable.KindClass, OwnerKey: "10A", Entries: []timetable.Entry{
		{Day: "Monday", StartTime: "08:00", EndTime: "09:00", Subject: "Mathematics", Room: "R1"},
		{Day: "Tuesday", StartTime: "08:00", EndTime: "09:00", Subject: "Physics", Room: "R2"},
	}})
	save(timetable.SaveTimetable{Kind: timetable.KindTeacher, OwnerKey: tchr.ID, Entries: []timetable.Entry{
		{Day: "Monday", StartTime: "08:00", EndTime: "09:00", Subject: "Mathematics", ClassName: "10A"},
	}})

	mine := func(usr user.User, dst interface{}) int {
		req, rec := newAuthRequest(http.MethodGet, "/api/timetables/me", getToken(t, conf, usr))
		app.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			decode(t, rec, dst)
		}
		return rec.Code
	}

	t.Run("teacher", func(t *testing.T) {
		var tt timetable.Timetable
		require.Equal(t, http.StatusOK, mine(tUsr, &tt))
		assert.Equal(t, timetable.KindTeacher, tt.Kind)
		assert.Equal(t, tchr.ID, tt.OwnerKey)
		require.Len(t, tt.Entries, 1)
		assert.Equal(t, tchr.ID, tt.Entries[0].TeacherID)
	})

	t.Run("student", func(t *testing.T) {
		var tt timetable.Timetable
		require.Equal(t, http.StatusOK, mine(heroUsr, &tt))
		assert.Equal(t, timetable.KindClass, tt.Kind)
		assert.Equal(t, "10A", tt.OwnerKey)
		assert.Len(t, tt.Entries, 2)
	})

	t.Run("parent", func(t *testing.T) {
		var tts []timetable.Timetable
		require.Equal(t, http.StatusOK, mine(pUsr, &tts))
		require.Len(t, tts, 2)
		entries := make(map[string]int, len(tts))
		for _, tt := range tts {
			assert.Equal(t, timetable.KindClass, tt.Kind)
			entries[tt.OwnerKey] = len(tt.Entries)
		}
		assert.Equal(t, map[string]int{"10A": 2, "8B": 0}, entries)
	})

	t.Run("admin", func(t *testing.T) {
		var tt timetable.Timetable
		assert.Equal(t, http.StatusForbidden, mine(admin, &tt))
	})
}
