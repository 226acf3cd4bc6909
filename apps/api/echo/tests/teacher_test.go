package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/parent"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/teacher"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/testutil"
)

func Test_teacherApi_create(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	firstUsr := testutil.CreateUser(t, repos.User, "First", "first", "first@test.cd", "", []string{user.RoleTeacher}, true)
	testutil.CreateTeacher(t, repos.Teacher, firstUsr, "EMP-002")
	adminToken := getToken(t, conf, admin)

	create := func(nt teacher.NewTeacher) (int, teacher.Teacher) {
		req, rec := newAuthRequest(http.MethodPost, "/api/teachers", adminToken, marchallObj(t, nt))
		app.ServeHTTP(rec, req)
		var tchr teacher.Teacher
		if rec.Code == http.StatusCreated {
			decode(t, rec, &tchr)
		}
		return rec.Code, tchr
	}

	tests := []struct {
		name      string
		data      teacher.NewTeacher
		wantCode  int
		wantEmpID string
	}{
		{
			name:      "first free employee ID",
			data:      teacher.NewTeacher{Name: "Second", Email: "second@test.cd", Department: "Science", Subject: "Physics"},
			wantCode:  http.StatusCreated,
			wantEmpID: "EMP-003",
		},
		{
			name:      "given employee ID",
			data:      teacher.NewTeacher{Name: "Third", Email: "third@test.cd", EmployeeID: "T-42", Department: "Arts", Subject: "Music"},
			wantCode:  http.StatusCreated,
			wantEmpID: "T-42",
		},
		{
			name:     "taken employee ID",
			data:     teacher.NewTeacher{Name: "Fourth", Email: "fourth@test.cd", EmployeeID: "EMP-002", Department: "Arts", Subject: "Drawing"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "email in use",
			data:     teacher.NewTeacher{Name: "Clone", Email: "first@test.cd", Department: "Arts", Subject: "Drawing"},
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()
			code, tchr := create(tc.data)
			require.Equal(t, tc.wantCode, code)
			if tc.wantCode != http.StatusCreated {
				assert.Empty(t, emailsvc.SentMessages())
				return
			}
			assert.Equal(t, tc.wantEmpID, tchr.EmployeeID)
			assert.NotEmpty(t, tchr.UserID)
			assert.Len(t, emailsvc.SentMessages(), 1)
		})
	}
}

func Test_teacherApi_delete(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	tUsr := testutil.CreateUser(t, repos.User, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	tchr := testutil.CreateTeacher(t, repos.Teacher, tUsr, "EMP-001")
	adminToken := getToken(t, conf, admin)

	runTests(t, []httpTest{
		{name: "teachers cannot delete", method: http.MethodDelete, path: "/api/teachers/" + tchr.ID, token: getToken(t, conf, tUsr), wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/api/teachers/" + tchr.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "gone", method: http.MethodGet, path: "/api/teachers/" + tchr.ID, token: adminToken, wantCode: http.StatusNotFound},
	})

	usr, err := repos.User.GetUser(context.Background(), user.GetFilter{ID: tUsr.ID})
	require.NoError(t, err)
	assert.False(t, usr.Active())
}

func Test_parentApi_delete(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	pUsr := testutil.CreateUser(t, repos.User, "Mama", "mama", "mama@test.cd", "", []string{user.RoleParent}, true)
	p := testutil.CreateParent(t, repos.Parent, pUsr)
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	hero := testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", p.ID)
	adminToken := getToken(t, conf, admin)

	req, rec := newAuthRequest(http.MethodGet, "/api/parents/"+p.ID+"/children", getToken(t, conf, pUsr))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var children []student.Student
	decode(t, rec, &children)
	require.Len(t, children, 1)
	assert.Equal(t, hero.ID, children[0].ID)

	req, rec = newAuthRequest(http.MethodDelete, "/api/parents/"+p.ID, adminToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	ctx := context.Background()
	s, err := repos.Student.GetStudent(ctx, student.GetFilter{ID: hero.ID})
	require.NoError(t, err)
	assert.Empty(t, s.ParentID)

	_, err = repos.Parent.GetParent(ctx, parent.GetFilter{ID: p.ID})
	assert.Equal(t, parent.ErrNotFound, err)

	usr, err := repos.User.GetUser(ctx, user.GetFilter{ID: pUsr.ID})
	require.NoError(t, err)
	assert.False(t, usr.Active())
}
