package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/testutil"
)

func Test_studentApi_create(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, repos.User, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	adminToken := getToken(t, conf, admin)

	newStudent := student.NewStudent{
		Name:        "Hero",
		Email:       "hero@test.cd",
		Class:       "10A",
		RollNumber:  "1",
		ParentName:  "Mama Hero",
		ParentEmail: "mama@test.cd",
	}

	t.Run("Admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/students", getToken(t, conf, teacher), marchallObj(t, newStudent))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("creates student, accounts and parent", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		req, rec := newAuthRequest(http.MethodPost, "/api/students", adminToken, marchallObj(t, newStudent))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		var s student.Student
		decode(t, rec, &s)
		if s.UserID == "" || s.ParentID == "" {
			t.Fatalf("failed! student = %+v", s)
		}
		if s.Status != student.StatusActive {
			t.Errorf("failed! status = %q; want %q", s.Status, student.StatusActive)
		}

		acc, err := repos.User.GetUser(context.Background(), user.GetFilter{Email: newStudent.Email})
		if err != nil {
			t.Fatalf("GetUser() failed: %v", err)
		}
		if !acc.IsStudent() {
			t.Errorf("failed! roles = %v", acc.Roles)
		}
		pAcc, err := repos.User.GetUser(context.Background(), user.GetFilter{Email: newStudent.ParentEmail})
		if err != nil {
			t.Fatalf("GetUser() failed: %v", err)
		}
		if !pAcc.IsParent() {
			t.Errorf("failed! roles = %v", pAcc.Roles)
		}
		if n := len(emailsvc.SentMessages()); n != 2 {
			t.Errorf("failed! len(SentMessages) = %d; want 2", n)
		}
	})

	t.Run("roll number taken in class", func(t *testing.T) {
		dup := newStudent
		dup.Email = "other@test.cd"
		dup.ParentEmail = ""
		dup.ParentName = ""
		req, rec := newAuthRequest(http.MethodPost, "/api/students", adminToken, marchallObj(t, dup))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("parent email of a non parent rolls back", func(t *testing.T) {
		bad := newStudent
		bad.Email = "villain@test.cd"
		bad.RollNumber = "2"
		bad.ParentEmail = teacher.Email
		req, rec := newAuthRequest(http.MethodPost, "/api/students", adminToken, marchallObj(t, bad))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("failed! code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
		if _, err := repos.User.GetUser(context.Background(), user.GetFilter{Email: bad.Email}); err == nil {
			t.Error("failed! the student account was not rolled back")
		}
	})
}

func Test_studentApi_scope(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	pUsr := testutil.CreateUser(t, repos.User, "Mama", "mama", "mama@test.cd", "", []string{user.RoleParent}, true)
	p := testutil.CreateParent(t, repos.Parent, pUsr)
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	hero := testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", p.ID)
	otherUsr := testutil.CreateUser(t, repos.User, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateStudent(t, repos.Student, otherUsr, "10B", "1", "")

	heroToken := getToken(t, conf, heroUsr)
	parentToken := getToken(t, conf, pUsr)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "list: student forbidden", path: "/api/students", token: heroToken, wantCode: http.StatusForbidden},
		{name: "list: admin", path: "/api/students", token: getToken(t, conf, admin)},
		{name: "me", path: "/api/students/me", token: heroToken},
		{name: "me: parent forbidden", path: "/api/students/me", token: parentToken, wantCode: http.StatusForbidden},
		{name: "own profile", path: "/api/students/" + hero.ID, token: heroToken},
		{name: "other's profile", path: "/api/students/" + other.ID, token: heroToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "child's profile", path: "/api/students/" + hero.ID, token: parentToken},
		{name: "not a child", path: "/api/students/" + other.ID, token: parentToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "child's fees", path: "/api/students/" + hero.ID + "/fees", token: parentToken, wantData: marchallList(t)},
		{name: "other's fees", path: "/api/students/" + other.ID + "/fees", token: parentToken, wantCode: http.StatusNotFound},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	runTests(t, tests)
}
