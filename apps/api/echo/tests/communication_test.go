package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core/communication"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/testutil"
)

func Test_communicationApi_announcements(t *testing.T) {
	resetDB(t)

	teacher := testutil.CreateUser(t, repos.User, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	pUsr := testutil.CreateUser(t, repos.User, "Mama", "mama", "mama@test.cd", "", []string{user.RoleParent}, true)
	p := testutil.CreateParent(t, repos.Parent, pUsr)
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", p.ID)
	otherUsr := testutil.CreateUser(t, repos.User, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, repos.Student, otherUsr, "10B", "1", "")

	teacherToken := getToken(t, conf, teacher)
	create := func(na communication.NewAnnouncement) communication.Announcement {
		req, rec := newAuthRequest(http.MethodPost, "/api/announcements", teacherToken, marchallObj(t, na))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a communication.Announcement
		decode(t, rec, &a)
		return a
	}

	everyone := create(communication.NewAnnouncement{Title: "Holiday", Description: "No school on Friday"})
	class10A := create(communication.NewAnnouncement{Title: "Trip", Description: "Museum visit", TargetAudience: communication.AudienceStudents, Classes: []string{"10A"}})
	staffOnly := create(communication.NewAnnouncement{Title: "Meeting", Description: "Staff meeting", TargetAudience: communication.AudienceTeachers})
	draft := create(communication.NewAnnouncement{Title: "Soon", Description: "Not yet", Status: communication.StatusDraft})

	assert.Equal(t, communication.AudienceAll, everyone.TargetAudience)
	assert.Equal(t, communication.StatusPublished, everyone.Status)
	assert.Equal(t, teacher.ID, everyone.AuthorID)

	titles := func(token string) []string {
		req, rec := newAuthRequest(http.MethodGet, "/api/announcements", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var as []communication.Announcement
		decode(t, rec, &as)
		res := make([]string, 0, len(as))
		for _, a := range as {
			res = append(res, a.Title)
		}
		return res
	}

	assert.ElementsMatch(t, []string{"Holiday", "Trip", "Meeting", "Soon"}, titles(teacherToken))
	assert.ElementsMatch(t, []string{"Holiday", "Trip"}, titles(getToken(t, conf, heroUsr)))
	assert.ElementsMatch(t, []string{"Holiday"}, titles(getToken(t, conf, otherUsr)))
	assert.ElementsMatch(t, []string{"Holiday"}, titles(getToken(t, conf, pUsr)))

	otherToken := getToken(t, conf, otherUsr)
	tests := []httpTest{
		{name: "hidden by class", method: http.MethodGet, path: "/api/announcements/" + class10A.ID, token: otherToken, wantCode: http.StatusNotFound},
		{name: "hidden by audience", method: http.MethodGet, path: "/api/announcements/" + staffOnly.ID, token: otherToken, wantCode: http.StatusNotFound},
		{name: "draft hidden", method: http.MethodGet, path: "/api/announcements/" + draft.ID, token: otherToken, wantCode: http.StatusNotFound},
		{name: "students cannot publish", method: http.MethodPost, path: "/api/announcements", token: otherToken,
			body: marchallObj(t, communication.NewAnnouncement{Title: "x", Description: "y"}), wantCode: http.StatusForbidden},
		{
			name:     "mark as read",
			method:   http.MethodPost,
			path:     "/api/announcements/" + everyone.ID + "/read",
			token:    otherToken,
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Announcement marked as read."}),
		},
		{name: "read requires token", method: http.MethodGet, path: "/api/announcements", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
	}
	runTests(t, tests)
}
