package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/communication"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/testutil"
)

// pendingEvents returns the events already delivered to `ch`.
func pendingEvents(ch <-chan core.Event) []core.Event {
	var evts []core.Event
	for {
		select {
		case evt := <-ch:
			evts = append(evts, evt)
		default:
			return evts
		}
	}
}

func Test_eventApi_audience(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, repos.User, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	pUsr := testutil.CreateUser(t, repos.User, "Mama", "mama", "mama@test.cd", "", []string{user.RoleParent}, true)
	p := testutil.CreateParent(t, repos.Parent, pUsr)
	heroUsr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	hero := testutil.CreateStudent(t, repos.Student, heroUsr, "10A", "1", p.ID)
	otherPUsr := testutil.CreateUser(t, repos.User, "Papa", "papa", "papa@test.cd", "", []string{user.RoleParent}, true)
	otherP := testutil.CreateParent(t, repos.Parent, otherPUsr)
	otherUsr := testutil.CreateUser(t, repos.User, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, repos.Student, otherUsr, "10B", "1", otherP.ID)

	adminToken := getToken(t, conf, admin)
	teacherToken := getToken(t, conf, teacher)

	tests := []struct {
		name     string
		topic    string
		token    string
		path     string
		body     interface{}
		wantCode int
		teachers bool
	}{
		{
			name:     "fee",
			topic:    core.TopicFee,
			token:    adminToken,
			path:     "/api/fees",
			body:     fee.NewFee{StudentID: hero.ID, FeeType: "Tuition", Amount: 1000, DueDate: time.Now().UTC().AddDate(0, 1, 0).Format(core.DateLayout)},
			wantCode: http.StatusCreated,
		},
		{
			name:     "attendance",
			topic:    core.TopicAttendance,
			token:    teacherToken,
			path:     "/api/attendance/mark-all-present",
			body:     attendance.MarkAllPresent{Date: "2026-03-02", Class: "10A"},
			wantCode: http.StatusOK,
			teachers: true,
		},
		{
			name:     "class announcement",
			topic:    core.TopicAnnouncement,
			token:    teacherToken,
			path:     "/api/announcements",
			body:     communication.NewAnnouncement{Title: "Trip", Description: "Museum visit", Classes: []string{"10A"}},
			wantCode: http.StatusCreated,
			teachers: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			events, err := broker.Subscribe(ctx, tt.topic)
			require.NoError(t, err)

			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, marchallObj(t, tt.body))
			app.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			evts := pendingEvents(events)
			require.Len(t, evts, 1)
			evt := evts[0]

			assert.True(t, evt.VisibleTo(admin.ID, admin.Roles), "admin")
			assert.True(t, evt.VisibleTo(heroUsr.ID, heroUsr.Roles), "student")
			assert.True(t, evt.VisibleTo(pUsr.ID, pUsr.Roles), "parent")
			assert.Equal(t, tt.teachers, evt.VisibleTo(teacher.ID, teacher.Roles), "teacher")
			assert.False(t, evt.VisibleTo(otherUsr.ID, otherUsr.Roles), "other student")
			assert.False(t, evt.VisibleTo(otherPUsr.ID, otherPUsr.Roles), "other parent")
		})
	}
}
