package communication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/user"
)

func TestAnnouncement_VisibleTo(t *testing.T) {
	admin := Viewer{User: user.User{ID: "admin", Roles: []string{user.RoleAdmin}}}
	teacher := Viewer{User: user.User{ID: "teacher", Roles: []string{user.RoleTeacher}}}
	student10A := Viewer{User: user.User{ID: "s1", Roles: []string{user.RoleStudent}}, Class: "10A"}
	student10B := Viewer{User: user.User{ID: "s2", Roles: []string{user.RoleStudent}}, Class: "10B"}
	parent10A := Viewer{User: user.User{ID: "p1", Roles: []string{user.RoleParent}}, ChildClasses: []string{"10A"}}

	tests := []struct {
		name    string
		a       Announcement
		visible []Viewer
		hidden  []Viewer
	}{
		{
			name:    "everyone",
			a:       Announcement{TargetAudience: AudienceAll, Status: StatusPublished},
			visible: []Viewer{admin, teacher, student10A, student10B, parent10A},
		},
		{
			name:    "students of 10A",
			a:       Announcement{TargetAudience: AudienceStudents, Classes: []string{"10A"}, Status: StatusPublished},
			visible: []Viewer{admin, student10A},
			hidden:  []Viewer{teacher, student10B, parent10A},
		},
		{
			name:    "parents",
			a:       Announcement{TargetAudience: AudienceParents, Status: StatusPublished},
			visible: []Viewer{admin, parent10A},
			hidden:  []Viewer{teacher, student10A},
		},
		{
			name:    "draft",
			a:       Announcement{TargetAudience: AudienceAll, Status: StatusDraft, AuthorID: "teacher"},
			visible: []Viewer{admin, teacher},
			hidden:  []Viewer{student10A, parent10A},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.visible {
				assert.True(t, tt.a.VisibleTo(v), "hidden from %s", v.User.ID)
			}
			for _, v := range tt.hidden {
				assert.False(t, tt.a.VisibleTo(v), "visible to %s", v.User.ID)
			}
		})
	}
}

func TestConversations(t *testing.T) {
	now := time.Now().UTC()
	assert.Equal(t, ConversationID("a", "b"), ConversationID("b", "a"))

	ab, ac := ConversationID("a", "b"), ConversationID("a", "c")
	msgs := []Message{ // newest first
		{ID: "4", ConversationID: ac, SenderID: "a", RecipientID: "c", RecipientName: "C", SentAt: now},
		{ID: "3", ConversationID: ab, SenderID: "b", SenderName: "B", RecipientID: "a", SentAt: now.Add(-time.Minute)},
		{ID: "2", ConversationID: ab, SenderID: "b", SenderName: "B", RecipientID: "a", Read: true, SentAt: now.Add(-2 * time.Minute)},
		{ID: "1", ConversationID: ab, SenderID: "b", SenderName: "B", RecipientID: "a", SentAt: now.Add(-3 * time.Minute)},
	}
	convs := Conversations("a", msgs)
	if assert.Len(t, convs, 2) {
		assert.Equal(t, "c", convs[0].UserID)
		assert.Equal(t, "C", convs[0].UserName)
		assert.Equal(t, 0, convs[0].UnreadCount)
		assert.Equal(t, "4", convs[0].LastMessage.ID)

		assert.Equal(t, "b", convs[1].UserID)
		assert.Equal(t, 2, convs[1].UnreadCount)
		assert.Equal(t, "3", convs[1].LastMessage.ID)
	}
	assert.Empty(t, Conversations("a", nil))
}
