package communication

import (
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// Announcement audiences
const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceTeachers = "teachers"
	AudienceParents  = "parents"
)

// Announcement statuses
const (
	StatusPublished = "Published"
	StatusDraft     = "Draft"
)

// Notification types
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

type Announcement struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	TargetAudience string    `json:"target_audience"`
	Classes        []string  `json:"classes"`
	Attachment     string    `json:"attachment"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	Category       string    `json:"category"`
	AuthorID       string    `json:"author_id"`
	AuthorName     string    `json:"author_name"`
	AuthorRole     string    `json:"author_role"`
	PublishDate    time.Time `json:"publish_date"` // UTC
	ReadBy         []string  `json:"read_by"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Viewer is the user reading announcements, with the classes they relate to.
type Viewer struct {
	User         user.User
	Class        string   // students
	ChildClasses []string // parents
}

func (v Viewer) inClasses(classes []string) bool {
	if len(classes) == 0 {
		return true
	}
	if v.Class != "" && core.ContainsString(classes, v.Class) {
		return true
	}
	for _, c := range v.ChildClasses {
		if core.ContainsString(classes, c) {
			return true
		}
	}
	return false
}

// VisibleTo reports whether `v` may read the announcement.
func (a Announcement) VisibleTo(v Viewer) bool {
	if v.User.IsAdmin() || a.AuthorID == v.User.ID {
		return true
	}
	if a.Status != StatusPublished {
		return false
	}
	switch {
	case v.User.IsTeacher():
		return a.TargetAudience == AudienceAll || a.TargetAudience == AudienceTeachers
	case v.User.IsParent():
		return (a.TargetAudience == AudienceAll || a.TargetAudience == AudienceParents) && v.inClasses(a.Classes)
	case v.User.IsStudent():
		return (a.TargetAudience == AudienceAll || a.TargetAudience == AudienceStudents) && v.inClasses(a.Classes)
	}
	return a.TargetAudience == AudienceAll && len(a.Classes) == 0
}

func (a Announcement) ReadByUser(userID string) bool {
	return core.ContainsString(a.ReadBy, userID)
}

type NewAnnouncement struct {
	Title          string    `json:"title" validate:"required"`
	Description    string    `json:"description" validate:"required"`
	TargetAudience string    `json:"target_audience" validate:"omitempty,oneof=all students teachers parents"`
	Classes        []string  `json:"classes"`
	Attachment     string    `json:"attachment" validate:"omitempty,url"`
	Status         string    `json:"status" validate:"omitempty,oneof=Published Draft"`
	Priority       string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category       string    `json:"category"`
	PublishDate    time.Time `json:"publish_date"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Classes = core.CleanStrings(na.Classes)
	na.Attachment = core.CleanString(na.Attachment)
	na.Category = core.CleanString(na.Category)
	if na.TargetAudience = core.CleanString(na.TargetAudience, true /* lower */); na.TargetAudience == "" {
		na.TargetAudience = AudienceAll
	}
	if na.Status = core.CleanString(na.Status); na.Status == "" {
		na.Status = StatusPublished
	}
	if na.Priority = core.CleanString(na.Priority, true /* lower */); na.Priority == "" {
		na.Priority = "medium"
	}
	return validate.Struct(na)
}

// UpdateAnnouncement holds the editable fields of an Announcement. Empty fields keep their current value.
type UpdateAnnouncement struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	TargetAudience string    `json:"target_audience" validate:"omitempty,oneof=all students teachers parents"`
	Classes        []string  `json:"classes"`
	Attachment     string    `json:"attachment" validate:"omitempty,url"`
	Status         string    `json:"status" validate:"omitempty,oneof=Published Draft"`
	Priority       string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category       string    `json:"category"`
	PublishDate    time.Time `json:"publish_date"`
}

func (ua *UpdateAnnouncement) Validate(orig Announcement, validate *validator.Validate) error {
	keep := func(val *string, origVal string, lower ...bool) {
		if *val = core.CleanString(*val, lower...); *val == "" {
			*val = origVal
		}
	}
	keep(&ua.Title, orig.Title)
	keep(&ua.Description, orig.Description)
	keep(&ua.TargetAudience, orig.TargetAudience, true)
	keep(&ua.Attachment, orig.Attachment)
	keep(&ua.Status, orig.Status)
	keep(&ua.Priority, orig.Priority, true)
	keep(&ua.Category, orig.Category)
	if ua.Classes == nil {
		ua.Classes = orig.Classes
	} else {
		ua.Classes = core.CleanStrings(ua.Classes)
	}
	if ua.PublishDate.IsZero() {
		ua.PublishDate = orig.PublishDate
	}
	return validate.Struct(ua)
}

type AnnouncementFilter struct {
	Status         string `query:"status"`
	TargetAudience string `query:"target_audience"`
	Priority       string `query:"priority"`
	Category       string `query:"category"`
	Search         string `query:"search"`
}

func (af *AnnouncementFilter) Clean() {
	af.Status = core.CleanString(af.Status)
	af.TargetAudience = core.CleanString(af.TargetAudience, true)
	af.Priority = core.CleanString(af.Priority, true)
	af.Category = core.CleanString(af.Category)
	af.Search = core.CleanString(af.Search)
}

var AnnouncementOrderingFields = map[string]string{
	"title":        "title",
	"priority":     "priority",
	"publish_date": "publish_date",
	"created_at":   "created_at",
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	SenderRole     string    `json:"sender_role"`
	RecipientID    string    `json:"recipient_id"`
	RecipientName  string    `json:"recipient_name"`
	RecipientRole  string    `json:"recipient_role"`
	Subject        string    `json:"subject"`
	Text           string    `json:"text"`
	Read           bool      `json:"read"`
	SentAt         time.Time `json:"sent_at"` // UTC
}

// ConversationID identifies the conversation between two users, whatever the order.
func ConversationID(userID1, userID2 string) string {
	ids := []string{userID1, userID2}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

type NewMessage struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Subject     string `json:"subject"`
	Text        string `json:"text" validate:"required"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.RecipientID = core.CleanString(nm.RecipientID)
	nm.Subject = core.CleanString(nm.Subject)
	nm.Text = core.CleanString(nm.Text)
	return validate.Struct(nm)
}

type MessageFilter struct {
	UserID         string `query:"-"` // sender or recipient
	ConversationID string `query:"conversation_id"`
	Unread         *bool  `query:"unread"`
}

func (mf *MessageFilter) Clean() {
	mf.ConversationID = core.CleanString(mf.ConversationID)
}

// Conversation summarizes the messages exchanged with another user.
type Conversation struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	UserName    string  `json:"user_name"`
	UserRole    string  `json:"user_role"`
	LastMessage Message `json:"last_message"`
	UnreadCount int     `json:"unread_count"`
}

// Conversations groups `msgs` (newest first) by conversation, from the point of view of `userID`.
func Conversations(userID string, msgs []Message) []Conversation {
	convs := make([]Conversation, 0)
	idx := make(map[string]int)
	for _, m := range msgs {
		i, ok := idx[m.ConversationID]
		if !ok {
			conv := Conversation{ID: m.ConversationID, LastMessage: m}
			if m.SenderID == userID {
				conv.UserID, conv.UserName, conv.UserRole = m.RecipientID, m.RecipientName, m.RecipientRole
			} else {
				conv.UserID, conv.UserName, conv.UserRole = m.SenderID, m.SenderName, m.SenderRole
			}
			convs = append(convs, conv)
			i = len(convs) - 1
			idx[m.ConversationID] = i
		}
		if m.RecipientID == userID && !m.Read {
			convs[i].UnreadCount++
		}
	}
	return convs
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewNotification struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1"`
	Title   string   `json:"title" validate:"required"`
	Message string   `json:"message" validate:"required"`
	Type    string   `json:"type" validate:"omitempty,oneof=info success warning error"`
	Link    string   `json:"link"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.UserIDs = core.CleanStrings(nn.UserIDs)
	nn.Title = core.CleanString(nn.Title)
	nn.Message = core.CleanString(nn.Message)
	nn.Link = core.CleanString(nn.Link)
	if nn.Type = core.CleanString(nn.Type, true /* lower */); nn.Type == "" {
		nn.Type = NotificationInfo
	}
	return validate.Struct(nn)
}

type NotificationFilter struct {
	UserID string `query:"-"`
	Unread *bool  `query:"unread"`
	Type   string `query:"type"`
}

func (nf *NotificationFilter) Clean() {
	nf.Type = core.CleanString(nf.Type, true)
}

type UnreadCounts struct {
	Messages      int `json:"messages"`
	Notifications int `json:"notifications"`
	Announcements int `json:"announcements"`
	Total         int `json:"total"`
}
