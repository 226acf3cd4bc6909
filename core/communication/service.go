package communication

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrAnnouncementNotFound = core.NewNotFoundError("announcement")
	ErrMessageNotFound      = core.NewNotFoundError("message")
	ErrNotificationNotFound = core.NewNotFoundError("notification")

	errNotAuthor     = core.NewForbiddenError("only the author or an admin can do this")
	errNotRecipient  = core.NewForbiddenError("only the recipient can mark a message as read")
	errNotOwner      = core.NewForbiddenError("this notification belongs to another user")
	errMessageToSelf = "you cannot send a message to yourself"
	errUnknownUser   = "user not found"
)

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (Announcement, error)
		// QueryAnnouncements applies AND operation on available AnnouncementFilter fields.
		// AnnouncementFilter.Search does a case-insensitive match on one of Announcement.Title or Announcement.Description.
		QueryAnnouncements(ctx context.Context, filter *AnnouncementFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) error
		// MarkAnnouncementRead adds `userID` to Announcement.ReadBy, once.
		MarkAnnouncementRead(ctx context.Context, id, userID string, exec ...core.DBExecutor) error

		CreateMessage(ctx context.Context, m Message, exec ...core.DBExecutor) (Message, error)
		GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (Message, error)
		// QueryMessages returns the matching messages, newest first.
		QueryMessages(ctx context.Context, filter *MessageFilter, exec ...core.DBExecutor) ([]Message, error)
		// MarkMessagesRead marks the messages received by `recipientID` in the conversation as read and returns their count.
		MarkMessagesRead(ctx context.Context, recipientID, conversationID string, exec ...core.DBExecutor) (int, error)
		SetMessageRead(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateNotifications(ctx context.Context, ns []Notification, exec ...core.DBExecutor) ([]Notification, error)
		GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (Notification, error)
		// QueryNotifications returns the matching notifications, newest first.
		QueryNotifications(ctx context.Context, filter *NotificationFilter, exec ...core.DBExecutor) ([]Notification, error)
		// MarkNotificationsRead marks the notifications of `userID` as read: the given ones, or all when none.
		MarkNotificationsRead(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) (int, error)
		DeleteNotification(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		CreateAnnouncement(ctx context.Context, na NewAnnouncement, by user.User) (Announcement, error)
		// Announcements lists the announcements `v` may read.
		Announcements(ctx context.Context, v Viewer, filter *AnnouncementFilter, ordering []core.DBOrdering) ([]Announcement, error)
		GetAnnouncement(ctx context.Context, id string, v Viewer) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement, ua UpdateAnnouncement, by user.User) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string, by user.User) error
		MarkAnnouncementRead(ctx context.Context, id string, v Viewer) error

		SendMessage(ctx context.Context, nm NewMessage, by user.User) (Message, error)
		Messages(ctx context.Context, filter *MessageFilter) ([]Message, error)
		Conversations(ctx context.Context, userID string) ([]Conversation, error)
		MarkMessageRead(ctx context.Context, id string, by user.User) error
		MarkConversationRead(ctx context.Context, conversationID string, by user.User) (int, error)

		Notify(ctx context.Context, nn NewNotification) ([]Notification, error)
		Notifications(ctx context.Context, filter *NotificationFilter) ([]Notification, error)
		MarkNotificationsRead(ctx context.Context, by user.User, ids ...string) (int, error)
		DeleteNotification(ctx context.Context, id string, by user.User) error

		UnreadCounts(ctx context.Context, v Viewer) (UnreadCounts, error)
	}

	service struct {
		repo        Repository
		usrRepo     user.Repository
		studentRepo student.Repository
		parentRepo  student.ParentFinder
		broker      core.EventBroker
		logger      core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	usrRepo user.Repository,
	studentRepo student.Repository,
	parentRepo student.ParentFinder,
	broker core.EventBroker,
	logger core.Logger,
) Service {
	return &service{
		repo:        repo,
		usrRepo:     usrRepo,
		studentRepo: studentRepo,
		parentRepo:  parentRepo,
		broker:      broker,
		logger:      logger,
	}
}

func (svc *service) publish(ctx context.Context, evt core.Event) {
	core.PublishEvent(ctx, svc.broker, svc.logger, evt)
}

// audience returns the event audience of the announcement: the readers VisibleTo lets in.
// Class-limited announcements reach the students of those classes and their parents only.
func (svc *service) audience(ctx context.Context, a Announcement) []string {
	aud := []string{user.RoleAdmin, a.AuthorID}
	if a.Status != StatusPublished {
		return aud
	}

	toTeachers := a.TargetAudience == AudienceAll || a.TargetAudience == AudienceTeachers
	toStudents := a.TargetAudience == AudienceAll || a.TargetAudience == AudienceStudents
	toParents := a.TargetAudience == AudienceAll || a.TargetAudience == AudienceParents
	if len(a.Classes) == 0 {
		switch a.TargetAudience {
		case AudienceTeachers:
			return append(aud, user.RoleTeacher)
		case AudienceStudents:
			return append(aud, user.RoleStudent)
		case AudienceParents:
			return append(aud, user.RoleParent)
		}
		return nil
	}

	if toTeachers {
		aud = append(aud, user.RoleTeacher)
	}
	if !(toStudents || toParents) {
		return aud
	}
	var roster []student.Student
	for _, class := range a.Classes {
		students, err := svc.studentRepo.QueryStudents(ctx, &student.QueryFilter{Class: class}, nil)
		if err != nil {
			svc.logger.Warn("resolving announcement audience", err)
			continue
		}
		roster = append(roster, students...)
	}
	if toStudents {
		aud = append(aud, student.UserIDs(roster...)...)
	}
	if toParents {
		aud = append(aud, student.ParentUserIDs(ctx, svc.parentRepo, roster...)...)
	}
	return aud
}

func (svc *service) CreateAnnouncement(ctx context.Context, na NewAnnouncement, by user.User) (Announcement, error) {
	now := core.NowFunc().UTC()
	publishDate := na.PublishDate.UTC()
	if na.PublishDate.IsZero() {
		publishDate = now
	}
	if na.Classes == nil {
		na.Classes = []string{}
	}
	a, err := svc.repo.CreateAnnouncement(ctx, Announcement{
		ID:             core.NewID(),
		Title:          na.Title,
		Description:    na.Description,
		TargetAudience: na.TargetAudience,
		Classes:        na.Classes,
		Attachment:     na.Attachment,
		Status:         na.Status,
		Priority:       na.Priority,
		Category:       na.Category,
		AuthorID:       by.ID,
		AuthorName:     by.Name,
		AuthorRole:     by.MainRole(),
		PublishDate:    publishDate,
		ReadBy:         []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Announcement{}, errors.Wrap(err, "creating announcement")
	}
	svc.publish(ctx, core.NewEvent(core.TopicAnnouncement, core.ActionCreated, a.ID, a, svc.audience(ctx, a)...))
	return a, nil
}

func (svc *service) Announcements(ctx context.Context, v Viewer, filter *AnnouncementFilter, ordering []core.DBOrdering) ([]Announcement, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "publish_date", Ascending: false}}
	}
	all, err := svc.repo.QueryAnnouncements(ctx, filter, core.FilterOrdering(ordering, AnnouncementOrderingFields))
	if err != nil {
		return nil, err
	}
	visible := make([]Announcement, 0, len(all))
	for _, a := range all {
		if a.VisibleTo(v) {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

func (svc *service) GetAnnouncement(ctx context.Context, id string, v Viewer) (Announcement, error) {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if !a.VisibleTo(v) {
		return Announcement{}, ErrAnnouncementNotFound
	}
	return a, nil
}

func (svc *service) UpdateAnnouncement(ctx context.Context, a Announcement, ua UpdateAnnouncement, by user.User) (Announcement, error) {
	if !by.IsAdmin() && a.AuthorID != by.ID {
		return Announcement{}, errNotAuthor
	}
	a.Title = ua.Title
	a.Description = ua.Description
	a.TargetAudience = ua.TargetAudience
	a.Classes = ua.Classes
	a.Attachment = ua.Attachment
	a.Status = ua.Status
	a.Priority = ua.Priority
	a.Category = ua.Category
	a.PublishDate = ua.PublishDate.UTC()
	a.UpdatedAt = core.NowFunc().UTC()

	a, err := svc.repo.UpdateAnnouncement(ctx, a)
	if err != nil {
		return Announcement{}, err
	}
	svc.publish(ctx, core.NewEvent(core.TopicAnnouncement, core.ActionUpdated, a.ID, a, svc.audience(ctx, a)...))
	return a, nil
}

func (svc *service) DeleteAnnouncement(ctx context.Context, id string, by user.User) error {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return err
	}
	if !by.IsAdmin() && a.AuthorID != by.ID {
		return errNotAuthor
	}
	if err = svc.repo.DeleteAnnouncement(ctx, a.ID); err != nil {
		return err
	}
	svc.publish(ctx, core.NewEvent(core.TopicAnnouncement, core.ActionDeleted, a.ID, nil, svc.audience(ctx, a)...))
	return nil
}

func (svc *service) MarkAnnouncementRead(ctx context.Context, id string, v Viewer) error {
	a, err := svc.GetAnnouncement(ctx, id, v)
	if err != nil {
		return err
	}
	return svc.repo.MarkAnnouncementRead(ctx, a.ID, v.User.ID)
}

func (svc *service) SendMessage(ctx context.Context, nm NewMessage, by user.User) (Message, error) {
	if nm.RecipientID == by.ID {
		return Message{}, core.NewValidationError(nil, core.FieldError{Field: "recipient_id", Error: errMessageToSelf})
	}
	to, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: nm.RecipientID})
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Message{}, core.NewValidationError(nil, core.FieldError{Field: "recipient_id", Error: errUnknownUser})
		}
		return Message{}, errors.Wrap(err, "finding recipient")
	}

	m, err := svc.repo.CreateMessage(ctx, Message{
		ID:             core.NewID(),
		ConversationID: ConversationID(by.ID, to.ID),
		SenderID:       by.ID,
		SenderName:     by.Name,
		SenderRole:     by.MainRole(),
		RecipientID:    to.ID,
		RecipientName:  to.Name,
		RecipientRole:  to.MainRole(),
		Subject:        nm.Subject,
		Text:           nm.Text,
		SentAt:         core.NowFunc().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}
	svc.publish(ctx, core.NewEvent(core.TopicMessage, core.ActionCreated, m.ID, m, m.SenderID, m.RecipientID))
	return m, nil
}

func (svc *service) Messages(ctx context.Context, filter *MessageFilter) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, filter)
}

func (svc *service) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	msgs, err := svc.repo.QueryMessages(ctx, &MessageFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	return Conversations(userID, msgs), nil
}

func (svc *service) MarkMessageRead(ctx context.Context, id string, by user.User) error {
	m, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if m.RecipientID != by.ID {
		return errNotRecipient
	}
	if m.Read {
		return nil
	}
	if err = svc.repo.SetMessageRead(ctx, m.ID); err != nil {
		return err
	}
	svc.publish(ctx, core.NewEvent(core.TopicMessage, core.ActionRead, m.ID, nil, m.SenderID, m.RecipientID))
	return nil
}

func (svc *service) MarkConversationRead(ctx context.Context, conversationID string, by user.User) (int, error) {
	n, err := svc.repo.MarkMessagesRead(ctx, by.ID, conversationID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		svc.publish(ctx, core.NewEvent(core.TopicMessage, core.ActionRead, conversationID, nil, by.ID))
	}
	return n, nil
}

// Notify sends the notification to every user of NewNotification.UserIDs.
func (svc *service) Notify(ctx context.Context, nn NewNotification) ([]Notification, error) {
	usrs, err := svc.usrRepo.QueryUsers(ctx, &user.QueryFilter{IDs: nn.UserIDs}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	if len(usrs) != len(nn.UserIDs) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "user_ids", Error: errUnknownUser})
	}

	now := core.NowFunc().UTC()
	ns := make([]Notification, 0, len(usrs))
	for _, usr := range usrs {
		ns = append(ns, Notification{
			ID:        core.NewID(),
			UserID:    usr.ID,
			Title:     nn.Title,
			Message:   nn.Message,
			Type:      nn.Type,
			Link:      nn.Link,
			CreatedAt: now,
		})
	}
	if ns, err = svc.repo.CreateNotifications(ctx, ns); err != nil {
		return nil, errors.Wrap(err, "creating notifications")
	}
	for _, n := range ns {
		svc.publish(ctx, core.NewEvent(core.TopicNotification, core.ActionCreated, n.ID, n, n.UserID))
	}
	return ns, nil
}

func (svc *service) Notifications(ctx context.Context, filter *NotificationFilter) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, filter)
}

func (svc *service) MarkNotificationsRead(ctx context.Context, by user.User, ids ...string) (int, error) {
	n, err := svc.repo.MarkNotificationsRead(ctx, by.ID, ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		svc.publish(ctx, core.NewEvent(core.TopicNotification, core.ActionRead, "", nil, by.ID))
	}
	return n, nil
}

func (svc *service) DeleteNotification(ctx context.Context, id string, by user.User) error {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != by.ID && !by.IsAdmin() {
		return errNotOwner
	}
	return svc.repo.DeleteNotification(ctx, n.ID)
}

func (svc *service) UnreadCounts(ctx context.Context, v Viewer) (UnreadCounts, error) {
	var counts UnreadCounts
	unread := true

	msgs, err := svc.repo.QueryMessages(ctx, &MessageFilter{UserID: v.User.ID, Unread: &unread})
	if err != nil {
		return counts, errors.Wrap(err, "counting messages")
	}
	for _, m := range msgs {
		if m.RecipientID == v.User.ID {
			counts.Messages++
		}
	}

	ns, err := svc.repo.QueryNotifications(ctx, &NotificationFilter{UserID: v.User.ID, Unread: &unread})
	if err != nil {
		return counts, errors.Wrap(err, "counting notifications")
	}
	counts.Notifications = len(ns)

	anns, err := svc.Announcements(ctx, v, &AnnouncementFilter{Status: StatusPublished}, nil)
	if err != nil {
		return counts, errors.Wrap(err, "counting announcements")
	}
	for _, a := range anns {
		if !a.ReadByUser(v.User.ID) {
			counts.Announcements++
		}
	}

	counts.Total = counts.Messages + counts.Notifications + counts.Announcements
	return counts, nil
}
