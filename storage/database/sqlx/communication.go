package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/communication"
)

const (
	announcementColumns = `id, title, description, target_audience, classes, attachment, status, priority, category,
	author_id, author_name, author_role, publish_date, read_by, created_at, updated_at`
	messageColumns = `id, conversation_id, sender_id, sender_name, sender_role, recipient_id, recipient_name,
	recipient_role, subject, text, read, sent_at`
	notificationColumns = `id, user_id, title, message, type, link, read, created_at`
)

var announcementOrderExprs = map[string]string{
	"priority": "CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END",
}

type announcementRow struct {
	ID             string         `db:"id"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	TargetAudience string         `db:"target_audience"`
	Classes        pq.StringArray `db:"classes"`
	Attachment     string         `db:"attachment"`
	Status         string         `db:"status"`
	Priority       string         `db:"priority"`
	Category       string         `db:"category"`
	AuthorID       string         `db:"author_id"`
	AuthorName     string         `db:"author_name"`
	AuthorRole     string         `db:"author_role"`
	PublishDate    time.Time      `db:"publish_date"`
	ReadBy         pq.StringArray `db:"read_by"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toAnnouncementRow(a communication.Announcement) announcementRow {
	return announcementRow{
		ID:             a.ID,
		Title:          a.Title,
		Description:    a.Description,
		TargetAudience: a.TargetAudience,
		Classes:        pq.StringArray(nonNil(a.Classes)),
		Attachment:     a.Attachment,
		Status:         a.Status,
		Priority:       a.Priority,
		Category:       a.Category,
		AuthorID:       a.AuthorID,
		AuthorName:     a.AuthorName,
		AuthorRole:     a.AuthorRole,
		PublishDate:    a.PublishDate.UTC(),
		ReadBy:         pq.StringArray(nonNil(a.ReadBy)),
		CreatedAt:      a.CreatedAt.UTC(),
		UpdatedAt:      a.UpdatedAt.UTC(),
	}
}

func (row announcementRow) announcement() communication.Announcement {
	return communication.Announcement{
		ID:             row.ID,
		Title:          row.Title,
		Description:    row.Description,
		TargetAudience: row.TargetAudience,
		Classes:        nonNil(row.Classes),
		Attachment:     row.Attachment,
		Status:         row.Status,
		Priority:       row.Priority,
		Category:       row.Category,
		AuthorID:       row.AuthorID,
		AuthorName:     row.AuthorName,
		AuthorRole:     row.AuthorRole,
		PublishDate:    row.PublishDate.UTC(),
		ReadBy:         nonNil(row.ReadBy),
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

type messageRow struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	SenderName     string    `db:"sender_name"`
	SenderRole     string    `db:"sender_role"`
	RecipientID    string    `db:"recipient_id"`
	RecipientName  string    `db:"recipient_name"`
	RecipientRole  string    `db:"recipient_role"`
	Subject        string    `db:"subject"`
	Text           string    `db:"text"`
	Read           bool      `db:"read"`
	SentAt         time.Time `db:"sent_at"`
}

func (row messageRow) message() communication.Message {
	m := communication.Message(row)
	m.SentAt = m.SentAt.UTC()
	return m
}

type notificationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Type      string    `db:"type"`
	Link      string    `db:"link"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

func (row notificationRow) notification() communication.Notification {
	n := communication.Notification(row)
	n.CreatedAt = n.CreatedAt.UTC()
	return n
}

type communicationRepository struct {
	repository
}

var _ communication.Repository = (*communicationRepository)(nil) // interface compliance check

func NewCommunicationRepository(db *sqlx.DB) communication.Repository {
	return &communicationRepository{repository{db: db}}
}

// Announcements

func (repo *communicationRepository) CreateAnnouncement(ctx context.Context, a communication.Announcement, exec ...core.DBExecutor) (communication.Announcement, error) {
	row := toAnnouncementRow(a)
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO announcement (`+announcementColumns+`)
		VALUES (:id, :title, :description, :target_audience, :classes, :attachment, :status, :priority, :category,
			:author_id, :author_name, :author_role, :publish_date, :read_by, :created_at, :updated_at)`,
		row)
	if err != nil {
		return communication.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return row.announcement(), nil
}

func (repo *communicationRepository) GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (communication.Announcement, error) {
	var row announcementRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+announcementColumns+` FROM announcement WHERE id = ?`, id); err != nil {
		return communication.Announcement{}, trapNoRows(err, communication.ErrAnnouncementNotFound, "getting announcement")
	}
	return row.announcement(), nil
}

func (repo *communicationRepository) QueryAnnouncements(ctx context.Context, filter *communication.AnnouncementFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]communication.Announcement, error) {
	var w where
	if filter != nil {
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.TargetAudience != "" {
			w.add("target_audience = ?", filter.TargetAudience)
		}
		if filter.Priority != "" {
			w.add("priority = ?", filter.Priority)
		}
		if filter.Category != "" {
			w.add("category ILIKE ?", filter.Category)
		}
		if filter.Search != "" {
			w.search(filter.Search, "title", "description")
		}
	}

	var rows []announcementRow
	query := `SELECT ` + announcementColumns + ` FROM announcement` + w.String() +
		orderBy(ordering, "publish_date DESC", announcementOrderExprs)
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	anns := make([]communication.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, row.announcement())
	}
	return anns, nil
}

// UpdateAnnouncement keeps the readers and the creation date.
func (repo *communicationRepository) UpdateAnnouncement(ctx context.Context, a communication.Announcement, exec ...core.DBExecutor) (communication.Announcement, error) {
	in := toAnnouncementRow(a)
	var row announcementRow
	err := get(ctx, repo.ext(exec), &row, `
		UPDATE announcement SET
			title = ?, description = ?, target_audience = ?, classes = ?, attachment = ?, status = ?, priority = ?,
			category = ?, publish_date = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+announcementColumns,
		in.Title, in.Description, in.TargetAudience, in.Classes, in.Attachment, in.Status, in.Priority,
		in.Category, in.PublishDate, in.UpdatedAt, in.ID)
	if err != nil {
		return communication.Announcement{}, trapNoRows(err, communication.ErrAnnouncementNotFound, "updating announcement")
	}
	return row.announcement(), nil
}

func (repo *communicationRepository) DeleteAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM announcement WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	if n == 0 {
		return communication.ErrAnnouncementNotFound
	}
	return nil
}

func (repo *communicationRepository) MarkAnnouncementRead(ctx context.Context, id, userID string, exec ...core.DBExecutor) error {
	var found bool
	err := get(ctx, repo.ext(exec), &found, `
		WITH marked AS (
			UPDATE announcement SET read_by = array_append(read_by, ?)
			WHERE id = ? AND NOT (? = ANY(read_by))
			RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM marked) OR EXISTS (SELECT 1 FROM announcement WHERE id = ?)`,
		userID, id, userID, id)
	if err != nil {
		return errors.Wrap(err, "marking announcement read")
	}
	if !found {
		return communication.ErrAnnouncementNotFound
	}
	return nil
}

// Messages

func (repo *communicationRepository) CreateMessage(ctx context.Context, m communication.Message, exec ...core.DBExecutor) (communication.Message, error) {
	m.SentAt = m.SentAt.UTC()
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO message (`+messageColumns+`)
		VALUES (:id, :conversation_id, :sender_id, :sender_name, :sender_role, :recipient_id, :recipient_name,
			:recipient_role, :subject, :text, :read, :sent_at)`,
		messageRow(m))
	if err != nil {
		return communication.Message{}, errors.Wrap(err, "inserting message")
	}
	return m, nil
}

func (repo *communicationRepository) GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (communication.Message, error) {
	var row messageRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+messageColumns+` FROM message WHERE id = ?`, id); err != nil {
		return communication.Message{}, trapNoRows(err, communication.ErrMessageNotFound, "getting message")
	}
	return row.message(), nil
}

func (repo *communicationRepository) QueryMessages(ctx context.Context, filter *communication.MessageFilter, exec ...core.DBExecutor) ([]communication.Message, error) {
	var w where
	if filter != nil {
		if filter.UserID != "" {
			w.add("(sender_id = ? OR recipient_id = ?)", filter.UserID, filter.UserID)
		}
		if filter.ConversationID != "" {
			w.add("conversation_id = ?", filter.ConversationID)
		}
		if filter.Unread != nil {
			// unread messages are the ones received by the user
			unread := "NOT read"
			if filter.UserID != "" {
				unread = "(NOT read AND recipient_id = ?)"
			}
			if !*filter.Unread {
				unread = "NOT " + unread
			}
			if filter.UserID != "" {
				w.add(unread, filter.UserID)
			} else {
				w.add(unread)
			}
		}
	}

	var rows []messageRow
	query := `SELECT ` + messageColumns + ` FROM message` + w.String() + ` ORDER BY sent_at DESC`
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]communication.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.message())
	}
	return msgs, nil
}

func (repo *communicationRepository) MarkMessagesRead(ctx context.Context, recipientID, conversationID string, exec ...core.DBExecutor) (int, error) {
	n, err := execute(ctx, repo.ext(exec),
		`UPDATE message SET read = TRUE WHERE NOT read AND recipient_id = ? AND conversation_id = ?`,
		recipientID, conversationID)
	if err != nil {
		return 0, errors.Wrap(err, "marking messages read")
	}
	return int(n), nil
}

func (repo *communicationRepository) SetMessageRead(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `UPDATE message SET read = TRUE WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "marking message read")
	}
	if n == 0 {
		return communication.ErrMessageNotFound
	}
	return nil
}

// Notifications

func (repo *communicationRepository) CreateNotifications(ctx context.Context, ns []communication.Notification, exec ...core.DBExecutor) ([]communication.Notification, error) {
	if len(ns) == 0 {
		return ns, nil
	}
	rows := make([]notificationRow, 0, len(ns))
	for _, n := range ns {
		n.CreatedAt = n.CreatedAt.UTC()
		rows = append(rows, notificationRow(n))
	}
	err := namedExec(ctx, repo.ext(exec), `
		INSERT INTO notification (`+notificationColumns+`)
		VALUES (:id, :user_id, :title, :message, :type, :link, :read, :created_at)`,
		rows)
	if err != nil {
		return nil, errors.Wrap(err, "inserting notifications")
	}
	return ns, nil
}

func (repo *communicationRepository) GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (communication.Notification, error) {
	var row notificationRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+notificationColumns+` FROM notification WHERE id = ?`, id); err != nil {
		return communication.Notification{}, trapNoRows(err, communication.ErrNotificationNotFound, "getting notification")
	}
	return row.notification(), nil
}

func (repo *communicationRepository) QueryNotifications(ctx context.Context, filter *communication.NotificationFilter, exec ...core.DBExecutor) ([]communication.Notification, error) {
	var w where
	if filter != nil {
		if filter.UserID != "" {
			w.add("user_id = ?", filter.UserID)
		}
		if filter.Unread != nil {
			w.add("read = ?", !*filter.Unread)
		}
		if filter.Type != "" {
			w.add("type = ?", filter.Type)
		}
	}

	var rows []notificationRow
	query := `SELECT ` + notificationColumns + ` FROM notification` + w.String() + ` ORDER BY created_at DESC`
	if err := selectAll(ctx, repo.ext(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	ns := make([]communication.Notification, 0, len(rows))
	for _, row := range rows {
		ns = append(ns, row.notification())
	}
	return ns, nil
}

func (repo *communicationRepository) MarkNotificationsRead(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) (int, error) {
	w := where{}
	w.add("NOT read")
	w.add("user_id = ?", userID)
	if len(ids) > 0 {
		w.add("id = ANY(?)", pq.StringArray(ids))
	}
	n, err := execute(ctx, repo.ext(exec), `UPDATE notification SET read = TRUE`+w.String(), w.args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	return int(n), nil
}

func (repo *communicationRepository) DeleteNotification(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM notification WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	if n == 0 {
		return communication.ErrNotificationNotFound
	}
	return nil
}
