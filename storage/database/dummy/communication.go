package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/communication"
)

type communicationRepository struct {
	db *DB
}

var _ communication.Repository = (*communicationRepository)(nil) // interface compliance check

func NewCommunicationRepository(db *DB) communication.Repository {
	return &communicationRepository{db: db}
}

var (
	priorityRanks = map[string]int{"low": 1, "medium": 2, "high": 3}

	announcementOrdering = map[string]comparator[communication.Announcement]{
		"title": func(a, b communication.Announcement) int { return cmpString(a.Title, b.Title) },
		"priority": func(a, b communication.Announcement) int {
			return cmpInt(priorityRanks[a.Priority], priorityRanks[b.Priority])
		},
		"publish_date": func(a, b communication.Announcement) int { return cmpTime(a.PublishDate, b.PublishDate) },
		"created_at":   func(a, b communication.Announcement) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	}
)

func cloneAnnouncement(a communication.Announcement) communication.Announcement {
	a.Classes = append([]string{}, a.Classes...)
	a.ReadBy = append([]string{}, a.ReadBy...)
	return a
}

// Announcements

func (repo *communicationRepository) CreateAnnouncement(_ context.Context, a communication.Announcement, _ ...core.DBExecutor) (communication.Announcement, error) {
	repo.db.announcement.Lock()
	defer repo.db.announcement.Unlock()

	repo.db.announcement.rows[a.ID] = cloneAnnouncement(a)
	return a, nil
}

func (repo *communicationRepository) GetAnnouncement(_ context.Context, id string, _ ...core.DBExecutor) (communication.Announcement, error) {
	repo.db.announcement.RLock()
	defer repo.db.announcement.RUnlock()

	if a, ok := repo.db.announcement.rows[id]; ok {
		return cloneAnnouncement(a), nil
	}
	return communication.Announcement{}, communication.ErrAnnouncementNotFound
}

func (repo *communicationRepository) QueryAnnouncements(_ context.Context, filter *communication.AnnouncementFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]communication.Announcement, error) {
	repo.db.announcement.RLock()
	defer repo.db.announcement.RUnlock()

	if filter == nil {
		filter = &communication.AnnouncementFilter{}
	}
	anns := repo.db.announcement.filter(func(a communication.Announcement) bool {
		if filter.Status != "" && a.Status != filter.Status {
			return false
		}
		if filter.TargetAudience != "" && a.TargetAudience != filter.TargetAudience {
			return false
		}
		if filter.Priority != "" && a.Priority != filter.Priority {
			return false
		}
		if filter.Category != "" && cmpString(a.Category, filter.Category) != 0 {
			return false
		}
		if filter.Search != "" && !containsFold(filter.Search, a.Title, a.Description) {
			return false
		}
		return true
	})
	for i := range anns {
		anns[i] = cloneAnnouncement(anns[i])
	}

	sortRows(anns, ordering, announcementOrdering, func(a, b communication.Announcement) int {
		return cmpTime(b.PublishDate, a.PublishDate)
	})
	return anns, nil
}

func (repo *communicationRepository) UpdateAnnouncement(_ context.Context, a communication.Announcement, _ ...core.DBExecutor) (communication.Announcement, error) {
	repo.db.announcement.Lock()
	defer repo.db.announcement.Unlock()

	orig, ok := repo.db.announcement.rows[a.ID]
	if !ok {
		return communication.Announcement{}, communication.ErrAnnouncementNotFound
	}
	a.ReadBy = orig.ReadBy
	a.CreatedAt = orig.CreatedAt
	a = cloneAnnouncement(a)
	repo.db.announcement.rows[a.ID] = a
	return cloneAnnouncement(a), nil
}

func (repo *communicationRepository) DeleteAnnouncement(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.announcement.Lock()
	defer repo.db.announcement.Unlock()

	if _, ok := repo.db.announcement.rows[id]; !ok {
		return communication.ErrAnnouncementNotFound
	}
	delete(repo.db.announcement.rows, id)
	return nil
}

func (repo *communicationRepository) MarkAnnouncementRead(_ context.Context, id, userID string, _ ...core.DBExecutor) error {
	repo.db.announcement.Lock()
	defer repo.db.announcement.Unlock()

	a, ok := repo.db.announcement.rows[id]
	if !ok {
		return communication.ErrAnnouncementNotFound
	}
	if !a.ReadByUser(userID) {
		a = cloneAnnouncement(a)
		a.ReadBy = append(a.ReadBy, userID)
		repo.db.announcement.rows[id] = a
	}
	return nil
}

// Messages

func (repo *communicationRepository) CreateMessage(_ context.Context, m communication.Message, _ ...core.DBExecutor) (communication.Message, error) {
	repo.db.message.Lock()
	defer repo.db.message.Unlock()

	repo.db.message.rows[m.ID] = m
	return m, nil
}

func (repo *communicationRepository) GetMessage(_ context.Context, id string, _ ...core.DBExecutor) (communication.Message, error) {
	repo.db.message.RLock()
	defer repo.db.message.RUnlock()

	if m, ok := repo.db.message.rows[id]; ok {
		return m, nil
	}
	return communication.Message{}, communication.ErrMessageNotFound
}

func (repo *communicationRepository) QueryMessages(_ context.Context, filter *communication.MessageFilter, _ ...core.DBExecutor) ([]communication.Message, error) {
	repo.db.message.RLock()
	defer repo.db.message.RUnlock()

	if filter == nil {
		filter = &communication.MessageFilter{}
	}
	msgs := repo.db.message.filter(func(m communication.Message) bool {
		if filter.UserID != "" && m.SenderID != filter.UserID && m.RecipientID != filter.UserID {
			return false
		}
		if filter.ConversationID != "" && m.ConversationID != filter.ConversationID {
			return false
		}
		if filter.Unread != nil {
			// unread messages are the ones received by the user
			unread := !m.Read && (filter.UserID == "" || m.RecipientID == filter.UserID)
			if unread != *filter.Unread {
				return false
			}
		}
		return true
	})
	sortRows(msgs, nil, nil, func(a, b communication.Message) int { return cmpTime(b.SentAt, a.SentAt) })
	return msgs, nil
}

func (repo *communicationRepository) MarkMessagesRead(_ context.Context, recipientID, conversationID string, _ ...core.DBExecutor) (int, error) {
	repo.db.message.Lock()
	defer repo.db.message.Unlock()

	var n int
	for id, m := range repo.db.message.rows {
		if !m.Read && m.RecipientID == recipientID && m.ConversationID == conversationID {
			m.Read = true
			repo.db.message.rows[id] = m
			n++
		}
	}
	return n, nil
}

func (repo *communicationRepository) SetMessageRead(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.message.Lock()
	defer repo.db.message.Unlock()

	m, ok := repo.db.message.rows[id]
	if !ok {
		return communication.ErrMessageNotFound
	}
	m.Read = true
	repo.db.message.rows[id] = m
	return nil
}

// Notifications

func (repo *communicationRepository) CreateNotifications(_ context.Context, ns []communication.Notification, _ ...core.DBExecutor) ([]communication.Notification, error) {
	repo.db.notification.Lock()
	defer repo.db.notification.Unlock()

	for _, n := range ns {
		repo.db.notification.rows[n.ID] = n
	}
	return ns, nil
}

func (repo *communicationRepository) GetNotification(_ context.Context, id string, _ ...core.DBExecutor) (communication.Notification, error) {
	repo.db.notification.RLock()
	defer repo.db.notification.RUnlock()

	if n, ok := repo.db.notification.rows[id]; ok {
		return n, nil
	}
	return communication.Notification{}, communication.ErrNotificationNotFound
}

func (repo *communicationRepository) QueryNotifications(_ context.Context, filter *communication.NotificationFilter, _ ...core.DBExecutor) ([]communication.Notification, error) {
	repo.db.notification.RLock()
	defer repo.db.notification.RUnlock()

	if filter == nil {
		filter = &communication.NotificationFilter{}
	}
	ns := repo.db.notification.filter(func(n communication.Notification) bool {
		if filter.UserID != "" && n.UserID != filter.UserID {
			return false
		}
		if filter.Unread != nil && n.Read == *filter.Unread {
			return false
		}
		if filter.Type != "" && n.Type != filter.Type {
			return false
		}
		return true
	})
	sortRows(ns, nil, nil, func(a, b communication.Notification) int { return cmpTime(b.CreatedAt, a.CreatedAt) })
	return ns, nil
}

func (repo *communicationRepository) MarkNotificationsRead(_ context.Context, userID string, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.notification.Lock()
	defer repo.db.notification.Unlock()

	var count int
	for id, n := range repo.db.notification.rows {
		if n.Read || n.UserID != userID || (len(ids) > 0 && !core.ContainsString(ids, id)) {
			continue
		}
		n.Read = true
		repo.db.notification.rows[id] = n
		count++
	}
	return count, nil
}

func (repo *communicationRepository) DeleteNotification(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.notification.Lock()
	defer repo.db.notification.Unlock()

	if _, ok := repo.db.notification.rows[id]; !ok {
		return communication.ErrNotificationNotFound
	}
	delete(repo.db.notification.rows, id)
	return nil
}
