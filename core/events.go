package core

import (
	"context"
	"strings"
	"time"
)

// Event topics
const (
	TopicAttendance   = "attendance"
	TopicFee          = "fee"
	TopicAnnouncement = "announcement"
	TopicMessage      = "message"
	TopicNotification = "notification"
	TopicLibrary      = "library"
	TopicTimetable    = "timetable"
	TopicStudent      = "student"
)

// Event actions
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionPaid     = "paid"
	ActionIssued   = "issued"
	ActionReturned = "returned"
	ActionRead     = "read"
)

type (
	// Event notifies subscribers that some data changed.
	Event struct {
		Topic     string      `json:"topic"`
		Action    string      `json:"action"`
		ObjectID  string      `json:"object_id,omitempty"`
		Audience  []string    `json:"audience,omitempty"` // role prefixes and/or user IDs; empty means everyone
		Data      interface{} `json:"data,omitempty"`
		Timestamp time.Time   `json:"timestamp"`
	}

	// EventBroker delivers events to every subscriber, in this process or others.
	EventBroker interface {
		Publish(ctx context.Context, evt Event) error
		// Subscribe streams the events of the given topics (all topics when none) until ctx is done.
		Subscribe(ctx context.Context, topics ...string) (<-chan Event, error)
	}
)

func NewEvent(topic, action, objectID string, data interface{}, audience ...string) Event {
	return Event{
		Topic:     topic,
		Action:    action,
		ObjectID:  objectID,
		Audience:  audience,
		Data:      data,
		Timestamp: NowFunc().UTC(),
	}
}

// MatchesTopics reports whether the event is one of `topics` (any when empty).
func (evt Event) MatchesTopics(topics []string) bool {
	return len(topics) == 0 || ContainsString(topics, evt.Topic)
}

// VisibleTo reports whether a user with the given ID and roles may receive the event.
func (evt Event) VisibleTo(userID string, roles []string) bool {
	if len(evt.Audience) == 0 {
		return true
	}
	for _, aud := range evt.Audience {
		if aud == userID {
			return true
		}
		for _, role := range roles {
			if strings.HasPrefix(role, aud) {
				return true
			}
		}
	}
	return false
}

// PublishEvent publishes `evt` and logs failures; events are best effort.
func PublishEvent(ctx context.Context, broker EventBroker, logger Logger, evt Event) {
	if broker == nil {
		return
	}
	if err := broker.Publish(ctx, evt); err != nil && logger != nil {
		logger.Warn("publishing "+evt.Topic+" event", err)
	}
}
