package eventsvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func receive(t *testing.T, ch <-chan core.Event) core.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return core.Event{}
}

func TestInMemBroker(t *testing.T) {
	b := NewInMemBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fees, err := b.Subscribe(ctx, core.TopicFee)
	require.NoError(t, err)
	all, err := b.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, core.NewEvent(core.TopicAttendance, core.ActionCreated, "a1", nil)))
	require.NoError(t, b.Publish(ctx, core.NewEvent(core.TopicFee, core.ActionPaid, "f1", nil)))

	assert.Equal(t, "f1", receive(t, fees).ObjectID)
	assert.Equal(t, "a1", receive(t, all).ObjectID)
	assert.Equal(t, "f1", receive(t, all).ObjectID)

	cancel()
	assert.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestInMemBroker_dropsForSlowSubscribers(t *testing.T) {
	b := NewInMemBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := b.Subscribe(ctx)
	require.NoError(t, err)
	for i := 0; i < subscriberBuffer+3; i++ {
		require.NoError(t, b.Publish(ctx, core.NewEvent(core.TopicMessage, core.ActionCreated, "", nil)))
	}
	assert.Equal(t, uint64(3), b.Dropped())
}

func TestRedisBroker(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b1, err := NewRedisBroker(ctx, client, "campus-events", nopLogger{})
	require.NoError(t, err)
	defer b1.Close()
	b2, err := NewRedisBroker(ctx, client, "campus-events", nopLogger{})
	require.NoError(t, err)
	defer b2.Close()

	announcements, err := b2.Subscribe(ctx, core.TopicAnnouncement)
	require.NoError(t, err)

	evt := core.NewEvent(core.TopicAnnouncement, core.ActionCreated, "an1", nil, "teacher:")
	require.NoError(t, b1.Publish(ctx, evt))

	got := receive(t, announcements)
	assert.Equal(t, "an1", got.ObjectID)
	assert.Equal(t, []string{"teacher:"}, got.Audience)
	assert.NoError(t, b1.Healthy(ctx))
}
