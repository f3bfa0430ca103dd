package live

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pulse/internal/models"
	"pulse/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func receive(t *testing.T, c *Client) RefreshEvent {
	t.Helper()
	select {
	case msg := <-c.Send:
		var ev RefreshEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(testEventuallyTimeout):
		t.Fatal("expected a refresh message")
		return RefreshEvent{}
	}
}

func TestHub_ForwardsMatchingChanges(t *testing.T) {
	relay := realtime.NewRelay(nil)
	hub := NewHub(relay)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	post, err := hub.Register("u1", realtime.ViewComments, "p1", nil)
	require.NoError(t, err)
	other, err := hub.Register("u1", realtime.ViewComments, "p2", nil)
	require.NoError(t, err)

	relay.Dispatch(models.Change{Entity: models.EntityComments, Op: models.OpInsert,
		Fields: map[string]string{"id": "c1", "post_id": "p1", "user_id": "u2"}})

	ev := receive(t, post)
	assert.Equal(t, RefreshEvent{Type: "refresh", View: realtime.ViewComments, ID: "p1"}, ev)
	assert.Never(t, func() bool { return len(other.Send) > 0 }, 5*testPollInterval, testPollInterval)
}

func TestHub_UnregisterReleasesSubscription(t *testing.T) {
	relay := realtime.NewRelay(nil)
	hub := NewHub(relay)

	client, err := hub.Register("u1", realtime.ViewNotifications, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, relay.Active())
	assert.Equal(t, 1, hub.Count("u1"))

	hub.UnregisterClient(client, "test")
	hub.UnregisterClient(client, "test")
	assert.Equal(t, 0, relay.Active())
	assert.Equal(t, 0, hub.Count("u1"))

	relay.Dispatch(models.Change{Entity: models.EntityNotifications, Op: models.OpInsert,
		Fields: map[string]string{"id": "n1", "user_id": "u1"}})
	assert.Empty(t, client.Send)
}

func TestHub_RejectsUnknownView(t *testing.T) {
	hub := NewHub(realtime.NewRelay(nil))
	_, err := hub.Register("u1", "inbox", "", nil)
	assert.Error(t, err)
	_, err = hub.Register("u1", realtime.ViewThread, "", nil)
	assert.Error(t, err)
}

func TestHub_UserLimit(t *testing.T) {
	hub := NewHub(realtime.NewRelay(nil))
	defer func() { _ = hub.Shutdown(context.Background()) }()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register("u1", realtime.ViewFeed, "", nil)
		require.NoError(t, err)
	}
	_, err := hub.Register("u1", realtime.ViewFeed, "", nil)
	assert.ErrorIs(t, err, ErrUserLimit)

	_, err = hub.Register("u2", realtime.ViewFeed, "", nil)
	assert.NoError(t, err)
}

func TestHub_Shutdown(t *testing.T) {
	relay := realtime.NewRelay(nil)
	hub := NewHub(relay)

	_, err := hub.Register("u1", realtime.ViewFeed, "", nil)
	require.NoError(t, err)
	_, err = hub.Register("u2", realtime.ViewConversations, "", nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, relay.Active())

	_, err = hub.Register("u1", realtime.ViewFeed, "", nil)
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub(realtime.NewRelay(nil))
	client, err := hub.Register("u1", realtime.ViewFeed, "", nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer+5; i++ {
		client.TrySend([]byte("x"))
	}
	assert.Len(t, client.Send, sendBuffer)

	hub.UnregisterClient(client, "test")
	client.TrySend([]byte("after close"))
	assert.Len(t, client.Send, sendBuffer)
}

// slowSource holds Start open until release is closed.
type slowSource struct {
	entered chan struct{}
	release chan struct{}
}

func (s *slowSource) Start(_ context.Context, _ func(models.Change)) error {
	close(s.entered)
	<-s.release
	return nil
}

func TestHub_RegisterDoesNotBlockWhileRelayStarts(t *testing.T) {
	src := &slowSource{entered: make(chan struct{}), release: make(chan struct{})}
	relay := realtime.NewRelay(src)
	defer relay.Close()
	hub := NewHub(relay)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	registered := make(chan error, 1)
	go func() {
		_, err := hub.Register("u1", realtime.ViewNotifications, "", nil)
		registered <- err
	}()
	<-src.entered

	counted := make(chan int, 1)
	go func() { counted <- hub.Count("u2") }()
	select {
	case n := <-counted:
		assert.Equal(t, 0, n)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("hub blocked while the relay was starting")
	}

	close(src.release)
	require.NoError(t, <-registered)
	assert.Equal(t, 1, hub.Count("u1"))
}

func TestHub_ShutdownDuringRegister(t *testing.T) {
	src := &slowSource{entered: make(chan struct{}), release: make(chan struct{})}
	relay := realtime.NewRelay(src)
	defer relay.Close()
	hub := NewHub(relay)

	registered := make(chan error, 1)
	go func() {
		_, err := hub.Register("u1", realtime.ViewNotifications, "", nil)
		registered <- err
	}()
	<-src.entered

	require.NoError(t, hub.Shutdown(context.Background()))
	close(src.release)

	assert.ErrorIs(t, <-registered, ErrShutdown)
	assert.Equal(t, 0, hub.Count("u1"))
	assert.Equal(t, 0, relay.Active())
}
