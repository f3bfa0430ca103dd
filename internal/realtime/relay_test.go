package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/models"
)

type fakeSource struct {
	mu      sync.Mutex
	starts  int
	ctx     context.Context
	emit    func(models.Change)
	failErr error
}

func (f *fakeSource) Start(ctx context.Context, emit func(models.Change)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.starts++
	f.ctx = ctx
	f.emit = emit
	return nil
}

func (f *fakeSource) stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx != nil && f.ctx.Err() != nil
}

func likeChange(postID string) models.Change {
	return models.Change{
		Entity: models.EntityLikes,
		Op:     models.OpInsert,
		Fields: map[string]string{"post_id": postID, "user_id": "u1"},
	}
}

func signalled(sub *Subscription) bool {
	select {
	case _, ok := <-sub.Signals():
		return ok
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

func TestNewTopic_CanonicalFilter(t *testing.T) {
	a := NewTopic(models.EntityMessages, "sender_id", "a", "receiver_id", "b")
	b := NewTopic(models.EntityMessages, "receiver_id", "b", "sender_id", "a")

	assert.Equal(t, a, b)
	assert.Equal(t, "receiver_id=b&sender_id=a", a.Filter)
	assert.Equal(t, "messages?receiver_id=b&sender_id=a", a.String())
	assert.Equal(t, "posts", NewTopic(models.EntityPosts).String())
}

func TestRelay_SignalsMatchingSubscriptions(t *testing.T) {
	r := NewRelay(nil)
	onP1, err := r.Subscribe(NewTopic(models.EntityLikes, "post_id", "p1"))
	require.NoError(t, err)
	onP2, err := r.Subscribe(NewTopic(models.EntityLikes, "post_id", "p2"))
	require.NoError(t, err)
	all, err := r.Subscribe(NewTopic(models.EntityLikes))
	require.NoError(t, err)

	require.NoError(t, r.Publish(context.Background(), likeChange("p1")))

	assert.True(t, signalled(onP1))
	assert.False(t, signalled(onP2))
	assert.True(t, signalled(all))
}

func TestRelay_OtherEntityNotSignalled(t *testing.T) {
	r := NewRelay(nil)
	sub, err := r.Subscribe(NewTopic(models.EntityComments, "post_id", "p1"))
	require.NoError(t, err)

	r.Dispatch(likeChange("p1"))
	assert.False(t, signalled(sub))
}

func TestRelay_SignalsCoalesce(t *testing.T) {
	r := NewRelay(nil)
	sub, err := r.Subscribe(NewTopic(models.EntityLikes))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		r.Dispatch(likeChange("p1"))
	}

	assert.True(t, signalled(sub))
	assert.False(t, signalled(sub), "burst should collapse into one pending signal")
}

func TestRelay_MultiTopicSubscriptionSignalledOncePerChange(t *testing.T) {
	r := NewRelay(nil)
	sub, err := r.Subscribe(
		NewTopic(models.EntityLikes),
		NewTopic(models.EntityLikes, "post_id", "p1"),
	)
	require.NoError(t, err)

	r.Dispatch(likeChange("p1"))
	assert.True(t, signalled(sub))
	assert.False(t, signalled(sub))
}

func TestRelay_ReleasedSubscriptionNeverSignalled(t *testing.T) {
	r := NewRelay(nil)
	sub, err := r.Subscribe(NewTopic(models.EntityLikes))
	require.NoError(t, err)

	sub.Release()
	sub.Release()
	r.Dispatch(likeChange("p1"))

	_, open := <-sub.Signals()
	assert.False(t, open)
	assert.Equal(t, 0, r.Active())
}

func TestRelay_StartsOnFirstAndStopsOnLast(t *testing.T) {
	src := &fakeSource{}
	r := NewRelay(src)
	assert.False(t, r.Running())

	a, err := r.Subscribe(NewTopic(models.EntityPosts))
	require.NoError(t, err)
	b, err := r.Subscribe(NewTopic(models.EntityLikes))
	require.NoError(t, err)

	assert.True(t, r.Running())
	assert.Equal(t, 1, src.starts)

	src.emit(likeChange("p1"))
	assert.True(t, signalled(b))
	assert.False(t, signalled(a))

	a.Release()
	assert.True(t, r.Running())
	b.Release()
	assert.False(t, r.Running())
	assert.True(t, src.stopped())

	c, err := r.Subscribe(NewTopic(models.EntityPosts))
	require.NoError(t, err)
	defer c.Release()
	assert.Equal(t, 2, src.starts)
}

func TestRelay_LocalRunsUntilClosed(t *testing.T) {
	r := NewRelay(nil)
	assert.True(t, r.Running())
	r.Close()
	assert.False(t, r.Running())
}

func TestRelay_SourceStartFailure(t *testing.T) {
	src := &fakeSource{failErr: errors.New("redis down")}
	r := NewRelay(src)

	sub, err := r.Subscribe(NewTopic(models.EntityPosts))
	assert.Error(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, 0, r.Active())
}

func TestRelay_Close(t *testing.T) {
	src := &fakeSource{}
	r := NewRelay(src)
	sub, err := r.Subscribe(NewTopic(models.EntityPosts))
	require.NoError(t, err)

	r.Close()

	_, open := <-sub.Signals()
	assert.False(t, open)
	assert.True(t, src.stopped())

	_, err = r.Subscribe(NewTopic(models.EntityPosts))
	assert.ErrorIs(t, err, ErrClosed)
	sub.Release()
}

func TestRelay_ConcurrentSubscribeDispatchRelease(t *testing.T) {
	r := NewRelay(&fakeSource{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, err := r.Subscribe(NewTopic(models.EntityLikes, "post_id", "p1"))
			if err != nil {
				return
			}
			time.Sleep(time.Millisecond)
			sub.Release()
		}()
		go func() {
			defer wg.Done()
			r.Dispatch(likeChange("p1"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Active())
	assert.False(t, r.Running())
}

func TestTopicsFor(t *testing.T) {
	topics, err := TopicsFor(ViewFeed, "u1", "")
	require.NoError(t, err)
	assert.Len(t, topics, 3)

	topics, err = TopicsFor(ViewPost, "u1", "p1")
	require.NoError(t, err)
	assert.Contains(t, topics, NewTopic(models.EntityLikes, "post_id", "p1"))
	assert.Contains(t, topics, NewTopic(models.EntityPosts, "id", "p1"))

	topics, err = TopicsFor(ViewThread, "a", "b")
	require.NoError(t, err)
	assert.ElementsMatch(t, []Topic{
		NewTopic(models.EntityMessages, "sender_id", "a", "receiver_id", "b"),
		NewTopic(models.EntityMessages, "sender_id", "b", "receiver_id", "a"),
	}, topics)

	topics, err = TopicsFor(ViewNotifications, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, []Topic{NewTopic(models.EntityNotifications, "user_id", "u1")}, topics)

	_, err = TopicsFor(ViewComments, "u1", "")
	assert.Error(t, err)
	_, err = TopicsFor("inbox", "u1", "")
	assert.Error(t, err)
}

func TestTopicsFor_ThreadIgnoresOtherPairs(t *testing.T) {
	r := NewRelay(nil)
	topics, err := TopicsFor(ViewThread, "a", "b")
	require.NoError(t, err)
	sub, err := r.Subscribe(topics...)
	require.NoError(t, err)
	defer sub.Release()

	r.Dispatch(models.Change{Entity: models.EntityMessages, Op: models.OpInsert,
		Fields: map[string]string{"sender_id": "a", "receiver_id": "c"}})
	assert.False(t, signalled(sub))

	r.Dispatch(models.Change{Entity: models.EntityMessages, Op: models.OpInsert,
		Fields: map[string]string{"sender_id": "b", "receiver_id": "a"}})
	assert.True(t, signalled(sub))
}

// gatedSource blocks in Start until release is closed.
type gatedSource struct {
	mu      sync.Mutex
	starts  int
	ctx     context.Context
	entered chan struct{}
	release chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedSource) Start(ctx context.Context, _ func(models.Change)) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	g.starts++
	g.ctx = ctx
	return nil
}

func (g *gatedSource) startCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.starts
}

func TestRelay_SlowStartDoesNotHoldLock(t *testing.T) {
	src := newGatedSource()
	r := NewRelay(src)
	defer r.Close()

	const subscribers = 5
	results := make(chan error, subscribers)
	for i := 0; i < subscribers; i++ {
		go func() {
			_, err := r.Subscribe(NewTopic(models.EntityLikes, "post_id", "p1"))
			results <- err
		}()
	}
	<-src.entered

	done := make(chan struct{})
	go func() {
		r.Dispatch(likeChange("p1"))
		_ = r.Active()
		_ = r.Running()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay blocked while the change source was starting")
	}
	assert.Equal(t, 0, r.Active())

	close(src.release)
	for i := 0; i < subscribers; i++ {
		require.NoError(t, <-results)
	}
	assert.Equal(t, 1, src.startCount())
	assert.Equal(t, subscribers, r.Active())
	assert.True(t, r.Running())
}

func TestRelay_CloseDuringStart(t *testing.T) {
	src := newGatedSource()
	r := NewRelay(src)

	result := make(chan error, 1)
	go func() {
		_, err := r.Subscribe(NewTopic(models.EntityPosts))
		result <- err
	}()
	<-src.entered

	r.Close()
	close(src.release)

	assert.ErrorIs(t, <-result, ErrClosed)
	assert.Equal(t, 0, r.Active())
	assert.False(t, r.Running())
	src.mu.Lock()
	defer src.mu.Unlock()
	require.NotNil(t, src.ctx)
	assert.Error(t, src.ctx.Err())
}
