package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncPlayer struct {
	mu    sync.Mutex
	calls []string
}

func (p *syncPlayer) Play(item Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "play:"+item.ReelID)
}

func (p *syncPlayer) Pause(item Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "pause:"+item.ReelID)
}

type stubFeed struct {
	mu    sync.Mutex
	items []Item
	calls int
}

func (f *stubFeed) FeedItems(context.Context, string) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]Item(nil), f.items...), nil
}

type stubViews struct {
	mu  sync.Mutex
	ids []string
}

func (v *stubViews) RecordView(_ context.Context, reelID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ids = append(v.ids, reelID)
	return nil
}

func (v *stubViews) recorded() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.ids...)
}

// blockingFeed never answers until its context is cancelled.
type blockingFeed struct{}

func (blockingFeed) FeedItems(ctx context.Context, _ string) ([]Item, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSessionAppliesEventsInOrder(t *testing.T) {
	player := &syncPlayer{}
	feed := &stubFeed{items: threeReels()}
	views := &stubViews{}
	s := NewSession(context.Background(), player, feed, views, SessionConfig{Tab: "reels", RefreshInterval: time.Hour})
	defer s.Close()

	require.Eventually(t, func() bool {
		st, err := s.State(context.Background())
		return err == nil && len(st.Items) == 3
	}, time.Second, 5*time.Millisecond)

	s.ReportViewport([]Visibility{{Index: 1, Fraction: 0.9}})
	s.Tap(1)
	s.Tap(1)
	st, err := s.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.ActiveIndex)
	assert.False(t, st.Paused)
	assert.Equal(t, []string{"r1"}, st.Playing)

	s.Close()
	assert.Equal(t, []string{"r1"}, views.recorded())
	player.mu.Lock()
	assert.Equal(t, []string{"play:r1", "pause:r1", "play:r1"}, player.calls)
	player.mu.Unlock()
}

func TestSessionCloseStopsBlockedPoller(t *testing.T) {
	s := NewSession(context.Background(), nil, blockingFeed{}, nil, SessionConfig{RefreshInterval: time.Millisecond})

	done := make(chan struct{})
	go func() {
		s.Close()
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	s.Tap(0) // no-op after close, must not block
	_, err := s.State(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSessionStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := &stubFeed{items: threeReels()}
	s := NewSession(ctx, nil, feed, nil, SessionConfig{RefreshInterval: 5 * time.Millisecond})

	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return feed.calls >= 2
	}, time.Second, 5*time.Millisecond, "feed is polled periodically")

	cancel()
	s.Close()
}
