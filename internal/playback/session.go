package playback

import (
	"context"
	"sync"
	"time"

	"reelsapp/reels-api/internal/logger"
)

// DefaultRefreshInterval is how often a session re-reads the feed.
const DefaultRefreshInterval = 30 * time.Second

// FeedSource loads the feed items for a tab.
type FeedSource interface {
	FeedItems(ctx context.Context, tab string) ([]Item, error)
}

// ViewRecorder reports that the user watched a reel.
type ViewRecorder interface {
	RecordView(ctx context.Context, reelID string) error
}

type SessionConfig struct {
	Tab             string
	RefreshInterval time.Duration
}

// Session owns a Controller and the goroutines around it: one event loop
// that applies every state change in order, and a feed poller. Both stop when
// the parent context is cancelled or Close is called.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	ctrl   *Controller
	events chan func(*Controller)

	loopDone chan struct{}
	workers  sync.WaitGroup
	once     sync.Once
}

// NewSession starts the event loop and the feed poller. feed and views may be nil.
func NewSession(parent context.Context, player Player, feed FeedSource, views ViewRecorder, cfg SessionConfig) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan func(*Controller), 16),
		loopDone: make(chan struct{}),
	}
	s.ctrl = NewController(player, func(reelID string) { s.recordView(views, reelID) })

	go s.loop()
	if feed != nil {
		interval := cfg.RefreshInterval
		if interval <= 0 {
			interval = DefaultRefreshInterval
		}
		s.workers.Add(1)
		go s.poll(feed, cfg.Tab, interval)
	}
	return s
}

func (s *Session) loop() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.events:
			fn(s.ctrl)
		}
	}
}

func (s *Session) poll(feed FeedSource, tab string, interval time.Duration) {
	defer s.workers.Done()
	log := logger.WithModule("playback")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		items, err := feed.FeedItems(s.ctx, tab)
		switch {
		case err == nil:
			s.send(func(c *Controller) { c.SetItems(items) })
		case s.ctx.Err() == nil:
			log.WithError(err).Warn("feed refresh failed")
		}

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// recordView runs off the event loop so a slow network never stalls the UI.
func (s *Session) recordView(views ViewRecorder, reelID string) {
	if views == nil {
		return
	}
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		if err := views.RecordView(s.ctx, reelID); err != nil && s.ctx.Err() == nil {
			logger.WithModule("playback").WithError(err).WithField("reel_id", reelID).Warn("view not recorded")
		}
	}()
}

// send queues fn for the event loop. It returns false once the session is closed.
func (s *Session) send(fn func(*Controller)) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) SetItems(items []Item) { s.send(func(c *Controller) { c.SetItems(items) }) }

func (s *Session) ReportViewport(visible []Visibility) {
	visible = append([]Visibility(nil), visible...)
	s.send(func(c *Controller) { c.ReportViewport(visible) })
}

func (s *Session) Tap(index int)             { s.send(func(c *Controller) { c.Tap(index) }) }
func (s *Session) SetFocused(focused bool)   { s.send(func(c *Controller) { c.SetFocused(focused) }) }
func (s *Session) MediaFailed(reelID string) { s.send(func(c *Controller) { c.MediaFailed(reelID) }) }

// State returns the controller state after every event queued before it has
// been applied.
func (s *Session) State(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if !s.send(func(c *Controller) { reply <- c.State() }) {
		return State{}, context.Canceled
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	case <-s.loopDone:
		return State{}, context.Canceled
	}
}

// Close stops the session and waits for its goroutines. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(s.cancel)
	<-s.loopDone
	s.workers.Wait()
}
