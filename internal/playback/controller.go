// Package playback drives a vertically scrolling reel feed on the client:
// at most one reel plays at a time, views are reported once per session and
// media that fails to load falls back to its cover image.
package playback

// ActiveThreshold is the visible fraction at which an item becomes the active one.
const ActiveThreshold = 0.6

// Item is one entry of the feed as the player sees it.
type Item struct {
	ReelID   string
	VideoURL string
	ThumbURL string
}

// HasVideo reports whether the item has playable media at all.
func (i Item) HasVideo() bool {
	return i.VideoURL != ""
}

// Mode is how an item is rendered.
type Mode int

const (
	ModeVideo Mode = iota
	ModeCover
)

func (m Mode) String() string {
	if m == ModeCover {
		return "cover"
	}
	return "video"
}

// Visibility is the visible fraction (0..1) of the item at Index.
type Visibility struct {
	Index    int
	Fraction float64
}

// Player is the video surface. Calls only happen when the desired state of an
// item changes.
type Player interface {
	Play(item Item)
	Pause(item Item)
}

// Controller holds the playback state of one feed screen. It is not safe for
// concurrent use; Session serialises access.
type Controller struct {
	items    []Item
	active   int
	paused   bool
	focused  bool
	failed   map[string]bool
	reported map[string]bool
	playing  map[string]Item

	player      Player
	onFirstView func(reelID string)
}

// NewController creates a focused controller with no active item.
// onFirstView, if non-nil, runs once per reel id for the lifetime of the controller.
func NewController(player Player, onFirstView func(reelID string)) *Controller {
	return &Controller{
		active:      -1,
		focused:     true,
		failed:      make(map[string]bool),
		reported:    make(map[string]bool),
		playing:     make(map[string]Item),
		player:      player,
		onFirstView: onFirstView,
	}
}

// SetItems replaces the feed. The active reel stays active if it is still in
// the list; otherwise nothing is active until the next viewport report.
func (c *Controller) SetItems(items []Item) {
	var activeID string
	if c.active >= 0 && c.active < len(c.items) {
		activeID = c.items[c.active].ReelID
	}

	c.items = append([]Item(nil), items...)
	c.active = -1
	for i, item := range c.items {
		if activeID != "" && item.ReelID == activeID {
			c.active = i
			break
		}
	}
	if c.active < 0 {
		c.paused = false
	}
	c.reconcile()
}

// ReportViewport picks the most visible item at or above ActiveThreshold.
// When none qualifies the active item is kept.
func (c *Controller) ReportViewport(visible []Visibility) {
	best, bestFraction := -1, 0.0
	for _, v := range visible {
		if v.Index < 0 || v.Index >= len(c.items) || v.Fraction < ActiveThreshold {
			continue
		}
		if v.Fraction > bestFraction {
			best, bestFraction = v.Index, v.Fraction
		}
	}
	if best >= 0 {
		c.activate(best)
	}
	c.reconcile()
}

func (c *Controller) activate(index int) {
	if index == c.active {
		return
	}
	c.active = index
	c.paused = false

	id := c.items[index].ReelID
	if !c.reported[id] {
		c.reported[id] = true
		if c.onFirstView != nil {
			c.onFirstView(id)
		}
	}
}

// Tap toggles pause on the active item. Taps on other items are ignored.
func (c *Controller) Tap(index int) {
	if index != c.active || index < 0 {
		return
	}
	c.paused = !c.paused
	c.reconcile()
}

// SetFocused follows navigation focus; nothing plays while unfocused.
func (c *Controller) SetFocused(focused bool) {
	c.focused = focused
	c.reconcile()
}

// MediaFailed switches the reel to its cover for the rest of the session.
func (c *Controller) MediaFailed(reelID string) {
	c.failed[reelID] = true
	c.reconcile()
}

// ShouldPlay reports whether the item at index should be playing right now.
func (c *Controller) ShouldPlay(index int) bool {
	if index != c.active || index < 0 || index >= len(c.items) {
		return false
	}
	return !c.paused && c.focused && c.Mode(index) == ModeVideo
}

// Mode reports how the item at index is rendered.
func (c *Controller) Mode(index int) Mode {
	if index < 0 || index >= len(c.items) {
		return ModeCover
	}
	item := c.items[index]
	if !item.HasVideo() || c.failed[item.ReelID] {
		return ModeCover
	}
	return ModeVideo
}

// State is a read-only copy of the controller state.
type State struct {
	Items       []Item
	ActiveIndex int
	Paused      bool
	Focused     bool
	Playing     []string // reel ids currently told to play
}

func (c *Controller) State() State {
	st := State{
		Items:       append([]Item(nil), c.items...),
		ActiveIndex: c.active,
		Paused:      c.paused,
		Focused:     c.focused,
	}
	for id := range c.playing {
		st.Playing = append(st.Playing, id)
	}
	return st
}

// reconcile brings the player in line with ShouldPlay for every item.
func (c *Controller) reconcile() {
	want := make(map[string]Item, 1)
	for i, item := range c.items {
		if c.ShouldPlay(i) {
			want[item.ReelID] = item
		}
	}

	for id, item := range c.playing {
		if _, keep := want[id]; !keep {
			delete(c.playing, id)
			if c.player != nil {
				c.player.Pause(item)
			}
		}
	}
	for id, item := range want {
		if _, already := c.playing[id]; !already {
			c.playing[id] = item
			if c.player != nil {
				c.player.Play(item)
			}
		}
	}
}
