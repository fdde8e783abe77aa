package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPlayer logs every call as "play:<id>" or "pause:<id>".
type recordingPlayer struct {
	calls []string
}

func (p *recordingPlayer) Play(item Item)  { p.calls = append(p.calls, "play:"+item.ReelID) }
func (p *recordingPlayer) Pause(item Item) { p.calls = append(p.calls, "pause:"+item.ReelID) }

func (p *recordingPlayer) take() []string {
	calls := p.calls
	p.calls = nil
	return calls
}

func threeReels() []Item {
	return []Item{
		{ReelID: "r0", VideoURL: "https://cdn/r0.mp4"},
		{ReelID: "r1", VideoURL: "https://cdn/r1.mp4"},
		{ReelID: "r2", VideoURL: "https://cdn/r2.mp4"},
	}
}

func TestSingleActivePlayer(t *testing.T) {
	player := &recordingPlayer{}
	var views []string
	c := NewController(player, func(id string) { views = append(views, id) })
	c.SetItems(threeReels())
	assert.Empty(t, player.take(), "nothing plays before a viewport report")

	c.ReportViewport([]Visibility{{Index: 0, Fraction: 0.3}, {Index: 1, Fraction: 0.7}})
	assert.Equal(t, 1, c.State().ActiveIndex)
	assert.Equal(t, []string{"play:r1"}, player.take())
	assert.True(t, c.ShouldPlay(1))

	c.Tap(1)
	assert.Equal(t, []string{"pause:r1"}, player.take())
	assert.False(t, c.ShouldPlay(1))

	c.ReportViewport([]Visibility{{Index: 1, Fraction: 0.2}, {Index: 2, Fraction: 0.8}})
	assert.Equal(t, []string{"play:r2"}, player.take(), "r1 is already paused")
	assert.False(t, c.State().Paused, "moving to a new item clears pause")
	assert.False(t, c.ShouldPlay(1))
	assert.True(t, c.ShouldPlay(2))

	c.ReportViewport([]Visibility{{Index: 1, Fraction: 0.9}})
	assert.Equal(t, []string{"pause:r2", "play:r1"}, player.take())

	assert.Equal(t, []string{"r1", "r2"}, views, "each reel is reported once")
}

func TestViewportBelowThresholdKeepsActive(t *testing.T) {
	player := &recordingPlayer{}
	c := NewController(player, nil)
	c.SetItems(threeReels())
	c.ReportViewport([]Visibility{{Index: 0, Fraction: 1}})
	player.take()

	c.ReportViewport([]Visibility{{Index: 0, Fraction: 0.5}, {Index: 1, Fraction: 0.5}})
	assert.Equal(t, 0, c.State().ActiveIndex)
	assert.Empty(t, player.take())

	c.ReportViewport([]Visibility{{Index: 7, Fraction: 1}})
	assert.Equal(t, 0, c.State().ActiveIndex, "out of range indexes are ignored")

	c.ReportViewport([]Visibility{{Index: 2, Fraction: ActiveThreshold}})
	assert.Equal(t, 2, c.State().ActiveIndex, "the threshold itself qualifies")
}

func TestFocusAndTapOnInactive(t *testing.T) {
	player := &recordingPlayer{}
	c := NewController(player, nil)
	c.SetItems(threeReels())
	c.ReportViewport([]Visibility{{Index: 0, Fraction: 1}})
	player.take()

	c.Tap(2)
	assert.Empty(t, player.take())

	c.SetFocused(false)
	assert.Equal(t, []string{"pause:r0"}, player.take())
	c.SetFocused(false)
	assert.Empty(t, player.take(), "no duplicate commands")

	c.SetFocused(true)
	assert.Equal(t, []string{"play:r0"}, player.take())
}

func TestCoverFallback(t *testing.T) {
	player := &recordingPlayer{}
	c := NewController(player, nil)
	c.SetItems([]Item{
		{ReelID: "video", VideoURL: "https://cdn/v.mp4"},
		{ReelID: "thumb-only", ThumbURL: "https://cdn/t.jpg"},
	})

	assert.Equal(t, ModeVideo, c.Mode(0))
	assert.Equal(t, ModeCover, c.Mode(1))

	c.ReportViewport([]Visibility{{Index: 1, Fraction: 1}})
	assert.Empty(t, player.take(), "cover items never play")

	c.ReportViewport([]Visibility{{Index: 0, Fraction: 1}})
	require.Equal(t, []string{"play:video"}, player.take())

	c.MediaFailed("video")
	assert.Equal(t, []string{"pause:video"}, player.take())
	assert.Equal(t, ModeCover, c.Mode(0))

	c.SetItems([]Item{{ReelID: "video", VideoURL: "https://cdn/v2.mp4"}})
	assert.Equal(t, ModeCover, c.Mode(0), "failed media is not retried")
	assert.Empty(t, player.take())
}

func TestSetItemsKeepsActiveReel(t *testing.T) {
	player := &recordingPlayer{}
	c := NewController(player, nil)
	c.SetItems(threeReels())
	c.ReportViewport([]Visibility{{Index: 1, Fraction: 1}})
	player.take()

	refreshed := append([]Item{{ReelID: "new", VideoURL: "https://cdn/new.mp4"}}, threeReels()...)
	c.SetItems(refreshed)
	assert.Equal(t, 2, c.State().ActiveIndex)
	assert.Empty(t, player.take(), "the same reel keeps playing")

	c.SetItems([]Item{{ReelID: "other", VideoURL: "https://cdn/o.mp4"}})
	assert.Equal(t, -1, c.State().ActiveIndex)
	assert.Equal(t, []string{"pause:r1"}, player.take())
}
