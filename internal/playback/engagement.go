package playback

import (
	"context"
	"sync"
)

// Engager is the server side of likes and saves.
type Engager interface {
	ToggleLike(ctx context.Context, reelID string) (liked bool, likes int, err error)
	ToggleSave(ctx context.Context, reelID string) (saved bool, saves int, err error)
}

// EngagementState is what the UI shows for one reel.
type EngagementState struct {
	Liked bool
	Saved bool
	Likes int
	Saves int
}

// Engagement applies like/save toggles optimistically: the local state flips
// at once, is replaced by the server's answer and is rolled back on error.
type Engagement struct {
	api Engager

	mu     sync.Mutex
	states map[string]EngagementState
}

func NewEngagement(api Engager) *Engagement {
	return &Engagement{api: api, states: make(map[string]EngagementState)}
}

// Seed sets the known state of a reel, typically from a feed response.
func (e *Engagement) Seed(reelID string, st EngagementState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states[reelID] = st
}

func (e *Engagement) State(reelID string) EngagementState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[reelID]
}

// ToggleLike flips the like and returns the reconciled state. On error only
// the like fields are restored, so a save that landed meanwhile survives.
func (e *Engagement) ToggleLike(ctx context.Context, reelID string) (EngagementState, error) {
	prev := e.update(reelID, func(st *EngagementState) {
		st.Liked = !st.Liked
		st.Likes = bump(st.Likes, st.Liked)
	})

	liked, likes, err := e.api.ToggleLike(ctx, reelID)
	if err != nil {
		return e.updated(reelID, func(st *EngagementState) {
			st.Liked, st.Likes = prev.Liked, prev.Likes
		}), err
	}
	return e.updated(reelID, func(st *EngagementState) {
		st.Liked, st.Likes = liked, likes
	}), nil
}

// ToggleSave is ToggleLike for saves.
func (e *Engagement) ToggleSave(ctx context.Context, reelID string) (EngagementState, error) {
	prev := e.update(reelID, func(st *EngagementState) {
		st.Saved = !st.Saved
		st.Saves = bump(st.Saves, st.Saved)
	})

	saved, saves, err := e.api.ToggleSave(ctx, reelID)
	if err != nil {
		return e.updated(reelID, func(st *EngagementState) {
			st.Saved, st.Saves = prev.Saved, prev.Saves
		}), err
	}
	return e.updated(reelID, func(st *EngagementState) {
		st.Saved, st.Saves = saved, saves
	}), nil
}

// update applies fn and returns the state from before it.
func (e *Engagement) update(reelID string, fn func(*EngagementState)) EngagementState {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.states[reelID]
	next := prev
	fn(&next)
	e.states[reelID] = next
	return prev
}

// updated applies fn and returns the state after it.
func (e *Engagement) updated(reelID string, fn func(*EngagementState)) EngagementState {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.states[reelID]
	fn(&next)
	e.states[reelID] = next
	return next
}

func bump(count int, on bool) int {
	if on {
		return count + 1
	}
	if count > 0 {
		return count - 1
	}
	return 0
}
