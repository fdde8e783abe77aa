package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    ReelStatus
		event   ReelEvent
		want    ReelStatus
		effects Effects
		wantErr bool
	}{
		{"complete from uploading", StatusUploading, EventComplete, StatusProcessing, Effects{ClearFailure: true}, false},
		{"complete again while processing", StatusProcessing, EventComplete, StatusProcessing, Effects{ClearFailure: true}, false},
		{"complete after ready", StatusReady, EventComplete, StatusReady, Effects{}, true},
		{"complete after failed", StatusFailed, EventComplete, StatusFailed, Effects{}, true},
		{"ready from processing", StatusProcessing, EventReady, StatusReady, Effects{ClearFailure: true, StampProcessed: true}, false},
		{"ready re-affirmed", StatusReady, EventReady, StatusReady, Effects{ClearFailure: true, StampProcessed: true}, false},
		{"ready before complete", StatusUploading, EventReady, StatusUploading, Effects{}, true},
		{"ready after failed", StatusFailed, EventReady, StatusFailed, Effects{}, true},
		{"fail while uploading", StatusUploading, EventFail, StatusFailed, Effects{SetFailure: true}, false},
		{"fail while processing", StatusProcessing, EventFail, StatusFailed, Effects{SetFailure: true}, false},
		{"fail again", StatusFailed, EventFail, StatusFailed, Effects{SetFailure: true}, false},
		{"fail after ready", StatusReady, EventFail, StatusReady, Effects{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects, err := Transition(tt.from, tt.event)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrIllegalTransition))
				assert.False(t, CanTransition(tt.from, tt.event))
			} else {
				assert.NoError(t, err)
				assert.True(t, CanTransition(tt.from, tt.event))
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.effects, effects)
		})
	}
}

func TestVisibilityValid(t *testing.T) {
	assert.True(t, VisibilityPublic.Valid())
	assert.True(t, VisibilityFollowers.Valid())
	assert.True(t, VisibilityPrivate.Valid())
	assert.False(t, Visibility("friends").Valid())
	assert.False(t, Visibility("").Valid())
}
