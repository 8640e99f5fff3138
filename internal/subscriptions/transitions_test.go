package subscriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quillpad/quillpad/internal/governance"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from    Status
		ev      Event
		want    Status
		wantErr bool
	}{
		{StatusPending, EventActivate, StatusActive, false},
		{StatusPending, EventBlock, StatusBlocked, false},
		{StatusActive, EventBlock, StatusBlocked, false},
		{StatusBlocked, EventBlock, StatusBlocked, false},
		{StatusExpired, EventBlock, StatusBlocked, false},
		{StatusActive, EventActivate, "", true},
		{StatusBlocked, EventActivate, "", true},
		{StatusExpired, EventActivate, "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			got, err := Next(tt.from, tt.ev)
			if tt.wantErr {
				assert.ErrorIs(t, err, governance.ErrInvalidTransition)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
