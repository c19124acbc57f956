package alloy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"zulu", "2024-01-01T10:00:00Z", want},
		{"bare", "2024-01-01T10:00:00", want},
		{"bare with fraction", "2024-01-01T10:00:00.0000000", want},
		{"offset", "2024-01-01T12:00:00+02:00", want},
		{"negative offset", "2024-01-01T05:00:00-05:00", want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	for _, bad := range []string{"", "yesterday", "2024-13-01T00:00:00"} {
		_, err := ParseTimestamp(bad)
		assert.Error(t, err, bad)
	}
}

func TestEventValidate(t *testing.T) {
	exp := "2024-01-01T10:00:00"
	ev := &Event{ID: "9d3f0a52-5b1e-4f6a-9b7c-1f2e3d4c5b6a", Status: StatusActive, ExpirationDate: &exp}
	require.NoError(t, ev.Validate())
	require.NotNil(t, ev.Expiration())
	assert.Equal(t, 10, ev.Expiration().Hour())
	assert.Nil(t, ev.Launched())

	bad := *ev
	bad.ID = "42"
	assert.Error(t, bad.Validate())

	bad = *ev
	bad.Status = "Exploded"
	assert.Error(t, bad.Validate())

	broken := "not-a-date"
	bad = *ev
	bad.ExpirationDate = &broken
	assert.Error(t, bad.Validate())

	var nilEvent *Event
	assert.Error(t, nilEvent.Validate())
}

func TestEventStatus(t *testing.T) {
	assert.True(t, StatusEnded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.False(t, StatusEnding.IsTerminal())
	assert.True(t, StatusPlanning.IsLaunching())
	assert.False(t, StatusActive.IsLaunching())
}
