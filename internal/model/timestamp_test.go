package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		in       time.Time
		wantSecs uint32
		wantFrac uint32
	}{
		{
			name:     "秒ちょうど",
			in:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantSecs: 1704067200,
			wantFrac: 0,
		},
		{
			name:     "0.5秒",
			in:       time.Date(2024, 1, 1, 0, 0, 0, 500_000_000, time.UTC),
			wantSecs: 1704067200,
			wantFrac: 1 << 31,
		},
		{
			name:     "0.25秒",
			in:       time.Date(2024, 1, 1, 12, 0, 0, 250_000_000, time.UTC),
			wantSecs: 1704110400,
			wantFrac: 1 << 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := NewTimestamp(tt.in)
			assert.Equal(t, tt.wantSecs, ts.Seconds())
			assert.Equal(t, tt.wantFrac, ts.Fraction())
			assert.True(t, tt.in.Equal(ts.Time()), "round trip: got %v want %v", ts.Time(), tt.in)
		})
	}
}
