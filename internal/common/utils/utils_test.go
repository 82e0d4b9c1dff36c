package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithTimeout(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(context.Context) error
		wantErr string
	}{
		{
			name: "時間内に完了",
			fn:   func(context.Context) error { return nil },
		},
		{
			name:    "処理のエラーをそのまま返す",
			fn:      func(context.Context) error { return errors.New("boom") },
			wantErr: "boom",
		},
		{
			name: "タイムアウト",
			fn: func(ctx context.Context) error {
				<-ctx.Done()
				time.Sleep(10 * time.Millisecond)
				return ctx.Err()
			},
			wantErr: "timed out",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunWithTimeout(context.Background(), 50*time.Millisecond, tt.fn)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunWithTimeout_ReportsCause(t *testing.T) {
	err := RunWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	err = RunWithTimeout(parent, time.Minute, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestRunWithTimeout_StuckProcess(t *testing.T) {
	prev := CleanupGrace
	CleanupGrace = 10 * time.Millisecond
	t.Cleanup(func() { CleanupGrace = prev })

	release := make(chan struct{})
	defer close(release)
	err := RunWithTimeout(context.Background(), 10*time.Millisecond, func(context.Context) error {
		<-release
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not stop")
}

func TestGetStackWithError(t *testing.T) {
	assert.NoError(t, GetStackWithError(nil))

	base := errors.New("base")
	err := GetStackWithError(base)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "Stack trace:")

	// 二重に付けない
	wrapped := GetStackWithError(fmt.Errorf("outer: %w", err))
	assert.Equal(t, 1, strings.Count(wrapped.Error(), "Stack trace:"))
}

func TestSpan_WithoutParentSegment(t *testing.T) {
	_, span := BeginSubsegment(context.Background(), "orphan")
	span.AddMetadata("key", "value")
	span.Close(errors.New("x"))
	span.Close(nil)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", false)
	logger.Info("hidden")
	logger.Warn("shown", "day", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"day":3`)

	buf.Reset()
	NewLogger(&buf, "not-a-level", true).Info("plain")
	assert.Contains(t, buf.String(), "plain")
}
