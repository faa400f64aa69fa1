package source

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		fails     int
		transient bool
		wantCalls int
		wantErr   error
	}{
		{"succeeds first time", 0, true, 1, nil},
		{"recovers after transient failures", 2, true, 3, nil},
		{"gives up after attempts", 5, true, 3, boom},
		{"permanent error is not retried", 5, false, 1, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retry(context.Background(), 3, time.Millisecond, func() error {
				calls++
				if calls <= tt.fails {
					if tt.transient {
						return retryable(boom)
					}
					return boom
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retry(ctx, 3, time.Hour, func() error { return retryable(errors.New("down")) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
