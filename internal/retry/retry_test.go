package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fastConfig() Config {
	return Config{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		MaxAttempts:  3,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", fastConfig(), func() error {
		calls++
		return nil
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesNetworkError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp 1.2.3.4:443: connection refused")
		}
		return nil
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_NonNetworkErrorFailsImmediately(t *testing.T) {
	calls := 0
	wantErr := errors.New("malformed response")
	err := Do(context.Background(), "op", fastConfig(), func() error {
		calls++
		return wantErr
	}, zerolog.Nop())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", fastConfig(), func() error {
		calls++
		return errors.New("i/o timeout")
	}, zerolog.Nop())
	if err == nil {
		t.Fatal("Do() error = nil, want error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, "op", fastConfig(), func() error {
		return errors.New("connection reset")
	}, zerolog.Nop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
}

func TestIsNetworkError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("no such host"), true},
		{errors.New("dial tcp: lookup example.com: Temporary failure in name resolution"), true},
		{errors.New("unexpected status 403"), false},
	}
	for _, tc := range cases {
		if got := IsNetworkError(tc.err); got != tc.want {
			t.Errorf("IsNetworkError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
