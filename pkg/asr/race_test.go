package asr

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeBatchClient struct {
	name  string
	delay time.Duration
	text  string
	err   error
	calls int
}

func (f *fakeBatchClient) Name() string              { return f.name }
func (f *fakeBatchClient) SetDictionary([]string)     {}
func (f *fakeBatchClient) TranscribeBytes(ctx context.Context, _ []byte) (string, error) {
	f.calls++
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return f.text, f.err
}

func TestRacePrimarySucceedsImmediately(t *testing.T) {
	primary := &fakeBatchClient{name: "primary", text: "hello"}
	secondary := &fakeBatchClient{name: "secondary", delay: 50 * time.Millisecond, text: "slow"}

	text, err := Race(context.Background(), nil, primary, secondary, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" {
		t.Fatalf("expected primary's text, got %q", text)
	}
	if primary.calls != 1 {
		t.Fatalf("expected exactly one primary attempt, got %d", primary.calls)
	}
}

func TestRaceFallsBackToSecondary(t *testing.T) {
	primary := &fakeBatchClient{name: "primary", err: errors.New("boom")}
	secondary := &fakeBatchClient{name: "secondary", delay: 3 * raceRetryDelay, text: "fine"}

	start := time.Now()
	text, err := Race(context.Background(), nil, primary, secondary, nil)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "fine" {
		t.Fatalf("expected secondary's text, got %q", text)
	}
	if primary.calls != raceMaxRetries+1 {
		t.Fatalf("expected primary to exhaust all attempts, got %d calls", primary.calls)
	}
	if elapsed < 2*raceRetryDelay {
		t.Fatalf("expected primary to have backed off between retries, elapsed=%v", elapsed)
	}
}

func TestRaceBothFail(t *testing.T) {
	primary := &fakeBatchClient{name: "primary", err: errors.New("primary down")}
	secondary := &fakeBatchClient{name: "secondary", err: errors.New("secondary down")}

	_, err := Race(context.Background(), nil, primary, secondary, nil)
	if err == nil {
		t.Fatal("expected composite error when both backends fail")
	}
}

func TestRaceSecondaryPeekedBeforeRetry(t *testing.T) {
	primary := &fakeBatchClient{name: "primary", delay: 10 * time.Millisecond, err: errors.New("primary down")}
	secondary := &fakeBatchClient{name: "secondary", delay: 5 * time.Millisecond, text: "from secondary"}

	text, err := Race(context.Background(), nil, primary, secondary, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "from secondary" {
		t.Fatalf("expected secondary's text to short-circuit the retry loop, got %q", text)
	}
	if primary.calls >= raceMaxRetries+1 {
		t.Fatalf("expected primary retries to be short-circuited, got %d calls", primary.calls)
	}
}
