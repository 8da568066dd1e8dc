package asr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/pushtotalk/pushtotalkd/pkg/logging"
)

const (
	raceMaxRetries = 2
	raceRetryDelay = 500 * time.Millisecond
)

type raceSlot struct {
	mu   sync.Mutex
	set  bool
	text string
	err  error
}

func (s *raceSlot) store(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set, s.text, s.err = true, text, err
}

func (s *raceSlot) peek() (text string, err error, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.err, s.set
}

// Race runs primary and secondary in parallel per §4.5: the secondary is
// spawned once in the background, the primary gets up to raceMaxRetries+1
// attempts with a fixed backoff, and before each retry after the first the
// shared slot is peeked so an already-successful secondary short-circuits
// the wait. If the primary exhausts its attempts, the secondary is awaited
// to completion; if both failed, a composite error names both causes.
func Race(ctx context.Context, log logging.Logger, primary, secondary BatchClient, wav []byte) (string, error) {
	if log == nil {
		log = logging.NoOpLogger{}
	}

	slot := &raceSlot{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("asr race: secondary started", "backend", secondary.Name())
		text, err := secondary.TranscribeBytes(ctx, wav)
		if err != nil {
			log.Error("asr race: secondary failed", "backend", secondary.Name(), "err", err)
		} else {
			log.Info("asr race: secondary succeeded", "backend", secondary.Name())
		}
		slot.store(text, err)
	}()

	var primaryLastErr error
	for attempt := 0; attempt <= raceMaxRetries; attempt++ {
		if attempt > 0 {
			log.Warn("asr race: checking secondary before primary retry", "attempt", attempt)
			if text, err, ok := slot.peek(); ok && err == nil {
				log.Info("asr race: secondary already succeeded, using it", "backend", secondary.Name())
				return text, nil
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(raceRetryDelay):
			}
		}

		log.Info("asr race: primary attempt", "backend", primary.Name(), "attempt", attempt+1)
		text, err := primary.TranscribeBytes(ctx, wav)
		if err == nil {
			log.Info("asr race: primary succeeded", "backend", primary.Name())
			return text, nil
		}
		primaryLastErr = err
		log.Error("asr race: primary attempt failed", "backend", primary.Name(), "attempt", attempt+1, "err", err)
	}

	log.Warn("asr race: primary exhausted, awaiting secondary", "backend", secondary.Name())
	select {
	case <-done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if text, err, ok := slot.peek(); ok {
		if err == nil {
			return text, nil
		}
		merr := multierror.Append(
			fmt.Errorf("primary (%s): %w", primary.Name(), primaryLastErr),
			fmt.Errorf("secondary (%s): %w", secondary.Name(), err),
		)
		return "", fmt.Errorf("asr race: both backends failed: %w", merr)
	}

	return "", fmt.Errorf("asr race: both backends failed, primary: %w", primaryLastErr)
}
