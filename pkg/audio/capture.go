package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/pushtotalk/pushtotalkd/pkg/logging"
)

// chunkSamples is ~200ms of audio at 16kHz mono, per §4.3.
const chunkSamples = 3200

// chunkQueueDepth bounds the streaming variant's chunk channel.
const chunkQueueDepth = 32

func openDevice(log logging.Logger, onSamples func(pInput []byte)) (*malgo.AllocatedContext, *malgo.Device, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("audio: init context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = TargetSampleRate

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, _ uint32) {
			if len(pInput) == 0 {
				return
			}
			onSamples(pInput)
		},
	})
	if err != nil {
		mctx.Uninit()
		return nil, nil, fmt.Errorf("audio: init capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		return nil, nil, fmt.Errorf("audio: start capture device: %w", err)
	}

	return mctx, device, nil
}

// BatchCapturer accumulates the whole recording in memory and returns it as
// one WAV-framed buffer on stop.
type BatchCapturer struct {
	log logging.Logger

	mu        sync.Mutex
	recording bool
	buf       []byte
	mctx      *malgo.AllocatedContext
	device    *malgo.Device
}

// NewBatchCapturer constructs a batch capturer. log may be nil, in which
// case a NoOpLogger is used.
func NewBatchCapturer(log logging.Logger) *BatchCapturer {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &BatchCapturer{log: log}
}

// Start opens the default input device. Calling Start while already
// recording first stops the current recording and discards the result, per
// §4.3.
func (c *BatchCapturer) Start() error {
	c.mu.Lock()
	already := c.recording
	c.mu.Unlock()
	if already {
		_ = c.StopToBytes()
	}

	mctx, device, err := openDevice(c.log, c.onSamples)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.mctx = mctx
	c.device = device
	c.buf = nil
	c.recording = true
	c.mu.Unlock()
	return nil
}

func (c *BatchCapturer) onSamples(pInput []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return
	}
	c.buf = append(c.buf, pInput...)
}

// StopToBytes is idempotent: calling it while not recording returns an
// empty WAV buffer rather than erroring.
func (c *BatchCapturer) StopToBytes() []byte {
	c.mu.Lock()
	pcm := c.buf
	device, mctx := c.device, c.mctx
	c.recording, c.buf, c.device, c.mctx = false, nil, nil, nil
	c.mu.Unlock()

	if device != nil {
		if err := device.Stop(); err != nil {
			c.log.Warn("audio: device stop error", "err", err)
		}
		device.Uninit()
	}
	if mctx != nil {
		mctx.Uninit()
	}

	return NewWavBuffer(pcm, TargetSampleRate)
}

// StreamingCapturer delivers fixed-size PCM chunks over a bounded channel
// while also retaining every chunk for a full-WAV fallback.
type StreamingCapturer struct {
	log logging.Logger

	mu        sync.Mutex
	recording bool
	pending   []byte // samples not yet aligned to chunkSamples*2 bytes
	full      []byte
	chunks    chan []byte
	mctx      *malgo.AllocatedContext
	device    *malgo.Device
}

// NewStreamingCapturer constructs a streaming capturer. log may be nil.
func NewStreamingCapturer(log logging.Logger) *StreamingCapturer {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &StreamingCapturer{log: log}
}

// Start opens the device and returns a bounded receiver of ~200ms PCM
// chunks. The receiver closes when Stop is called.
func (c *StreamingCapturer) Start() (<-chan []byte, error) {
	c.mu.Lock()
	if c.recording {
		c.mu.Unlock()
		c.Stop()
	} else {
		c.mu.Unlock()
	}

	mctx, device, err := openDevice(c.log, c.onSamples)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.mctx = mctx
	c.device = device
	c.full = nil
	c.pending = nil
	c.chunks = make(chan []byte, chunkQueueDepth)
	c.recording = true
	c.mu.Unlock()
	return c.chunks, nil
}

func (c *StreamingCapturer) onSamples(pInput []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return
	}
	c.full = append(c.full, pInput...)
	c.pending = append(c.pending, pInput...)

	const chunkBytes = chunkSamples * 2
	for len(c.pending) >= chunkBytes {
		chunk := make([]byte, chunkBytes)
		copy(chunk, c.pending[:chunkBytes])
		c.pending = c.pending[chunkBytes:]

		select {
		case c.chunks <- chunk:
		default:
			c.log.Warn("audio: dropping chunk, consumer too slow")
		}
	}
}

// Stop closes the chunk channel and returns the complete WAV-framed buffer
// recorded so far, for use by the batch fallback race path.
func (c *StreamingCapturer) Stop() []byte {
	c.mu.Lock()
	full := c.full
	device, mctx, chunks := c.device, c.mctx, c.chunks
	c.recording, c.full, c.pending, c.device, c.mctx, c.chunks = false, nil, nil, nil, nil, nil
	c.mu.Unlock()

	if device != nil {
		if err := device.Stop(); err != nil {
			c.log.Warn("audio: device stop error", "err", err)
		}
		device.Uninit()
	}
	if mctx != nil {
		mctx.Uninit()
	}
	if chunks != nil {
		close(chunks)
	}

	return NewWavBuffer(full, TargetSampleRate)
}
