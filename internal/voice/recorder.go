// Package voice implements the recording controller: a microphone stream is
// sampled on a fixed tick, a volume level is derived per sample, and a
// sustained run of silence stops the recording automatically.
package voice

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/monica-chat/monica/internal/log"
)

// Defaults for the sampling loop.
const (
	DefaultTick          = 200 * time.Millisecond
	DefaultSilenceBudget = 10 * time.Second

	// SilenceThreshold is the volume level below which a sample counts as
	// silence, on the 0..255 scale produced by Volume.
	SilenceThreshold = 15
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Stream is an open microphone capture. Sample returns the raw audio
// captured since the previous call; Close releases the device.
type Stream interface {
	Sample() ([]byte, error)
	MIMEType() string
	Close() error
}

// Microphone opens capture streams. The concrete implementation lives with
// the host platform; this package only drives the sampling loop.
type Microphone interface {
	Open(ctx context.Context) (Stream, error)
}

// Sink receives the assembled payload when a recording stops. A stop with no
// captured audio does not invoke the sink.
type Sink func(ctx context.Context, data []byte, mimeType string) error

// Options tunes the sampling loop. Zero values take the defaults.
type Options struct {
	Tick          time.Duration
	SilenceBudget time.Duration
}

// Recorder drives one recording at a time from a microphone to a sink.
type Recorder struct {
	mic    Microphone
	sink   Sink
	tick   time.Duration
	budget time.Duration

	mu        sync.Mutex
	stream    Stream
	cancel    context.CancelFunc
	done      chan struct{}
	buf       []byte
	mimeType  string
	recording bool
}

// NewRecorder creates a recorder over a microphone and a payload sink.
func NewRecorder(mic Microphone, sink Sink, opts Options) *Recorder {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.SilenceBudget <= 0 {
		opts.SilenceBudget = DefaultSilenceBudget
	}
	return &Recorder{mic: mic, sink: sink, tick: opts.Tick, budget: opts.SilenceBudget}
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start opens the microphone and begins the sampling loop. Audio accumulates
// until Stop is called or the silence budget is exhausted.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}

	stream, err := r.mic.Open(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.stream = stream
	r.cancel = cancel
	r.done = make(chan struct{})
	r.buf = nil
	r.mimeType = stream.MIMEType()
	r.recording = true
	done := r.done
	r.mu.Unlock()

	go r.loop(loopCtx, stream, done)
	return nil
}

// Stop ends the recording, releases the microphone and hands the payload to
// the sink. Calling Stop when nothing is recording returns ErrNotRecording;
// a second Stop racing an auto-stop is a no-op on the device.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return ErrNotRecording
	}
	done := r.done
	r.cancel()
	r.mu.Unlock()

	<-done
	return r.finish(ctx)
}

// loop samples the stream on every tick until cancelled or the silence
// budget runs out. Samples below the threshold accumulate silence; any loud
// sample resets the counter.
func (r *Recorder) loop(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	var silent time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := stream.Sample()
			if err != nil {
				log.Logger().Warn("microphone sample failed", zap.Error(err))
				go r.autoStop()
				return
			}

			r.mu.Lock()
			r.buf = append(r.buf, sample...)
			r.mu.Unlock()

			if Volume(sample) < SilenceThreshold {
				silent += r.tick
				if silent >= r.budget {
					go r.autoStop()
					return
				}
			} else {
				silent = 0
			}
		}
	}
}

// autoStop is the loop-initiated stop. It runs outside the loop goroutine so
// that finish never races the loop's own shutdown.
func (r *Recorder) autoStop() {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()

	if err := r.finish(context.Background()); err != nil {
		log.Logger().Warn("auto-stop submit failed", zap.Error(err))
	}
}

// finish releases the stream and submits the payload exactly once.
func (r *Recorder) finish(ctx context.Context) error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	r.recording = false
	stream := r.stream
	data := r.buf
	mimeType := r.mimeType
	r.stream = nil
	r.buf = nil
	r.mu.Unlock()

	if err := stream.Close(); err != nil {
		log.Logger().Warn("microphone close failed", zap.Error(err))
	}
	if len(data) == 0 || r.sink == nil {
		return nil
	}
	return r.sink(ctx, data, mimeType)
}

// Volume maps a raw unsigned 8-bit sample buffer to a 0..255 loudness level:
// the root mean square of the samples recentred around zero.
func Volume(samples []byte) int {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, b := range samples {
		v := float64(b)/128 - 1
		sum += v * v
	}
	return int(math.Sqrt(sum/float64(len(samples))) * 255)
}
