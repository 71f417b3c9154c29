package advisory

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/monica-chat/monica/internal/log"
	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/provider"
)

// DefaultInterval is the steady-state capture cadence.
const DefaultInterval = 8 * time.Second

var (
	ErrAlreadyActive = errors.New("screen advisory already active")
	ErrNoGateway     = errors.New("screen advisory requires an active provider")
)

// Frame is one captured screen image, already downscaled and encoded.
type Frame struct {
	Data     []byte
	MIMEType string
}

// Capturer produces screen frames. The first Capture doubles as the
// permission prompt; Close releases all media resources.
type Capturer interface {
	Capture(ctx context.Context) (Frame, error)
	Close() error
}

// Loop runs the advisory cycle: capture, classify, suppress, surface.
type Loop struct {
	gateway   provider.Gateway
	capturer  Capturer
	interval  time.Duration
	onSurface func(Verdict)

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
	last   string
}

// LoopOptions configures a Loop. Zero Interval takes the default.
type LoopOptions struct {
	Interval time.Duration

	// OnSurface receives each verdict that clears suppression. It must not
	// block; surfacing happens on the loop goroutine.
	OnSurface func(Verdict)
}

// NewLoop creates an advisory loop over a gateway and a screen capturer.
func NewLoop(gateway provider.Gateway, capturer Capturer, opts LoopOptions) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Loop{
		gateway:   gateway,
		capturer:  capturer,
		interval:  opts.Interval,
		onSurface: opts.OnSurface,
	}
}

// Active reports whether the loop is running.
func (l *Loop) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Start performs one immediate capture+classify cycle and then begins the
// periodic loop. The immediate capture doubles as the permission prompt: if
// it fails, media is released and the loop never becomes active.
func (l *Loop) Start(ctx context.Context) error {
	if l.gateway == nil {
		return ErrNoGateway
	}

	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return ErrAlreadyActive
	}

	frame, err := l.capturer.Capture(ctx)
	if err != nil {
		l.mu.Unlock()
		l.release()
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.active = true
	l.cancel = cancel
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	l.classify(ctx, frame)
	go l.run(loopCtx, done)
	return nil
}

// Stop deactivates the loop, releases media, and clears the dedupe memo so a
// future activation surfaces fresh results immediately. Safe to call when
// already stopped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	l.active = false
	l.cancel()
	done := l.done
	l.mu.Unlock()

	<-done

	l.mu.Lock()
	l.last = ""
	l.mu.Unlock()
	l.release()
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := l.capturer.Capture(ctx)
			if err != nil {
				// A mid-loop capture failure means the user revoked
				// screen access; deactivate entirely.
				log.Logger().Warn("screen capture failed", zap.Error(err))
				go l.Stop()
				return
			}
			l.classify(ctx, frame)
		}
	}
}

// classify submits a frame with the classification prompt and surfaces the
// verdict unless suppressed. Classification failures are logged and skipped;
// they do not deactivate the loop.
func (l *Loop) classify(ctx context.Context, frame Frame) {
	msg := message.Message{
		Role: message.RoleUser,
		Parts: []message.Part{
			message.InlinePart(frame.Data, frame.MIMEType),
			message.TextPart(ClassificationPrompt),
		},
	}

	reply, err := l.gateway.Generate(ctx, []message.Message{msg}, provider.GenerateOptions{})
	if err != nil {
		log.Logger().Warn("screen classification failed", zap.Error(err))
		return
	}

	verdict, err := ParseVerdict(reply)
	if err != nil {
		log.Logger().Warn("screen verdict unparseable", zap.Error(err))
		return
	}

	l.surface(verdict)
}

// surface applies the suppression policy: the verdict must clear the
// confidence floor and its content must differ from the previously surfaced
// content.
func (l *Loop) surface(v Verdict) {
	if !v.Surfaceable() {
		return
	}

	l.mu.Lock()
	if v.Content == l.last {
		l.mu.Unlock()
		return
	}
	l.last = v.Content
	onSurface := l.onSurface
	l.mu.Unlock()

	if onSurface != nil {
		onSurface(v)
	}
}

func (l *Loop) release() {
	if err := l.capturer.Close(); err != nil {
		log.Logger().Warn("screen media release failed", zap.Error(err))
	}
}
