package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/monica-chat/monica/internal/advisory"
	"github.com/monica-chat/monica/internal/engine"
	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/provider"
	"github.com/monica-chat/monica/internal/voice"
)

// The terminal has no media devices of its own, so capture is delegated to
// user-configured commands: MONICA_MIC_CMD must stream raw audio on stdout
// (e.g. "arecord -q -f U8 -r 16000"), MONICA_CAPTURE_CMD must write one
// encoded screen frame to stdout (e.g. "scrot -o /dev/stdout").

// newRecorder builds the voice recorder; stopped recordings are submitted
// through the engine's audio path.
func (a *app) newRecorder(ctx context.Context) *voice.Recorder {
	mic := &commandMicrophone{
		command:  os.Getenv("MONICA_MIC_CMD"),
		mimeType: os.Getenv("MONICA_MIC_MIME"),
	}
	sink := func(ctx context.Context, data []byte, mimeType string) error {
		a.sendAndPrint(ctx, func() error {
			return a.engine.SendAudio(ctx, data, mimeType)
		})
		return nil
	}
	return voice.NewRecorder(mic, sink, voice.Options{})
}

// newAdvisoryLoop builds the screen advisory loop; surfaced verdicts are
// printed with their action menu and remembered for /act.
func (a *app) newAdvisoryLoop() *advisory.Loop {
	capturer := &commandCapturer{command: os.Getenv("MONICA_CAPTURE_CMD")}
	return advisory.NewLoop(gatewayProxy{eng: a.engine}, capturer, advisory.LoopOptions{
		OnSurface: a.surfaceVerdict,
	})
}

// gatewayProxy resolves the engine's gateway on every call so the advisory
// loop follows provider switches.
type gatewayProxy struct {
	eng *engine.Engine
}

func (p gatewayProxy) Generate(ctx context.Context, history []message.Message, opts provider.GenerateOptions) (string, error) {
	gw := p.eng.Gateway()
	if gw == nil {
		return "", engine.ErrMissingCredential
	}
	return gw.Generate(ctx, history, opts)
}

func (p gatewayProxy) Name() string { return "screen-assist" }

func (a *app) surfaceVerdict(v advisory.Verdict) {
	a.mu.Lock()
	a.lastVerdict = &v
	a.mu.Unlock()

	fmt.Println()
	fmt.Println(adviceStyle.Render("Suggestion: " + v.Suggestion))
	fmt.Println(infoStyle.Render("  " + v.Content))
	for i, action := range advisory.ActionsFor(v.Type) {
		fmt.Println(infoStyle.Render(fmt.Sprintf("  /act %d  %s", i+1, action.Label())))
	}
	fmt.Print(promptStyle.Render("> "))
}

// actOnVerdict synthesizes the chat prompt for action n of the last surfaced
// verdict and sends it.
func (a *app) actOnVerdict(ctx context.Context, n int) {
	a.mu.Lock()
	v := a.lastVerdict
	a.mu.Unlock()

	if v == nil {
		printError(errors.New("no active suggestion"))
		return
	}
	actions := advisory.ActionsFor(v.Type)
	if n < 1 || n > len(actions) {
		printError(fmt.Errorf("suggestion has %d actions", len(actions)))
		return
	}
	a.sendAndPrint(ctx, func() error {
		return a.engine.Send(ctx, advisory.PromptFor(actions[n-1], v.Content))
	})
}

// commandMicrophone runs a shell command that streams raw audio on stdout.
type commandMicrophone struct {
	command  string
	mimeType string
}

func (m *commandMicrophone) Open(ctx context.Context) (voice.Stream, error) {
	if m.command == "" {
		return nil, errors.New("no microphone configured (set MONICA_MIC_CMD)")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", m.command)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	mimeType := m.mimeType
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	return &commandStream{cmd: cmd, out: out, mimeType: mimeType}, nil
}

type commandStream struct {
	cmd      *exec.Cmd
	out      io.ReadCloser
	mimeType string
}

func (s *commandStream) Sample() ([]byte, error) {
	buf := make([]byte, 4096)
	n, err := s.out.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	return nil, err
}

func (s *commandStream) MIMEType() string { return s.mimeType }

func (s *commandStream) Close() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.cmd.Wait()
}

// commandCapturer runs a shell command that writes one encoded frame to
// stdout per invocation.
type commandCapturer struct {
	command string
}

func (c *commandCapturer) Capture(ctx context.Context) (advisory.Frame, error) {
	if c.command == "" {
		return advisory.Frame{}, errors.New("no screen capture configured (set MONICA_CAPTURE_CMD)")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", c.command)
	data, err := cmd.Output()
	if err != nil {
		return advisory.Frame{}, fmt.Errorf("screen capture: %w", err)
	}
	if len(data) == 0 {
		return advisory.Frame{}, errors.New("screen capture produced no data")
	}
	return advisory.Frame{Data: data, MIMEType: "image/jpeg"}, nil
}

func (c *commandCapturer) Close() error { return nil }
