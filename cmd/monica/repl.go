package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/monica-chat/monica/internal/advisory"
	"github.com/monica-chat/monica/internal/config"
	"github.com/monica-chat/monica/internal/export"
	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/provider"
	"github.com/monica-chat/monica/internal/voice"
)

const sessionTitleWidth = 40

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	adviceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// runOnce sends a single message and prints the reply.
func (a *app) runOnce(ctx context.Context, msg string) error {
	if err := a.engine.Send(ctx, msg); err != nil {
		return err
	}
	history := a.engine.History()
	if len(history) > 0 {
		fmt.Println(renderReply(history[len(history)-1].Text()))
	}
	return nil
}

// runREPL runs the interactive chat loop.
func (a *app) runREPL(ctx context.Context) error {
	lang := a.settings.Language
	fmt.Println(promptStyle.Render("Monica ") + infoStyle.Render("v"+version))
	fmt.Println(infoStyle.Render(config.Translate(lang, "welcome")))
	fmt.Println(infoStyle.Render("Type /help for commands."))

	recorder := a.newRecorder(ctx)
	assist := a.newAdvisoryLoop()
	defer func() {
		if recorder.Recording() {
			_ = recorder.Stop(ctx)
		}
		assist.Stop()
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			a.handleCommand(ctx, line, recorder, assist)
			continue
		}
		a.sendAndPrint(ctx, func() error {
			return a.engine.Send(ctx, line)
		})
	}
}

func (a *app) handleCommand(ctx context.Context, line string, recorder *voice.Recorder, assist *advisory.Loop) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		printREPLHelp()
	case "/new":
		if _, err := a.engine.NewSession(ctx); err != nil {
			printError(err)
			return
		}
		fmt.Println(infoStyle.Render("Started a new session."))
	case "/sessions":
		a.printSessions()
	case "/switch":
		if err := a.engine.SwitchTo(ctx, arg); err != nil {
			printError(err)
			return
		}
		a.printHistory()
	case "/rm-session":
		if err := a.engine.DeleteSession(ctx, arg); err != nil {
			printError(err)
			return
		}
		fmt.Println(infoStyle.Render("Session deleted."))
	case "/edit":
		idxStr, text, _ := strings.Cut(arg, " ")
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			printError(fmt.Errorf("usage: /edit <index> <new text>"))
			return
		}
		a.sendAndPrint(ctx, func() error {
			return a.engine.Edit(ctx, idx, strings.TrimSpace(text))
		})
	case "/delete":
		idx, err := strconv.Atoi(arg)
		if err != nil {
			printError(fmt.Errorf("usage: /delete <index>"))
			return
		}
		if err := a.engine.Delete(ctx, idx); err != nil {
			printError(err)
			return
		}
		a.printHistory()
	case "/regenerate":
		a.sendAndPrint(ctx, func() error {
			return a.engine.Regenerate(ctx)
		})
	case "/history":
		a.printHistory()
	case "/tokens":
		fmt.Println(infoStyle.Render(fmt.Sprintf("~%d tokens", a.engine.Tokens())))
	case "/provider":
		a.handleProvider(ctx, arg)
	case "/audio":
		a.handleAudio(ctx, arg)
	case "/record":
		a.handleRecord(ctx, arg, recorder)
	case "/assist":
		a.handleAssist(ctx, arg, assist)
	case "/act":
		n, err := strconv.Atoi(arg)
		if err != nil {
			printError(fmt.Errorf("usage: /act <n>"))
			return
		}
		a.actOnVerdict(ctx, n)
	case "/lang":
		if arg == "" {
			fmt.Println(infoStyle.Render("Languages: " + strings.Join(config.Languages(), ", ")))
			return
		}
		a.settings.Language = arg
		a.saveSettings(ctx)
	default:
		printError(fmt.Errorf("unknown command %s", cmd))
	}
}

// handleProvider switches the backend: "/provider gemini <key>" or
// "/provider groq <key>".
func (a *app) handleProvider(ctx context.Context, arg string) {
	kind, key, _ := strings.Cut(arg, " ")
	key = strings.TrimSpace(key)
	if key == "" {
		printError(fmt.Errorf("usage: /provider <gemini|groq> <api-key>"))
		return
	}

	profile := provider.Profile{Kind: provider.Kind(kind), APIKey: key}
	if err := a.setProfile(ctx, profile); err != nil {
		printError(err)
		return
	}
	a.settings.Provider = kind
	a.saveSettings(ctx)
	fmt.Println(infoStyle.Render("Connected to " + kind + "."))
}

// handleAudio submits an audio file directly as a voice message.
func (a *app) handleAudio(ctx context.Context, path string) {
	if path == "" {
		printError(fmt.Errorf("usage: /audio <file>"))
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		printError(err)
		return
	}
	a.sendAndPrint(ctx, func() error {
		return a.engine.SendAudio(ctx, data, audioMIMEType(path))
	})
}

// handleRecord toggles microphone recording. The assembled payload is
// submitted through the engine's audio path when the recording stops, either
// explicitly or after sustained silence.
func (a *app) handleRecord(ctx context.Context, arg string, recorder *voice.Recorder) {
	switch arg {
	case "start", "":
		if err := recorder.Start(ctx); err != nil {
			printError(err)
			return
		}
		fmt.Println(infoStyle.Render(config.Translate(a.settings.Language, "recording")))
	case "stop":
		if err := recorder.Stop(ctx); err != nil {
			printError(err)
			return
		}
	default:
		printError(fmt.Errorf("usage: /record [start|stop]"))
	}
}

// handleAssist toggles the screen advisory loop.
func (a *app) handleAssist(ctx context.Context, arg string, assist *advisory.Loop) {
	switch arg {
	case "on":
		if a.profile.APIKey == "" {
			printError(fmt.Errorf("set a provider key first: /provider <gemini|groq> <api-key>"))
			return
		}
		if err := assist.Start(ctx); err != nil {
			printError(err)
			return
		}
		fmt.Println(infoStyle.Render("Screen assist active."))
	case "off":
		assist.Stop()
		fmt.Println(infoStyle.Render("Screen assist off."))
	default:
		printError(fmt.Errorf("usage: /assist <on|off>"))
	}
}

// sendAndPrint runs a generation operation and prints the model's reply.
func (a *app) sendAndPrint(ctx context.Context, op func() error) {
	if err := op(); err != nil {
		printError(err)
		return
	}
	history := a.engine.History()
	if len(history) == 0 {
		return
	}
	last := history[len(history)-1]
	if last.Role == message.RoleModel {
		fmt.Println(renderReply(last.Text()))
	}
}

func (a *app) printSessions() {
	current := a.sessions.Current()
	for _, sess := range a.engine.Sessions() {
		title := runewidth.Truncate(sess.Title, sessionTitleWidth, "...")
		line := fmt.Sprintf("%s  %s  (%d messages)", sess.ID, title, len(sess.History))
		if current != nil && sess.ID == current.ID {
			fmt.Println(currentStyle.Render("* " + line))
		} else {
			fmt.Println("  " + line)
		}
	}
}

func (a *app) printHistory() {
	for i, p := range export.Pairs(a.engine.History()) {
		label := fmt.Sprintf("[%d] %s:", i, p.Speaker)
		if p.Speaker == "You" {
			fmt.Println(userStyle.Render(label) + " " + p.Text)
		} else {
			fmt.Println(promptStyle.Render(label))
			fmt.Println(renderReply(p.Text))
		}
	}
}

// renderReply renders model output as terminal markdown; on renderer failure
// the raw text is printed instead.
func renderReply(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func printError(err error) {
	fmt.Println(errorStyle.Render("Error: " + err.Error()))
}

func audioMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mp3"
	case ".ogg":
		return "audio/ogg"
	default:
		return "audio/webm"
	}
}

func printREPLHelp() {
	help := `Commands:
  /new                       Start a new session
  /sessions                  List sessions (newest first)
  /switch <id>               Switch to a session
  /rm-session <id>           Delete a session
  /history                   Print the current session
  /edit <index> <text>       Edit a user message and resend
  /delete <index>            Delete a message and everything after it
  /regenerate                Regenerate the last reply
  /tokens                    Show the token estimate
  /provider <kind> <key>     Connect gemini or groq
  /audio <file>              Send an audio file as a voice message
  /record [start|stop]       Record from the microphone (auto-stops on silence)
  /assist <on|off>           Toggle screen-aware suggestions
  /act <n>                   Take action n on the last suggestion
  /lang [code]               List or set the interface language
  /quit                      Exit`
	fmt.Println(infoStyle.Render(help))
}
