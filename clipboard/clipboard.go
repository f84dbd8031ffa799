// Package clipboard copies repository URLs to the system clipboard.
//
// Copying is best effort: a terminal that ignores OSC 52 or a failed write
// never fails the calling command.
package clipboard

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aymanbagabas/go-osc52/v2"
	"go.uber.org/zap"

	"repocard/logger"
)

// Confirmation is emitted after a successful copy
const Confirmation = "Repository URL copied!"

// Clipboard supports best-effort copy-to-clipboard.
type Clipboard interface {
	Copy(text string) (copied bool, err error)
}

// Notifier shows a user-visible confirmation
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// OSC52 writes the OSC 52 escape sequence to a terminal.
type OSC52 struct {
	w    io.Writer
	mode string
}

// NewOSC52 returns a clipboard writing to w. mode is "", "tmux" or "screen"
// to wrap the sequence for a terminal multiplexer.
func NewOSC52(w io.Writer, mode string) *OSC52 {
	return &OSC52{w: w, mode: mode}
}

// NewTerminal returns an OSC52 clipboard on stderr, detecting tmux and screen
// from the environment.
func NewTerminal() *OSC52 {
	mode := ""
	switch {
	case os.Getenv("TMUX") != "":
		mode = "tmux"
	case os.Getenv("STY") != "":
		mode = "screen"
	}
	return NewOSC52(os.Stderr, mode)
}

func (c *OSC52) Copy(text string) (bool, error) {
	seq := osc52.New(text)
	switch c.mode {
	case "tmux":
		seq = seq.Tmux()
	case "screen":
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(c.w); err != nil {
		return false, fmt.Errorf("failed to write clipboard sequence: %w", err)
	}
	return true, nil
}

// Action copies a card's URL and confirms it.
type Action struct {
	clipboard Clipboard
	notifier  Notifier
}

// NewAction creates a copy action
func NewAction(c Clipboard, n Notifier) *Action {
	return &Action{clipboard: c, notifier: n}
}

// Copy writes raw to the clipboard and notifies on success. Failures are
// logged and reported as false.
func (a *Action) Copy(ctx context.Context, raw string) bool {
	if ctx.Err() != nil {
		return false
	}
	copied, err := a.clipboard.Copy(raw)
	if err != nil {
		logger.Warn("Clipboard copy failed", zap.Error(err), zap.String("url", raw))
		return false
	}
	if !copied {
		return false
	}
	if a.notifier != nil {
		a.notifier.Notify(Confirmation)
	}
	return true
}
