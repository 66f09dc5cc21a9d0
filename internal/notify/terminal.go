package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// TerminalNotifier prints a banner line and optionally rings the bell.
type TerminalNotifier struct {
	w            io.Writer
	mu           sync.Mutex
	bellEnabled  bool
	colorEnabled bool
}

// NewTerminalNotifier creates a terminal channel writing to w.
func NewTerminalNotifier(w io.Writer, bell, colorEnabled bool) *TerminalNotifier {
	return &TerminalNotifier{
		w:            w,
		bellEnabled:  bell,
		colorEnabled: colorEnabled,
	}
}

// Name returns the name of the channel.
func (t *TerminalNotifier) Name() string {
	return "terminal"
}

// Send writes n to the terminal.
func (t *TerminalNotifier) Send(_ context.Context, n Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	line := fmt.Sprintf("🚨 %s  %s", n.Title, n.Message)
	if t.colorEnabled {
		c := color.New(color.FgRed, color.Bold)
		c.EnableColor()
		line = c.Sprint(line)
	}
	if t.bellEnabled {
		line = "\a" + line
	}
	_, err := fmt.Fprintln(t.w, line)
	return err
}
