package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// Terminal writes one line per publish. Output to a TTY is styled; output
// to a pipe (tmux, lemonbar, i3bar wrappers) is plain text.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
	style  lipgloss.Style
}

// NewTerminal creates a terminal sink writing to f, styling only if f is a
// terminal.
func NewTerminal(f *os.File) *Terminal {
	return newTerminal(f, term.IsTerminal(f.Fd()))
}

func newTerminal(w io.Writer, styled bool) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		w:      w,
		styled: styled,
		style:  r.NewStyle().Foreground(lipgloss.Color("12")),
	}
}

// Publish writes line followed by a newline.
func (t *Terminal) Publish(ctx context.Context, line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.styled {
		line = t.style.Render(line)
	}
	if _, err := fmt.Fprintln(t.w, line); err != nil {
		return fmt.Errorf("sink: write line: %w", err)
	}
	return nil
}

var _ Sink = (*Terminal)(nil)
