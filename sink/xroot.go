package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// XRoot sets the WM_NAME property of an X window, the root window by
// default. Status-bar window managers such as dwm display the root window's
// name as their status text.
//
// The display connection is made lazily and dropped after any failure, so a
// display that comes up after rootbar starts is picked up on the next retry.
type XRoot struct {
	window xproto.Window

	mu     sync.Mutex
	conn   *xgb.Conn
	target xproto.Window

	// dial is overridable for testing.
	dial func() (*xgb.Conn, error)
}

// NewXRoot creates an X sink. A window of 0 targets the default screen's
// root window.
func NewXRoot(window uint32) *XRoot {
	return &XRoot{
		window: xproto.Window(window),
		dial:   xgb.NewConn,
	}
}

// Publish replaces the target window's name with line.
func (x *XRoot) Publish(ctx context.Context, line string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.connectLocked(); err != nil {
		return err
	}

	data := []byte(line)
	err := xproto.ChangePropertyChecked(x.conn, xproto.PropModeReplace, x.target,
		xproto.AtomWmName, xproto.AtomString, 8, uint32(len(data)), data).Check()
	if err != nil {
		x.closeLocked()
		return fmt.Errorf("sink: set WM_NAME on window %d: %w", x.target, err)
	}
	return nil
}

// Close drops the display connection.
func (x *XRoot) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closeLocked()
	return nil
}

func (x *XRoot) connectLocked() error {
	if x.conn != nil {
		return nil
	}
	conn, err := x.dial()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoDisplay, err)
	}
	x.conn = conn
	x.target = x.window
	if x.target == 0 {
		x.target = xproto.Setup(conn).DefaultScreen(conn).Root
	}
	return nil
}

func (x *XRoot) closeLocked() {
	if x.conn != nil {
		x.conn.Close()
		x.conn = nil
	}
}

var _ Sink = (*XRoot)(nil)
