package sink

import (
	"bytes"
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jezek/xgb"

	"gitlab.com/tinyland/lab/rootbar/cache"
)

func TestFunc(t *testing.T) {
	var got string
	var s Sink = Func(func(_ context.Context, line string) error {
		got = line
		return nil
	})
	if err := s.Publish(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestXRoot_NoDisplay(t *testing.T) {
	x := NewXRoot(0)
	dials := 0
	x.dial = func() (*xgb.Conn, error) {
		dials++
		return nil, errors.New("cannot open display")
	}

	for range 2 {
		err := x.Publish(context.Background(), "line")
		if !errors.Is(err, ErrNoDisplay) {
			t.Fatalf("Publish() error = %v, want ErrNoDisplay", err)
		}
	}
	if dials != 2 {
		t.Errorf("dials = %d, want a reconnect attempt per publish", dials)
	}
	if err := x.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestCommand(t *testing.T) {
	c, err := NewCommand([]string{"xsetroot", "-name"})
	if err != nil {
		t.Fatal(err)
	}
	var gotName string
	var gotArgs []string
	c.run = func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}

	if err := c.Publish(context.Background(), "[h][u] => cpu 1%"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if gotName != "xsetroot" {
		t.Errorf("name = %q", gotName)
	}
	if want := []string{"-name", "[h][u] => cpu 1%"}; !reflect.DeepEqual(gotArgs, want) {
		t.Errorf("args = %q, want %q", gotArgs, want)
	}

	// A second publish must not see the first line's argument.
	c.Publish(context.Background(), "second")
	if want := []string{"-name", "second"}; !reflect.DeepEqual(gotArgs, want) {
		t.Errorf("args = %q, want %q", gotArgs, want)
	}
}

func TestCommand_Failure(t *testing.T) {
	c, _ := NewCommand([]string{"xsetroot", "-name"})
	c.run = func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	}
	err := c.Publish(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "xsetroot") {
		t.Errorf("Publish() error = %v, want wrapped command error", err)
	}
}

func TestCommand_Empty(t *testing.T) {
	if _, err := NewCommand(nil); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := NewCommand([]string{""}); err == nil {
		t.Error("expected error for empty program name")
	}
}

func TestCommand_RealProcess(t *testing.T) {
	for _, name := range []string{"true", "false"} {
		if _, err := os.Stat("/bin/" + name); err != nil {
			t.Skipf("/bin/%s not available", name)
		}
	}

	ok, _ := NewCommand([]string{"/bin/true"})
	if err := ok.Publish(context.Background(), "line"); err != nil {
		t.Errorf("true: %v", err)
	}
	bad, _ := NewCommand([]string{"/bin/false"})
	if err := bad.Publish(context.Background(), "line"); err == nil {
		t.Error("false: expected error")
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := newTerminal(&buf, false)
	w.Publish(context.Background(), "one")
	w.Publish(context.Background(), "two")
	if got := buf.String(); got != "one\ntwo\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRecording(t *testing.T) {
	store, err := cache.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}

	fail := true
	var delivered []string
	next := Func(func(_ context.Context, line string) error {
		if fail {
			return errors.New("display gone")
		}
		delivered = append(delivered, line)
		return nil
	})
	r := NewRecording(next, store, nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	if err := r.Publish(context.Background(), "first"); err == nil {
		t.Fatal("expected wrapped sink failure")
	}
	if rec, _ := LastRecord(store); rec != nil {
		t.Errorf("failed publish recorded: %+v", rec)
	}

	fail = false
	if err := r.Publish(context.Background(), "second"); err != nil {
		t.Fatal(err)
	}
	rec, err := LastRecord(store)
	if err != nil || rec == nil {
		t.Fatalf("LastRecord = %v, %v", rec, err)
	}
	if rec.Line != "second" || !rec.Updated.Equal(fixed) {
		t.Errorf("record = %+v", rec)
	}
	if !reflect.DeepEqual(delivered, []string{"second"}) {
		t.Errorf("delivered = %v", delivered)
	}
}

func TestPreviewModel(t *testing.T) {
	var m tea.Model = newPreviewModel()

	if !strings.Contains(m.View(), "waiting for first line") {
		t.Errorf("initial view = %q", m.View())
	}

	m, _ = m.Update(lineMsg{line: "[h][u] => cpu 3%", at: time.Now()})
	view := m.View()
	if !strings.Contains(view, "cpu 3%") {
		t.Errorf("view missing line: %q", view)
	}
	if !strings.Contains(view, "updates: 1") {
		t.Errorf("view missing update count: %q", view)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
