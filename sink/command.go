package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultCommand sets the root window name through the xsetroot utility.
var DefaultCommand = []string{"xsetroot", "-name"}

// Command publishes by running an external program with the line appended
// as its last argument.
type Command struct {
	argv []string

	// run is overridable for testing.
	run func(ctx context.Context, name string, args ...string) error
}

// NewCommand creates a command sink. argv must name a program.
func NewCommand(argv []string) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("sink: command is empty")
	}
	return &Command{
		argv: append([]string(nil), argv...),
		run:  runCommand,
	}, nil
}

// Publish runs the command once.
func (c *Command) Publish(ctx context.Context, line string) error {
	args := make([]string, 0, len(c.argv))
	args = append(args, c.argv[1:]...)
	args = append(args, line)
	if err := c.run(ctx, c.argv[0], args...); err != nil {
		return fmt.Errorf("sink: %s: %w", c.argv[0], err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

var _ Sink = (*Command)(nil)
