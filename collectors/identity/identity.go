// Package identity resolves the hostname and effective username shown at
// the head of the status line. Both are resolved once at startup; early in
// boot either may be unavailable, so each is retried until it succeeds.
package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"

	"gitlab.com/tinyland/lab/rootbar/collectors/retry"
)

// Identity is immutable once resolved.
type Identity struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
}

// Resolver looks up hostname and username.
type Resolver struct {
	retry retry.Config

	// Overridable for testing.
	hostname func(ctx context.Context) (string, error)
	username func() (string, error)
}

// NewResolver creates a Resolver that backs off according to cfg between
// failed lookups.
func NewResolver(cfg retry.Config) *Resolver {
	return &Resolver{
		retry:    cfg,
		hostname: lookupHostname,
		username: lookupUsername,
	}
}

// Resolve returns the host identity. If usernameOverride is non-empty it is
// used verbatim and no username lookup happens. Resolve only fails when ctx
// ends before both lookups succeed.
func (r *Resolver) Resolve(ctx context.Context, usernameOverride string) (Identity, error) {
	var id Identity

	_, err := retry.Do(ctx, "resolve hostname", r.retry, func(ctx context.Context) error {
		name, err := r.hostname(ctx)
		if err != nil {
			return err
		}
		id.Hostname = name
		return nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("identity: %w", err)
	}

	if usernameOverride != "" {
		id.Username = usernameOverride
		return id, nil
	}

	_, err = retry.Do(ctx, "resolve username", r.retry, func(context.Context) error {
		name, err := r.username()
		if err != nil {
			return err
		}
		id.Username = name
		return nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("identity: %w", err)
	}
	return id, nil
}

// lookupHostname reads only the kernel hostname, so a missing /proc or /sys
// entry elsewhere cannot hold up startup.
func lookupHostname(context.Context) (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}
	if name == "" {
		return "", errors.New("hostname not set")
	}
	return name, nil
}

func lookupUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}
	if u.Username == "" {
		return "", errors.New("current user has no name")
	}
	return u.Username, nil
}
