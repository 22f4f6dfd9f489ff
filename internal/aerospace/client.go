// Package aerospace shells out to the AeroSpace window manager CLI. Queries
// are bounded by a timeout; commands that only instruct the window manager
// (switch, toggle) are fire-and-forget so callers never stall on it.
package aerospace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codefionn/spacecycle/internal/logger"
)

// DefaultQueryTimeout bounds every query call to the aerospace binary.
const DefaultQueryTimeout = 3 * time.Second

// Client is an exec-backed client for the aerospace CLI.
type Client struct {
	bin     string
	timeout time.Duration
	runner  Runner
}

// Option configures a Client.
type Option func(*Client)

// WithRunner substitutes the command runner, used by tests.
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithTimeout overrides the query timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a Client for the given binary name or path.
func New(bin string, opts ...Option) *Client {
	if bin == "" {
		bin = "aerospace"
	}
	c := &Client{
		bin:     bin,
		timeout: DefaultQueryTimeout,
		runner:  execRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// query runs an aerospace subcommand with the bounded timeout and returns its
// trimmed stdout.
func (c *Client) query(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	result, err := c.runner.Run(ctx, c.bin, args...)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", &CommandError{Subcommand: args[0], ExitCode: result.ExitCode, Detail: result.Stderr}
	}
	return strings.TrimRight(result.Stdout, "\n"), nil
}

// instruct issues a command without waiting for the result. Failures are
// logged, not returned; the next refresh observes the real outcome.
func (c *Client) instruct(args ...string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		result, err := c.runner.Run(ctx, c.bin, args...)
		if err != nil {
			logger.Warn("aerospace %s: %v", args[0], err)
			return
		}
		if result.ExitCode != 0 {
			logger.Warn("%v", &CommandError{Subcommand: args[0], ExitCode: result.ExitCode, Detail: result.Stderr})
		}
	}()
}

// EnsureEnabled verifies the aerospace binary is present and responding,
// attempting `enable on` once before giving up.
func (c *Client) EnsureEnabled() error {
	if _, err := c.query("list-workspaces", "--focused"); err == nil {
		return nil
	} else if errors.Is(err, ErrNotInstalled) {
		return err
	}

	if _, err := c.query("enable", "on"); err != nil {
		if errors.Is(err, ErrNotInstalled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}

	if _, err := c.query("list-workspaces", "--focused"); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return nil
}

// WorkspacesWithFocus returns the live workspace list in aerospace's order
// and the currently focused workspace. Both come back empty on any failure.
func (c *Client) WorkspacesWithFocus() ([]string, string, error) {
	out, err := c.query("list-workspaces", "--all")
	if err != nil {
		return nil, "", err
	}

	var workspaces []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			workspaces = append(workspaces, line)
		}
	}

	focused, err := c.FocusedWorkspace()
	if err != nil {
		return nil, "", err
	}
	return workspaces, focused, nil
}

// FocusedWorkspace returns the currently focused workspace, or empty if none.
func (c *Client) FocusedWorkspace() (string, error) {
	out, err := c.query("list-workspaces", "--focused")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SwitchToWorkspace tells aerospace to focus the given workspace.
// Fire-and-forget.
func (c *Client) SwitchToWorkspace(id string) {
	if id == "" {
		return
	}
	c.instruct("workspace", id)
}

// TogglePrevious tells aerospace to jump to the previously focused workspace
// using its own back-and-forth history. Fire-and-forget.
func (c *Client) TogglePrevious() {
	c.instruct("workspace-back-and-forth")
}

// BindingsForMode returns the key-to-command bindings of the named binding
// mode, or nil if the mode is unknown. Serves the presentation layer only.
func (c *Client) BindingsForMode(name string) (map[string]string, error) {
	out, err := c.query("config", "--get", "mode."+name+".binding", "--json")
	if err != nil {
		return nil, err
	}

	var bindings map[string]string
	if err := json.Unmarshal([]byte(out), &bindings); err != nil {
		return nil, &CommandError{Subcommand: "config", Detail: fmt.Sprintf("unparseable binding output: %v", err)}
	}
	return bindings, nil
}

// CurrentMode returns the active binding mode name. Serves the presentation
// layer only.
func (c *Client) CurrentMode() (string, error) {
	out, err := c.query("list-modes", "--current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
