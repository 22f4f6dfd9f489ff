package aerospace

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner returns canned results keyed by the subcommand (first arg).
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]RunResult
	errs    map[string]error
	fn      func(args []string) (RunResult, error)
	calls   [][]string
	ran     chan []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results: map[string]RunResult{},
		errs:    map[string]error{},
		ran:     make(chan []string, 16),
	}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.mu.Unlock()

	select {
	case f.ran <- args:
	default:
	}

	if f.fn != nil {
		return f.fn(args)
	}

	key := strings.Join(args, " ")
	if err, ok := f.errs[key]; ok {
		return RunResult{}, err
	}
	if res, ok := f.results[key]; ok {
		return res, nil
	}
	if err, ok := f.errs[args[0]]; ok {
		return RunResult{}, err
	}
	return f.results[args[0]], nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestWorkspacesWithFocus(t *testing.T) {
	runner := newFakeRunner()
	runner.results["list-workspaces --all"] = RunResult{Stdout: "1\n2\nmail\n"}
	runner.results["list-workspaces --focused"] = RunResult{Stdout: "mail\n"}

	c := New("aerospace", WithRunner(runner))
	workspaces, focused, err := c.WorkspacesWithFocus()

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "mail"}, workspaces)
	assert.Equal(t, "mail", focused)
}

func TestWorkspacesWithFocusCommandFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.results["list-workspaces --all"] = RunResult{ExitCode: 1, Stderr: "daemon gone"}

	c := New("aerospace", WithRunner(runner))
	workspaces, focused, err := c.WorkspacesWithFocus()

	assert.Nil(t, workspaces)
	assert.Empty(t, focused)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Error(), "daemon gone")
}

func TestWorkspacesWithFocusNotInstalled(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["list-workspaces"] = ErrNotInstalled

	c := New("aerospace", WithRunner(runner))
	_, _, err := c.WorkspacesWithFocus()
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestWorkspacesWithFocusTimeout(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["list-workspaces"] = ErrTimeout

	c := New("aerospace", WithRunner(runner))
	_, _, err := c.WorkspacesWithFocus()
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestEnsureEnabledHappyPath(t *testing.T) {
	runner := newFakeRunner()
	runner.results["list-workspaces --focused"] = RunResult{Stdout: "1\n"}

	c := New("aerospace", WithRunner(runner))
	assert.NoError(t, c.EnsureEnabled())
	assert.Equal(t, 1, runner.callCount())
}

func TestEnsureEnabledRecoversViaEnable(t *testing.T) {
	runner := newFakeRunner()
	// First focused query fails, the enable attempt succeeds, the retried
	// query then responds.
	queries := 0
	runner.fn = func(args []string) (RunResult, error) {
		if strings.Join(args, " ") == "list-workspaces --focused" {
			queries++
			if queries == 1 {
				return RunResult{ExitCode: 1, Stderr: "not running"}, nil
			}
			return RunResult{Stdout: "1\n"}, nil
		}
		return RunResult{}, nil
	}

	c := New("aerospace", WithRunner(runner))
	assert.NoError(t, c.EnsureEnabled())
}

func TestEnsureEnabledNotInstalled(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["list-workspaces"] = ErrNotInstalled

	c := New("aerospace", WithRunner(runner))
	assert.ErrorIs(t, c.EnsureEnabled(), ErrNotInstalled)
}

func TestEnsureEnabledNotRunning(t *testing.T) {
	runner := newFakeRunner()
	runner.results["list-workspaces --focused"] = RunResult{ExitCode: 1, Stderr: "dead"}
	runner.results["enable on"] = RunResult{ExitCode: 1, Stderr: "dead"}

	c := New("aerospace", WithRunner(runner))
	assert.ErrorIs(t, c.EnsureEnabled(), ErrNotRunning)
}

func TestSwitchToWorkspaceFireAndForget(t *testing.T) {
	runner := newFakeRunner()

	c := New("aerospace", WithRunner(runner))
	c.SwitchToWorkspace("mail")

	select {
	case args := <-runner.ran:
		assert.Equal(t, []string{"workspace", "mail"}, args)
	case <-time.After(2 * time.Second):
		t.Fatal("switch command never ran")
	}
}

func TestSwitchToWorkspaceIgnoresEmptyID(t *testing.T) {
	runner := newFakeRunner()

	c := New("aerospace", WithRunner(runner))
	c.SwitchToWorkspace("")

	select {
	case <-runner.ran:
		t.Fatal("no command should run for an empty workspace id")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTogglePrevious(t *testing.T) {
	runner := newFakeRunner()

	c := New("aerospace", WithRunner(runner))
	c.TogglePrevious()

	select {
	case args := <-runner.ran:
		assert.Equal(t, []string{"workspace-back-and-forth"}, args)
	case <-time.After(2 * time.Second):
		t.Fatal("toggle command never ran")
	}
}

func TestBindingsForMode(t *testing.T) {
	runner := newFakeRunner()
	runner.results["config --get mode.main.binding --json"] = RunResult{
		Stdout: `{"alt-1": "workspace 1", "alt-tab": "workspace-back-and-forth"}`,
	}

	c := New("aerospace", WithRunner(runner))
	bindings, err := c.BindingsForMode("main")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"alt-1":   "workspace 1",
		"alt-tab": "workspace-back-and-forth",
	}, bindings)
}

func TestBindingsForModeUnparseable(t *testing.T) {
	runner := newFakeRunner()
	runner.results["config --get mode.main.binding --json"] = RunResult{Stdout: "not json"}

	c := New("aerospace", WithRunner(runner))
	_, err := c.BindingsForMode("main")

	var cmdErr *CommandError
	assert.ErrorAs(t, err, &cmdErr)
}

func TestCurrentMode(t *testing.T) {
	runner := newFakeRunner()
	runner.results["list-modes --current"] = RunResult{Stdout: "main\n"}

	c := New("aerospace", WithRunner(runner))
	mode, err := c.CurrentMode()

	require.NoError(t, err)
	assert.Equal(t, "main", mode)
}

func TestCommandErrorCapsDetail(t *testing.T) {
	err := &CommandError{Subcommand: "workspace", ExitCode: 2, Detail: strings.Repeat("x", maxStderrLen+100)}
	assert.LessOrEqual(t, len(err.Error()), maxStderrLen+64)
}

func TestCommandErrorCapRespectsRuneBoundaries(t *testing.T) {
	// 3-byte runes do not divide the cap evenly, so a byte-index cut would
	// split one of them.
	detail := strings.Repeat("€", maxStderrLen/3+100)
	err := &CommandError{Subcommand: "workspace", ExitCode: 2, Detail: detail}

	msg := err.Error()
	assert.True(t, utf8.ValidString(msg), "error message contains invalid UTF-8: %q", msg[len(msg)-20:])
	assert.LessOrEqual(t, len(msg), maxStderrLen+64)
}

func TestExecRunnerMapsMissingBinary(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := execRunner{}.Run(ctx, "definitely-not-a-real-binary-2b81")
	assert.True(t, errors.Is(err, ErrNotInstalled))
}
