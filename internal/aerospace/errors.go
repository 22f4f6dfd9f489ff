package aerospace

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxStderrLen caps the stderr text included in error messages.
const maxStderrLen = 4096

var (
	// ErrNotInstalled means the aerospace binary could not be resolved.
	ErrNotInstalled = errors.New("aerospace binary not found in PATH")
	// ErrNotRunning means the binary exists but did not respond, even after
	// an enable attempt.
	ErrNotRunning = errors.New("aerospace is not responding")
	// ErrTimeout means a query did not complete within the bounded wait.
	ErrTimeout = errors.New("aerospace command timed out")
)

// CommandError reports a command that ran but failed (non-zero exit or
// unparseable output).
type CommandError struct {
	Subcommand string
	ExitCode   int
	Detail     string
}

func (e *CommandError) Error() string {
	detail := strings.TrimSpace(e.Detail)
	if len(detail) > maxStderrLen {
		cut := maxStderrLen
		// Back up to a rune boundary so the cap never splits a multi-byte
		// character.
		for cut > 0 && !utf8.RuneStart(detail[cut]) {
			cut--
		}
		detail = detail[:cut] + "..."
	}
	if detail == "" {
		return fmt.Sprintf("aerospace %s failed (exit=%d)", e.Subcommand, e.ExitCode)
	}
	return fmt.Sprintf("aerospace %s failed (exit=%d): %s", e.Subcommand, e.ExitCode, detail)
}
