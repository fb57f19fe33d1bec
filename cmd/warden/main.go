// cmd/warden/main.go
//
// warden governs workflow commands that write into memory-bank/.
// Hooks call it before a command runs (check) and after (validate);
// people call it for reports, guidance and the history browser.
//
// Exit codes: 0 allowed/passed, 1 blocked/violated or failed, 2 panic.

package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

const (
	Version = "0.1.0"
	appName = "warden"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	cmd := rootCmd()
	err := cmd.Execute()
	if err != nil && !isQuiet(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitError carries an exit status for outcomes that were already explained
// on stderr (a blocked command, recorded violations).
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func blocked(command string) error {
	return &exitError{code: 1, msg: fmt.Sprintf("%s blocked", command)}
}

func violated(command string) error {
	return &exitError{code: 1, msg: fmt.Sprintf("%s has violations", command)}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return 1
}

func isQuiet(err error) bool {
	var exitErr *exitError
	return errors.As(err, &exitErr)
}
