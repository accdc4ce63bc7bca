// Package main provides the daybook CLI: journal entries, their tags,
// symptoms, medications and attachments, plus the account-removal
// listener.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mesh-intelligence/daybook/internal/errs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the root command and maps the outcome to an exit code.
// Internal failures print a generic message; the cause is logged by the
// command that hit it. Uncoded errors come from cobra's argument parsing.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	var coded *errs.Error
	if !errors.As(err, &coded) {
		fmt.Fprintln(stderr, "error:", err)
		return exitUserError
	}
	fmt.Fprintln(stderr, "error:", errs.MessageOf(err))
	if errs.ExitCode(err) == exitUserError {
		return exitUserError
	}
	return exitSysError
}
