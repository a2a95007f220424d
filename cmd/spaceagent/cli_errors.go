package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/jllopis/spaceagent/pkg/errors"
)

// CLIError wraps a typed error with a hint for the user.
type CLIError struct {
	Err  *errors.Error
	Hint string
}

func (e *CLIError) Error() string {
	msg := e.Err.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

func (e *CLIError) Unwrap() error { return e.Err }

func newConfigError(err error) *CLIError {
	return &CLIError{
		Err:  errors.New(errors.CodeInvalidInput, "invalid configuration", err),
		Hint: "check --config files, --set overrides and SPACEAGENT_* variables",
	}
}

func newUsageError(msg string) *CLIError {
	return &CLIError{
		Err:  errors.New(errors.CodeInvalidInput, msg, nil),
		Hint: "run 'spaceagent help' for usage",
	}
}

// printError writes err to w, as a JSON object when asJSON is set.
func printError(w io.Writer, err error, asJSON bool) {
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.CodeInternal
	}
	var hint string
	var ce *CLIError
	if stderrors.As(err, &ce) {
		hint = ce.Hint
		err = ce.Err
	}
	if asJSON {
		payload := map[string]any{"code": code, "message": err.Error()}
		if hint != "" {
			payload["hint"] = hint
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": payload})
		return
	}
	fmt.Fprintf(w, "Error [%s]: %v\n", code, err)
	if hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", hint)
	}
}
