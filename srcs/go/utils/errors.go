package utils

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// ExitErr prints err with the caller location and exits with status 1.
func ExitErr(err error) {
	_, fn, line, _ := runtime.Caller(1)
	fmt.Fprintf(os.Stderr, "exit on error: %v at %s:%d\n", err, fn, line)
	os.Exit(1)
}

// MergeErrors returns nil if all errs are nil, otherwise one error listing every failure.
func MergeErrors(errs []error, hint string) error {
	var msgs []string
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%s failed with %s: %s", hint, Pluralize(len(msgs), "error", "errors"), strings.Join(msgs, ", "))
}
