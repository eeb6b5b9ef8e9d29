// Command agentcore runs the career platform's agent orchestration core
// from the terminal: one-off market scans, event inspection and a drain
// pass over pending events.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
