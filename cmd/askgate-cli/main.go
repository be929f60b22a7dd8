// Package main provides the entry point for askgate-cli.
//
// askgate-cli is the command-line client for AskGate: it dials the
// broker over WebSocket, submits a question, and waits for the
// answer.
package main

import (
	"fmt"
	"os"

	"github.com/askgate/askgate-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
