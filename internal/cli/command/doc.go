// Package command provides CLI command definitions for askgate-cli.
//
// It uses urfave/cli/v2 for command parsing.
package command
