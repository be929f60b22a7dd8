package command

import (
	"github.com/urfave/cli/v2"

	"github.com/askgate/askgate-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "askgate-cli",
		Usage:   "AskGate command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			AskCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "AskGate server address (e.g., localhost:5080)",
			EnvVars: []string{"ASKGATE_SERVER"},
			Value:   "localhost:5080",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"k"},
			Usage:   "API key for first-time token issuance",
			EnvVars: []string{"ASKGATE_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "Existing access token to reuse",
			EnvVars: []string{"ASKGATE_TOKEN"},
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "Dial with TLS (wss)",
		},
		&cli.BoolFlag{
			Name:  "insecure-skip-verify",
			Usage: "Skip TLS certificate verification",
		},
	}
}
