package cmd

import (
	"os"

	"github.com/urfave/cli/v2"
)

const (
	ServiceName      = "console-session-agent"
	ServiceNamespace = "huzilerz"
)

func Run() error {

	app := &cli.App{
		Name:     ServiceName,
		Usage:    "Huzilerz console session agent",
		Flags:    nil, // []cli.Flag{}
		Version:  Version(),
		Commands: commands,
	}

	return app.Run(os.Args)
}

var commands []*cli.Command

func Register(cmds ...*cli.Command) {
	commands = append(commands, cmds...)
}
