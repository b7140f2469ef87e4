package agent

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/huzilerz/session-core/cmd"
	"github.com/huzilerz/session-core/config"
)

func CMD() *cli.Command {
	return &cli.Command{
		Name:  "agent",
		Usage: "Run the console session agent",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config_file",
				Aliases: []string{"c"},
				Usage:   "Configuration file path",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config_file"))
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")

			return app.Stop(context.Background())
		},
	}
}

func init() {
	cmd.Register(CMD())
}
