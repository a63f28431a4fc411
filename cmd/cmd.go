package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"github.com/gamepulse/admin-sync-service/config"
	"github.com/gamepulse/admin-sync-service/internal/handler/tui"
	"github.com/gamepulse/admin-sync-service/internal/service"
)

const (
	ServiceName      = "admin-sync-service"
	ServiceNamespace = "gamepulse"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Realtime dashboard sync service for the GamePulse platform",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
			dashboardCmd(),
		},
	}

	return app.Run(os.Args)
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "config_file",
		Usage: "Path to the configuration file",
	}
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the sync service and the HTTP gateway",
		Flags:   []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			cfg, v, err := config.LoadConfig(c.String("config_file"))
			if err != nil {
				return err
			}
			app := NewApp(cfg, v)

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

func dashboardCmd() *cli.Command {
	return &cli.Command{
		Name:    "dashboard",
		Aliases: []string{"d"},
		Usage:   "Run the sync service with the terminal connection-stats panel",
		Flags:   []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			cfg, v, err := config.LoadConfig(c.String("config_file"))
			if err != nil {
				return err
			}

			var (
				orch   *service.Orchestrator
				logger *slog.Logger
			)
			app := NewApp(cfg, v, fx.Populate(&orch, &logger))

			if err := app.Start(c.Context); err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			panelErr := tui.NewPanel(logger, orch).Run(runCtx)

			if err := app.Stop(context.Background()); err != nil {
				return err
			}
			if panelErr != nil && !errors.Is(panelErr, context.Canceled) {
				return panelErr
			}
			return nil
		},
	}
}
