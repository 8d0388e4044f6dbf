package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"FeedWatcher/internal/app"
	"FeedWatcher/internal/config"
)

func main() {
	cliApp := &cli.App{
		Name:  "feedwatcher",
		Usage: "scan paginated JSON APIs for pattern matches and enrich them with AI summaries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"FEEDWATCHER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address for the control API",
				EnvVars: []string{"FEEDWATCHER_ADDR"},
			},
		},
		Action: serve,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	configPath := c.String("config")
	if configPath != "" {
		os.Setenv("FEEDWATCHER_CONFIG", configPath)
	} else {
		configPath = config.PathFromEnv()
	}
	if addr := c.String("addr"); addr != "" {
		os.Setenv("FEEDWATCHER_ADDR", addr)
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.New(cfg, configPath).Run(ctx)
}
