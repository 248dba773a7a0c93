package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dev-tams/offhours/internal/app"
	"github.com/dev-tams/offhours/internal/cloud"
	"github.com/dev-tams/offhours/internal/config"
	"github.com/dev-tams/offhours/internal/logging"
	"github.com/dev-tams/offhours/internal/schedule"
)

func main() {
	cliApp := &cli.App{
		Name:  "offhours",
		Usage: "stop tagged machines during their shutdown windows, start them outside",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run one sweep over all machines",
				Flags: sweepFlags(),
				Action: func(c *cli.Context) error {
					cfg, err := loadValidatedConfig(c.String("config"))
					if err != nil {
						return err
					}

					log := logging.New(logLevel(cfg, c.Bool("verbose")))
					client, err := cloud.NewEC2(c.Context, cloud.EC2Options{
						Region:      cfg.AWS.Region,
						AccessKey:   cfg.AWS.AccessKey,
						SecretKey:   cfg.AWS.SecretKey,
						GroupTagKey: cfg.Schedule.GroupTagKey,
					})
					if err != nil {
						return err
					}

					return app.RunOnce(c.Context, client, cfg, c.Bool("simulate"), log)
				},
			},
			{
				Name:  "check",
				Usage: "evaluate one schedule entry against an instant and explain the outcome",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "entry",
						Required: true,
						Usage:    "schedule entry, e.g. \"22:00 -> 06:00\" or \"Saturday\"",
					},
					&cli.StringFlag{
						Name:  "at",
						Usage: "RFC3339 instant to test (default: now, UTC)",
					},
				},
				Action: func(c *cli.Context) error {
					now := time.Now().UTC()
					if at := c.String("at"); at != "" {
						parsed, err := time.Parse(time.RFC3339, at)
						if err != nil {
							return fmt.Errorf("invalid --at value %q: %w", at, err)
						}
						now = parsed
					}

					ev := schedule.Evaluate(c.String("entry"), now)
					switch ev.Result {
					case schedule.Matched:
						fmt.Printf("matched: %s is inside [%s, %s] -> machine should be stopped\n",
							now.Format(time.RFC3339), ev.Window.Start.Format(time.RFC3339), ev.Window.End.Format(time.RFC3339))
					case schedule.NotMatched:
						if ev.Window.IsZero() {
							fmt.Printf("not matched: entry does not apply at %s\n", now.Format(time.RFC3339))
						} else {
							fmt.Printf("not matched: %s is outside [%s, %s]\n",
								now.Format(time.RFC3339), ev.Window.Start.Format(time.RFC3339), ev.Window.End.Format(time.RFC3339))
						}
					case schedule.Malformed:
						fmt.Printf("malformed: %s\n", ev.Reason)
					}
					return nil
				},
			},
			{
				Name:  "daemon",
				Usage: "run sweeps on the configured cron schedule",
				Flags: sweepFlags(),
				Action: func(c *cli.Context) error {
					cfg, err := loadValidatedConfig(c.String("config"))
					if err != nil {
						return err
					}

					log := logging.New(logLevel(cfg, c.Bool("verbose")))
					client, err := cloud.NewEC2(c.Context, cloud.EC2Options{
						Region:      cfg.AWS.Region,
						AccessKey:   cfg.AWS.AccessKey,
						SecretKey:   cfg.AWS.SecretKey,
						GroupTagKey: cfg.Schedule.GroupTagKey,
					})
					if err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					return app.RunDaemon(ctx, client, cfg, c.Bool("simulate"), log)
				},
			},
		},
	}

	if err := cliApp.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sweepFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Required: true,
			Usage:    "path to config yaml",
		},
		&cli.BoolFlag{
			Name:  "simulate",
			Usage: "log intended actions without touching any machine",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
	}
}

func logLevel(cfg *config.Config, verbose bool) string {
	if verbose {
		return "debug"
	}
	return cfg.Log.Level
}

func loadValidatedConfig(cfgPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
