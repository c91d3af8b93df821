package main

import (
	"os"

	"github.com/m-mizutani/eventlake/internal"
	"github.com/m-mizutani/eventlake/pkg/handler"
	cli "github.com/urfave/cli/v2"
)

var logger = internal.Logger

func main() {
	var args handler.Arguments

	app := &cli.App{
		Name:  "eventlake",
		Usage: "CLI utility of eventlake",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "region",
				Aliases:     []string{"r"},
				Usage:       "AWS region",
				Value:       handler.DefaultRegion,
				EnvVars:     []string{"AWS_REGION"},
				Destination: &args.AwsRegion,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Aliases:     []string{"l"},
				Usage:       "Log level [trace|debug|info|warn|error]",
				EnvVars:     []string{"LOG_LEVEL"},
				Destination: &args.LogLevel,
			},
		},
		Before: func(c *cli.Context) error {
			handler.SetLogLevel(args.LogLevel)
			return nil
		},
		Commands: []*cli.Command{
			transformCommand(&args),
			streamCommand(&args),
			convertCommand(&args),
			serveCommand(&args),
			readCommand(&args),
			enrichCommand(&args),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.WithError(err).Fatal("Abort")
	}
}
