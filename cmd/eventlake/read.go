package main

import (
	"github.com/k0kubun/pp"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/m-mizutani/eventlake/pkg/models"
	cli "github.com/urfave/cli/v2"
)

type readArguments struct {
	stream string
	limit  int
}

func readCommand(args *handler.Arguments) *cli.Command {
	var readArgs readArguments

	return &cli.Command{
		Name:  "read",
		Usage: "Read records from stream and print them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "stream",
				Aliases:     []string{"s"},
				EnvVars:     []string{"INPUT_STREAM"},
				Required:    true,
				Destination: &readArgs.stream,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Value:       10,
				Destination: &readArgs.limit,
			},
		},
		Action: func(c *cli.Context) error {
			results, err := readAction(*args, readArgs)
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.OK() {
					pp.Println(r.Record.Plain())
				} else {
					pp.Println(r.Err)
				}
			}
			return nil
		},
	}
}

func readAction(args handler.Arguments, readArgs readArguments) ([]*models.ReadResult, error) {
	return args.StreamReader().Read(readArgs.stream, readArgs.limit)
}
