package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/eventlake/internal/ingest"
	"github.com/m-mizutani/eventlake/pkg/api"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
)

type serveArguments struct {
	addr string
	port int
}

func serveCommand(args *handler.Arguments) *cli.Command {
	var params serveArguments

	return &cli.Command{
		Name:  "serve",
		Usage: "Run event API server locally",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Aliases:     []string{"a"},
				Value:       "127.0.0.1",
				Usage:       "Bind address",
				Destination: &params.addr,
			},
			&cli.IntFlag{
				Name:        "port",
				Aliases:     []string{"p"},
				Value:       10080,
				Usage:       "Bind port number",
				Destination: &params.port,
			},
			&cli.StringFlag{
				Name:        "stream",
				Aliases:     []string{"s"},
				Usage:       "Downstream Kinesis stream name",
				EnvVars:     []string{"DOWNSTREAM_STREAM"},
				Required:    true,
				Destination: &args.DownstreamStream,
			},
			&cli.StringFlag{
				Name:        "partition-key-query",
				Usage:       "jq query to extract partition key from record",
				Value:       ingest.DefaultPartitionKeyQuery,
				EnvVars:     []string{"PARTITION_KEY_QUERY"},
				Destination: &args.PartitionKeyQuery,
			},
		},
		Action: func(c *cli.Context) error {
			r, err := newServer(*args)
			if err != nil {
				return err
			}

			logger.WithFields(logrus.Fields{
				"params": params,
				"stream": args.DownstreamStream,
			}).Info("Start API server")

			return r.Run(fmt.Sprintf("%s:%d", params.addr, params.port))
		},
	}
}

func newServer(args handler.Arguments) (*gin.Engine, error) {
	keyFunc, err := ingest.NewPartitionKeyQuery(args.PartitionKeyQuery)
	if err != nil {
		return nil, err
	}

	publisher := ingest.NewPublisher(args.DownstreamStream, args.StreamWriter(), keyFunc)
	r := api.NewRouter(api.NewHandler(publisher))
	r.Use(gin.Logger())
	return r, nil
}
