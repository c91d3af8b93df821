package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/eventlake/internal"
	"github.com/m-mizutani/eventlake/internal/ingest"
	"github.com/m-mizutani/eventlake/pkg/api"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/sirupsen/logrus"
)

var logger = handler.Logger

func newRouter(args handler.Arguments) (*gin.Engine, error) {
	if err := handler.RequireEnv(map[string]string{
		"DOWNSTREAM_STREAM": args.DownstreamStream,
	}); err != nil {
		return nil, err
	}

	keyFunc, err := ingest.NewPartitionKeyQuery(args.PartitionKeyQuery)
	if err != nil {
		return nil, err
	}

	publisher := ingest.NewPublisher(args.DownstreamStream, args.StreamWriter(), keyFunc)
	return api.NewRouter(api.NewHandler(publisher)), nil
}

func main() {
	logger.SetFormatter(&logrus.JSONFormatter{})
	gin.SetMode(gin.ReleaseMode)

	var args handler.Arguments
	if err := args.BindEnvVars(); err != nil {
		logger.WithError(err).Fatal("Fail to load environment variables")
	}
	handler.SetLogLevel(args.LogLevel)
	internal.InitErrorHandler(args.SentryDSN, args.SentryEnv)

	router, err := newRouter(args)
	if err != nil {
		internal.HandleError(err)
		internal.FlushError()
		logger.WithError(err).Fatal("Fail to create router")
	}

	adapter := ginadapter.New(router)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		logger.WithFields(logrus.Fields{
			"method": req.HTTPMethod,
			"path":   req.Path,
		}).Debug("Received request")
		return adapter.Proxy(req)
	})
}
