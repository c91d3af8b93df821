package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/m-mizutani/eventlake/internal"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is common logger gateway
var Logger = internal.Logger

// Handler has main logic of the lambda function. Returned value is response of the function.
type Handler func(Arguments) (interface{}, error)

// StartLambda initialize AWS Lambda and invokes handler
func StartLambda(handler Handler) {
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.JSONFormatter{})

	lambda.Start(func(ctx context.Context, event interface{}) (interface{}, error) {
		defer internal.FlushError()

		var args Arguments
		if err := args.BindEnvVars(); err != nil {
			internal.HandleError(err)
			return nil, err
		}

		SetLogLevel(args.LogLevel)
		internal.InitErrorHandler(args.SentryDSN, args.SentryEnv)

		Logger.WithFields(logrus.Fields{"args": args, "event": event}).Debug("Start handler")
		args.Event = event

		resp, err := handler(args)
		if err != nil {
			Logger.WithFields(logrus.Fields{"args": args, "event": event}).Error("Failed Handler")
			err = errors.Wrap(err, "Failed Handler")
			internal.HandleError(err)
			return nil, err
		}

		return resp, nil
	})
}

// SetLogLevel changes log level if level is not empty.
func SetLogLevel(level string) {
	if level != "" {
		internal.SetLogLevel(level)
	}
}
