package main

import (
	"github.com/m-mizutani/eventlake/internal/ingest"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/m-mizutani/eventlake/pkg/models"
)

func main() {
	handler.StartLambda(Handler)
}

type publishEvent struct {
	Records []*models.Record `json:"records"`
}

// Handler puts records of {"records": [...]} event to downstream stream.
func Handler(args handler.Arguments) (interface{}, error) {
	if err := handler.RequireEnv(map[string]string{
		"DOWNSTREAM_STREAM": args.DownstreamStream,
	}); err != nil {
		return nil, err
	}

	var ev publishEvent
	if err := args.BindEvent(&ev); err != nil {
		return nil, err
	}

	keyFunc, err := ingest.NewPartitionKeyQuery(args.PartitionKeyQuery)
	if err != nil {
		return nil, err
	}

	publisher := ingest.NewPublisher(args.DownstreamStream, args.StreamWriter(), keyFunc)
	return publisher.Publish(ev.Records)
}
