package main

import (
	"strings"

	"github.com/m-mizutani/eventlake/internal/convert"
	"github.com/m-mizutani/eventlake/pkg/handler"
)

var logger = handler.Logger

func main() {
	handler.StartLambda(Handler)
}

// Handler converts CSV objects of S3 event to parquet. Objects without .csv extension are
// skipped because parquet output is stored next to the CSV.
func Handler(args handler.Arguments) (interface{}, error) {
	objects, err := args.DecapS3Event()
	if err != nil {
		return nil, err
	}

	converter := convert.NewConverter(args.S3Service(), args.NotifyService(), args.RowRepository(), args.Recipients())

	var results []*convert.Result
	for _, obj := range objects {
		if !strings.HasSuffix(strings.ToLower(obj.Key), ".csv") {
			logger.WithField("object", obj).Debug("Skip non CSV object")
			continue
		}

		result, err := converter.Convert(obj)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}
