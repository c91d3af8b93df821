package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/eventlake/pkg/models"
)

// MaxEventsPerRequest limits number of events in one request body.
const MaxEventsPerRequest = 10000

func (x *Handler) postEvents(c *gin.Context) (*Response, Error) {
	records, err := models.DecodeRecords(c.Request.Body)
	if err != nil {
		return nil, wrapUserError(err, "Fail to parse events, JSON object or array of objects is required")
	}
	if len(records) == 0 {
		return nil, newUserErrorf("No event in request body")
	}
	if len(records) > MaxEventsPerRequest {
		return nil, newUserErrorf("Too many events (%d), must be up to %d", len(records), MaxEventsPerRequest)
	}

	result, err := x.publisher.Publish(records)
	if err != nil {
		return nil, wrapSystemError(err, http.StatusBadGateway, "Fail to publish events")
	}

	return &Response{Code: http.StatusOK, Message: result}, nil
}

func (x *Handler) getHealth(c *gin.Context) (*Response, Error) {
	return &Response{Code: http.StatusOK, Message: gin.H{"status": "ok"}}, nil
}
