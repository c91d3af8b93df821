// Package api is HTTP API for event producers.
package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/eventlake/internal"
	"github.com/m-mizutani/eventlake/internal/ingest"
	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/sirupsen/logrus"
)

// Logger can be replaced by API server.
var Logger = internal.Logger

// Publisher sends records to stream.
type Publisher interface {
	Publish(records []*models.Record) (*ingest.PublishResult, error)
}

// Response is successful response of API
type Response struct {
	Code    int
	Message interface{}
}

// Handler has dependencies of API endpoints.
type Handler struct {
	publisher Publisher
}

// NewHandler is constructor of Handler
func NewHandler(publisher Publisher) *Handler {
	return &Handler{publisher: publisher}
}

type endpoint func(c *gin.Context) (*Response, Error)

func sendResponse(c *gin.Context, resp *Response, err Error) {
	var code int
	if err != nil {
		code = err.Code()
	} else {
		code = resp.Code
	}
	metrics.APIRequests.WithLabelValues(c.FullPath(), strconv.Itoa(code)).Inc()

	Logger.WithFields(logrus.Fields{
		"path":       c.FullPath(),
		"request_id": c.GetHeader("x-request-id"),
		"ipaddr":     c.ClientIP(),
		"user_agent": c.Request.UserAgent(),
		"resp_code":  code,
	}).Info("Audit log")

	if err != nil {
		Logger.WithFields(logrus.Fields{
			"error": err,
			"url":   c.Request.URL,
		}).Error("Request failed")
		c.JSON(code, gin.H{"message": err.Message()})
		return
	}

	c.JSON(code, resp.Message)
}

func handle(fn endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := fn(c)
		sendResponse(c, resp, err)
	}
}
