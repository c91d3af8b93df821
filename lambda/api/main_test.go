package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/eventlake/internal/mock"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	client := mock.NewKinesisClient()
	client.AddStream("downstream", "shard-0")

	router, err := newRouter(handler.Arguments{
		EnvVars: handler.EnvVars{
			AwsRegion:        "ap-northeast-1",
			DownstreamStream: "downstream",
		},
		NewKinesis: client.Factory,
		Retry:      util.NoWaitRetryPolicy(),
	})
	require.NoError(t, err)

	body := `{"event_type":"click"}` + "\n" + `{"event_type":"view"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, len(client.Records("downstream")))

	t.Run("Invalid partition key query", func(tt *testing.T) {
		_, err := newRouter(handler.Arguments{
			EnvVars: handler.EnvVars{
				DownstreamStream:  "downstream",
				PartitionKeyQuery: ".[",
			},
		})
		require.Error(tt, err)
	})
}
