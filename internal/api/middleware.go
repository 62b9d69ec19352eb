package api

import (
	"time"

	"example.com/backstage/services/procurement/internal/client"
	"example.com/backstage/services/procurement/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RequestID makes sure every request carries an X-Request-ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(client.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(client.RequestIDHeader, id)
		}
		c.Header(client.RequestIDHeader, id)
		c.Next()
	}
}

// Logger logs every request with zerolog
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		event := log.Info()
		msg := "Request processed"
		if statusCode >= 500 {
			event, msg = log.Error(), "Server error"
		} else if statusCode >= 400 {
			event, msg = log.Warn(), "Client error"
		}

		event.
			Int("status", statusCode).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("request_id", c.GetHeader(client.RequestIDHeader)).
			Msg(msg)
	}
}

// Metrics records a timer and an error rate per route
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		name := "http." + c.Request.Method + " " + route

		var err error
		if c.Writer.Status() >= 500 {
			err = errors.Errorf("status %d", c.Writer.Status())
		}
		m.Observe(name, start, err)
	}
}

// NewRelic traces requests when tracing is enabled
func NewRelic(app *newrelic.Application) gin.HandlerFunc {
	return nrgin.Middleware(app)
}
