package server

import (
	"errors"
	"net/http"
	"time"

	"bulls-cows/internal/rules"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// respondError writes the uniform failure body. Anything that is not a
// *rules.Error is logged and reported as a bare internal error.
func respondError(c *gin.Context, err error) {
	var domainErr *rules.Error
	if !errors.As(err, &domainErr) {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		domainErr = rules.ErrInternal
	}
	c.AbortWithStatusJSON(domainErr.Status, gin.H{
		"code":  domainErr.Code,
		"error": domainErr.Message,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Debug()
		}
		event.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panic")
		respondError(c, rules.ErrInternal)
	})
}
