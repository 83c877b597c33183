package server

import (
	"errors"

	"bulls-cows/internal/rules"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindMessages maps struct field name -> validation tag -> error to report.
type bindMessages map[string]map[string]*rules.Error

func bindJSON(c *gin.Context, req any, messages bindMessages, fallback *rules.Error) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, resolveBindError(err, messages, fallback))
		return false
	}
	return true
}

func bindURI(c *gin.Context, req any, messages bindMessages, fallback *rules.Error) bool {
	if err := c.ShouldBindUri(req); err != nil {
		respondError(c, resolveBindError(err, messages, fallback))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any, messages bindMessages, fallback *rules.Error) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, resolveBindError(err, messages, fallback))
		return false
	}
	return true
}

func resolveBindError(err error, messages bindMessages, fallback *rules.Error) *rules.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldMsgs, ok := messages[verr.Field()]; ok {
				if msg, ok := fieldMsgs[verr.Tag()]; ok {
					return msg
				}
			}
		}
	}
	if fallback != nil {
		return fallback
	}
	return rules.ErrInvalidRequest
}
