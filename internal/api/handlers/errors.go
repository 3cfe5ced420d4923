package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"example.com/pacific/relief/internal/api/middleware"
	"example.com/pacific/relief/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every failed call
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// requestContext returns the request context carrying the New Relic
// transaction that nrgin keeps on the gin context
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if txn := nrgin.Transaction(c); txn != nil {
		return newrelic.NewContext(ctx, txn)
	}
	return ctx
}

// bindJSON decodes the request body into obj. A body that is not valid JSON
// for obj is answered with 422, one over the size limit with 413, and false
// is returned.
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return false
		}

		field := "body"
		reason := "must be a valid JSON object"

		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field = typeErr.Field
			reason = "has an invalid type"
		}

		log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected malformed body")
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Fields: map[string]string{field: reason},
		})
		return false
	}
	return true
}

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var (
		validationErr *services.ValidationError
		refErr        *services.ReferentialError
		notFoundErr   *services.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Fields: validationErr.Fields,
		})
	case errors.As(err, &refErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: refErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFoundErr.Error()})
	default:
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", middleware.GetRequestID(c)).
			Msg("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
