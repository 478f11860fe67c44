package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Canvas payloads and judge images are the largest bodies we accept.
const maxJSONBody = 12 << 20

// bindMessages maps field -> validation tag -> client message.
type bindMessages map[string]map[string]string

// bindJSON decodes and validates a request body, answering the client itself
// when it cannot. Oversized bodies get 413, everything else 400.
func bindJSON(c *gin.Context, req any, messages bindMessages, fallback string) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(c, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if malformedJSON(err) {
		writeError(c, http.StatusBadRequest, "malformed request body")
		return false
	}
	writeError(c, http.StatusBadRequest, resolveBindError(err, messages, fallback))
	return false
}

// bindURI answers 404 for path parameters that can never name a room or word.
func bindURI(c *gin.Context, req any) bool {
	if err := c.ShouldBindUri(req); err != nil {
		writeError(c, http.StatusNotFound, "not found")
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any, messages bindMessages) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		writeError(c, http.StatusBadRequest, resolveBindError(err, messages, "invalid query"))
		return false
	}
	return true
}

func malformedJSON(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func resolveBindError(err error, messages bindMessages, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if msg, ok := messages[verr.Field()][verr.Tag()]; ok {
				return msg
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return "invalid request"
}
