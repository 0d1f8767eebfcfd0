package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/wastewatch/errors"
)

// JSON writes the standard envelope. errors may be nil, an error, a slice of
// errors or anything else that marshals.
func JSON(c *gin.Context, message string, status int, data interface{}, errors interface{}) {
	responsedata := gin.H{
		"message":   message,
		"data":      data,
		"errors":    flatten(errors),
		"status":    http.StatusText(status),
		"timestamp": time.Now().Format(time.RFC850),
	}
	c.JSON(status, responsedata)
}

func flatten(e interface{}) interface{} {
	switch v := e.(type) {
	case nil:
		return nil
	case *errs.Error:
		return v
	case []error:
		out := make([]string, 0, len(v))
		for _, err := range v {
			out = append(out, err.Error())
		}
		return out
	case error:
		if se, ok := errs.As(v); ok {
			return se
		}
		return []string{v.Error()}
	}
	return e
}

// HandleErrors writes err with the status its kind maps to. Dependency
// failures never leak their cause to the client.
func HandleErrors(c *gin.Context, err error) {
	se, ok := errs.As(err)
	if !ok {
		_ = c.Error(err)
		JSON(c, "internal server error", http.StatusInternalServerError, nil, errs.ErrInternalServerError)
		return
	}
	if se.Kind == errs.KindDependency || se.Kind == errs.KindInternal {
		_ = c.Error(err)
		JSON(c, se.Message, se.Status, nil, errs.New(se.Message, se.Status))
		return
	}
	JSON(c, se.Message, se.Status, nil, se)
}
