package server

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
)

// decode reads a JSON body into v, trims tagged strings and runs the binding
// validator. Errors come back translated.
func (s *Server) decode(c *gin.Context, v interface{}) []error {
	if err := json.NewDecoder(c.Request.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return []error{errors.New("request body is empty")}
		}
		return []error{err}
	}
	if err := models.Normalize(v); err != nil {
		return []error{err}
	}
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return models.TranslateError(err, s.translator)
	}
	return nil
}

func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errs.Validation("Invalid " + name + " format").With("field", name)
	}
	return id, nil
}
