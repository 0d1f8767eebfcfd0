package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/server/response"
)

// handleUploadReportImage stores the multipart "image" field and returns the
// URL to put in a report's imageUrl.
func (s *Server) handleUploadReportImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		if s.MediaService == nil {
			response.JSON(c, "image uploads are disabled", http.StatusServiceUnavailable, nil, nil)
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			response.HandleErrors(c, errs.Validation("An image file is required.").With("field", "image"))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		defer file.Close()

		url, err := s.MediaService.UploadReportImage(c.Request.Context(), actor.Subject, fileHeader.Filename, fileHeader.Size, file)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Image uploaded successfully", http.StatusCreated, gin.H{"imageUrl": url}, nil)
	}
}
