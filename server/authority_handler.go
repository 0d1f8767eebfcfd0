package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/server/response"
)

func (s *Server) handleAuthorityRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AuthorityRegistrationRequest
		if errList := s.decode(c, &req); len(errList) > 0 {
			response.JSON(c, "Invalid registration payload", http.StatusUnprocessableEntity, nil, errList)
			return
		}
		authority, err := s.AuthorityService.RequestRegistration(c.Request.Context(), &req)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Registration request submitted. An administrator will review it.", http.StatusCreated, authority, nil)
	}
}

// handleListAuthorities accepts status, city, lat, lon, radius, page and limit.
func (s *Server) handleListAuthorities() gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := models.ParseAuthorityQuery(c.Query("status"), c.Query("city"),
			c.Query("lat"), c.Query("lon"), c.Query("radius"), c.Query("page"), c.Query("limit"))
		switch {
		case errors.Is(err, models.ErrPartialCoordinates), errors.Is(err, models.ErrInvalidCoordinates):
			response.HandleErrors(c, errs.New(err.Error(), http.StatusBadRequest))
			return
		case err != nil:
			response.HandleErrors(c, errs.Validation(err.Error()))
			return
		}
		page, err := s.AuthorityService.ListAuthorities(c.Request.Context(), q)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		message := "Authorities retrieved successfully."
		if len(page.Authorities) == 0 {
			message = "No authorities found matching the criteria."
		}
		response.JSON(c, message, http.StatusOK, page, nil)
	}
}

func (s *Server) handleGetAuthority() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "id")
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		authority, err := s.AuthorityService.GetAuthority(c.Request.Context(), id)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Authority retrieved successfully.", http.StatusOK, authority, nil)
	}
}

type approvalRequest struct {
	Reason string `json:"reason" conform:"trim"`
}

// handleSetApproval returns a handler that moves an authority to status.
// Rejections read a reason from the body.
func (s *Server) handleSetApproval(status models.ApprovalStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "id")
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		var req approvalRequest
		if status == models.ApprovalRejected {
			if errList := s.decode(c, &req); len(errList) > 0 {
				response.JSON(c, "A reason is required to reject an authority.", http.StatusUnprocessableEntity, nil, errList)
				return
			}
		}
		authority, err := s.AuthorityService.UpdateApproval(c.Request.Context(), id, status, req.Reason)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Authority "+string(status)+" successfully", http.StatusOK, authority, nil)
	}
}
