package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/server/response"
	"github.com/techagentng/wastewatch/services/jwt"
)

type enrollRequest struct {
	Name  string `json:"name" binding:"required,min=2" conform:"trim"`
	Email string `json:"email" binding:"required,email" conform:"trim,lower"`
}

func (s *Server) handleEnrollCitizen() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		var req enrollRequest
		if errList := s.decode(c, &req); len(errList) > 0 {
			response.JSON(c, "Invalid enrollment payload", http.StatusUnprocessableEntity, nil, errList)
			return
		}
		citizen, err := s.CitizenService.Enroll(c.Request.Context(), actor.Subject, req.Name, req.Email)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Citizen enrolled successfully", http.StatusOK, citizen, nil)
	}
}

func (s *Server) handleShowCitizen() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		citizen, err := s.CitizenService.GetCitizen(c.Request.Context(), actor.Subject)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Citizen retrieved successfully", http.StatusOK, citizen, nil)
	}
}

// handleLogout revokes the presented token until it would have expired.
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, exists := c.Get(ctxAccessToken)
		accessToken, ok := token.(string)
		if !exists || !ok {
			respondAndAbort(c, "Access token not found in context", http.StatusInternalServerError, nil, errs.New("Internal server error", http.StatusInternalServerError))
			return
		}

		expiresAt := time.Now().Add(24 * time.Hour)
		if claims, err := jwt.ValidateAndGetClaims(accessToken, s.Config.JWTSecret); err == nil {
			if exp := jwt.ExpiresAt(claims); !exp.IsZero() {
				expiresAt = exp
			}
		}

		blackListEntry := &models.Blacklist{Token: accessToken, ExpiresAt: expiresAt}
		if err := s.AuthRepository.AddToBlackList(c.Request.Context(), blackListEntry); err != nil {
			s.Logger.Error("adding access token to blacklist failed", "error", err)
			respondAndAbort(c, "Logout failed", http.StatusInternalServerError, nil, errs.New("Internal server error", http.StatusInternalServerError))
			return
		}
		response.JSON(c, "Logout successful", http.StatusOK, nil, nil)
	}
}
