package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/server/response"
)

func (s *Server) handleCreateReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		var req models.CreateReportRequest
		if errList := s.decode(c, &req); len(errList) > 0 {
			response.JSON(c, "Invalid report payload", http.StatusUnprocessableEntity, nil, errList)
			return
		}

		result, err := s.ReportService.CreateReport(c.Request.Context(), actor.Subject, &req)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, result.Message, http.StatusCreated, gin.H{
			"report":   result.Report,
			"distance": result.Distance,
		}, nil)
	}
}

func (s *Server) handleTransitionReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		reportID, err := pathID(c, "id")
		if err != nil {
			response.HandleErrors(c, err)
			return
		}

		var req models.TransitionRequest
		if errList := s.decode(c, &req); len(errList) > 0 {
			response.JSON(c, "Invalid status payload", http.StatusBadRequest, nil, errList)
			return
		}

		result, err := s.ReportService.TransitionStatus(c.Request.Context(), reportID, req.Status, actor)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, result.Message, http.StatusOK, result.Report, nil)
	}
}

func (s *Server) handleGetReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		reportID, err := pathID(c, "id")
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		report, err := s.ReportService.GetReport(c.Request.Context(), reportID, actor)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Report retrieved successfully", http.StatusOK, report, nil)
	}
}

// handleListReports accepts status, category and sort query parameters.
func (s *Server) handleListReports() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		q, err := models.ParseReportQuery(c.Query("status"), c.Query("category"), c.Query("sort"))
		if err != nil {
			response.HandleErrors(c, errs.Validation(err.Error()))
			return
		}
		reports, err := s.ReportService.ListReports(c.Request.Context(), actor, q)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Reports retrieved successfully", http.StatusOK, reports, nil)
	}
}
