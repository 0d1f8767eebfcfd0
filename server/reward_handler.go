package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/server/response"
)

func (s *Server) handleSumAllRewardsBalance() gin.HandlerFunc {
	return func(c *gin.Context) {
		totalBalance, err := s.RewardService.GetAllRewardsBalanceCount(c.Request.Context())
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Total rewards retrieved successfully", http.StatusOK, gin.H{"total_balance": totalBalance}, nil)
	}
}

func (s *Server) handleGetAllRewardsList() gin.HandlerFunc {
	return func(c *gin.Context) {
		rewards, err := s.RewardService.GetAllRewards(c.Request.Context())
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Rewards retrieved successfully", http.StatusOK, rewards, nil)
	}
}

func (s *Server) handleGetUserRewardBalance() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		balance, err := s.RewardService.Balance(c.Request.Context(), actor.Subject)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Balance retrieved successfully", http.StatusOK, balance, nil)
	}
}

func (s *Server) handleGetUserRewards() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		rewards, err := s.RewardService.Ledger(c.Request.Context(), actor.Subject)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Rewards retrieved successfully", http.StatusOK, rewards, nil)
	}
}

// handleGetReportReward returns the credit a resolved report produced. The
// report read goes through the lifecycle service so visibility rules apply.
func (s *Server) handleGetReportReward() gin.HandlerFunc {
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
		if _, err := s.ReportService.GetReport(c.Request.Context(), reportID, actor); err != nil {
			response.HandleErrors(c, err)
			return
		}
		reward, err := s.RewardService.RewardForReport(c.Request.Context(), reportID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Reward retrieved successfully", http.StatusOK, reward, nil)
	}
}
