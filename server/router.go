package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/server/response"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()

	// LoggerWithFormatter middleware will write the logs to gin.DefaultWriter
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if origins := s.Config.AccessControlAllowOrigin; origins != "" {
		corsConfig.AllowOrigins = strings.Split(origins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))
	r.MaxMultipartMemory = 32 << 20
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	uploadLimit := limitRatePerSubject(newSubjectStore(s.Config.UploadRatePerMinute, 10))
	reportLimit := limitRatePerSubject(newSubjectStore(s.Config.ReportRatePerMinute, 3))

	apirouter := router.Group("/api/v1")
	apirouter.GET("/healthz", func(c *gin.Context) {
		response.JSON(c, "ok", http.StatusOK, nil, nil)
	})
	if s.Gatherer != nil {
		apirouter.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	} else {
		apirouter.GET("/metrics", gin.WrapH(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})))
	}
	apirouter.POST("/authorities/request", s.handleAuthorityRequest())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.POST("/auth/logout", s.handleLogout())
	authorized.GET("/ws", s.handleWebsocket())

	authorized.GET("/reports", s.handleListReports())
	authorized.GET("/reports/:id", s.handleGetReport())
	authorized.GET("/reports/:id/reward", s.handleGetReportReward())
	authorized.PATCH("/reports/:id/status", RequireRoles(models.RoleAuthority, models.RoleAdmin), s.handleTransitionReport())
	authorized.GET("/authorities", s.handleListAuthorities())
	authorized.GET("/authorities/:id", s.handleGetAuthority())

	authorized.GET("/notifications", s.handleListNotifications())
	authorized.DELETE("/notifications", s.handleDeleteAllNotifications())
	authorized.PATCH("/notifications/read", s.handleMarkAllNotificationsRead())
	authorized.DELETE("/notifications/:id", s.handleDeleteNotification())
	authorized.PATCH("/notifications/:id/read", s.handleMarkNotificationRead())

	citizen := authorized.Group("/")
	citizen.Use(RequireRoles(models.RoleCitizen))
	citizen.POST("/citizens/me", s.handleEnrollCitizen())
	citizen.GET("/citizens/me", s.handleShowCitizen())
	citizen.POST("/reports", reportLimit, s.handleCreateReport())
	citizen.GET("/rewards", s.handleGetUserRewards())
	citizen.GET("/rewards/balance", s.handleGetUserRewardBalance())
	citizen.POST("/uploads/report-image", uploadLimit, s.handleUploadReportImage())

	admin := authorized.Group("/")
	admin.Use(RequireRoles(models.RoleAdmin))
	admin.GET("/rewards/total", s.handleSumAllRewardsBalance())
	admin.GET("/rewards/all", s.handleGetAllRewardsList())
	admin.POST("/authorities/:id/approve", s.handleSetApproval(models.ApprovalApproved))
	admin.POST("/authorities/:id/reject", s.handleSetApproval(models.ApprovalRejected))
	admin.POST("/authorities/:id/suspend", s.handleSetApproval(models.ApprovalSuspended))
}
