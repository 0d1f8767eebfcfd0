package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/realtime"
	"github.com/techagentng/wastewatch/server/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleListNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		notifications, err := s.NotificationService.List(c.Request.Context(), actor.Role, actor.Subject)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Notifications retrieved successfully", http.StatusOK, notifications, nil)
	}
}

func (s *Server) handleDeleteAllNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		deleted, err := s.NotificationService.DeleteAll(c.Request.Context(), actor.Role, actor.Subject)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Notifications deleted successfully", http.StatusOK, gin.H{"deleted": deleted}, nil)
	}
}

func (s *Server) handleDeleteNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		id, err := pathID(c, "id")
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		if err := s.NotificationService.DeleteOne(c.Request.Context(), actor.Role, actor.Subject, id); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Notification deleted successfully", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleMarkNotificationRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		id, err := pathID(c, "id")
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		if err := s.NotificationService.MarkRead(c.Request.Context(), actor.Role, actor.Subject, id); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Notification marked as read", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleMarkAllNotificationsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		updated, err := s.NotificationService.MarkAllRead(c.Request.Context(), actor.Role, actor.Subject)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Notifications marked as read", http.StatusOK, gin.H{"updated": updated}, nil)
	}
}

// handleWebsocket upgrades the connection and subscribes it to the caller's
// own room and role broadcast room. Admins only have the broadcast room.
func (s *Server) handleWebsocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		if s.Hub == nil {
			response.JSON(c, "realtime delivery is disabled", http.StatusServiceUnavailable, nil, nil)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.Logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		rooms := []string{models.Room(actor.Role, nil)}
		if actor.Role != models.RoleAdmin {
			rooms = append(rooms, models.Room(actor.Role, &actor.Subject))
		}
		client := realtime.NewClient(s.Hub, conn, rooms...)
		if err := client.Serve(); err != nil {
			s.Logger.Debug("websocket closed", "subject", actor.Subject, "error", err)
		}
	}
}
