package server

import (
	"net/http"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/server/response"
	"github.com/techagentng/wastewatch/services"
	"github.com/techagentng/wastewatch/services/jwt"
)

const (
	ctxSubjectID   = "subjectID"
	ctxRole        = "role"
	ctxAccessToken = "access_token"
)

// Authorize accepts a bearer token, or a token query parameter for websocket
// upgrades where browsers cannot set headers.
func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		if accessToken == "" {
			accessToken = strings.TrimSpace(c.Query("token"))
		}
		if accessToken == "" {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.New("Unauthorized", http.StatusUnauthorized))
			return
		}

		if s.AuthRepository.IsTokenInBlacklist(c.Request.Context(), accessToken) {
			respondAndAbort(c, "Access token is blacklisted", http.StatusUnauthorized, nil, errs.New("Unauthorized", http.StatusUnauthorized))
			return
		}

		accessClaims, err := jwt.ValidateAndGetClaims(accessToken, s.Config.JWTSecret)
		if err != nil {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.New("Unauthorized", http.StatusUnauthorized))
			return
		}

		subject, roleName, err := jwt.Subject(accessClaims)
		if err != nil {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.New(err.Error(), http.StatusUnauthorized))
			return
		}
		subjectID, err := uuid.Parse(subject)
		if err != nil {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.New("Invalid subject format", http.StatusUnauthorized))
			return
		}
		role, err := models.ParseRole(roleName)
		if err != nil {
			respondAndAbort(c, "", http.StatusForbidden, nil, errs.New(err.Error(), http.StatusForbidden))
			return
		}

		c.Set(ctxSubjectID, subjectID)
		c.Set(ctxRole, role)
		c.Set(ctxAccessToken, accessToken)
		c.Next()
	}
}

// RequireRoles must run after Authorize.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		respondAndAbort(c, "", http.StatusForbidden, nil, errs.Forbidden("Access denied for role "+string(actor.Role)))
	}
}

// limitRatePerSubject throttles a route per authenticated subject.
func limitRatePerSubject(store ratelimit.Store) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errs.ErrorHandler,
		KeyFunc:      keyFunc,
	})
}

func newSubjectStore(perMinute, fallback uint) ratelimit.Store {
	if perMinute == 0 {
		perMinute = fallback
	}
	return ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: perMinute,
	})
}

func keyFunc(c *gin.Context) string {
	if actor, ok := actorFromContext(c); ok {
		return actor.Subject.String()
	}
	return c.ClientIP()
}

func actorFromContext(c *gin.Context) (services.Actor, bool) {
	subject, ok := c.Get(ctxSubjectID)
	if !ok {
		return services.Actor{}, false
	}
	role, ok := c.Get(ctxRole)
	if !ok {
		return services.Actor{}, false
	}
	id, ok1 := subject.(uuid.UUID)
	r, ok2 := role.(models.Role)
	if !ok1 || !ok2 {
		return services.Actor{}, false
	}
	return services.Actor{Subject: id, Role: r}, true
}

func getTokenFromHeader(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// respondAndAbort calls response.JSON and aborts the Context
func respondAndAbort(c *gin.Context, message string, status int, data interface{}, e *errs.Error) {
	response.JSON(c, message, status, data, e)
	c.Abort()
}
