package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:        http.StatusUnprocessableEntity,
		KindNotFound:          http.StatusNotFound,
		KindLimitExceeded:     http.StatusTooManyRequests,
		KindInvalidTransition: http.StatusBadRequest,
		KindAlreadyTerminal:   http.StatusBadRequest,
		KindConflict:          http.StatusConflict,
		KindDependency:        http.StatusInternalServerError,
		KindUnauthorized:      http.StatusUnauthorized,
		KindForbidden:         http.StatusForbidden,
		Kind("mystery"):       http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), string(kind))
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := Conflict("changed concurrently").With("current", "Resolved")
	wrapped := fmt.Errorf("transition: %w", base)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, HasKind(wrapped, KindConflict))
	assert.False(t, HasKind(nil, KindConflict))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain")))

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "Resolved", e.Context["current"])
}

func TestDependencyKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Dependency(cause, "storage unavailable")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage unavailable: connection refused", err.Error())
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestNewDerivesKind(t *testing.T) {
	assert.Equal(t, KindUnauthorized, New("Unauthorized", http.StatusUnauthorized).Kind)
	assert.Equal(t, KindNotFound, New("gone", http.StatusNotFound).Kind)
	assert.Equal(t, KindInternal, New("boom", http.StatusInternalServerError).Kind)
}

func TestRateLimitErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	ErrorHandler(c, ratelimit.Info{ResetTime: time.Now().Add(30 * time.Second)})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many requests, try again in")
	assert.True(t, c.IsAborted())
}
