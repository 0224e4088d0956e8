package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"postboard/internal/service"
)

const sessionKey = "session"

// requireAuth resolves the bearer token into a session or aborts with 401.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			h.abortUnauthenticated(c, service.ErrUnauthenticated)
			return
		}

		session, err := h.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.abortUnauthenticated(c, err)
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func (h *Handler) abortUnauthenticated(c *gin.Context, err error) {
	h.writeError(c, err)
	c.Abort()
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// currentSession is only valid behind requireAuth.
func currentSession(c *gin.Context) *service.Session {
	return c.MustGet(sessionKey).(*service.Session)
}
