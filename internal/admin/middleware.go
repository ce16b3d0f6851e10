package admin

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/streamcart/backend/pkg/response"
)

// ContextSession is the gin context key for the parsed *Session.
const ContextSession = "admin_session"

// Guard returns a middleware that requires a live admin session token and puts
// the parsed Session in the context. Services re-check expiry themselves; this
// only keeps unauthenticated traffic off the admin surface.
func Guard(sessions *SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "missing admin session token")
			c.Abort()
			return
		}
		sess, err := sessions.Parse(parts[1])
		if err != nil {
			response.Unauthorized(c, "admin session expired")
			c.Abort()
			return
		}
		c.Set(ContextSession, sess)
		c.Next()
	}
}

// SessionFrom extracts the Session placed by Guard, or nil when absent.
func SessionFrom(c *gin.Context) *Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*Session)
	return sess
}
