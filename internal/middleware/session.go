package middleware

import (
	"course_study_backend/internal/util"
	"course_study_backend/pkg/session"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const SessionHeader = "X-Session-Token"

// Session 从 cookie 或请求头读取会话令牌，没有时签发新令牌
func Session(cookieName string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(SessionHeader)
		if token == "" {
			if cookie, err := c.Cookie(cookieName); err == nil {
				token = cookie
			}
		}
		if util.ValidateID(token) != nil {
			token = session.NewToken()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, token, int(ttl/time.Second), "/", "", c.Request.TLS != nil, true)
			c.Header(SessionHeader, token)
		}

		c.Set(util.ContextKeySessionToken, token)
		c.Next()
	}
}
