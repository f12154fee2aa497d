package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ngaut/NexusCRM-sub002/internal/auth"
	apperrors "github.com/ngaut/NexusCRM-sub002/internal/pkg/errors"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/response"
	"go.uber.org/zap"
)

// JWTAuth JWT 认证中间件
func JWTAuth(jwtManager *auth.JWTManager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		var err error

		// 优先从 Authorization header 获取 token
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			token, err = auth.ExtractTokenFromHeader(authHeader)
			if err != nil {
				response.ErrorWithCode(c, apperrors.ErrAuthInvalidToken, err.Error())
				c.Abort()
				return
			}
		} else {
			// 浏览器端 EventSource 无法设置 header
			token = c.Query("token")
			if token == "" {
				response.ErrorWithCode(c, apperrors.ErrUnauthorized, "missing authorization")
				c.Abort()
				return
			}
		}

		claims, err := jwtManager.VerifyAccessToken(token)
		if err != nil {
			log.WithContext(c.Request.Context()).Warn("invalid access token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))
			code := apperrors.ErrAuthInvalidToken
			if errors.Is(err, auth.ErrTokenExpired) {
				code = apperrors.ErrAuthTokenExpired
			}
			response.ErrorWithCode(c, code)
			c.Abort()
			return
		}

		// 将用户信息注入到上下文
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

// CORS 跨域中间件
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
			c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type, X-Request-ID, X-RateLimit-Remaining, Retry-After")
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
