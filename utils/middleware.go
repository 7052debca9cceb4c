package utils

import (
	"errors"
	"net/http"

	"cafereview/database"
	"cafereview/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
	ContextClaims = "token_claims"
)

// AuthMiddleware resolves the bearer token to a user before any handler runs.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			ErrorResponse(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := ClaimsFromHeader(authHeader)
		if err != nil {
			ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		revoked, err := Denylist.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			ServerErrorResponse(c, "check token revocation", err)
			return
		}
		if revoked {
			ErrorResponse(c, http.StatusUnauthorized, "Token has been revoked")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			ErrorResponse(c, http.StatusUnauthorized, "Invalid token payload")
			return
		}

		var user model.User
		if err := database.DB.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			ServerErrorResponse(c, "load token user", err)
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, &user)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// CurrentUser returns the user placed in the context by AuthMiddleware.
func CurrentUser(c *gin.Context) *model.User {
	if user, ok := c.Get(ContextUser); ok {
		if u, ok := user.(*model.User); ok {
			return u
		}
	}
	return nil
}

func CurrentClaims(c *gin.Context) *Claims {
	if claims, ok := c.Get(ContextClaims); ok {
		if cl, ok := claims.(*Claims); ok {
			return cl
		}
	}
	return nil
}
