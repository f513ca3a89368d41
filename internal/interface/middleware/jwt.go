package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/accentry/account-service/pkg/helpers"
	"github.com/accentry/account-service/pkg/response"
)

const CtxAccountIDKey = "accountID"

// JWTAuth validates the Authorization bearer token and injects the account
// id into the Gin context. A token that fails to decode means
// unauthenticated, regardless of why.
func JWTAuth(tokens *helpers.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		id, ok := tokens.DecodeSubject(token)
		if !ok {
			resp := response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set(CtxAccountIDKey, id.String())
		c.Next()
	}
}
