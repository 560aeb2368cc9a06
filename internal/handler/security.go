package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/carepharm/api-server/internal/domain/auth"
)

const customerIDKey = "customerID"

// HashToken derives the stored lookup hash for an access token. Tokens are
// kept only as HMAC-SHA256 digests, so a leaked table does not leak tokens.
func HashToken(pepper []byte, token string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate returns middleware that resolves a bearer token to a customer
// and stores the customer id in the request context.
func Authenticate(tokens auth.Repository, pepper []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, message("Please log in to complete the order."))
			return
		}

		info, err := tokens.FindByHash(c.Request.Context(), HashToken(pepper, token))
		if err != nil {
			if errors.Is(err, auth.ErrTokenNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, message("Invalid access token."))
				return
			}
			zctx.From(c.Request.Context()).Error("Token lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, message("Internal server error."))
			return
		}

		c.Set(customerIDKey, info.CustomerID)
		c.Next()
	}
}

func customerID(c *gin.Context) string {
	return c.GetString(customerIDKey)
}
