package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
)

const (
	HeaderOwner = "X-Owner-ID"
	HeaderUser  = "X-User-ID"
)

// OwnerContext copies the caller identity headers into the request context.
// Authentication happens upstream; a missing owner is rejected here.
func OwnerContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, err := parseHeaderID(c.GetHeader(HeaderOwner))
		if err != nil || ownerID == 0 {
			AbortWithError(c, newValidationError("owner_id", ErrMissingOwner.Error(), "X-Owner-ID header is required"))
			return
		}
		ctx := ownercontext.WithOwnerID(c.Request.Context(), ownerID)

		if raw := strings.TrimSpace(c.GetHeader(HeaderUser)); raw != "" {
			userID, err := parseHeaderID(raw)
			if err != nil || userID == 0 {
				AbortWithError(c, newValidationError("user_id", "invalid_user", "X-User-ID header is invalid"))
				return
			}
			ctx = ownercontext.WithUserID(ctx, userID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func parseHeaderID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func ownerIDParam(c *gin.Context) string {
	ownerID, _ := ownercontext.OwnerIDFromContext(c.Request.Context())
	return ownerID.String()
}

// usageSubject is the acting user when known, else the owner.
func usageSubject(c *gin.Context) string {
	if userID, ok := ownercontext.UserIDFromContext(c.Request.Context()); ok {
		return userID.String()
	}
	return ownerIDParam(c)
}
