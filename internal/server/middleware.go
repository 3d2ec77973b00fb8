package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const ownerContextKey = "owner_id"

// OwnerContext resolves the acting owner from the X-Owner-ID header set by
// the upstream gateway. Authentication itself happens outside this service.
func (s *Server) OwnerContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Owner-ID")
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		ownerID, err := snowflake.ParseString(raw)
		if err != nil || ownerID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(ownerContextKey, ownerID)
		c.Next()
	}
}

func ownerFromContext(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(ownerContextKey)
	if !ok {
		return 0, false
	}
	ownerID, ok := value.(snowflake.ID)
	return ownerID, ok
}
