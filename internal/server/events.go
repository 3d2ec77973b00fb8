package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
)

func (s *Server) ListEvents(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	filter := eventdomain.ListFilter{OwnerID: ownerID}

	if raw := c.Query("billing_entity_id"); raw != "" {
		entityID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		filter.BillingEntityID = &entityID
	}
	if c.Query("unbilled") == "true" {
		filter.Unbilled = true
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		filter.To = &to
	}

	events, err := s.eventSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type assignEventRequest struct {
	// Empty BillingEntityID clears the assignment and the manual flag.
	BillingEntityID string `json:"billing_entity_id"`
}

func (s *Server) AssignEventManually(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req assignEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event, err := s.eventSvc.AssignManually(c.Request.Context(), ownerID, c.Param("id"), req.BillingEntityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}
