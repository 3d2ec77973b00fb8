package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
	rematchdomain "github.com/studiobill/studiobill/internal/rematch/domain"
)

func (s *Server) RunMatching(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.matcherSvc.Match(c.Request.Context(), ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rematchRequest struct {
	FeedID   string   `json:"feed_id,omitempty"`
	EventIDs []string `json:"event_ids,omitempty"`

	RematchTags     bool `json:"rematch_tags"`
	RematchEntities bool `json:"rematch_entities"`
}

func (s *Server) RunRematch(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var body rematchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	req := rematchdomain.Request{
		OwnerID:         ownerID,
		RematchTags:     body.RematchTags,
		RematchEntities: body.RematchEntities,
	}
	if body.FeedID != "" {
		feedID, err := snowflake.ParseString(body.FeedID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.Scope.FeedID = &feedID
	}
	for _, raw := range body.EventIDs {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, eventdomain.ErrInvalidID)
			return
		}
		req.Scope.EventIDs = append(req.Scope.EventIDs, id)
	}

	result, err := s.rematchSvc.Run(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
