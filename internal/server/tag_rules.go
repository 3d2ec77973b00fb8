package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	tagruledomain "github.com/studiobill/studiobill/internal/tagrule/domain"
)

func (s *Server) ListTagRules(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rules, err := s.tagRuleRepo.List(c.Request.Context(), s.db, ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag_rules": rules})
}

type createTagRuleRequest struct {
	Keyword string `json:"keyword"`
	Tag     string `json:"tag"`
}

func (s *Server) CreateTagRule(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createTagRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		AbortWithError(c, tagruledomain.ErrInvalidKeyword)
		return
	}
	tag := strings.TrimSpace(req.Tag)
	if tag == "" {
		AbortWithError(c, tagruledomain.ErrInvalidTag)
		return
	}

	now := time.Now().UTC()
	rule := tagruledomain.TagRule{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		Keyword:   keyword,
		Tag:       tag,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tagRuleRepo.Insert(c.Request.Context(), s.db, &rule); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) DeleteTagRule(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, tagruledomain.ErrInvalidID)
		return
	}
	if err := s.tagRuleRepo.Delete(c.Request.Context(), s.db, ownerID, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
