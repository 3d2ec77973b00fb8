package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
)

func (s *Server) ListBillingEntities(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	entities, err := s.entitySvc.List(c.Request.Context(), ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"billing_entities": entities})
}

func (s *Server) CreateBillingEntity(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req entitydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.OwnerID = ownerID

	entity, err := s.entitySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entity)
}

func (s *Server) GetBillingEntityByID(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	entity, err := s.entitySvc.GetByID(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

func (s *Server) UpdateBillingEntity(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req entitydomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.OwnerID = ownerID
	req.ID = c.Param("id")

	entity, err := s.entitySvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

func (s *Server) DeleteBillingEntity(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.entitySvc.Delete(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
