package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
	"github.com/studiobill/studiobill/internal/payout"
)

type payoutPreviewRequest struct {
	// Either reference a stored entity or inline a rate config.
	BillingEntityID string                   `json:"billing_entity_id,omitempty"`
	RateConfig      *entitydomain.RateConfig `json:"rate_config,omitempty"`

	StudentsStudio int             `json:"students_studio"`
	StudentsOnline int             `json:"students_online"`
	Deductions     decimal.Decimal `json:"deductions"`
}

type payoutPreviewResponse struct {
	Amount  decimal.Decimal `json:"amount"`
	Warning string          `json:"warning,omitempty"`
}

// PreviewPayout resolves a single hypothetical event without persisting
// anything. It backs the rate editor's live preview.
func (s *Server) PreviewPayout(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req payoutPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cfg := req.RateConfig
	if cfg == nil {
		if req.BillingEntityID == "" {
			AbortWithError(c, entitydomain.ErrMissingRateConfig)
			return
		}
		entity, err := s.entitySvc.GetByID(c.Request.Context(), ownerID, req.BillingEntityID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		parsed, err := entity.ParsedRateConfig()
		if err != nil {
			AbortWithError(c, entitydomain.ErrMissingRateConfig)
			return
		}
		cfg = &parsed
	}
	if err := cfg.Validate(); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := payout.Compute(payout.EventInput{
		StudentsStudio: req.StudentsStudio,
		StudentsOnline: req.StudentsOnline,
		Deductions:     req.Deductions,
	}, *cfg)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordPayoutComputed(c.Request.Context(), string(cfg.Type))
	c.JSON(http.StatusOK, payoutPreviewResponse{
		Amount:  result.Amount,
		Warning: result.Warning,
	})
}
