package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	feeddomain "github.com/studiobill/studiobill/internal/calendarfeed/domain"
)

// ListCalendarFeeds exposes the feeds the import pipeline maintains, mainly
// so clients can offer feed-scoped rematch.
func (s *Server) ListCalendarFeeds(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var feeds []feeddomain.CalendarFeed
	err := s.db.WithContext(c.Request.Context()).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&feeds).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendar_feeds": feeds})
}
