package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) RecognizedRevenue(c *gin.Context) {
	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil || from == nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "from is required"))
		return
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil || to == nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "to is required"))
		return
	}

	summary, err := s.revenueSvc.RecognizedRevenue(c.Request.Context(), ownerIDParam(c), *from, *to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) IntegrityFlags(c *gin.Context) {
	flags, err := s.revenueSvc.IntegrityFlags(c.Request.Context(), ownerIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": flags})
}
