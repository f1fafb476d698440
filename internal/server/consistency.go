package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ConsistencyAudit(c *gin.Context) {
	report, err := s.consistencySvc.Audit(c.Request.Context(), ownerIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) ConsistencyRepair(c *gin.Context) {
	result, err := s.consistencySvc.Repair(c.Request.Context(), ownerIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
