package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salesengine/internal/apperror"
	usagedomain "github.com/smallbiznis/salesengine/internal/usage/domain"
)

type prorataRequest struct {
	NewPlan string `json:"new_plan"`
}

func parseFeatureParam(c *gin.Context) (usagedomain.Feature, bool) {
	feature, err := usagedomain.ParseFeature(c.Param("feature"))
	if err != nil {
		AbortWithError(c, apperror.Invalid("feature", usagedomain.ErrInvalidFeature, "feature must be one of invoices, expenses, sales, products"))
		return "", false
	}
	return feature, true
}

func (s *Server) CheckUsageLimit(c *gin.Context) {
	feature, ok := parseFeatureParam(c)
	if !ok {
		return
	}
	status, err := s.usageSvc.CheckUsageLimit(c.Request.Context(), usageSubject(c), feature)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (s *Server) IncrementUsage(c *gin.Context) {
	feature, ok := parseFeatureParam(c)
	if !ok {
		return
	}
	status, err := s.usageSvc.IncrementUsage(c.Request.Context(), usageSubject(c), feature)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (s *Server) CalculateProrataUpgrade(c *gin.Context) {
	var req prorataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.JSONParse(err))
		return
	}
	if strings.TrimSpace(req.NewPlan) == "" {
		AbortWithError(c, newValidationError("new_plan", "required", "new_plan is required"))
		return
	}

	quote, err := s.usageSvc.CalculateProrataUpgrade(c.Request.Context(), usageSubject(c), req.NewPlan)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}
