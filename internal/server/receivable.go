package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salesengine/internal/apperror"
	receivabledomain "github.com/smallbiznis/salesengine/internal/receivable/domain"
)

type updatePaymentStatusRequest struct {
	PaymentStatus   string            `json:"payment_status"`
	PaymentMethodID *string           `json:"payment_method_id"`
	PaymentDetails  map[string]string `json:"payment_details"`
}

func (s *Server) UpdatePaymentStatus(c *gin.Context) {
	var req updatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.JSONParse(err))
		return
	}

	record, err := s.revenueSvc.UpdatePaymentStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.PaymentStatus, req.PaymentMethodID, req.PaymentDetails)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) RecordPartialPayment(c *gin.Context) {
	var req receivabledomain.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.JSONParse(err))
		return
	}

	result, err := s.receivableSvc.RecordPartialPayment(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (s *Server) ListSalePayments(c *gin.Context) {
	payments, err := s.receivableSvc.ListPayments(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payments})
}

func (s *Server) GetAccountsReceivableAging(c *gin.Context) {
	asOf, err := parseOptionalTime(c.Query("as_of"), true)
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_as_of", "invalid as_of"))
		return
	}

	report, err := s.receivableSvc.GetAccountsReceivableAging(c.Request.Context(), ownerIDParam(c), asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) GetCustomerCreditSummary(c *gin.Context) {
	summary, err := s.receivableSvc.GetCustomerCreditSummary(c.Request.Context(), ownerIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}
