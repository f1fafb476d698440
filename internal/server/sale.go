package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salesengine/internal/apperror"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
)

const maxSaleBodyBytes = 1 << 20

func (s *Server) ProcessSale(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSaleBodyBytes))
	if err != nil {
		AbortWithError(c, apperror.JSONParse(err))
		return
	}
	req, err := saledomain.DecodeSaleRequest(body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	record, err := s.saleSvc.ProcessSale(c.Request.Context(), req, ownerIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": record})
}

func (s *Server) GetSale(c *gin.Context) {
	record, err := s.saleSvc.GetSale(c.Request.Context(), strings.TrimSpace(c.Param("id")), ownerIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) ListSales(c *gin.Context) {
	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	sales, err := s.saleSvc.ListSales(c.Request.Context(), ownerIDParam(c), saledomain.ListFilter{
		Status:     strings.TrimSpace(c.Query("payment_status")),
		CustomerID: strings.TrimSpace(c.Query("customer_id")),
		From:       from,
		To:         to,
		Limit:      limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sales})
}

func (s *Server) ReverseSale(c *gin.Context) {
	if err := s.saleSvc.ReverseSale(c.Request.Context(), strings.TrimSpace(c.Param("id")), ownerIDParam(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
