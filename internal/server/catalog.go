package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salesengine/internal/apperror"
	customerdomain "github.com/smallbiznis/salesengine/internal/customer/domain"
	paymentmethoddomain "github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	productdomain "github.com/smallbiznis/salesengine/internal/product/domain"
)

func (s *Server) ListProducts(c *gin.Context) {
	products, err := s.productSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.JSONParse(err))
		return
	}
	product, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": product})
}

func (s *Server) GetProduct(c *gin.Context) {
	product, err := s.productSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) RestockProduct(c *gin.Context) {
	var req productdomain.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.JSONParse(err))
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	product, err := s.productSvc.Restock(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) ListCustomers(c *gin.Context) {
	customers, err := s.customerSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customers})
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req customerdomain.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.JSONParse(err))
		return
	}
	customer, err := s.customerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": customer})
}

func (s *Server) GetCustomer(c *gin.Context) {
	customer, err := s.customerSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customer})
}

type setPaymentMethodActiveRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) ListPaymentMethods(c *gin.Context) {
	methods, err := s.paymentMethods.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": methods})
}

func (s *Server) CreatePaymentMethod(c *gin.Context) {
	var req paymentmethoddomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.JSONParse(err))
		return
	}
	method, err := s.paymentMethods.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": method})
}

func (s *Server) SetPaymentMethodActive(c *gin.Context) {
	var req setPaymentMethodActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.JSONParse(err))
		return
	}
	if req.Active == nil {
		AbortWithError(c, newValidationError("active", "required", "active is required"))
		return
	}
	method, err := s.paymentMethods.SetActive(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": method})
}
