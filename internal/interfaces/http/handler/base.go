package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shoply/backend/internal/domain/payment"
	"github.com/shoply/backend/internal/domain/shared"
	"github.com/shoply/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the gin context key for the request ID
const RequestIDKey = "request_id"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain and payment errors to HTTP responses. Raw
// provider payloads and stored config values never reach the caller; only
// the localized condition message does.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var condErr *payment.ConditionFailure
	if errors.As(err, &condErr) {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeProviderRejected), dto.ErrCodeProviderRejected, condErr.Error())
		return
	}

	var authErr *payment.AuthError
	if errors.As(err, &authErr) {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeProviderAuth), dto.ErrCodeProviderAuth, "Payment provider authentication failed")
		return
	}

	var netErr *payment.NetworkError
	if errors.As(err, &netErr) {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeProviderNetwork), dto.ErrCodeProviderNetwork, "Payment provider is unreachable")
		return
	}

	var cfgErr *payment.ConfigError
	if errors.As(err, &cfgErr) {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeProviderConfig), dto.ErrCodeProviderConfig, "Payment provider is not configured")
		return
	}

	switch {
	case errors.Is(err, payment.ErrProviderNotConfigured):
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeProviderConfig), dto.ErrCodeProviderConfig, "Payment provider is not configured")
		return
	case errors.Is(err, payment.ErrInvoiceAlreadyPaid):
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeAlreadyPaid), dto.ErrCodeAlreadyPaid, "Invoice is already paid")
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
