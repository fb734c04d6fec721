package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inventoryapp "github.com/shoply/backend/internal/application/inventory"
	"github.com/shoply/backend/internal/domain/inventory"
)

// InventoryHandler exposes the stock ledger
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.Service
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.Service) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// RegisterRoutes registers inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	{
		inv.POST("/records", h.OpenStock)
		inv.POST("/adjust", h.Adjust)
		inv.GET("/ledger", h.Ledger)
	}
}

// OpenStockRequest is the request body for creating an inventory record
type OpenStockRequest struct {
	ShopID    string          `json:"shop_id" binding:"required,uuid"`
	ProductID string          `json:"product_id" binding:"required,uuid"`
	VariantID string          `json:"variant_id" binding:"omitempty,uuid"`
	Stock     decimal.Decimal `json:"stock"`
}

// OpenStock creates the inventory record for an item
func (h *InventoryHandler) OpenStock(c *gin.Context) {
	var req OpenStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	record, err := h.inventoryService.OpenStock(c.Request.Context(),
		uuid.MustParse(req.ShopID), uuid.MustParse(req.ProductID), parseVariantID(req.VariantID), req.Stock)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, record)
}

// AdjustRequest is the request body for one stock movement
type AdjustRequest struct {
	ShopID    string          `json:"shop_id" binding:"required,uuid"`
	ProductID string          `json:"product_id" binding:"required,uuid"`
	VariantID string          `json:"variant_id" binding:"omitempty,uuid"`
	Type      string          `json:"type" binding:"required,oneof=in order reverse"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Price     decimal.Decimal `json:"price"`
}

// Adjust applies one stock movement
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.inventoryService.Adjust(c.Request.Context(), inventoryapp.AdjustInput{
		ShopID:    uuid.MustParse(req.ShopID),
		ProductID: uuid.MustParse(req.ProductID),
		VariantID: parseVariantID(req.VariantID),
		Type:      inventory.AdjustmentType(req.Type),
		Quantity:  req.Quantity,
		Price:     req.Price,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Ledger returns the adjustment history for an item, newest first
func (h *InventoryHandler) Ledger(c *gin.Context) {
	shopID, err := uuid.Parse(c.Query("shop_id"))
	if err != nil {
		h.BadRequest(c, "invalid shop id")
		return
	}
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		h.BadRequest(c, "invalid product id")
		return
	}

	var variantID *uuid.UUID
	if raw := c.Query("variant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "invalid variant id")
			return
		}
		variantID = &id
	}

	entries, err := h.inventoryService.Ledger(c.Request.Context(), shopID, productID, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// parseVariantID maps an optional, already-validated variant id
func parseVariantID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id := uuid.MustParse(raw)
	return &id
}
