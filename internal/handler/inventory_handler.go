package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
	accessService    service.AccessService
}

func NewInventoryHandler(inventoryService service.InventoryService, accessService service.AccessService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, accessService: accessService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api")
	{
		inventory.GET("/inventory", middleware.RequireAuth(), h.ListBatches)
		inventory.POST("/inventory", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.CreateBatch)
		inventory.GET("/inventory/low-stock", middleware.RequireAuth(), h.LowStockAlerts)
		inventory.GET("/inventory/expired", middleware.RequireAuth(), h.ExpiredBatches)
		inventory.GET("/inventory/:id", middleware.RequireAuth(), h.GetBatch)
		inventory.GET("/inventory/:id/movements", middleware.RequireAuth(), h.ListMovements)
		inventory.POST("/inventory/adjust", middleware.RequireAuth(), h.AdjustStock)
	}
}

// ListBatches retrieves paginated inventory batches reachable by the caller
// @Summary      List inventory batches
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20)"
// @Param        pharmacy_id  query  string  false  "Filter by pharmacy"
// @Param        search       query  string  false  "Search by medicine name"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/inventory [get]
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	batches, total, err := h.inventoryService.ListBatches(c.Request.Context(), scope, service.ListBatchesFilter{
		PharmacyID: c.Query("pharmacy_id"),
		Search:     c.Query("search"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"batches": batches,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// CreateBatch registers a new inventory batch with its initial stock movement
// @Summary      Create inventory batch
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBatchRequest  true  "Create Batch Payload"
// @Success      201      {object}  response.Response{data=model.InventoryBatch}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/inventory [post]
func (h *InventoryHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	batch, err := h.inventoryService.CreateBatch(c.Request.Context(), actor, scope, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, batch))
}

// GetBatch retrieves one inventory batch
// @Summary      Get inventory batch
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Inventory Batch ID"
// @Success      200  {object}  response.Response{data=model.InventoryBatch}
// @Failure      404  {object}  response.Response
// @Router       /api/inventory/{id} [get]
func (h *InventoryHandler) GetBatch(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	batch, err := h.inventoryService.GetBatch(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// AdjustStock applies a manual stock correction paired with a movement record
// @Summary      Adjust stock
// @Description  Applies IN/OUT/ADJUSTMENT/EXPIRED/DAMAGED corrections, pairing each with one stock movement in a transaction
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AdjustStockRequest  true  "Adjust Stock Payload"
// @Success      200      {object}  response.Response{data=model.InventoryBatch}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/inventory/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	batch, err := h.inventoryService.AdjustStock(c.Request.Context(), actor, scope, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// LowStockAlerts lists batches at or below their minimum stock level
// @Summary      Low stock alerts
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStockAlerts(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	batches, err := h.inventoryService.LowStockAlerts(c.Request.Context(), scope)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"low_stock_items": batches,
		"count":           len(batches),
	}))
}

// ExpiredBatches lists batches past their expiry date
// @Summary      Expired batches
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/inventory/expired [get]
func (h *InventoryHandler) ExpiredBatches(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	batches, err := h.inventoryService.ExpiredBatches(c.Request.Context(), scope)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"expired_items": batches,
		"count":         len(batches),
	}))
}

// ListMovements retrieves the stock movement ledger of a batch
// @Summary      List stock movements
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id     path   string  true   "Inventory Batch ID"
// @Param        page   query  int     false  "Page number (default 1)"
// @Param        limit  query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/inventory/{id}/movements [get]
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	movements, total, err := h.inventoryService.ListMovements(c.Request.Context(), scope, c.Param("id"), params.Page, params.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}
